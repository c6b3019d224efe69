// Package fold supplements spec.md with a constant-folding/identity
// pre-pass over HIR, run before treeification so internal/stackify never
// has to special-case a foldable instruction itself (SPEC_FULL.md §4).
// hir2/src/folder.rs and hir2/src/matchers/matcher.rs in
// original_source/ ground this package's shape: an OperationFolder that
// uniques materialized constants, built on a generic Matcher combinator.
// The original is a full MLIR-style region/dialect-generic facility;
// this HIR has neither regions nor dialects, so the combinator here is
// narrower — plain function values composed with And/OneOf, rather than
// a trait-object matcher hierarchy.
package fold

// Matcher is a predicate over a value of type T.
type Matcher[T any] func(T) bool

// And reports whether every one of ms accepts v.
func And[T any](ms ...Matcher[T]) Matcher[T] {
	return func(v T) bool {
		for _, m := range ms {
			if !m(v) {
				return false
			}
		}
		return true
	}
}

// OneOf reports whether any one of ms accepts v.
func OneOf[T any](ms ...Matcher[T]) Matcher[T] {
	return func(v T) bool {
		for _, m := range ms {
			if m(v) {
				return true
			}
		}
		return false
	}
}

// MatchWith applies m to v and, only if it accepts, runs fn and reports
// success — the combinator form of "if this predicate holds, run this
// rewrite."
func MatchWith[T any, R any](v T, m Matcher[T], fn func(T) R) (R, bool) {
	var zero R
	if !m(v) {
		return zero, false
	}
	return fn(v), true
}
