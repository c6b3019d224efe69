package driver

import "fmt"

// Kind is a recoverable diagnostic category from spec.md §7. Kind-3
// (internal invariant violation) and kind-5 (assembly trap condition)
// are deliberately absent: kind 3 is fatal and never accumulated (see
// Session.Compile), and kind 5 is compile-time transparent — it
// produces VM instructions that trap at runtime, not a diagnostic here.
type Kind int

const (
	// KindInputValidation covers malformed WebAssembly, an unsupported
	// feature, or a type mismatch at import/export (§7 kind 1).
	KindInputValidation Kind = iota
	// KindLowering covers an operator whose lowering to HIR is not
	// implemented, or a treeification invariant violation tied to one
	// function (§7 kind 2).
	KindLowering
	// KindSymbolConflict covers a duplicate global with incompatible
	// type or linkage (§7 kind 4).
	KindSymbolConflict
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input-validation"
	case KindLowering:
		return "lowering"
	case KindSymbolConflict:
		return "symbol-conflict"
	default:
		return "unknown"
	}
}

// Diagnostic is one recoverable compile-time error. Session.Compile
// accumulates these into its Diagnostics stream and continues past them
// (§7's "may be recovered past" propagation policy) rather than
// aborting the whole run on the first one; rendering them for a
// terminal is out of scope (SPEC_FULL.md §5 Non-goals), so Diagnostic
// is a structured value, not pre-formatted text.
type Diagnostic struct {
	Kind     Kind
	Function string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Function == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s (%s): %s", d.Kind, d.Function, d.Message)
}
