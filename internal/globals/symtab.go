// Package globals implements the symbol table and linear-memory layout
// pass for module-level globals (spec.md §3/§4.7): linkage resolution,
// deterministic collision renaming, and ascending-offset placement with
// alignment padding and a reserved low region for the global table and
// shadow stack.
package globals

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/midenhir/compiler/internal/types"
)

// Linkage is a global's visibility/merge policy.
type Linkage int

const (
	// Internal globals are private to the module that declares them; a
	// name collision with another internal global is resolved by
	// renaming, never by merging.
	Internal Linkage = iota
	// Odr ("one definition rule") globals merge across modules if every
	// declaration agrees on type, linkage, and initializer bytes.
	Odr
	// External globals are declared but defined elsewhere; the symbol
	// table only validates that every declaration agrees on type.
	External
)

func (l Linkage) String() string {
	switch l {
	case Internal:
		return "internal"
	case Odr:
		return "odr"
	case External:
		return "external"
	}
	return "unknown"
}

// Global is one module-level global variable.
type Global struct {
	Name    string
	Type    types.Type
	Linkage Linkage
	// Init is the global's constant initializer, little-endian encoded to
	// Type's natural byte width; nil for an External declaration with no
	// local initializer.
	Init []byte
}

// ConflictError reports two incompatible declarations of the same symbol
// (spec.md §6, "Symbol conflicts" — kind-4 diagnostic at the driver
// layer; this package only detects and describes it).
type ConflictError struct {
	Existing, Incoming Global
	Reason             string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("global %q: %s (existing: %s/%v, incoming: %s/%v)",
		e.Existing.Name, e.Reason, e.Existing.Linkage, e.Existing.Type, e.Incoming.Linkage, e.Incoming.Type)
}

// SymbolTable resolves linkage and renaming for a module's globals, in
// declaration order, so layout (see layout.go) is deterministic.
type SymbolTable struct {
	byName map[string]*Global
	order  []*Global
	// renameCounters tracks, per original requested name, how many
	// collisions have already been resolved, so renaming retries a fresh
	// suffix rather than looping on one already taken (§6 "Symbol
	// renaming").
	renameCounters map[string]int
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName:         make(map[string]*Global),
		renameCounters: make(map[string]int),
	}
}

// Declare adds g to the table, applying linkage rules, and returns the
// Global actually recorded — which may differ from g if it was renamed
// (Internal collision) or merged into an identical prior declaration
// (Odr). It returns a *ConflictError if g cannot be reconciled with an
// existing declaration of the same name.
func (st *SymbolTable) Declare(g Global) (*Global, error) {
	existing, collides := st.byName[g.Name]
	if !collides {
		return st.insert(g), nil
	}

	switch g.Linkage {
	case Odr:
		if existing.Linkage != Odr {
			return nil, &ConflictError{Existing: *existing, Incoming: g, Reason: "one-definition-rule global collides with non-odr global"}
		}
		if !sameDefinition(*existing, g) {
			return nil, &ConflictError{Existing: *existing, Incoming: g, Reason: "one-definition-rule globals with this name disagree"}
		}
		return existing, nil

	case External:
		if !existing.Type.Equal(g.Type) {
			return nil, &ConflictError{Existing: *existing, Incoming: g, Reason: "external declaration disagrees with existing type"}
		}
		return existing, nil

	case Internal:
		renamed := g
		renamed.Name = st.freshName(g)
		return st.insert(renamed), nil
	}
	return nil, errors.Errorf("globals: unknown linkage %v for %q", g.Linkage, g.Name)
}

func (st *SymbolTable) insert(g Global) *Global {
	gp := &g
	st.byName[g.Name] = gp
	st.order = append(st.order, gp)
	return gp
}

// freshName derives a deterministic, content-addressed suffix for an
// Internal global whose requested name is already taken, retrying with
// an incrementing counter until unique (§6 "Symbol renaming"). The hash
// is plain bookkeeping to keep generated names stable across rebuilds —
// it is not the Rescue-Prime commitment the VM verifies initializer data
// against, so an ordinary cryptographic hash is fine here.
func (st *SymbolTable) freshName(g Global) string {
	h := sha256.New()
	h.Write([]byte(g.Name))
	h.Write([]byte{byte(g.Linkage)})
	h.Write(g.Init)
	digest := h.Sum(nil)
	suffix := fmt.Sprintf("%x", digest[:3])

	for {
		n := st.renameCounters[g.Name]
		st.renameCounters[g.Name] = n + 1
		candidate := fmt.Sprintf("%s.%s.%d", g.Name, suffix, n)
		if _, taken := st.byName[candidate]; !taken {
			return candidate
		}
	}
}

func sameDefinition(a, b Global) bool {
	if !a.Type.Equal(b.Type) {
		return false
	}
	if len(a.Init) != len(b.Init) {
		return false
	}
	for i := range a.Init {
		if a.Init[i] != b.Init[i] {
			return false
		}
	}
	return true
}

// Globals returns every declared global in declaration order.
func (st *SymbolTable) Globals() []*Global { return st.order }

// Lookup returns the global recorded under name, if any.
func (st *SymbolTable) Lookup(name string) (*Global, bool) {
	g, ok := st.byName[name]
	return g, ok
}

// EncodeInit packs v little-endian to t's aligned byte width, the
// encoding every scalar Global.Init uses so DataSegment bytes can be fed
// straight to the Rescue-Prime commitment in internal/masm.
func EncodeInit(t types.Type, v uint64) []byte {
	width := t.SizeAligned()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	if width > 8 {
		out := make([]byte, width)
		copy(out, buf)
		return out
	}
	return buf[:width]
}
