// Package component implements the restricted Component Model subset
// spec.md §6 describes: static module instantiation with a single
// instance per static module, canonical ABI import/export lowering and
// lifting built on a `realloc` export and an optional `post-return`
// export, UTF-8-only string encoding. It is a thin translation layer
// over internal/wasmfront: a component's core module is decoded and
// translated exactly as a core module would be (component.translator.rs
// in the retrieved original_source grounds this split — see DESIGN.md),
// and this package additionally emits the marshaling HIR the canonical
// ABI specifies around any import/export whose signature carries a
// component-level string.
package component

import (
	"github.com/pkg/errors"

	"github.com/midenhir/compiler/internal/wasmfront"
)

// StringEncoding is the component-level string encoding in force for a
// canonical ABI boundary. spec.md §6 supports only UTF8; Latin1 and
// UTF16 exist in the real Component Model spec but are rejected here.
type StringEncoding int

const (
	UTF8 StringEncoding = iota
)

// CanonicalOptions names the realloc/post-return exports a component
// instance supplies for canonical-ABI marshaling ("canonopts" in the
// component-model spec), and the string encoding in force.
type CanonicalOptions struct {
	// Realloc is the core export used to (re)allocate linear memory for
	// lowered arguments: `realloc(old_ptr, old_size, align, new_size)`.
	// Required whenever a wrapped signature lowers a string argument.
	Realloc string
	// PostReturn is the core export, if any, called after the caller has
	// finished consuming a lifted result, so the callee can free any
	// memory realloc allocated on its behalf. Optional: spec.md §6 does
	// not require every export to declare one.
	PostReturn string
	StringEncoding StringEncoding
}

func (o CanonicalOptions) validate() error {
	if o.StringEncoding != UTF8 {
		return errors.New("component: only UTF-8 string encoding is supported")
	}
	if o.Realloc == "" {
		return errors.New("component: canonical options require a realloc export")
	}
	return nil
}

// Registry instantiates static modules into component instances. It
// enforces spec.md §6's restriction of a single instance per static
// module: Instantiate rejects a second call for a module identity
// already instantiated.
//
// DESIGN.md records the Open Question from spec.md §9 (whether this
// restriction is fundamental or temporary) as decided: this subset
// treats it as fundamental to its own scope, not a placeholder pending
// relaxation, since nothing in the retrieved sources describes how a
// second instance's own linear memory, table, and global state would
// be kept distinct from the first's within one compiled MASM program.
type Registry struct {
	instances map[string]*Instance
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Instance is one instantiated component, wrapping a single decoded
// core module and the canonical ABI options it exposes at its
// boundary.
type Instance struct {
	ID     string
	Module *wasmfront.Module
	Opts   CanonicalOptions
}

// Instantiate wraps the already-decoded module under id, failing if id
// has already been instantiated.
func (r *Registry) Instantiate(id string, module *wasmfront.Module, opts CanonicalOptions) (*Instance, error) {
	if _, exists := r.instances[id]; exists {
		return nil, errors.Errorf("component: module %q already has an instance (spec.md §6: one instance per static module)", id)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	inst := &Instance{ID: id, Module: module, Opts: opts}
	r.instances[id] = inst
	return inst, nil
}

// Lookup returns the instance registered under id, if any.
func (r *Registry) Lookup(id string) (*Instance, bool) {
	inst, ok := r.instances[id]
	return inst, ok
}

// Func returns the named core function of the instance, by its decoded
// wasmfront name (the exported name when one exists, else its
// func$<index> placeholder — see wasmfront.Decode).
func (inst *Instance) Func(name string) (*wasmfront.Function, bool) {
	for _, fn := range inst.Module.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}
