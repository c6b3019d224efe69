// Package driver orchestrates one compilation end to end: decode with
// internal/wasmfront, translate and optimize each function, stackify it
// with internal/stackify, and assemble the result into an
// internal/masm.Program. It also owns spec.md §7's diagnostic stream and
// error propagation policy.
package driver

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/midenhir/compiler/internal/fold"
	"github.com/midenhir/compiler/internal/globals"
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/masm"
	"github.com/midenhir/compiler/internal/stackify"
	"github.com/midenhir/compiler/internal/treeify"
	"github.com/midenhir/compiler/internal/wasmfront"
)

// Session drives one compilation. A Session is not reused across
// modules: create a fresh one per Compile call so Diagnostics reflects
// exactly one run.
type Session struct {
	Opts        Options
	Diagnostics []Diagnostic
}

// NewSession returns a Session configured by opts.
func NewSession(opts Options) *Session {
	return &Session{Opts: opts}
}

// Compile runs the full pipeline over a core module read from r.
//
// Propagation policy (§7): kinds 1, 2, and 4 are accumulated into
// s.Diagnostics and the affected function (or the whole module, for a
// decode failure) is skipped — compilation continues so the caller sees
// every recoverable problem in one pass, not just the first. Kind 3 (an
// internal invariant violation — a panic from deep inside
// internal/hir/internal/treegraph/internal/stackify) is never added to
// Diagnostics: it is recovered at this boundary and returned as a plain
// error, since a library call must not take the whole process down;
// cmd/wasm2masm's main is where that error is actually treated as fatal.
func (s *Session) Compile(r io.Reader) (prog *masm.Program, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("panic", rec).Error("driver: internal invariant violation, aborting compilation")
			err = errors.Errorf("driver: internal invariant violation: %v", rec)
			prog = nil
		}
	}()

	mod, decodeErr := wasmfront.Decode(r)
	if decodeErr != nil {
		s.addDiagnostic(KindInputValidation, "", decodeErr.Error())
		return nil, errors.Wrap(decodeErr, "driver: decoding module")
	}

	st := globals.NewSymbolTable()
	layout := st.Layout(globals.DefaultReservedBytes)

	lib := masm.NewLibrary()
	funcsModule := masm.NewModule("wasm")

	entry := s.Opts.EntryFunction
	for _, fn := range mod.Functions {
		f, terr := wasmfront.Translate(fn)
		if terr != nil {
			s.addDiagnostic(KindLowering, fn.Name, terr.Error())
			continue
		}

		for b := 0; b < f.NumBlocks(); b++ {
			bid := hir.BlockID(b)
			if f.IsDetached(bid) {
				continue
			}
			fold.Block(f, bid)
		}

		if err := treeify.Run(f); err != nil {
			s.addDiagnostic(KindLowering, fn.Name, err.Error())
			continue
		}

		ops := stackify.EmitFunction(f)
		funcsModule.Insert(&masm.Procedure{Name: f.Name, Exported: fn.Exported, Body: ops})

		if fn.Exported && entry == "" {
			entry = f.Name
		}
		logrus.WithField("function", f.Name).Debug("driver: function compiled")
	}
	lib.Insert(funcsModule)

	if entry == "" {
		return nil, errors.New("driver: no entrypoint resolved (no exported function, and none configured)")
	}

	prog = masm.NewProgram("wasm::"+entry, layout, lib)
	if s.Opts.HeapBasePages > 0 {
		prog.HeapBase = s.Opts.HeapBasePages * masm.PageSize
	}
	mainModule := prog.GenerateMain(s.Opts.TestHarness)
	lib.Insert(mainModule)
	return prog, nil
}

func (s *Session) addDiagnostic(k Kind, fn, msg string) {
	d := Diagnostic{Kind: k, Function: fn, Message: msg}
	s.Diagnostics = append(s.Diagnostics, d)
	logrus.WithField("kind", k.String()).WithField("function", fn).Warn(msg)
}
