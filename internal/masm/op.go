// Copyright 2024 The Miden HIR Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package masm implements the typed Miden Assembly instruction
// representation and the module/program containers that hold it (§4.7):
// the output of internal/stackify, and the generated entry-module
// sequence that initializes the dynamic heap and verifies data-segment
// preimages delivered on the advice stack.
package masm

import (
	"fmt"
	"strings"

	"github.com/midenhir/compiler/internal/types"
)

// Op is one Miden Assembly instruction, following the shape of
// program.rs's Op enum in the predecessor project: a fixed set of
// variants rather than a free-form mnemonic+operands pair, so emission
// (internal/stackify) and assembly text rendering stay exhaustive over
// what can actually be produced.
type Op struct {
	Kind OpKind

	// Imm carries Push/Dup/MovUp/MovDn/AdvPush's single numeric
	// immediate.
	Imm uint64

	// Word carries Pushw's 4-felt literal (a Rescue-Prime digest).
	Word [types.WordFelts]types.Felt

	// Callee carries Exec/SysCall's fully-qualified procedure name.
	Callee string

	// Body/Else carry WhileTrue's loop body and If's two arms.
	Body []Op
	Else []Op
}

// OpKind discriminates Op's variants.
type OpKind uint8

const (
	OpInvalid OpKind = iota

	OpPush    // push.<Imm>: push one felt literal
	OpPushw   // pushw.<Word>: push a 4-felt word literal
	OpDrop    // drop: pop and discard the top element
	OpDropw   // dropw: pop and discard the top word
	OpDup     // dup.<Imm>: duplicate the element at depth Imm
	OpSwap    // swap: exchange the top two elements
	OpMovup   // movup.<Imm>: move the element at depth Imm to the top
	OpMovdn   // movdn.<Imm>: move the top element to depth Imm
	OpAdvPush // adv_push.<Imm>: pop Imm elements from the advice stack
	OpExec    // exec.<Callee>: inline-call a procedure
	OpSyscall // syscall.<Callee>: call a kernel procedure
	OpAssert  // assert: trap unless top != 0
	OpAssertz // assertz: trap unless top == 0
	OpAssertEq
	OpWhileTrue // while.true <Body> end: loop while top != 0
	OpIf        // if.true <Body> else <Else> end

	// Raw is a typed arithmetic/bitwise/comparison primitive whose exact
	// mnemonic (e.g. "u32.wrapping_add", "add", "u32.overflowing_mul")
	// is carried in Callee, since the set of width/overflow-mode
	// specializations is large and table-driven (internal/stackify's
	// opEmitter); Op itself need not enumerate every one.
	OpRaw
)

func Push(v uint64) Op               { return Op{Kind: OpPush, Imm: v} }
func Pushw(w [types.WordFelts]types.Felt) Op { return Op{Kind: OpPushw, Word: w} }
func Drop() Op                       { return Op{Kind: OpDrop} }
func Dropw() Op                      { return Op{Kind: OpDropw} }
func Dup(depth uint64) Op            { return Op{Kind: OpDup, Imm: depth} }
func Swap() Op                       { return Op{Kind: OpSwap} }
func Movup(depth uint64) Op          { return Op{Kind: OpMovup, Imm: depth} }
func Movdn(depth uint64) Op          { return Op{Kind: OpMovdn, Imm: depth} }
func AdvPush(n uint64) Op            { return Op{Kind: OpAdvPush, Imm: n} }
func Exec(callee string) Op          { return Op{Kind: OpExec, Callee: callee} }
func Syscall(callee string) Op       { return Op{Kind: OpSyscall, Callee: callee} }
func Assert() Op                     { return Op{Kind: OpAssert} }
func Assertz() Op                    { return Op{Kind: OpAssertz} }
func AssertEq() Op                   { return Op{Kind: OpAssertEq} }
func WhileTrue(body []Op) Op         { return Op{Kind: OpWhileTrue, Body: body} }
func If(then, els []Op) Op           { return Op{Kind: OpIf, Body: then, Else: els} }

// Raw constructs a primitive whose mnemonic is exactly mnemonic (e.g.
// "u32.wrapping_add", "felt.add", "u32.overflowing_mul"), used by
// internal/stackify's type-specialized arithmetic/cast tables.
func Raw(mnemonic string) Op { return Op{Kind: OpRaw, Callee: mnemonic} }

// Text renders op as one line (or, for control constructs, a multi-line
// block) of MASM source.
func (op Op) Text(indent int) string {
	pad := strings.Repeat("    ", indent)
	switch op.Kind {
	case OpPush:
		return fmt.Sprintf("%spush.%d", pad, op.Imm)
	case OpPushw:
		return fmt.Sprintf("%spush.%d.%d.%d.%d", pad, op.Word[0], op.Word[1], op.Word[2], op.Word[3])
	case OpDrop:
		return pad + "drop"
	case OpDropw:
		return pad + "dropw"
	case OpDup:
		if op.Imm == 0 {
			return pad + "dup"
		}
		return fmt.Sprintf("%sdup.%d", pad, op.Imm)
	case OpSwap:
		return pad + "swap"
	case OpMovup:
		return fmt.Sprintf("%smovup.%d", pad, op.Imm)
	case OpMovdn:
		return fmt.Sprintf("%smovdn.%d", pad, op.Imm)
	case OpAdvPush:
		return fmt.Sprintf("%sadv_push.%d", pad, op.Imm)
	case OpExec:
		return fmt.Sprintf("%sexec.%s", pad, op.Callee)
	case OpSyscall:
		return fmt.Sprintf("%ssyscall.%s", pad, op.Callee)
	case OpAssert:
		return pad + "assert"
	case OpAssertz:
		return pad + "assertz"
	case OpAssertEq:
		return pad + "assert_eq"
	case OpWhileTrue:
		var b strings.Builder
		b.WriteString(pad + "while.true\n")
		for _, o := range op.Body {
			b.WriteString(o.Text(indent + 1))
			b.WriteByte('\n')
		}
		b.WriteString(pad + "end")
		return b.String()
	case OpIf:
		var b strings.Builder
		b.WriteString(pad + "if.true\n")
		for _, o := range op.Body {
			b.WriteString(o.Text(indent + 1))
			b.WriteByte('\n')
		}
		if len(op.Else) > 0 {
			b.WriteString(pad + "else\n")
			for _, o := range op.Else {
				b.WriteString(o.Text(indent + 1))
				b.WriteByte('\n')
			}
		}
		b.WriteString(pad + "end")
		return b.String()
	case OpRaw:
		return pad + op.Callee
	default:
		return pad + "<invalid>"
	}
}
