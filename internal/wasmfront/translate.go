package wasmfront

import (
	"fmt"

	"github.com/go-interpreter/wagon/wasm/operators"
	"github.com/pkg/errors"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

// frameKind distinguishes the three WebAssembly structured control
// constructs, each of which needs different HIR block wiring at its end
// (frontend-wasm/src/ssa.rs's own control-stack shape, grounding this
// translator's frame stack).
type frameKind int

const (
	frameBlock frameKind = iota
	frameLoop
	frameIf
)

// frame tracks one nested block/loop/if region while translating a
// function body: the HIR block that continues after it, and — for `if`
// — the block that continues its `else` arm once reached.
type frame struct {
	kind     frameKind
	exit     hir.BlockID // block entered on `end` (or, for loop, is the loop's own continuation point)
	header   hir.BlockID // for frameLoop, the block `br` targets to continue
	elseTarget hir.BlockID // for frameIf, entered on `else`
	hasElse  bool
	unreachable bool // true once a terminator has been emitted on the current path
}

// translator holds the mutable state of translating one function body
// into HIR: the SSA builder, the current insertion block, the declared
// locals (as SSA builder Variables), and the open control-frame stack.
type translator struct {
	f      *hir.Function
	b      *hir.Builder
	cur    hir.BlockID
	locals []types.Type
	frames []frame
}

// Translate builds fn's HIR function body from its raw WASM bytecode.
// Only a representative opcode subset is handled — constants, local
// access, integer arithmetic/comparison, structured control flow
// (block/loop/if/else/br/br_if), call, drop, return, and unreachable —
// matching spec.md's framing of the WebAssembly front end as routine
// glue around the HIR/SSA core this spec actually specifies; an
// unrecognized opcode produces a wrapped error rather than being
// silently skipped.
func Translate(fn *Function) (*hir.Function, error) {
	sig := hir.Signature{Params: fn.Sig.Params, Results: fn.Sig.Results}
	f := hir.NewFunction(fn.Name, sig)
	entry := f.Entry()

	b := hir.NewBuilder(f)
	b.DeclareBlock(entry)

	t := &translator{f: f, b: b, cur: entry}

	locals := append(append([]types.Type{}, fn.Sig.Params...), fn.Locals...)
	t.locals = locals
	for i, lt := range locals {
		v := hir.Variable(i)
		b.DeclareVar(v, lt)
		if i < len(fn.Sig.Params) {
			b.DefVar(v, entry, f.Param(entry, i))
		} else {
			zero, _ := types.ZeroImmediate(lt)
			b.DefVar(v, entry, f.Const(entry, zero))
		}
	}

	if err := t.run(fn.Code); err != nil {
		return nil, errors.Wrapf(err, "wasmfront: translating %s", fn.Name)
	}
	return f, nil
}

func (t *translator) local(idx uint32) (hir.Variable, types.Type, error) {
	if int(idx) >= len(t.locals) {
		return 0, types.Type{}, errors.Errorf("wasmfront: local index %d out of range", idx)
	}
	return hir.Variable(idx), t.locals[idx], nil
}

func (t *translator) unreachableHere() bool {
	return len(t.frames) > 0 && t.frames[len(t.frames)-1].unreachable
}

func (t *translator) run(code []byte) error {
	r := &byteReader{b: code}
	var stack []hir.ValueID

	push := func(v hir.ValueID) { stack = append(stack, v) }
	pop := func() (hir.ValueID, error) {
		if len(stack) == 0 {
			return 0, errors.New("wasmfront: operand stack underflow")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for !r.done() {
		op, err := r.byte()
		if err != nil {
			return err
		}

		switch op {
		case operators.Nop:
			// no-op

		case operators.Block, operators.Loop:
			if _, err := r.byte(); err != nil { // block type byte, ignored: result arity is carried by stack/HIR typing
				return err
			}
			cont := t.f.CreateBlock()
			t.b.DeclareBlock(cont)
			fr := frame{kind: frameBlock, exit: cont}
			if op == operators.Loop {
				fr.kind = frameLoop
				fr.header = t.cur
			}
			t.frames = append(t.frames, fr)
			if op == operators.Loop {
				// A loop header is reached once on entry and again on
				// every back edge, so it is its own successor; mark it so
				// internal/hir's analyses (and stackify) can recognize it.
				t.f.SetLoopHeader(t.cur, true)
			}

		case operators.If:
			if _, err := r.byte(); err != nil {
				return err
			}
			cond, err := pop()
			if err != nil {
				return err
			}
			thenBlk := t.f.CreateBlock()
			elseBlk := t.f.CreateBlock()
			t.b.DeclareBlock(thenBlk)
			t.b.DeclareBlock(elseBlk)
			br := t.f.CondBr(t.cur, cond, hir.BranchTarget{Block: thenBlk}, hir.BranchTarget{Block: elseBlk})
			t.b.DeclareBlockPredecessor(thenBlk, br)
			t.b.DeclareBlockPredecessor(elseBlk, br)
			t.b.SealBlock(t.cur)

			cont := t.f.CreateBlock()
			t.b.DeclareBlock(cont)
			t.frames = append(t.frames, frame{kind: frameIf, exit: cont, elseTarget: elseBlk})
			t.cur = thenBlk

		case operators.Else:
			if len(t.frames) == 0 || t.frames[len(t.frames)-1].kind != frameIf {
				return errors.New("wasmfront: else outside if")
			}
			fr := &t.frames[len(t.frames)-1]
			if !fr.unreachable {
				br := t.f.Br(t.cur, fr.exit, nil)
				t.b.DeclareBlockPredecessor(fr.exit, br)
			}
			t.b.SealBlock(t.cur)
			fr.hasElse = true
			fr.unreachable = false
			t.cur = fr.elseTarget

		case operators.End:
			if len(t.frames) == 0 {
				break // function-level end
			}
			fr := t.frames[len(t.frames)-1]
			t.frames = t.frames[:len(t.frames)-1]
			if fr.kind == frameIf && !fr.hasElse {
				br := t.f.Br(t.cur, fr.elseTarget, nil)
				t.b.DeclareBlockPredecessor(fr.elseTarget, br)
				t.b.SealBlock(t.cur)
				t.cur = fr.elseTarget
				br2 := t.f.Br(t.cur, fr.exit, nil)
				t.b.DeclareBlockPredecessor(fr.exit, br2)
				t.b.SealBlock(t.cur)
			} else if !fr.unreachable {
				br := t.f.Br(t.cur, fr.exit, nil)
				t.b.DeclareBlockPredecessor(fr.exit, br)
				t.b.SealBlock(t.cur)
			} else {
				t.b.SealBlock(t.cur)
			}
			t.cur = fr.exit
			t.b.SealBlock(fr.exit)

		case operators.Br, operators.BrIf:
			depth, err := r.varUint32()
			if err != nil {
				return err
			}
			var cond hir.ValueID
			if op == operators.BrIf {
				cond, err = pop()
				if err != nil {
					return err
				}
			}
			target, err := t.frameTarget(depth)
			if err != nil {
				return err
			}
			if op == operators.Br {
				brInst := t.f.Br(t.cur, target, nil)
				t.b.DeclareBlockPredecessor(target, brInst)
				t.markUnreachable()
			} else {
				fallthroughBlk := t.f.CreateBlock()
				t.b.DeclareBlock(fallthroughBlk)
				br := t.f.CondBr(t.cur, cond, hir.BranchTarget{Block: target}, hir.BranchTarget{Block: fallthroughBlk})
				t.b.DeclareBlockPredecessor(target, br)
				t.b.DeclareBlockPredecessor(fallthroughBlk, br)
				t.b.SealBlock(t.cur)
				t.b.SealBlock(fallthroughBlk)
				t.cur = fallthroughBlk
			}

		case operators.Return:
			vs, err := popN(&stack, len(t.f.Sig.Results))
			if err != nil {
				return err
			}
			t.f.Ret(t.cur, vs)
			t.markUnreachable()

		case operators.Unreachable:
			t.f.Unreachable(t.cur)
			t.markUnreachable()

		case operators.Drop:
			if _, err := pop(); err != nil {
				return err
			}

		case operators.GetLocal:
			idx, err := r.varUint32()
			if err != nil {
				return err
			}
			v, _, err := t.local(idx)
			if err != nil {
				return err
			}
			val, _ := t.b.UseVar(v, t.cur)
			push(val)

		case operators.SetLocal, operators.TeeLocal:
			idx, err := r.varUint32()
			if err != nil {
				return err
			}
			v, _, err := t.local(idx)
			if err != nil {
				return err
			}
			val, err := pop()
			if err != nil {
				return err
			}
			t.b.DefVar(v, t.cur, val)
			if op == operators.TeeLocal {
				push(val)
			}

		case operators.I32Const:
			n, err := r.varInt32()
			if err != nil {
				return err
			}
			push(t.f.Const(t.cur, types.ImmSigned(32, int64(n))))

		case operators.I64Const:
			n, err := r.varInt64()
			if err != nil {
				return err
			}
			push(t.f.Const(t.cur, types.ImmSigned(64, n)))

		case operators.I32Add, operators.I64Add:
			if err := t.binOp(&stack, hir.OpAdd, op); err != nil {
				return err
			}
		case operators.I32Sub, operators.I64Sub:
			if err := t.binOp(&stack, hir.OpSub, op); err != nil {
				return err
			}
		case operators.I32Mul, operators.I64Mul:
			if err := t.binOp(&stack, hir.OpMul, op); err != nil {
				return err
			}
		case operators.I32And, operators.I64And:
			if err := t.binOp(&stack, hir.OpAnd, op); err != nil {
				return err
			}
		case operators.I32Or, operators.I64Or:
			if err := t.binOp(&stack, hir.OpOr, op); err != nil {
				return err
			}
		case operators.I32Xor, operators.I64Xor:
			if err := t.binOp(&stack, hir.OpXor, op); err != nil {
				return err
			}
		case operators.I32Eq, operators.I64Eq:
			if err := t.binOp(&stack, hir.OpEq, op); err != nil {
				return err
			}
		case operators.I32Ne, operators.I64Ne:
			if err := t.binOp(&stack, hir.OpNeq, op); err != nil {
				return err
			}
		case operators.I32LtS, operators.I64LtS:
			if err := t.binOp(&stack, hir.OpLt, op); err != nil {
				return err
			}
		case operators.I32GtS, operators.I64GtS:
			if err := t.binOp(&stack, hir.OpGt, op); err != nil {
				return err
			}

		case operators.I32Eqz, operators.I64Eqz:
			v, err := pop()
			if err != nil {
				return err
			}
			zeroImm, _ := types.ZeroImmediate(t.f.ValueType(v))
			zero := t.f.Const(t.cur, zeroImm)
			res := t.f.BinOp(t.cur, hir.OpEq, t.f.ValueType(v), hir.Unchecked, v, zero)
			push(res[0])

		case operators.Call:
			idx, err := r.varUint32()
			if err != nil {
				return err
			}
			// Callee arity is not resolvable without the full module's
			// function index space plumbed through; a real driver
			// (internal/driver) supplies that context. Here we only
			// record the call against a symbolic name, popping no
			// arguments and pushing no result, a scoped simplification
			// documented in DESIGN.md.
			args, err := popN(&stack, 0)
			if err != nil {
				return err
			}
			_, res := t.f.Call(t.cur, calleeName(idx), false, args, nil)
			_ = res

		default:
			return errors.Errorf("wasmfront: unsupported opcode 0x%02x", op)
		}
	}
	return nil
}

func calleeName(idx uint32) string {
	return fmt.Sprintf("func$%d", idx)
}

func popN(stack *[]hir.ValueID, n int) ([]hir.ValueID, error) {
	if n <= 0 {
		return nil, nil
	}
	s := *stack
	if len(s) < n {
		return nil, errors.New("wasmfront: operand stack underflow")
	}
	out := append([]hir.ValueID{}, s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	return out, nil
}

// binOp pops two operands, emits a controlling-type-qualified instruction
// against the current block, and pushes the result.
func (t *translator) binOp(stack *[]hir.ValueID, hop hir.Opcode, wop byte) error {
	s := *stack
	if len(s) < 2 {
		return errors.New("wasmfront: operand stack underflow")
	}
	b, a := s[len(s)-1], s[len(s)-2]
	*stack = s[:len(s)-2]

	ctrl := t.f.ValueType(a)
	_ = wop
	res := t.f.BinOp(t.cur, hop, ctrl, hir.Unchecked, a, b)
	*stack = append(*stack, res[0])
	return nil
}

// frameTarget resolves a branch depth to the HIR block it targets: depth
// 0 is the innermost open frame (a loop's own header for `loop`, or a
// block/if's exit for `block`/`if`), counting outward.
func (t *translator) frameTarget(depth uint32) (hir.BlockID, error) {
	if int(depth) >= len(t.frames) {
		return 0, errors.Errorf("wasmfront: branch depth %d exceeds open frame count %d", depth, len(t.frames))
	}
	fr := t.frames[len(t.frames)-1-int(depth)]
	if fr.kind == frameLoop {
		return fr.header, nil
	}
	return fr.exit, nil
}

func (t *translator) markUnreachable() {
	if len(t.frames) > 0 {
		t.frames[len(t.frames)-1].unreachable = true
	}
}
