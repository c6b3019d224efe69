// Package hir implements the arena-allocated, SSA-form intermediate
// representation: functions, blocks, values, and instructions referenced
// by dense integer handles (§3), the Braun-style SSA builder (§4.1), and
// the control-flow analyses (CFG, dominator tree, loop tree) that the rest
// of the pipeline consumes (§4.2).
package hir

// BlockID is a dense handle into a Function's block arena.
type BlockID int32

// ValueID is a dense handle into a Function's value arena. A value is
// either a block parameter or the i-th result of an instruction.
type ValueID int32

// InstID is a dense handle into a Function's instruction arena.
type InstID int32

// invalid handles, used as sentinels (e.g. an Immediate value has no
// owning block parameter slot).
const (
	InvalidBlock BlockID = -1
	InvalidValue ValueID = -1
	InvalidInst  InstID  = -1
)
