package ir

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Kind enumerates the operations an Op can record. Replay dispatches over
// this closed set, which keeps the assignment pass deterministic and
// structurally identical to the build pass.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindInput binds an externally supplied value to a fresh cell.
	KindInput
	// KindConst binds an interned constant to a cell pinned by a gate.
	KindConst
	KindAdd
	KindSub
	KindMul
	KindNeg
	// KindOr and KindXor are the arithmetized boolean gates x+y-xy and
	// x+y-2xy; both expect boolean operands.
	KindOr
	KindXor
	// KindLinear folds a weighted sum of n cells plus a constant into a
	// chain of partial-sum cells.
	KindLinear
	KindIsZero
	KindSelect
	KindAssertEq
	KindAssertBool
	KindAssertConst
	// KindLookup asserts table membership of a single cell.
	KindLookup
	// KindDecompose splits a cell into big-endian byte cells, each looked up
	// in the byte table, and recomposes them to pin the original value.
	KindDecompose
	// KindLt compares two width-bounded cells and produces a boolean cell.
	KindLt
	// KindMiMC applies one Miyaguchi-Preneel MiMC compression to two cells.
	KindMiMC
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindInput:       "input",
	KindConst:       "const",
	KindAdd:         "add",
	KindSub:         "sub",
	KindMul:         "mul",
	KindNeg:         "neg",
	KindOr:          "or",
	KindXor:         "xor",
	KindLinear:      "linear",
	KindIsZero:      "iszero",
	KindSelect:      "select",
	KindAssertEq:    "asserteq",
	KindAssertBool:  "assertbool",
	KindAssertConst: "assertconst",
	KindLookup:      "lookup",
	KindDecompose:   "decompose",
	KindLt:          "lt",
	KindMiMC:        "mimc",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Op records one gadget step: the kind, the region it ran in, the cells it
// consumed and every cell it produced, in creation order. The Out list covers
// all intermediate cells of the step, so replaying Ops in order fills the
// whole witness table.
type Op struct {
	Kind   Kind
	Region RegionID
	// Width is the byte width for decomposition and comparison kinds.
	Width  int
	Params []fr.Element
	In     []CellID
	Out    []CellID
}

// Result returns the cell conventionally treated as the op's value, the last
// produced cell. Assertion kinds produce none.
func (op *Op) Result() CellID {
	if len(op.Out) == 0 {
		panic("unexpected: op has no output")
	}
	return op.Out[len(op.Out)-1]
}
