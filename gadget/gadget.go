// Package gadget is the fixed catalog of circuit fragments the builder
// accepts. Each gadget is a pure function from input cells to output cells:
// it opens one region, emits the gates and lookups tying its outputs to its
// inputs, and logs the op the witness assigner later replays. Gadgets may
// only consume cells produced by earlier calls; the builder enforces the
// ordering, the gadget checks arity and width.
//
// All arithmetic is modular. Only Decompose, RangeCheck and the comparison
// gadgets bound a value's width; everything else silently accepts wraparound,
// which callers must account for.
package gadget

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/ir"
)

// MaxDecomposeBytes bounds byte decomposition so the recomposed value cannot
// wrap the 254-bit field.
const MaxDecomposeBytes = 31

// MaxCompareBytes bounds comparisons; the borrow path needs one byte of
// headroom on top of the operand width.
const MaxCompareBytes = 16

// Const returns the interned cell pinned to v.
func Const(b *builder.Builder, v fr.Element) (ir.CellID, error) {
	return b.Constant(v)
}

// Add returns a cell constrained to x + y.
func Add(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "add", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QL: one, QR: one, QO: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindAdd, In: []ir.CellID{x, y}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// Sub returns a cell constrained to x - y.
func Sub(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "sub", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QL: one, QR: negOne(b), QO: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindSub, In: []ir.CellID{x, y}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// Mul returns a cell constrained to x * y.
func Mul(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "mul", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QM: b.Field().One(), QO: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindMul, In: []ir.CellID{x, y}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// Neg returns a cell constrained to -x.
func Neg(b *builder.Builder, x ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x); err != nil {
		return 0, &GadgetError{Gadget: "neg", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: x, XC: z, QL: b.Field().One(), QO: b.Field().One()})
	b.LogOp(ir.Op{Kind: ir.KindNeg, In: []ir.CellID{x}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// And returns x AND y for boolean operands; arithmetically it is Mul.
func And(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	return Mul(b, x, y)
}

// Or returns a cell constrained to x + y - xy, the OR of boolean operands.
// Operands must already be boolean-constrained.
func Or(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "or", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QL: one, QR: one, QO: negOne(b), QM: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindOr, In: []ir.CellID{x, y}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// Xor returns a cell constrained to x + y - 2xy, the XOR of boolean operands.
// Operands must already be boolean-constrained.
func Xor(b *builder.Builder, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "xor", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	var negTwo fr.Element
	negTwo.SetUint64(2)
	negTwo.Neg(&negTwo)
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QL: one, QR: one, QO: negOne(b), QM: negTwo})
	b.LogOp(ir.Op{Kind: ir.KindXor, In: []ir.CellID{x, y}, Out: []ir.CellID{z}})
	b.CloseRegion()
	return z, nil
}

// Not returns 1 - x for a boolean operand.
func Not(b *builder.Builder, x ir.CellID) (ir.CellID, error) {
	return Linear(b, []fr.Element{negOne(b)}, []ir.CellID{x}, b.Field().One())
}

// Linear returns a cell constrained to sum(coeffs[i]*xs[i]) + c, folded
// through a chain of partial sums. len(coeffs) must equal len(xs) and be at
// least 1.
func Linear(b *builder.Builder, coeffs []fr.Element, xs []ir.CellID, c fr.Element) (ir.CellID, error) {
	if len(coeffs) != len(xs) || len(xs) == 0 {
		return 0, &GadgetError{Gadget: "linear", Err: errArity(len(coeffs), len(xs))}
	}
	if err := b.CheckCells(xs...); err != nil {
		return 0, &GadgetError{Gadget: "linear", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	params := make([]fr.Element, 0, len(coeffs)+1)
	params = append(params, c)
	params = append(params, coeffs...)

	var out []ir.CellID
	if len(xs) == 1 {
		r := b.NewCell()
		b.AddGate(ir.Gate{XA: xs[0], XB: xs[0], XC: r, QL: coeffs[0], QO: negOne(b), QC: c})
		out = []ir.CellID{r}
	} else {
		acc := b.NewCell()
		b.AddGate(ir.Gate{XA: xs[0], XB: xs[1], XC: acc, QL: coeffs[0], QR: coeffs[1], QO: negOne(b), QC: c})
		out = []ir.CellID{acc}
		for i := 2; i < len(xs); i++ {
			next := b.NewCell()
			b.AddGate(ir.Gate{XA: acc, XB: xs[i], XC: next, QL: one, QR: coeffs[i], QO: negOne(b)})
			out = append(out, next)
			acc = next
		}
	}
	b.LogOp(ir.Op{Kind: ir.KindLinear, Params: params, In: append([]ir.CellID(nil), xs...), Out: out})
	b.CloseRegion()
	return out[len(out)-1], nil
}

// IsZero returns a boolean cell that is 1 exactly when x is 0. The witness
// side computes the inverse through a hint; the constraints x*z == 0 and
// x*inv + z == 1 pin z either way.
func IsZero(b *builder.Builder, x ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(x); err != nil {
		return 0, &GadgetError{Gadget: "iszero", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	inv := b.NewCell()
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: z, XC: z, QM: one})
	b.AddGate(ir.Gate{XA: x, XB: inv, XC: z, QM: one, QO: one, QC: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindIsZero, In: []ir.CellID{x}, Out: []ir.CellID{inv, z}})
	b.CloseRegion()
	return z, nil
}

// Select returns x when s is 1 and y when s is 0. s must already be
// boolean-constrained.
func Select(b *builder.Builder, s, x, y ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(s, x, y); err != nil {
		return 0, &GadgetError{Gadget: "select", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	d := b.NewCell()
	t := b.NewCell()
	r := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: d, QL: one, QR: negOne(b), QO: negOne(b)})
	b.AddGate(ir.Gate{XA: s, XB: d, XC: t, QM: one, QO: negOne(b)})
	b.AddGate(ir.Gate{XA: t, XB: y, XC: r, QL: one, QR: one, QO: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindSelect, In: []ir.CellID{s, x, y}, Out: []ir.CellID{d, t, r}})
	b.CloseRegion()
	return r, nil
}

// AssertEqual constrains x == y.
func AssertEqual(b *builder.Builder, x, y ir.CellID) error {
	if err := b.CheckCells(x, y); err != nil {
		return &GadgetError{Gadget: "asserteq", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return err
	}
	b.AddGate(ir.Gate{XA: x, XB: y, XC: x, QL: b.Field().One(), QR: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindAssertEq, In: []ir.CellID{x, y}})
	b.CloseRegion()
	return nil
}

// AssertBoolean constrains x*(x-1) == 0.
func AssertBoolean(b *builder.Builder, x ir.CellID) error {
	if err := b.CheckCells(x); err != nil {
		return &GadgetError{Gadget: "assertbool", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return err
	}
	b.AddGate(ir.Gate{XA: x, XB: x, XC: x, QM: b.Field().One(), QL: negOne(b)})
	b.LogOp(ir.Op{Kind: ir.KindAssertBool, In: []ir.CellID{x}})
	b.CloseRegion()
	return nil
}

// AssertConstant constrains x == v.
func AssertConstant(b *builder.Builder, x ir.CellID, v fr.Element) error {
	if err := b.CheckCells(x); err != nil {
		return &GadgetError{Gadget: "assertconst", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return err
	}
	var negV fr.Element
	negV.Neg(&v)
	b.AddGate(ir.Gate{XA: x, XB: x, XC: x, QL: b.Field().One(), QC: negV})
	b.LogOp(ir.Op{Kind: ir.KindAssertConst, Params: []fr.Element{v}, In: []ir.CellID{x}})
	b.CloseRegion()
	return nil
}

// AssertByte constrains x to 0..255 through the byte table.
func AssertByte(b *builder.Builder, x ir.CellID) error {
	if err := b.CheckCells(x); err != nil {
		return &GadgetError{Gadget: "assertbyte", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return err
	}
	b.AddLookup(x, ir.TableByte)
	b.LogOp(ir.Op{Kind: ir.KindLookup, In: []ir.CellID{x}})
	b.CloseRegion()
	return nil
}

// Decompose splits x into width big-endian byte cells, each looked up in the
// byte table, and constrains their recomposition to equal x. This bounds x to
// width bytes; a wider witness value cannot satisfy the region.
func Decompose(b *builder.Builder, x ir.CellID, width int) ([]ir.CellID, error) {
	if width < 1 || width > MaxDecomposeBytes {
		return nil, &GadgetError{Gadget: "decompose", Err: errWidth(width, MaxDecomposeBytes)}
	}
	if err := b.CheckCells(x); err != nil {
		return nil, &GadgetError{Gadget: "decompose", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return nil, err
	}
	bytes := make([]ir.CellID, width)
	for i := range bytes {
		bytes[i] = b.NewCell()
		b.AddLookup(bytes[i], ir.TableByte)
	}
	accs := emitRecompose(b, bytes, x)
	out := make([]ir.CellID, 0, len(bytes)+len(accs))
	out = append(out, bytes...)
	out = append(out, accs...)
	b.LogOp(ir.Op{Kind: ir.KindDecompose, Width: width, In: []ir.CellID{x}, Out: out})
	b.CloseRegion()
	return bytes, nil
}

// RangeCheck constrains x to width bytes and discards the decomposition.
func RangeCheck(b *builder.Builder, x ir.CellID, width int) error {
	_, err := Decompose(b, x, width)
	return err
}

// IsLess returns a boolean cell that is 1 exactly when x < y, treating both
// as integers of at most width bytes. Operands must already be range-checked
// to that width; the gadget bounds only its internal borrow decomposition.
func IsLess(b *builder.Builder, x, y ir.CellID, width int) (ir.CellID, error) {
	if width < 1 || width > MaxCompareBytes {
		return 0, &GadgetError{Gadget: "isless", Err: errWidth(width, MaxCompareBytes)}
	}
	if err := b.CheckCells(x, y); err != nil {
		return 0, &GadgetError{Gadget: "isless", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()

	// z = x - y + 2^(8w); the carry digit of z is 1 exactly when x >= y.
	shift := powerOf256(b.Field(), width)
	z := b.NewCell()
	b.AddGate(ir.Gate{XA: x, XB: y, XC: z, QL: one, QR: negOne(b), QO: negOne(b), QC: shift})

	carry := b.NewCell()
	b.AddGate(ir.Gate{XA: carry, XB: carry, XC: carry, QM: one, QL: negOne(b)})

	bytes := make([]ir.CellID, width)
	for i := range bytes {
		bytes[i] = b.NewCell()
		b.AddLookup(bytes[i], ir.TableByte)
	}

	digits := make([]ir.CellID, 0, width+1)
	digits = append(digits, carry)
	digits = append(digits, bytes...)
	accs := emitRecompose(b, digits, z)

	lt := b.NewCell()
	b.AddGate(ir.Gate{XA: carry, XB: lt, XC: lt, QL: one, QR: one, QC: negOne(b)})

	out := make([]ir.CellID, 0, 2*width+2)
	out = append(out, z, carry)
	out = append(out, bytes...)
	out = append(out, accs...)
	out = append(out, lt)
	b.LogOp(ir.Op{Kind: ir.KindLt, Width: width, In: []ir.CellID{x, y}, Out: out})
	b.CloseRegion()
	return lt, nil
}

// IsLessOrEqual returns 1 exactly when x <= y under the same width contract
// as IsLess.
func IsLessOrEqual(b *builder.Builder, x, y ir.CellID, width int) (ir.CellID, error) {
	gt, err := IsLess(b, y, x, width)
	if err != nil {
		return 0, err
	}
	return Not(b, gt)
}

// emitRecompose adds the partial-sum gates pinning the big-endian base-256
// digits to target. It returns the intermediate acc cells (none for one or
// two digits). Must run inside an open region.
func emitRecompose(b *builder.Builder, digits []ir.CellID, target ir.CellID) []ir.CellID {
	one := b.Field().One()
	base := b.Field().FromUint64(256)
	if len(digits) == 1 {
		b.AddGate(ir.Gate{XA: digits[0], XB: target, XC: digits[0], QL: one, QR: negOne(b)})
		return nil
	}
	if len(digits) == 2 {
		b.AddGate(ir.Gate{XA: digits[0], XB: digits[1], XC: target, QL: base, QR: one, QO: negOne(b)})
		return nil
	}
	accs := make([]ir.CellID, 0, len(digits)-2)
	acc := b.NewCell()
	b.AddGate(ir.Gate{XA: digits[0], XB: digits[1], XC: acc, QL: base, QR: one, QO: negOne(b)})
	accs = append(accs, acc)
	for i := 2; i < len(digits)-1; i++ {
		next := b.NewCell()
		b.AddGate(ir.Gate{XA: acc, XB: digits[i], XC: next, QL: base, QR: one, QO: negOne(b)})
		accs = append(accs, next)
		acc = next
	}
	b.AddGate(ir.Gate{XA: acc, XB: digits[len(digits)-1], XC: target, QL: base, QR: one, QO: negOne(b)})
	return accs
}

func negOne(b *builder.Builder) fr.Element {
	var e fr.Element
	e.SetOne()
	e.Neg(&e)
	return e
}

// powerOf256 returns 256^w as a field element.
func powerOf256(fld *field.Context, w int) fr.Element {
	base := fld.FromUint64(256)
	res := fld.One()
	for i := 0; i < w; i++ {
		res.Mul(&res, &base)
	}
	return res
}
