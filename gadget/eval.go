package gadget

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/ir"
)

// Eval computes the output values of one logged op from its input values,
// running the same arithmetic the op's constraints encode. The returned
// slice parallels op.Out cell for cell; assertion kinds return nothing.
// The assigner replays the op log through this dispatch.
func Eval(fld *field.Context, op *ir.Op, in []fr.Element) ([]fr.Element, error) {
	switch op.Kind {
	case ir.KindInput, ir.KindConst:
		return []fr.Element{op.Params[0]}, nil

	case ir.KindAdd:
		var z fr.Element
		z.Add(&in[0], &in[1])
		return []fr.Element{z}, nil

	case ir.KindSub:
		var z fr.Element
		z.Sub(&in[0], &in[1])
		return []fr.Element{z}, nil

	case ir.KindMul:
		var z fr.Element
		z.Mul(&in[0], &in[1])
		return []fr.Element{z}, nil

	case ir.KindNeg:
		var z fr.Element
		z.Neg(&in[0])
		return []fr.Element{z}, nil

	case ir.KindOr:
		var t, z fr.Element
		t.Mul(&in[0], &in[1])
		z.Add(&in[0], &in[1])
		z.Sub(&z, &t)
		return []fr.Element{z}, nil

	case ir.KindXor:
		var t, z fr.Element
		t.Mul(&in[0], &in[1])
		t.Double(&t)
		z.Add(&in[0], &in[1])
		z.Sub(&z, &t)
		return []fr.Element{z}, nil

	case ir.KindLinear:
		c, coeffs := op.Params[0], op.Params[1:]
		var acc, t fr.Element
		acc.Mul(&coeffs[0], &in[0])
		acc.Add(&acc, &c)
		if len(in) == 1 {
			return []fr.Element{acc}, nil
		}
		out := make([]fr.Element, 0, len(in)-1)
		t.Mul(&coeffs[1], &in[1])
		acc.Add(&acc, &t)
		out = append(out, acc)
		for i := 2; i < len(in); i++ {
			t.Mul(&coeffs[i], &in[i])
			acc.Add(&acc, &t)
			out = append(out, acc)
		}
		return out, nil

	case ir.KindIsZero:
		hinted, err := callHint(fld, InverseHint, in[:1], 1)
		if err != nil {
			return nil, err
		}
		inv := hinted[0]
		var z fr.Element
		z.Mul(&in[0], &inv)
		one := fld.One()
		z.Sub(&one, &z)
		return []fr.Element{inv, z}, nil

	case ir.KindSelect:
		var d, t, r fr.Element
		d.Sub(&in[1], &in[2])
		t.Mul(&in[0], &d)
		r.Add(&t, &in[2])
		return []fr.Element{d, t, r}, nil

	case ir.KindAssertEq, ir.KindAssertBool, ir.KindAssertConst, ir.KindLookup:
		return nil, nil

	case ir.KindDecompose:
		digits, err := callHint(fld, DecomposeHint, in[:1], op.Width)
		if err != nil {
			return nil, err
		}
		return append(digits, evalRecompose(digits)...), nil

	case ir.KindLt:
		shift := powerOf256(fld, op.Width)
		var z fr.Element
		z.Sub(&in[0], &in[1])
		z.Add(&z, &shift)
		digits, err := callHint(fld, DecomposeHint, []fr.Element{z}, op.Width+1)
		if err != nil {
			return nil, err
		}
		one := fld.One()
		var lt fr.Element
		lt.Sub(&one, &digits[0])
		out := make([]fr.Element, 0, 2*op.Width+2)
		out = append(out, z)
		out = append(out, digits...)
		out = append(out, evalRecompose(digits)...)
		out = append(out, lt)
		return out, nil

	case ir.KindMiMC:
		h, m := in[0], in[1]
		out := make([]fr.Element, 0, 4*len(mimcConstants)+2)
		s := m
		for i := range mimcConstants {
			var t, s2, s4, s5 fr.Element
			t.Add(&s, &h)
			t.Add(&t, &mimcConstants[i])
			s2.Square(&t)
			s4.Square(&s2)
			s5.Mul(&s4, &t)
			out = append(out, t, s2, s4, s5)
			s = s5
		}
		var u, r fr.Element
		u.Double(&h)
		u.Add(&u, &s)
		r.Add(&u, &m)
		out = append(out, u, r)
		return out, nil
	}
	return nil, fmt.Errorf("unknown op kind %d", op.Kind)
}

// evalRecompose mirrors emitRecompose: it returns the partial sums of the
// big-endian base-256 digits, which occupy cells only when there are more
// than two digits.
func evalRecompose(digits []fr.Element) []fr.Element {
	if len(digits) <= 2 {
		return nil
	}
	var base fr.Element
	base.SetUint64(256)
	accs := make([]fr.Element, 0, len(digits)-2)
	var acc, t fr.Element
	acc.Mul(&digits[0], &base)
	acc.Add(&acc, &digits[1])
	accs = append(accs, acc)
	for i := 2; i < len(digits)-1; i++ {
		t.Mul(&acc, &base)
		acc.Add(&t, &digits[i])
		accs = append(accs, acc)
	}
	return accs
}
