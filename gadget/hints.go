package gadget

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/constraint/solver"

	"github.com/verity-zk/chainscaffold/field"
)

func init() {
	solver.RegisterHint(InverseHint, DecomposeHint)
}

// InverseHint writes the field inverse of inputs[0], or zero when the input
// is zero. Registered with the gnark solver so drivers that embed these
// circuits in an outer gnark proof can resolve it by name.
func InverseHint(q *big.Int, inputs, outputs []*big.Int) error {
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("expecting one input and one output")
	}
	if inputs[0].Sign() == 0 {
		outputs[0].SetUint64(0)
		return nil
	}
	if outputs[0].ModInverse(inputs[0], q) == nil {
		return fmt.Errorf("%v has no inverse", inputs[0])
	}
	return nil
}

// DecomposeHint writes the big-endian base-256 digits of inputs[0] across
// the outputs. It fails when the value needs more digits than provided,
// which surfaces as an assignment failure for width-violating witnesses.
func DecomposeHint(q *big.Int, inputs, outputs []*big.Int) error {
	if len(inputs) != 1 || len(outputs) == 0 {
		return fmt.Errorf("expecting one input and at least one output")
	}
	v := new(big.Int).Set(inputs[0])
	base := big.NewInt(256)
	for i := len(outputs) - 1; i >= 0; i-- {
		outputs[i].Mod(v, base)
		v.Rsh(v, 8)
	}
	if v.Sign() != 0 {
		return fmt.Errorf("value does not fit in %d bytes", len(outputs))
	}
	return nil
}

// callHint bridges field values through the big.Int hint interface.
func callHint(fld *field.Context, f solver.Hint, ins []fr.Element, nbOut int) ([]fr.Element, error) {
	inB := make([]*big.Int, len(ins))
	for i := range ins {
		inB[i] = fld.ToBig(ins[i])
	}
	outB := make([]*big.Int, nbOut)
	for i := range outB {
		outB[i] = new(big.Int)
	}
	if err := f(fld.Modulus(), inB, outB); err != nil {
		return nil, err
	}
	res := make([]fr.Element, nbOut)
	for i := range res {
		res[i] = fld.FromBig(outB[i])
	}
	return res, nil
}
