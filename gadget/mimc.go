package gadget

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bn254mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/ir"
)

// mimcConstants holds the bn254 MiMC round constants. The in-circuit rounds
// and the replay evaluation both use them, so the gadget agrees with the
// native gnark-crypto hasher by construction.
var mimcConstants []fr.Element

func init() {
	cs := bn254mimc.GetConstants()
	mimcConstants = make([]fr.Element, len(cs))
	for i := range cs {
		mimcConstants[i].SetBigInt(&cs[i])
	}
}

// MiMC returns a cell constrained to the Miyaguchi-Preneel compression of
// state h with message m, matching gnark-crypto's bn254 fr/mimc: every round
// computes s := (s+h+c)^5, and the result is s + 2h + m.
func MiMC(b *builder.Builder, h, m ir.CellID) (ir.CellID, error) {
	if err := b.CheckCells(h, m); err != nil {
		return 0, &GadgetError{Gadget: "mimc", Err: err}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	one := b.Field().One()
	two := b.Field().FromUint64(2)
	out := make([]ir.CellID, 0, 4*len(mimcConstants)+2)
	s := m
	for _, c := range mimcConstants {
		t := b.NewCell()
		b.AddGate(ir.Gate{XA: s, XB: h, XC: t, QL: one, QR: one, QO: negOne(b), QC: c})
		s2 := b.NewCell()
		b.AddGate(ir.Gate{XA: t, XB: t, XC: s2, QM: one, QO: negOne(b)})
		s4 := b.NewCell()
		b.AddGate(ir.Gate{XA: s2, XB: s2, XC: s4, QM: one, QO: negOne(b)})
		s5 := b.NewCell()
		b.AddGate(ir.Gate{XA: s4, XB: t, XC: s5, QM: one, QO: negOne(b)})
		out = append(out, t, s2, s4, s5)
		s = s5
	}
	u := b.NewCell()
	b.AddGate(ir.Gate{XA: s, XB: h, XC: u, QL: one, QR: two, QO: negOne(b)})
	r := b.NewCell()
	b.AddGate(ir.Gate{XA: u, XB: m, XC: r, QL: one, QR: one, QO: negOne(b)})
	out = append(out, u, r)
	b.LogOp(ir.Op{Kind: ir.KindMiMC, In: []ir.CellID{h, m}, Out: out})
	b.CloseRegion()
	return r, nil
}

// MiMCSum hashes the given cells in order, chaining compressions from a zero
// state exactly like writing them one by one to the native hasher.
func MiMCSum(b *builder.Builder, xs []ir.CellID) (ir.CellID, error) {
	if len(xs) == 0 {
		return 0, &GadgetError{Gadget: "mimcsum", Err: errArity(0, 0)}
	}
	if err := b.CheckCells(xs...); err != nil {
		return 0, &GadgetError{Gadget: "mimcsum", Err: err}
	}
	h, err := Const(b, b.Field().Zero())
	if err != nil {
		return 0, err
	}
	for _, x := range xs {
		h, err = MiMC(b, h, x)
		if err != nil {
			return 0, err
		}
	}
	return h, nil
}

// MerklePath folds leaf up a Merkle path and returns the root cell. At each
// level the helper bit selects child order: bit 0 keeps the running node on
// the left, bit 1 on the right. A node is the two-element MiMC sum of its
// children, the same convention the native tree uses. Bits must already be
// boolean-constrained (constants from an inclusion proof usually are, being
// pinned by their defining gates).
func MerklePath(b *builder.Builder, leaf ir.CellID, bits, siblings []ir.CellID) (ir.CellID, error) {
	if len(bits) != len(siblings) {
		return 0, &GadgetError{Gadget: "merklepath", Err: errArity(len(bits), len(siblings))}
	}
	if err := b.CheckCells(leaf); err != nil {
		return 0, &GadgetError{Gadget: "merklepath", Err: err}
	}
	if err := b.CheckCells(bits...); err != nil {
		return 0, &GadgetError{Gadget: "merklepath", Err: err}
	}
	if err := b.CheckCells(siblings...); err != nil {
		return 0, &GadgetError{Gadget: "merklepath", Err: err}
	}
	cur := leaf
	for i := range siblings {
		left, err := Select(b, bits[i], siblings[i], cur)
		if err != nil {
			return 0, err
		}
		right, err := Select(b, bits[i], cur, siblings[i])
		if err != nil {
			return 0, err
		}
		cur, err = MiMCSum(b, []ir.CellID{left, right})
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}
