package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/verity-zk/chainscaffold/ir"
)

// Mock is a driver that proves nothing: it rejects a bundle exactly when a
// real backend's prover would, then returns a deterministic digest over the
// degree and public inputs. Useful in tests and dry runs.
type Mock struct{}

var _ Driver = Mock{}

func (Mock) Prove(ctx context.Context, b *Bundle) (*Proof, error) {
	fail := func(err error) (*Proof, error) {
		return nil, &ProofError{Driver: "mock", Err: err}
	}
	if b == nil || b.Circuit == nil || b.Geometry == nil || b.Witness == nil {
		return fail(errors.New("incomplete bundle"))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	c, g := b.Circuit, b.Geometry

	if len(g.Placements) != len(c.Regions) {
		return fail(fmt.Errorf("%d placements for %d regions", len(g.Placements), len(c.Regions)))
	}
	type span struct{ start, end, col int }
	spans := make([]span, 0, len(c.Regions))
	for i := range c.Regions {
		r := &c.Regions[i]
		p := g.Placements[r.ID]
		if p.Column < 0 || p.Column >= g.NbAdvice {
			return fail(fmt.Errorf("region %d placed in column %d of %d", r.ID, p.Column, g.NbAdvice))
		}
		if p.Row < 0 || p.Row+r.Rows > g.UsableRows {
			return fail(fmt.Errorf("region %d overflows its column", r.ID))
		}
		spans = append(spans, span{p.Row, p.Row + r.Rows, p.Column})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].col != spans[j].col {
			return spans[i].col < spans[j].col
		}
		return spans[i].start < spans[j].start
	})
	for i := 1; i < len(spans); i++ {
		if spans[i].col == spans[i-1].col && spans[i].start < spans[i-1].end {
			return fail(errors.New("overlapping region placements"))
		}
	}

	var acc, tmp fr.Element
	for i := range c.Gates {
		gt := &c.Gates[i]
		xa := b.Witness.Value(gt.XA)
		xb := b.Witness.Value(gt.XB)
		xc := b.Witness.Value(gt.XC)
		acc.Mul(&gt.QL, &xa)
		tmp.Mul(&gt.QR, &xb)
		acc.Add(&acc, &tmp)
		tmp.Mul(&gt.QO, &xc)
		acc.Add(&acc, &tmp)
		tmp.Mul(&xa, &xb)
		tmp.Mul(&tmp, &gt.QM)
		acc.Add(&acc, &tmp)
		acc.Add(&acc, &gt.QC)
		if !acc.IsZero() {
			return fail(fmt.Errorf("gate %d not satisfied", i))
		}
	}
	for i := range c.Lookups {
		v := b.Witness.Value(c.Lookups[i].X)
		switch c.Lookups[i].Table {
		case ir.TableByte:
			if !v.IsUint64() || v.Uint64() > 255 {
				return fail(fmt.Errorf("lookup %d outside table", i))
			}
		default:
			return fail(fmt.Errorf("lookup %d uses unknown table %d", i, c.Lookups[i].Table))
		}
	}

	if len(b.Public) != len(c.Public) {
		return fail(fmt.Errorf("instance carries %d values for %d public cells", len(b.Public), len(c.Public)))
	}
	for i, id := range c.Public {
		v := b.Witness.Value(id)
		if !v.Equal(&b.Public[i]) {
			return fail(fmt.Errorf("instance value %d differs from its cell", i))
		}
	}

	h := mimc.NewMiMC()
	var d fr.Element
	d.SetUint64(uint64(g.Degree))
	buf := d.Bytes()
	h.Write(buf[:])
	for i := range b.Public {
		buf = b.Public[i].Bytes()
		h.Write(buf[:])
	}
	return &Proof{Scheme: "mock", Data: h.Sum(nil), Public: b.Public}, nil
}
