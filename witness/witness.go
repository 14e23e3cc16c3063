// Package witness fills the cell table of a finalized circuit by replaying
// its operation log. Regions are replayed level by level: a region only reads
// cells of strictly lower levels, so all regions of one level run in
// parallel. After the replay every gate and lookup is re-checked; a violation
// means a gadget emitted constraints its own evaluation does not satisfy.
package witness

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/debug"
	"golang.org/x/sync/errgroup"

	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/ir"
)

// Table is the assigned witness: one field element per circuit cell.
type Table struct {
	values []fr.Element
	filled *bitset.BitSet
}

// Value returns the assigned value of a cell.
func (t *Table) Value(id ir.CellID) fr.Element {
	if !t.filled.Test(uint(id)) {
		panic("unexpected: reading unassigned cell")
	}
	return t.values[id]
}

// Values returns a copy of the full cell table.
func (t *Table) Values() []fr.Element {
	out := make([]fr.Element, len(t.values))
	copy(out, t.values)
	return out
}

// Public returns the values of the circuit's public cells, in the order they
// were marked public. This is the instance column content.
func (t *Table) Public(c *ir.Circuit) []fr.Element {
	out := make([]fr.Element, len(c.Public))
	for i, id := range c.Public {
		out[i] = t.Value(id)
	}
	return out
}

// Assign replays the circuit's operation log and returns the filled table.
// The replay is deterministic: the log already carries every input value, so
// the same circuit always produces the same table. Constraint violations are
// reported as *MismatchError.
func Assign(fld *field.Context, c *ir.Circuit) (*Table, error) {
	t := &Table{
		values: make([]fr.Element, c.NbCells),
		filled: bitset.New(uint(c.NbCells)),
	}

	// ops are contiguous per region in emit order
	opStart := make([]int, len(c.Regions))
	opCount := make([]int, len(c.Regions))
	for i := range opStart {
		opStart[i] = -1
	}
	for i := range c.Ops {
		r := c.Ops[i].Region
		if opStart[r] == -1 {
			opStart[r] = i
		}
		opCount[r]++
	}

	maxLevel := 0
	for i := range c.Regions {
		if c.Regions[i].Level > maxLevel {
			maxLevel = c.Regions[i].Level
		}
	}
	byLevel := make([][]int, maxLevel+1)
	for i := range c.Regions {
		l := c.Regions[i].Level
		byLevel[l] = append(byLevel[l], i)
	}

	for _, wave := range byLevel {
		var g errgroup.Group
		for _, ri := range wave {
			ri := ri
			if opStart[ri] == -1 {
				continue
			}
			g.Go(func() error {
				return t.replayRegion(fld, c, opStart[ri], opCount[ri])
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		// marking filled bits is not goroutine safe, do it between waves
		for _, ri := range wave {
			span := c.Regions[ri].Cells
			for id := span.Start; id < span.End; id++ {
				t.filled.Set(uint(id))
			}
		}
	}

	if got := t.filled.Count(); got != uint(c.NbCells) {
		panic(fmt.Sprintf("unexpected: %d of %d cells assigned", got, c.NbCells))
	}

	if err := t.check(c); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) replayRegion(fld *field.Context, c *ir.Circuit, start, count int) error {
	for i := start; i < start+count; i++ {
		op := &c.Ops[i]
		in := make([]fr.Element, len(op.In))
		for j, id := range op.In {
			if debug.Debug && !t.filled.Test(uint(id)) {
				panic("unexpected: op reads unassigned cell")
			}
			in[j] = t.values[id]
		}
		out, err := gadget.Eval(fld, op, in)
		if err != nil {
			return &MismatchError{Region: op.Region, Kind: "op", Index: i, Detail: err.Error()}
		}
		if len(out) != len(op.Out) {
			panic("unexpected: eval arity differs from op outputs")
		}
		for j, id := range op.Out {
			t.values[id] = out[j]
		}
	}
	return nil
}

// check re-evaluates every gate and lookup against the assigned values.
func (t *Table) check(c *ir.Circuit) error {
	var acc, tmp fr.Element
	for i := range c.Gates {
		g := &c.Gates[i]
		a, b, cc := &t.values[g.XA], &t.values[g.XB], &t.values[g.XC]
		acc.Mul(&g.QL, a)
		tmp.Mul(&g.QR, b)
		acc.Add(&acc, &tmp)
		tmp.Mul(&g.QO, cc)
		acc.Add(&acc, &tmp)
		tmp.Mul(a, b)
		tmp.Mul(&tmp, &g.QM)
		acc.Add(&acc, &tmp)
		acc.Add(&acc, &g.QC)
		if !acc.IsZero() {
			return &MismatchError{
				Region: regionOfGate(c, i),
				Kind:   "gate",
				Index:  i,
				Detail: fmt.Sprintf("evaluates to %s", acc.String()),
			}
		}
	}
	for i := range c.Lookups {
		l := &c.Lookups[i]
		v := &t.values[l.X]
		switch l.Table {
		case ir.TableByte:
			if !v.IsUint64() || v.Uint64() > 255 {
				return &MismatchError{
					Region: regionOfLookup(c, i),
					Kind:   "lookup",
					Index:  i,
					Detail: fmt.Sprintf("value %s is not a byte", v.String()),
				}
			}
		default:
			panic("unexpected: unknown lookup table")
		}
	}
	return nil
}

func regionOfGate(c *ir.Circuit, gate int) ir.RegionID {
	for i := range c.Regions {
		s := c.Regions[i].Gates
		if uint32(gate) >= s.Start && uint32(gate) < s.End {
			return c.Regions[i].ID
		}
	}
	panic("unexpected: gate outside any region")
}

func regionOfLookup(c *ir.Circuit, lk int) ir.RegionID {
	for i := range c.Regions {
		s := c.Regions[i].Lookups
		if uint32(lk) >= s.Start && uint32(lk) < s.End {
			return c.Regions[i].ID
		}
	}
	panic("unexpected: lookup outside any region")
}
