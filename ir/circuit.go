// Package ir defines the sealed intermediate form of a built circuit: the
// cells, gates, lookups and regions accumulated by the builder, plus the
// replayable op log the witness assigner consumes. Everything here is plain
// data; once a Circuit is produced it is never mutated.
package ir

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// CellID identifies a cell. Ids are dense and assigned in creation order.
type CellID uint32

// RegionID identifies a region. Ids are dense and assigned in gadget call
// order; this order is the replay contract.
type RegionID uint32

// TableID identifies a fixed lookup table.
type TableID uint8

const (
	// TableByte holds the values 0..255.
	TableByte TableID = iota

	NbTables
)

// Span is a half-open [Start, End) range over sequentially allocated ids.
type Span struct {
	Start, End uint32
}

func (s Span) Len() int {
	return int(s.End - s.Start)
}

// Gate is one plonk-style constraint over the cells (a, b, c) = (XA, XB, XC):
//
//	QL*a + QR*b + QO*c + QM*a*b + QC == 0
type Gate struct {
	XA, XB, XC         CellID
	QL, QR, QO, QM, QC fr.Element
}

// Lookup asserts that the value of cell X is a member of Table.
type Lookup struct {
	X     CellID
	Table TableID
}

// Region groups the cells and constraints of one gadget invocation. Regions
// never nest; their spans partition the circuit-wide cell, gate and lookup
// sequences in id order.
type Region struct {
	ID      RegionID
	Cells   Span
	Gates   Span
	Lookups Span

	// Rows is the vertical space the region needs once placed in a column.
	Rows int

	// Level is the replay wave. A region only reads cells produced by regions
	// of strictly lower level, so regions sharing a level can be assigned in
	// parallel.
	Level int
}

// Circuit is the product of a finalized build. It is read-only and may be
// shared freely across configuration, assignment and proving.
type Circuit struct {
	NbCells int
	Ops     []Op
	Gates   []Gate
	Lookups []Lookup
	Regions []Region

	// Public lists the cells exposed in the instance column, in mark order.
	Public []CellID
}

// Validate checks the structural invariants the rest of the pipeline relies
// on. It is cheap relative to building and is run once at finalize.
func (c *Circuit) Validate() error {
	var cellCur, gateCur, lookupCur uint32
	for i, r := range c.Regions {
		if r.ID != RegionID(i) {
			return fmt.Errorf("region %d: id %d is not sequential", i, r.ID)
		}
		if r.Cells.Start != cellCur || r.Cells.End < r.Cells.Start {
			return fmt.Errorf("region %d: cell span [%d,%d) does not continue at %d", i, r.Cells.Start, r.Cells.End, cellCur)
		}
		if r.Gates.Start != gateCur || r.Gates.End < r.Gates.Start {
			return fmt.Errorf("region %d: gate span [%d,%d) does not continue at %d", i, r.Gates.Start, r.Gates.End, gateCur)
		}
		if r.Lookups.Start != lookupCur || r.Lookups.End < r.Lookups.Start {
			return fmt.Errorf("region %d: lookup span [%d,%d) does not continue at %d", i, r.Lookups.Start, r.Lookups.End, lookupCur)
		}
		cellCur, gateCur, lookupCur = r.Cells.End, r.Gates.End, r.Lookups.End
		if want := max(r.Cells.Len(), max(r.Gates.Len(), r.Lookups.Len())); r.Rows != want {
			return fmt.Errorf("region %d: rows %d, want %d", i, r.Rows, want)
		}
	}
	if int(cellCur) != c.NbCells {
		return fmt.Errorf("regions cover %d cells, circuit has %d", cellCur, c.NbCells)
	}
	if int(gateCur) != len(c.Gates) {
		return fmt.Errorf("regions cover %d gates, circuit has %d", gateCur, len(c.Gates))
	}
	if int(lookupCur) != len(c.Lookups) {
		return fmt.Errorf("regions cover %d lookups, circuit has %d", lookupCur, len(c.Lookups))
	}

	// every cell is produced by exactly one op, in creation order
	next := CellID(0)
	for i, op := range c.Ops {
		if int(op.Region) >= len(c.Regions) {
			return fmt.Errorf("op %d: region %d out of bound", i, op.Region)
		}
		reg := c.Regions[op.Region]
		for _, in := range op.In {
			if in >= next {
				return fmt.Errorf("op %d: input cell %d referenced before creation", i, in)
			}
			inReg := c.regionOf(in)
			if inReg != op.Region && c.Regions[inReg].Level >= reg.Level {
				return fmt.Errorf("op %d: input cell %d from region %d breaks level order", i, in, inReg)
			}
		}
		for _, out := range op.Out {
			if out != next {
				return fmt.Errorf("op %d: output cell %d is not sequential", i, out)
			}
			if out < reg.Cells.Start || out >= reg.Cells.End {
				return fmt.Errorf("op %d: output cell %d outside region %d", i, out, op.Region)
			}
			next++
		}
	}
	if int(next) != c.NbCells {
		return fmt.Errorf("ops produce %d cells, circuit has %d", next, c.NbCells)
	}

	for i, g := range c.Gates {
		if int(g.XA) >= c.NbCells || int(g.XB) >= c.NbCells || int(g.XC) >= c.NbCells {
			return fmt.Errorf("gate %d references a cell out of bound", i)
		}
	}
	for i, l := range c.Lookups {
		if int(l.X) >= c.NbCells {
			return fmt.Errorf("lookup %d references cell %d out of bound", i, l.X)
		}
		if l.Table >= NbTables {
			return fmt.Errorf("lookup %d references unknown table %d", i, l.Table)
		}
	}
	for i, p := range c.Public {
		if int(p) >= c.NbCells {
			return fmt.Errorf("public output %d references cell %d out of bound", i, p)
		}
	}
	return nil
}

// regionOf returns the region owning the given cell. Spans partition the id
// space in order, so a binary search suffices.
func (c *Circuit) regionOf(id CellID) RegionID {
	lo, hi := 0, len(c.Regions)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.Regions[mid].Cells.End <= uint32(id) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return RegionID(lo)
}

// Tables returns the distinct lookup tables the circuit uses.
func (c *Circuit) Tables() []TableID {
	var seen [NbTables]bool
	for _, l := range c.Lookups {
		seen[l.Table] = true
	}
	var res []TableID
	for t := TableID(0); t < NbTables; t++ {
		if seen[t] {
			res = append(res, t)
		}
	}
	return res
}
