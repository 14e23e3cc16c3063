// Package layout computes the column geometry for a finalized circuit: how
// many advice, fixed, lookup and instance columns the arithmetization needs,
// and which column and row span each region occupies. The computation is
// purely combinatorial; identical regions and degree always produce an
// identical geometry, which the proof system requires for reproducibility.
package layout

import (
	"fmt"
	"sort"

	"github.com/verity-zk/chainscaffold/ir"
)

const (
	// DefaultDegree sizes circuits at 2^18 rows unless configured otherwise.
	DefaultDegree = 18

	// DefaultBlindingRows is the margin reserved at the bottom of every
	// column for blinding. The exact soundness bound is owned by the proving
	// backend; this default matches the backends in use.
	DefaultBlindingRows = 109

	// DefaultMaxAdvice caps the advice column count; beyond it the verifier
	// cost outgrows the benefit and the caller should raise the degree.
	DefaultMaxAdvice = 64

	// coefficient columns per advice column: qL, qR, qO, qM, qC
	nbCoeffsPerAdvice = 5
)

// Params are the sizing inputs. Zero values fall back to the defaults.
type Params struct {
	Degree       int
	BlindingRows int
	MaxAdvice    int
}

func (p Params) withDefaults() Params {
	if p.Degree == 0 {
		p.Degree = DefaultDegree
	}
	if p.BlindingRows == 0 {
		p.BlindingRows = DefaultBlindingRows
	}
	if p.MaxAdvice == 0 {
		p.MaxAdvice = DefaultMaxAdvice
	}
	return p
}

// Placement pins one region to its advice column and starting row.
type Placement struct {
	Region ir.RegionID
	Column int
	Row    int
}

// Geometry is the immutable column layout of a configured circuit.
type Geometry struct {
	Degree     int
	UsableRows int

	NbAdvice   int
	NbFixed    int
	NbLookup   int
	NbInstance int

	// Placements is indexed by region id.
	Placements []Placement

	// ColumnRows is the occupied row count per advice column.
	ColumnRows []int
}

// Configure packs the circuit's regions into advice columns of
// 2^degree - blinding usable rows and derives the other column counts.
// Regions are placed first-fit in decreasing row order, ties broken by
// higher constraint density and then by region id, so the result depends
// only on the region list and the params.
func Configure(c *ir.Circuit, p Params) (*Geometry, error) {
	p = p.withDefaults()
	if p.Degree < 1 || p.Degree > 30 {
		return nil, fmt.Errorf("degree %d out of range", p.Degree)
	}
	usable := (1 << p.Degree) - p.BlindingRows
	if usable <= 0 {
		return nil, &CapacityError{Degree: p.Degree, Needed: p.BlindingRows + 1, Usable: 0}
	}

	totalRows := 0
	for _, r := range c.Regions {
		totalRows += r.Rows
	}

	order := make([]int, len(c.Regions))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := &c.Regions[order[i]], &c.Regions[order[j]]
		if a.Rows != b.Rows {
			return a.Rows > b.Rows
		}
		// density comparison without division: (ca/ra) vs (cb/rb)
		ca := a.Gates.Len() + a.Lookups.Len()
		cb := b.Gates.Len() + b.Lookups.Len()
		if ca*b.Rows != cb*a.Rows {
			return ca*b.Rows > cb*a.Rows
		}
		return a.ID < b.ID
	})

	placements := make([]Placement, len(c.Regions))
	var colRows []int
	var colHasLookup []bool
	for _, idx := range order {
		r := &c.Regions[idx]
		if r.Rows > usable {
			return nil, &CapacityError{Degree: p.Degree, Needed: r.Rows, Usable: usable}
		}
		col := -1
		for j := range colRows {
			if colRows[j]+r.Rows <= usable {
				col = j
				break
			}
		}
		if col == -1 {
			if len(colRows) == p.MaxAdvice {
				return nil, &CapacityError{Degree: p.Degree, Needed: totalRows, Usable: p.MaxAdvice * usable}
			}
			colRows = append(colRows, 0)
			colHasLookup = append(colHasLookup, false)
			col = len(colRows) - 1
		}
		placements[r.ID] = Placement{Region: r.ID, Column: col, Row: colRows[col]}
		colRows[col] += r.Rows
		if r.Lookups.Len() > 0 {
			colHasLookup[col] = true
		}
	}

	if len(c.Public) > usable {
		return nil, &CapacityError{Degree: p.Degree, Needed: len(c.Public), Usable: usable}
	}

	nbLookup := len(c.Tables())
	for _, has := range colHasLookup {
		if has {
			nbLookup++
		}
	}
	nbInstance := 0
	if len(c.Public) > 0 {
		nbInstance = 1
	}

	return &Geometry{
		Degree:     p.Degree,
		UsableRows: usable,
		NbAdvice:   len(colRows),
		NbFixed:    nbCoeffsPerAdvice * len(colRows),
		NbLookup:   nbLookup,
		NbInstance: nbInstance,
		Placements: placements,
		ColumnRows: colRows,
	}, nil
}
