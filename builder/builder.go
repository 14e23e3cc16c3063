// Package builder accumulates cells, gates, lookups and regions for one
// circuit instance. A Builder moves through exactly two states: building,
// during which gadget calls append to it, and finalized, after which it is
// immutable. Gadget call order is semantically meaningful; region ids are
// assigned sequentially in that order and the witness assigner replays them
// the same way.
package builder

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/debug"

	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/ir"
)

// Builder owns the mutable circuit state. It is not safe for concurrent use;
// construction is inherently sequential because call order defines region ids.
type Builder struct {
	fld *field.Context

	sealed bool

	nbCells uint32
	ops     []ir.Op
	gates   []ir.Gate
	lookups []ir.Lookup
	regions []ir.Region
	public  []ir.CellID

	// region each cell belongs to, indexed by cell id
	cellRegion []ir.RegionID

	// interned constant cells
	consts map[fr.Element]ir.CellID

	// open region bookkeeping
	open                        bool
	rgCells, rgGates, rgLookups uint32
	rgMaxInLevel                int
}

// New returns an empty Builder over the given field.
func New(fld *field.Context) *Builder {
	return &Builder{
		fld:    fld,
		consts: make(map[fr.Element]ir.CellID),
	}
}

// Field returns the field context the builder works over.
func (b *Builder) Field() *field.Context {
	return b.fld
}

// NbCells returns the number of cells created so far.
func (b *Builder) NbCells() int {
	return int(b.nbCells)
}

// NbRegions returns the number of regions closed so far.
func (b *Builder) NbRegions() int {
	return len(b.regions)
}

// CheckCells verifies that every id refers to an already created cell.
func (b *Builder) CheckCells(ids ...ir.CellID) error {
	for _, id := range ids {
		if uint32(id) >= b.nbCells {
			return fmt.Errorf("cell %d does not exist", id)
		}
	}
	return nil
}

// OpenRegion starts the region for one gadget invocation and returns its id.
// Regions never nest; a second open before close is a gadget defect.
func (b *Builder) OpenRegion() (ir.RegionID, error) {
	if b.sealed {
		return 0, &BuilderStateError{Op: "open region", State: "finalized"}
	}
	if b.open {
		panic("unexpected: region already open")
	}
	b.open = true
	b.rgCells = b.nbCells
	b.rgGates = uint32(len(b.gates))
	b.rgLookups = uint32(len(b.lookups))
	b.rgMaxInLevel = -1
	return ir.RegionID(len(b.regions)), nil
}

// CloseRegion seals the open region, computing its row demand and replay
// level from what was emitted into it.
func (b *Builder) CloseRegion() {
	if !b.open {
		panic("unexpected: no open region")
	}
	r := ir.Region{
		ID:      ir.RegionID(len(b.regions)),
		Cells:   ir.Span{Start: b.rgCells, End: b.nbCells},
		Gates:   ir.Span{Start: b.rgGates, End: uint32(len(b.gates))},
		Lookups: ir.Span{Start: b.rgLookups, End: uint32(len(b.lookups))},
		Level:   b.rgMaxInLevel + 1,
	}
	r.Rows = max(r.Cells.Len(), max(r.Gates.Len(), r.Lookups.Len()))
	if r.Rows == 0 {
		panic("unexpected: empty region")
	}
	b.regions = append(b.regions, r)
	b.open = false
}

// NewCell allocates a cell inside the open region.
func (b *Builder) NewCell() ir.CellID {
	if !b.open {
		panic("unexpected: cell outside region")
	}
	id := ir.CellID(b.nbCells)
	b.nbCells++
	b.cellRegion = append(b.cellRegion, ir.RegionID(len(b.regions)))
	return id
}

// AddGate appends a gate to the open region.
func (b *Builder) AddGate(g ir.Gate) {
	if !b.open {
		panic("unexpected: gate outside region")
	}
	if debug.Debug {
		if uint32(g.XA) >= b.nbCells || uint32(g.XB) >= b.nbCells || uint32(g.XC) >= b.nbCells {
			panic("unexpected: gate references unknown cell")
		}
	}
	b.gates = append(b.gates, g)
}

// AddLookup asserts membership of a cell in a fixed table.
func (b *Builder) AddLookup(x ir.CellID, t ir.TableID) {
	if !b.open {
		panic("unexpected: lookup outside region")
	}
	b.lookups = append(b.lookups, ir.Lookup{X: x, Table: t})
}

// LogOp records a replay step for the open region. The builder stamps the
// region id and folds the inputs' levels into the region's replay level.
func (b *Builder) LogOp(op ir.Op) {
	if !b.open {
		panic("unexpected: op outside region")
	}
	op.Region = ir.RegionID(len(b.regions))
	for _, in := range op.In {
		reg := b.cellRegion[in]
		if reg == op.Region {
			continue
		}
		if lvl := b.regions[reg].Level; lvl > b.rgMaxInLevel {
			b.rgMaxInLevel = lvl
		}
	}
	b.ops = append(b.ops, op)
}

// Constant returns the cell holding the given constant, creating and pinning
// it in a fresh single-row region on first use. Constants are interned, so
// repeated use shares one cell. Must not be called while a region is open.
func (b *Builder) Constant(v fr.Element) (ir.CellID, error) {
	if b.sealed {
		return 0, &BuilderStateError{Op: "add constant", State: "finalized"}
	}
	if id, ok := b.consts[v]; ok {
		return id, nil
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	id := b.NewCell()
	var negV fr.Element
	negV.Neg(&v)
	b.AddGate(ir.Gate{XA: id, XB: id, XC: id, QL: b.fld.One(), QC: negV})
	b.LogOp(ir.Op{Kind: ir.KindConst, Params: []fr.Element{v}, Out: []ir.CellID{id}})
	b.CloseRegion()
	b.consts[v] = id
	return id, nil
}

// Input binds an externally supplied value to a fresh cell. The value is
// captured in the op log, so witness replay reproduces it without access to
// the original source. Inputs carry no gate; callers are expected to
// constrain them (the importer binds them through its authenticity checks).
func (b *Builder) Input(v fr.Element) (ir.CellID, error) {
	if b.sealed {
		return 0, &BuilderStateError{Op: "add input", State: "finalized"}
	}
	if _, err := b.OpenRegion(); err != nil {
		return 0, err
	}
	id := b.NewCell()
	b.LogOp(ir.Op{Kind: ir.KindInput, Params: []fr.Element{v}, Out: []ir.CellID{id}})
	b.CloseRegion()
	return id, nil
}

// MarkPublic appends a cell to the public instance. Call order is the
// instance order, part of the verification contract.
func (b *Builder) MarkPublic(c ir.CellID) error {
	if b.sealed {
		return &BuilderStateError{Op: "mark public", State: "finalized"}
	}
	if err := b.CheckCells(c); err != nil {
		return err
	}
	b.public = append(b.public, c)
	return nil
}

// Finalize seals the builder and returns the immutable circuit. A second
// call fails with BuilderStateError; the first outcome is never recomputed.
func (b *Builder) Finalize() (*ir.Circuit, error) {
	if b.sealed {
		return nil, &BuilderStateError{Op: "finalize", State: "finalized"}
	}
	if b.open {
		panic("unexpected: finalize with open region")
	}
	b.sealed = true
	c := &ir.Circuit{
		NbCells: int(b.nbCells),
		Ops:     b.ops,
		Gates:   b.gates,
		Lookups: b.lookups,
		Regions: b.regions,
		Public:  b.public,
	}
	if debug.Debug {
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("unexpected: built an invalid circuit: %v", err))
		}
	}
	return c, nil
}
