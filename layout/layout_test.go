package layout_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/ir"
	"github.com/verity-zk/chainscaffold/layout"
)

// mkCircuit builds a bare circuit whose regions have the given row demands
// and no constraints. Configure only inspects the region list, the lookups
// and the public cells, so this is enough to drive the packing logic.
func mkCircuit(rows ...int) *ir.Circuit {
	c := &ir.Circuit{}
	var cells uint32
	for i, r := range rows {
		c.Regions = append(c.Regions, ir.Region{
			ID:    ir.RegionID(i),
			Cells: ir.Span{Start: cells, End: cells + uint32(r)},
			Rows:  r,
		})
		cells += uint32(r)
	}
	c.NbCells = int(cells)
	return c
}

func TestCapacityBoundary(t *testing.T) {
	p := layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 4}
	// usable rows per column: 2^4 - 6 = 10

	geo, err := layout.Configure(mkCircuit(10), p)
	require.NoError(t, err)
	require.Equal(t, 10, geo.UsableRows)
	require.Equal(t, 1, geo.NbAdvice)
	require.Equal(t, []int{10}, geo.ColumnRows)

	_, err = layout.Configure(mkCircuit(11), p)
	require.Error(t, err)
	var capErr *layout.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 4, capErr.Degree)
	require.Equal(t, 11, capErr.Needed)
	require.Equal(t, 10, capErr.Usable)
}

func TestColumnExhaustion(t *testing.T) {
	p := layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 1}

	_, err := layout.Configure(mkCircuit(7, 6), p)
	var capErr *layout.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 13, capErr.Needed)
	require.Equal(t, 10, capErr.Usable)

	// one more column is enough
	p.MaxAdvice = 2
	geo, err := layout.Configure(mkCircuit(7, 6), p)
	require.NoError(t, err)
	require.Equal(t, 2, geo.NbAdvice)
}

func TestFirstFitPacking(t *testing.T) {
	p := layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 4}

	geo, err := layout.Configure(mkCircuit(7, 6, 4, 3), p)
	require.NoError(t, err)
	require.Equal(t, 2, geo.NbAdvice)
	require.Equal(t, []int{10, 10}, geo.ColumnRows)

	want := []layout.Placement{
		{Region: 0, Column: 0, Row: 0},
		{Region: 1, Column: 1, Row: 0},
		{Region: 2, Column: 1, Row: 6},
		{Region: 3, Column: 0, Row: 7},
	}
	require.Equal(t, want, geo.Placements)
}

func TestDenserRegionsPackFirst(t *testing.T) {
	// both regions demand 8 rows; region 1 carries more gates and must be
	// placed first despite its higher id
	c := &ir.Circuit{NbCells: 16}
	c.Gates = make([]ir.Gate, 10)
	c.Regions = []ir.Region{
		{ID: 0, Cells: ir.Span{Start: 0, End: 8}, Gates: ir.Span{Start: 0, End: 2}, Rows: 8},
		{ID: 1, Cells: ir.Span{Start: 8, End: 16}, Gates: ir.Span{Start: 2, End: 10}, Rows: 8},
	}

	geo, err := layout.Configure(c, layout.Params{Degree: 5, BlindingRows: 16, MaxAdvice: 4})
	require.NoError(t, err)
	require.Equal(t, 1, geo.NbAdvice)
	require.Equal(t, 0, geo.Placements[1].Row)
	require.Equal(t, 8, geo.Placements[0].Row)
}

func TestEqualRegionsPackByID(t *testing.T) {
	geo, err := layout.Configure(mkCircuit(4, 4, 4), layout.Params{Degree: 4, BlindingRows: 4, MaxAdvice: 4})
	require.NoError(t, err)
	require.Equal(t, 0, geo.Placements[0].Row)
	require.Equal(t, 4, geo.Placements[1].Row)
	require.Equal(t, 8, geo.Placements[2].Row)
}

func TestColumnCounts(t *testing.T) {
	c := mkCircuit(5, 5)
	c.Lookups = []ir.Lookup{{X: 0, Table: ir.TableByte}}
	c.Regions[0].Lookups = ir.Span{Start: 0, End: 1}
	c.Public = []ir.CellID{0, 1}

	geo, err := layout.Configure(c, layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 4})
	require.NoError(t, err)
	require.Equal(t, 1, geo.NbAdvice)
	require.Equal(t, 5, geo.NbFixed)
	// one table column plus one advice column hosting lookups
	require.Equal(t, 2, geo.NbLookup)
	require.Equal(t, 1, geo.NbInstance)

	c2 := mkCircuit(5)
	geo2, err := layout.Configure(c2, layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 4})
	require.NoError(t, err)
	require.Equal(t, 0, geo2.NbLookup)
	require.Equal(t, 0, geo2.NbInstance)
}

func TestDegreeValidation(t *testing.T) {
	_, err := layout.Configure(mkCircuit(1), layout.Params{Degree: 31})
	require.Error(t, err)
	_, err = layout.Configure(mkCircuit(1), layout.Params{Degree: -1})
	require.Error(t, err)

	// zero params fall back to the defaults
	geo, err := layout.Configure(mkCircuit(1), layout.Params{})
	require.NoError(t, err)
	require.Equal(t, layout.DefaultDegree, geo.Degree)
	require.Equal(t, (1<<layout.DefaultDegree)-layout.DefaultBlindingRows, geo.UsableRows)
}

func TestBlindingSwallowsColumn(t *testing.T) {
	_, err := layout.Configure(mkCircuit(1), layout.Params{Degree: 3, BlindingRows: 8, MaxAdvice: 1})
	var capErr *layout.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 0, capErr.Usable)
}

func TestPublicInstanceOverflow(t *testing.T) {
	c := mkCircuit(5)
	c.Public = make([]ir.CellID, 11)

	_, err := layout.Configure(c, layout.Params{Degree: 4, BlindingRows: 6, MaxAdvice: 4})
	var capErr *layout.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 11, capErr.Needed)
}

func buildReal(t *testing.T) *ir.Circuit {
	t.Helper()
	fld := field.BN254()
	b := builder.New(fld)
	x, err := b.Input(fld.FromUint64(300))
	require.NoError(t, err)
	y, err := b.Input(fld.FromUint64(9))
	require.NoError(t, err)
	require.NoError(t, gadget.RangeCheck(b, x, 2))
	require.NoError(t, gadget.RangeCheck(b, y, 2))
	lt, err := gadget.IsLess(b, y, x, 2)
	require.NoError(t, err)
	h, err := gadget.MiMCSum(b, []ir.CellID{x, y, lt})
	require.NoError(t, err)
	require.NoError(t, b.MarkPublic(h))
	c, err := b.Finalize()
	require.NoError(t, err)
	return c
}

func TestGeometryIsDeterministic(t *testing.T) {
	p := layout.Params{Degree: 12}

	g1, err := layout.Configure(buildReal(t), p)
	require.NoError(t, err)
	g2, err := layout.Configure(buildReal(t), p)
	require.NoError(t, err)

	if diff := cmp.Diff(g1, g2); diff != "" {
		t.Fatalf("identical circuits configured differently (-first +second):\n%s", diff)
	}
	require.Equal(t, 5*g1.NbAdvice, g1.NbFixed)
	require.Equal(t, len(g1.Placements), len(buildReal(t).Regions))
}

func TestPlacementsDoNotOverlap(t *testing.T) {
	c := buildReal(t)
	geo, err := layout.Configure(c, layout.Params{Degree: 12})
	require.NoError(t, err)

	type span struct{ start, end int }
	cols := make(map[int][]span)
	for _, pl := range geo.Placements {
		r := c.Regions[pl.Region]
		require.LessOrEqual(t, pl.Row+r.Rows, geo.UsableRows)
		cols[pl.Column] = append(cols[pl.Column], span{pl.Row, pl.Row + r.Rows})
	}
	for _, spans := range cols {
		for i := range spans {
			for j := range spans {
				if i == j {
					continue
				}
				overlap := spans[i].start < spans[j].end && spans[j].start < spans[i].end
				require.False(t, overlap, "regions overlap in a column")
			}
		}
	}
}
