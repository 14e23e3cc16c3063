package driver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/driver"
	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/ir"
	"github.com/verity-zk/chainscaffold/layout"
	"github.com/verity-zk/chainscaffold/witness"
)

// bundle assembles a small proven-range comparison circuit end to end.
func bundle(t *testing.T) *driver.Bundle {
	t.Helper()
	fld := field.BN254()
	b := builder.New(fld)

	x, err := b.Input(fld.FromUint64(1500))
	require.NoError(t, err)
	y, err := b.Input(fld.FromUint64(2500))
	require.NoError(t, err)
	require.NoError(t, gadget.RangeCheck(b, x, 2))
	require.NoError(t, gadget.RangeCheck(b, y, 2))
	lt, err := gadget.IsLess(b, x, y, 2)
	require.NoError(t, err)
	require.NoError(t, b.MarkPublic(lt))

	c, err := b.Finalize()
	require.NoError(t, err)
	geo, err := layout.Configure(c, layout.Params{Degree: 10})
	require.NoError(t, err)
	tbl, err := witness.Assign(fld, c)
	require.NoError(t, err)

	return &driver.Bundle{Circuit: c, Geometry: geo, Witness: tbl, Public: tbl.Public(c)}
}

func TestMockProve(t *testing.T) {
	bd := bundle(t)
	proof, err := driver.Mock{}.Prove(context.Background(), bd)
	require.NoError(t, err)
	require.Equal(t, "mock", proof.Scheme)
	require.Len(t, proof.Data, 32)
	require.Equal(t, bd.Public, proof.Public)
	require.Equal(t, uint64(1), proof.Public[0].Uint64())

	// same bundle, same proof bytes
	again, err := driver.Mock{}.Prove(context.Background(), bd)
	require.NoError(t, err)
	require.Equal(t, proof.Data, again.Data)
}

func TestMockRejectsIncompleteBundle(t *testing.T) {
	var proofErr *driver.ProofError

	_, err := driver.Mock{}.Prove(context.Background(), nil)
	require.ErrorAs(t, err, &proofErr)

	bd := bundle(t)
	bd.Witness = nil
	_, err = driver.Mock{}.Prove(context.Background(), bd)
	require.ErrorAs(t, err, &proofErr)
	require.Equal(t, "mock", proofErr.Driver)
}

func TestMockRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.Mock{}.Prove(ctx, bundle(t))
	var proofErr *driver.ProofError
	require.ErrorAs(t, err, &proofErr)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockRejectsUnsatisfiedGate(t *testing.T) {
	bd := bundle(t)
	one := field.BN254().One()
	bd.Circuit.Gates[0].QC.Add(&bd.Circuit.Gates[0].QC, &one)

	_, err := driver.Mock{}.Prove(context.Background(), bd)
	var proofErr *driver.ProofError
	require.ErrorAs(t, err, &proofErr)
	require.Contains(t, err.Error(), "not satisfied")
}

func TestMockRejectsForgedInstance(t *testing.T) {
	bd := bundle(t)
	bd.Public[0] = field.BN254().FromUint64(0)

	_, err := driver.Mock{}.Prove(context.Background(), bd)
	var proofErr *driver.ProofError
	require.ErrorAs(t, err, &proofErr)
	require.Contains(t, err.Error(), "instance value 0 differs")

	bd = bundle(t)
	bd.Public = nil
	_, err = driver.Mock{}.Prove(context.Background(), bd)
	require.ErrorAs(t, err, &proofErr)
}

func TestMockRejectsBrokenGeometry(t *testing.T) {
	var proofErr *driver.ProofError

	bd := bundle(t)
	bd.Geometry.Placements = bd.Geometry.Placements[:len(bd.Geometry.Placements)-1]
	_, err := driver.Mock{}.Prove(context.Background(), bd)
	require.ErrorAs(t, err, &proofErr)

	bd = bundle(t)
	bd.Geometry.Placements[0].Column = bd.Geometry.NbAdvice
	_, err = driver.Mock{}.Prove(context.Background(), bd)
	require.ErrorAs(t, err, &proofErr)

	bd = bundle(t)
	bd.Geometry.Placements[0].Row = bd.Geometry.UsableRows
	_, err = driver.Mock{}.Prove(context.Background(), bd)
	require.ErrorAs(t, err, &proofErr)
	require.Contains(t, err.Error(), "overflows")

	// collapse two regions onto the same rows
	bd = bundle(t)
	if len(bd.Geometry.Placements) > 1 {
		bd.Geometry.Placements[1] = layout.Placement{
			Region: bd.Geometry.Placements[1].Region,
			Column: bd.Geometry.Placements[0].Column,
			Row:    bd.Geometry.Placements[0].Row,
		}
		_, err = driver.Mock{}.Prove(context.Background(), bd)
		require.ErrorAs(t, err, &proofErr)
		require.Contains(t, err.Error(), "overlapping")
	}
}

func TestMockRejectsUnknownTable(t *testing.T) {
	bd := bundle(t)
	require.NotEmpty(t, bd.Circuit.Lookups)
	bd.Circuit.Lookups[0].Table = ir.TableID(7)

	_, err := driver.Mock{}.Prove(context.Background(), bd)
	var proofErr *driver.ProofError
	require.ErrorAs(t, err, &proofErr)
	require.Contains(t, err.Error(), "unknown table")
}

func TestProofErrorMessage(t *testing.T) {
	err := &driver.ProofError{Driver: "plonk", Err: context.DeadlineExceeded}
	require.EqualError(t, err, "proving failed (plonk): context deadline exceeded")
}
