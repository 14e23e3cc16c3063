package chainscaffold_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/verity-zk/chainscaffold"
	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/layout"
	"github.com/verity-zk/chainscaffold/provider"
)

const (
	firstBlock = uint64(19_000_000)
	baseTime   = uint64(1_708_000_000)
)

// cancunHeaders synthesizes a linked run of post-Cancun headers.
func cancunHeaders(n int) []*types.Header {
	hs := make([]*types.Header, n)
	parent := common.HexToHash("0x5b01bc8e7a73a62e20f3c1d07a5f3e8e0c3a8f7b2a1d9e8c7b6a5d4c3b2a1f00")
	for i := range hs {
		num := firstBlock + uint64(i)
		beacon := common.HexToHash("0x7a4be2f6d9c8b7a6e5d4c3b2a190887766554433221100ffeeddccbbaa998877")
		blobUsed := uint64(131072)
		excess := uint64(0)
		withdrawals := types.EmptyWithdrawalsHash
		h := &types.Header{
			ParentHash:       parent,
			UncleHash:        types.EmptyUncleHash,
			Coinbase:         common.HexToAddress("0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5"),
			Root:             common.BytesToHash([]byte{0x11, byte(i)}),
			TxHash:           types.EmptyTxsHash,
			ReceiptHash:      types.EmptyReceiptsHash,
			Difficulty:       big.NewInt(0),
			Number:           new(big.Int).SetUint64(num),
			GasLimit:         30_000_000,
			GasUsed:          12_500_000,
			Time:             baseTime + uint64(i)*12,
			Extra:            []byte("beaverbuild.org"),
			MixDigest:        common.BytesToHash([]byte{0x22, byte(i)}),
			Nonce:            types.BlockNonce{},
			BaseFee:          big.NewInt(25_000_000_000),
			WithdrawalsHash:  &withdrawals,
			BlobGasUsed:      &blobUsed,
			ExcessBlobGas:    &excess,
			ParentBeaconRoot: &beacon,
		}
		hs[i] = h
		parent = h.Hash()
	}
	return hs
}

func newArchive(t *testing.T, n int) *provider.Archive {
	t.Helper()
	arch, err := provider.NewArchive(cancunHeaders(n))
	require.NoError(t, err)
	return arch
}

func TestTimestampProofEndToEnd(t *testing.T) {
	arch := newArchive(t, 8)
	block := firstBlock + 3
	blockTime := baseTime + 3*12

	for _, tc := range []struct {
		name      string
		threshold uint64
		want      uint64
	}{
		{"after", blockTime - 1, 1},
		{"notAfter", blockTime, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := chainscaffold.New(chainscaffold.Config{Network: "testnet"}, arch)
			hdr, err := s.ImportHeader(block)
			require.NoError(t, err)

			ok, err := s.TimestampAfter(hdr, tc.threshold)
			require.NoError(t, err)
			require.NoError(t, s.MarkPublic(hdr.NumberCell()))
			require.NoError(t, s.MarkPublic(ok))

			compiled, err := s.Compile()
			require.NoError(t, err)
			require.Equal(t, layout.DefaultDegree, compiled.Geometry().Degree)

			proof, err := compiled.Mock(context.Background())
			require.NoError(t, err)
			require.Equal(t, "mock", proof.Scheme)
			require.Len(t, proof.Public, 2)
			require.Equal(t, block, proof.Public[0].Uint64())
			require.Equal(t, tc.want, proof.Public[1].Uint64())
		})
	}
}

func TestAssignedWitnessRoundTripsRaw(t *testing.T) {
	arch := newArchive(t, 4)
	block := firstBlock + 1

	s := chainscaffold.New(chainscaffold.Config{Degree: 18}, arch)
	hdr, err := s.ImportHeader(block)
	require.NoError(t, err)
	compiled, err := s.Compile()
	require.NoError(t, err)
	bundle, err := compiled.Assign()
	require.NoError(t, err)

	raw, err := hdr.Reassemble(bundle.Witness.Value)
	require.NoError(t, err)
	fact, err := arch.FactByNumber(block)
	require.NoError(t, err)
	require.Equal(t, fact.Raw, raw)
}

func TestCompileTwiceFails(t *testing.T) {
	arch := newArchive(t, 2)
	s := chainscaffold.New(chainscaffold.Config{}, arch)
	_, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)

	_, err = s.Compile()
	require.NoError(t, err)

	_, err = s.Compile()
	var stateErr *builder.BuilderStateError
	require.ErrorAs(t, err, &stateErr)

	_, err = s.ImportHeader(firstBlock + 1)
	require.ErrorAs(t, err, &stateErr)
}

func TestThresholdMustFitTimestampWidth(t *testing.T) {
	arch := newArchive(t, 2)
	s := chainscaffold.New(chainscaffold.Config{}, arch)
	hdr, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)

	_, err = s.TimestampAfter(hdr, 1<<32)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not fit")

	_, err = s.TimestampAfter(hdr, 1<<32-1)
	require.NoError(t, err)
}

func TestImportOutsideRangeIsRecoverable(t *testing.T) {
	arch := newArchive(t, 2)
	s := chainscaffold.New(chainscaffold.Config{}, arch)

	_, err := s.ImportHeader(firstBlock + 100)
	require.Error(t, err)
	require.Equal(t, 0, s.Builder().NbCells())

	// the same scaffold still imports a valid block afterwards
	hdr, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)
	require.Equal(t, firstBlock, hdr.Number)
}

func TestLowDegreeHitsCapacity(t *testing.T) {
	arch := newArchive(t, 2)

	s := chainscaffold.New(chainscaffold.Config{Degree: 8}, arch)
	_, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)
	_, err = s.Compile()
	var capErr *layout.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 8, capErr.Degree)
	require.Contains(t, err.Error(), "raise the degree and rebuild")

	// rebuilding at a higher degree succeeds
	s = chainscaffold.New(chainscaffold.Config{Degree: 12}, arch)
	_, err = s.ImportHeader(firstBlock)
	require.NoError(t, err)
	compiled, err := s.Compile()
	require.NoError(t, err)
	require.Greater(t, compiled.Geometry().NbAdvice, 1)

	_, err = compiled.Mock(context.Background())
	require.NoError(t, err)
}

func TestCompilationIsDeterministic(t *testing.T) {
	arch := newArchive(t, 4)

	build := func() *chainscaffold.Compiled {
		s := chainscaffold.New(chainscaffold.Config{Degree: 16}, arch)
		hdr, err := s.ImportHeader(firstBlock + 2)
		require.NoError(t, err)
		ok, err := s.TimestampAfter(hdr, baseTime)
		require.NoError(t, err)
		require.NoError(t, s.MarkPublic(ok))
		compiled, err := s.Compile()
		require.NoError(t, err)
		return compiled
	}

	c1, c2 := build(), build()
	if diff := cmp.Diff(c1.Circuit(), c2.Circuit()); diff != "" {
		t.Fatalf("circuits differ across identical builds:\n%s", diff)
	}
	if diff := cmp.Diff(c1.Geometry(), c2.Geometry()); diff != "" {
		t.Fatalf("geometries differ across identical builds:\n%s", diff)
	}

	p1, err := c1.Mock(context.Background())
	require.NoError(t, err)
	p2, err := c2.Mock(context.Background())
	require.NoError(t, err)
	require.Equal(t, p1.Data, p2.Data)
}

func TestDirectGadgetAccess(t *testing.T) {
	arch := newArchive(t, 2)
	s := chainscaffold.New(chainscaffold.Config{Degree: 16}, arch)
	hdr, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)

	// gas used below gas limit, built straight on the builder
	b := s.Builder()
	ok, err := gadget.IsLess(b, hdr.GasUsedCell(), hdr.GasLimitCell(), 4)
	require.NoError(t, err)
	require.NoError(t, s.MarkPublic(ok))

	compiled, err := s.Compile()
	require.NoError(t, err)
	proof, err := compiled.Mock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), proof.Public[0].Uint64())
}

func TestStatsShape(t *testing.T) {
	arch := newArchive(t, 4)
	s := chainscaffold.New(chainscaffold.Config{Degree: 16}, arch)
	hdr, err := s.ImportHeader(firstBlock)
	require.NoError(t, err)
	ok, err := s.TimestampAfter(hdr, baseTime)
	require.NoError(t, err)
	require.NoError(t, s.MarkPublic(ok))

	compiled, err := s.Compile()
	require.NoError(t, err)
	stats := compiled.Stats()
	require.Equal(t, 1, stats.NbPublic)
	// the leaf hash chain alone is 69 compressions of 442 cells each
	require.Greater(t, stats.NbCells, 30_000)
	// one byte lookup per range-checked limb byte
	require.Greater(t, stats.NbLookups, 600)
	require.Greater(t, stats.NbRegions, 70)
	require.Greater(t, stats.Levels, 70)
}
