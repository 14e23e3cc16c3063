// Package provider supplies attested header facts. An archive holds a
// contiguous range of headers, commits to them with a MiMC Merkle tree and
// serves per-block facts carrying inclusion proofs. The rpc client fills an
// archive from an execution-layer endpoint.
package provider

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/verity-zk/chainscaffold/attest"
)

// Source serves attested facts for single blocks.
type Source interface {
	// Commitment returns the root every served fact proves into.
	Commitment() fr.Element

	// FactByNumber returns the fact for one block, or an error when the
	// block is outside the attested range.
	FactByNumber(number uint64) (*attest.Fact, error)
}

// Archive is an in-memory source over a contiguous header range. The
// commitment tree is built once at construction; facts are cheap to serve.
type Archive struct {
	first  uint64
	raws   [][]byte
	hashes []common.Hash

	// levels[0] holds the zero-padded leaves, the last level the root.
	levels [][]fr.Element
}

var _ Source = (*Archive)(nil)

// NewArchive builds the commitment tree over headers with contiguous
// ascending block numbers.
func NewArchive(headers []*types.Header) (*Archive, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("archive needs at least one header")
	}
	if headers[0].Number == nil || !headers[0].Number.IsUint64() {
		return nil, fmt.Errorf("header 0 has no usable block number")
	}
	first := headers[0].Number.Uint64()

	a := &Archive{
		first:  first,
		raws:   make([][]byte, len(headers)),
		hashes: make([]common.Hash, len(headers)),
	}
	leaves := make([]fr.Element, len(headers))
	for i, h := range headers {
		if h.Number == nil || !h.Number.IsUint64() || h.Number.Uint64() != first+uint64(i) {
			return nil, fmt.Errorf("header %d is not block %d", i, first+uint64(i))
		}
		raw, err := rlp.EncodeToBytes(h)
		if err != nil {
			return nil, fmt.Errorf("encoding header %d: %w", h.Number.Uint64(), err)
		}
		a.raws[i] = raw
		a.hashes[i] = crypto.Keccak256Hash(raw)
		if leaves[i], err = attest.HeaderLeaf(h); err != nil {
			return nil, fmt.Errorf("hashing header %d: %w", h.Number.Uint64(), err)
		}
	}

	width := 1
	for width < len(leaves) {
		width <<= 1
	}
	level := make([]fr.Element, width)
	copy(level, leaves)
	a.levels = append(a.levels, level)
	for len(level) > 1 {
		next := make([]fr.Element, len(level)/2)
		for i := range next {
			next[i] = attest.NodeHash(level[2*i], level[2*i+1])
		}
		a.levels = append(a.levels, next)
		level = next
	}
	return a, nil
}

// First returns the lowest attested block number.
func (a *Archive) First() uint64 { return a.first }

// Len returns the number of attested blocks.
func (a *Archive) Len() int { return len(a.raws) }

// Depth returns the height of the commitment tree.
func (a *Archive) Depth() int { return len(a.levels) - 1 }

func (a *Archive) Commitment() fr.Element {
	return a.levels[len(a.levels)-1][0]
}

func (a *Archive) FactByNumber(number uint64) (*attest.Fact, error) {
	if number < a.first || number >= a.first+uint64(len(a.raws)) {
		return nil, fmt.Errorf("block %d outside attested range [%d, %d]", number, a.first, a.first+uint64(len(a.raws))-1)
	}
	i := number - a.first
	siblings := make([]fr.Element, a.Depth())
	idx := i
	for lvl := 0; lvl < a.Depth(); lvl++ {
		siblings[lvl] = a.levels[lvl][idx^1]
		idx >>= 1
	}
	raw := make([]byte, len(a.raws[i]))
	copy(raw, a.raws[i])
	return &attest.Fact{
		Number:   number,
		Hash:     a.hashes[i],
		Raw:      raw,
		Index:    i,
		Siblings: siblings,
	}, nil
}
