package attest

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
)

// Fact is one attested header: its raw RLP encoding plus the metadata
// binding it to a commitment root. Facts come from a data provider and are
// untrusted until Verify accepts them.
type Fact struct {
	// Number is the claimed block number.
	Number uint64

	// Hash is the claimed block hash, keccak256 of Raw.
	Hash common.Hash

	// Raw is the canonical RLP encoding of the header.
	Raw []byte

	// Index is the leaf position inside the committed tree.
	Index uint64

	// Siblings are the inclusion proof hashes, bottom-up.
	Siblings []fr.Element
}
