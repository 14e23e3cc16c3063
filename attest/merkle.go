package attest

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/core/types"
)

// HashElements hashes field elements with MiMC in Miyaguchi-Preneel mode,
// the same function the in-circuit gadgets compute.
func HashElements(xs ...fr.Element) fr.Element {
	h := mimc.NewMiMC()
	for i := range xs {
		b := xs[i].Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// NodeHash returns the parent hash of two sibling subtree roots.
func NodeHash(left, right fr.Element) fr.Element {
	return HashElements(left, right)
}

// HeaderLeaf returns the committed leaf value of a header: the hash of its
// field limbs, lengths and present-field count.
func HeaderLeaf(h *types.Header) (fr.Element, error) {
	f, n, err := extract(h)
	if err != nil {
		return fr.Element{}, err
	}
	return HashElements(leafElements(f, n)...), nil
}

// PathRoot folds a leaf up a Merkle path. Bit i of index selects the side at
// level i: zero means the running hash is the left child.
func PathRoot(leaf fr.Element, index uint64, siblings []fr.Element) fr.Element {
	cur := leaf
	for i, sib := range siblings {
		if index>>uint(i)&1 == 0 {
			cur = NodeHash(cur, sib)
		} else {
			cur = NodeHash(sib, cur)
		}
	}
	return cur
}
