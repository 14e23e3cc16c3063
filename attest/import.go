package attest

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/ir"
)

// Importer binds attested facts to circuits. All facts imported through one
// importer prove inclusion under the same commitment root.
type Importer struct {
	commitment fr.Element
}

func NewImporter(commitment fr.Element) *Importer {
	return &Importer{commitment: commitment}
}

// Commitment returns the trusted root facts are verified against.
func (im *Importer) Commitment() fr.Element { return im.commitment }

// Verify checks a fact natively without touching any circuit: the raw bytes
// must decode to a header that re-encodes to exactly the same bytes, hash to
// the claimed block hash, keep every field within its schema width, and fold
// up to the commitment root.
func (im *Importer) Verify(fact *Fact) error {
	_, _, err := im.verify(fact)
	return err
}

func (im *Importer) verify(fact *Fact) ([NbFields][]byte, int, error) {
	var fieldsB [NbFields][]byte
	var h types.Header
	if err := rlp.DecodeBytes(fact.Raw, &h); err != nil {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "malformed header encoding", Err: err}
	}
	enc, err := rlp.EncodeToBytes(&h)
	if err != nil {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "header does not re-encode", Err: err}
	}
	if !bytes.Equal(enc, fact.Raw) {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "non-canonical header encoding"}
	}
	if got := crypto.Keccak256Hash(fact.Raw); got != fact.Hash {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: fmt.Sprintf("block hash mismatch, computed %s", got)}
	}
	if h.Number == nil || !h.Number.IsUint64() || h.Number.Uint64() != fact.Number {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "block number mismatch"}
	}
	fieldsB, nPresent, err := extract(&h)
	if err != nil {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "field exceeds schema width", Err: err}
	}
	leaf := HashElements(leafElements(fieldsB, nPresent)...)
	if root := PathRoot(leaf, fact.Index, fact.Siblings); !root.Equal(&im.commitment) {
		return fieldsB, 0, &ImportError{Number: fact.Number, Reason: "inclusion proof does not match commitment"}
	}
	return fieldsB, nPresent, nil
}

// leafElements flattens extracted fields into the committed leaf preimage:
// for each field its limbs then its byte length, and last the present-field
// count.
func leafElements(f [NbFields][]byte, nPresent int) []fr.Element {
	out := make([]fr.Element, 0, NbLeafElements)
	for i := FieldIndex(0); i < NbFields; i++ {
		out = append(out, limbValues(f[i], i)...)
		var l fr.Element
		l.SetUint64(uint64(len(f[i])))
		out = append(out, l)
	}
	var np fr.Element
	np.SetUint64(uint64(nPresent))
	return append(out, np)
}

// Header is an imported header: one cell per field limb plus a byte-length
// cell per field, all bound to the commitment by the inclusion proof emitted
// at import time.
type Header struct {
	Number   uint64
	NPresent int

	limbs   [NbFields][]ir.CellID
	lens    [NbFields]ir.CellID
	present ir.CellID
}

// ImportHeader verifies a fact and binds it into the circuit. The header
// limbs enter as witness cells, each range-constrained to its schema
// capacity; their leaf hash is folded up the inclusion path and pinned to
// the commitment, so the witness cannot carry anything but the attested
// data. Verification failures leave the builder untouched.
func (im *Importer) ImportHeader(b *builder.Builder, fact *Fact) (*Header, error) {
	fieldsB, nPresent, err := im.verify(fact)
	if err != nil {
		return nil, err
	}

	fld := b.Field()
	hdr := &Header{Number: fact.Number, NPresent: nPresent}
	for f := FieldIndex(0); f < NbFields; f++ {
		vals := limbValues(fieldsB[f], f)
		cells := make([]ir.CellID, len(vals))
		for j := range vals {
			if cells[j], err = b.Input(vals[j]); err != nil {
				return nil, err
			}
		}
		hdr.limbs[f] = cells
		if hdr.lens[f], err = b.Input(fld.FromUint64(uint64(len(fieldsB[f])))); err != nil {
			return nil, err
		}
	}
	if hdr.present, err = b.Input(fld.FromUint64(uint64(nPresent))); err != nil {
		return nil, err
	}

	for f := FieldIndex(0); f < NbFields; f++ {
		for j, c := range hdr.limbs[f] {
			if err := gadget.RangeCheck(b, c, limbCapacity(f, j)); err != nil {
				return nil, err
			}
		}
	}

	pre := make([]ir.CellID, 0, NbLeafElements)
	for f := FieldIndex(0); f < NbFields; f++ {
		pre = append(pre, hdr.limbs[f]...)
		pre = append(pre, hdr.lens[f])
	}
	pre = append(pre, hdr.present)
	leaf, err := gadget.MiMCSum(b, pre)
	if err != nil {
		return nil, err
	}

	bits := make([]ir.CellID, len(fact.Siblings))
	for i := range bits {
		if bits[i], err = b.Input(fld.FromUint64(fact.Index >> uint(i) & 1)); err != nil {
			return nil, err
		}
		if err := gadget.AssertBoolean(b, bits[i]); err != nil {
			return nil, err
		}
	}
	sibs := make([]ir.CellID, len(fact.Siblings))
	for i := range sibs {
		if sibs[i], err = b.Input(fact.Siblings[i]); err != nil {
			return nil, err
		}
	}
	root, err := gadget.MerklePath(b, leaf, bits, sibs)
	if err != nil {
		return nil, err
	}
	if err := gadget.AssertConstant(b, root, im.commitment); err != nil {
		return nil, err
	}
	return hdr, nil
}

// limbCapacity is the byte capacity of limb j: the most significant limb
// holds the remainder, the rest are full.
func limbCapacity(f FieldIndex, j int) int {
	if j == 0 {
		return fieldWidths[f] - (f.NbLimbs()-1)*LimbBytes
	}
	return LimbBytes
}

// Limbs returns the limb cells of a field, most significant first.
func (h *Header) Limbs(f FieldIndex) []ir.CellID { return h.limbs[f] }

// LenCell returns the byte-length cell of a field.
func (h *Header) LenCell(f FieldIndex) ir.CellID { return h.lens[f] }

// Single-limb fields expose their value cell directly; the limb holds the
// integer itself.

func (h *Header) NumberCell() ir.CellID     { return h.limbs[FieldNumber][0] }
func (h *Header) TimestampCell() ir.CellID  { return h.limbs[FieldTime][0] }
func (h *Header) GasLimitCell() ir.CellID   { return h.limbs[FieldGasLimit][0] }
func (h *Header) GasUsedCell() ir.CellID    { return h.limbs[FieldGasUsed][0] }
func (h *Header) BaseFeeCell() ir.CellID    { return h.limbs[FieldBaseFee][0] }
func (h *Header) DifficultyCell() ir.CellID { return h.limbs[FieldDifficulty][0] }

// Reassemble re-serializes the header from assigned cell values. The result
// must equal the raw bytes the header was imported from; anything else means
// the witness does not carry the attested data.
func (h *Header) Reassemble(value func(ir.CellID) fr.Element) ([]byte, error) {
	var f [NbFields][]byte
	for i := FieldIndex(0); i < NbFields; i++ {
		limbs := make([]fr.Element, len(h.limbs[i]))
		for j, c := range h.limbs[i] {
			limbs[j] = value(c)
		}
		n := value(h.lens[i])
		if !n.IsUint64() {
			return nil, fmt.Errorf("field %s has non-integer length", i)
		}
		b, err := limbBytes(limbs, int(n.Uint64()), i)
		if err != nil {
			return nil, err
		}
		f[i] = b
	}
	np := value(h.present)
	if !np.IsUint64() || np.Uint64() > uint64(NbFields) {
		return nil, fmt.Errorf("present-field count out of range")
	}
	return rlp.EncodeToBytes(assemble(f, int(np.Uint64())))
}
