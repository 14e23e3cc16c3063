// Package attest imports attested chain data into circuits. A fact carries
// the raw RLP bytes of a block header together with a MiMC inclusion proof
// against a trusted commitment root. Import verifies the fact natively,
// then binds the header fields into circuit cells and re-verifies the
// inclusion in-circuit, so every imported cell is constrained to equal the
// committed data.
package attest

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FieldIndex identifies one header field in RLP order.
type FieldIndex int

const (
	FieldParentHash FieldIndex = iota
	FieldUncleHash
	FieldCoinbase
	FieldStateRoot
	FieldTxRoot
	FieldReceiptRoot
	FieldLogsBloom
	FieldDifficulty
	FieldNumber
	FieldGasLimit
	FieldGasUsed
	FieldTime
	FieldExtra
	FieldMixDigest
	FieldNonce
	FieldBaseFee
	FieldWithdrawalsRoot
	FieldBlobGasUsed
	FieldExcessBlobGas
	FieldParentBeaconRoot
	FieldRequestsHash

	NbFields
)

// nbLegacyFields is the field count of a pre-London header; everything after
// it is optional and only present from its fork onward.
const nbLegacyFields = 15

// LimbBytes is the packing unit: field bytes are split into big-endian limbs
// of at most this many bytes, small enough that limb arithmetic never
// overflows the scalar field.
const LimbBytes = 16

// fieldWidths is the maximum byte width of each field. Hashes, the bloom
// filter and the nonce are fixed-width; integers are bounded by what the
// protocol can produce, and extra data by the consensus cap.
var fieldWidths = [NbFields]int{
	FieldParentHash:       32,
	FieldUncleHash:        32,
	FieldCoinbase:         20,
	FieldStateRoot:        32,
	FieldTxRoot:           32,
	FieldReceiptRoot:      32,
	FieldLogsBloom:        256,
	FieldDifficulty:       7,
	FieldNumber:           4,
	FieldGasLimit:         4,
	FieldGasUsed:          4,
	FieldTime:             4,
	FieldExtra:            32,
	FieldMixDigest:        32,
	FieldNonce:            8,
	FieldBaseFee:          6,
	FieldWithdrawalsRoot:  32,
	FieldBlobGasUsed:      8,
	FieldExcessBlobGas:    8,
	FieldParentBeaconRoot: 32,
	FieldRequestsHash:     32,
}

var fieldNames = [NbFields]string{
	"parentHash", "uncleHash", "coinbase", "stateRoot", "txRoot",
	"receiptRoot", "logsBloom", "difficulty", "number", "gasLimit",
	"gasUsed", "time", "extra", "mixDigest", "nonce", "baseFee",
	"withdrawalsRoot", "blobGasUsed", "excessBlobGas", "parentBeaconRoot",
	"requestsHash",
}

func (f FieldIndex) String() string { return fieldNames[f] }

// Width returns the maximum byte width of the field.
func (f FieldIndex) Width() int { return fieldWidths[f] }

// NbLimbs returns how many limbs the field occupies.
func (f FieldIndex) NbLimbs() int { return (fieldWidths[f] + LimbBytes - 1) / LimbBytes }

// NbLeafElements is the fixed length of a leaf preimage: every field's limbs
// and byte length, plus the present-field count. Absent fields contribute
// zeros, so the leaf shape does not depend on the fork.
var NbLeafElements = func() int {
	n := 1 + int(NbFields)
	for f := FieldIndex(0); f < NbFields; f++ {
		n += f.NbLimbs()
	}
	return n
}()

// presentFields mirrors the RLP encoder: an optional field is written
// whenever it or any later optional is set.
func presentFields(h *types.Header) int {
	switch {
	case h.RequestsHash != nil:
		return 21
	case h.ParentBeaconRoot != nil:
		return 20
	case h.ExcessBlobGas != nil:
		return 19
	case h.BlobGasUsed != nil:
		return 18
	case h.WithdrawalsHash != nil:
		return 17
	case h.BaseFee != nil:
		return 16
	default:
		return nbLegacyFields
	}
}

// extract returns each field's byte string exactly as it appears inside the
// header RLP: fixed-width for hashes and the bloom, minimal big-endian for
// integers. Absent optionals are nil.
func extract(h *types.Header) ([NbFields][]byte, int, error) {
	var f [NbFields][]byte
	f[FieldParentHash] = h.ParentHash.Bytes()
	f[FieldUncleHash] = h.UncleHash.Bytes()
	f[FieldCoinbase] = h.Coinbase.Bytes()
	f[FieldStateRoot] = h.Root.Bytes()
	f[FieldTxRoot] = h.TxHash.Bytes()
	f[FieldReceiptRoot] = h.ReceiptHash.Bytes()
	f[FieldLogsBloom] = h.Bloom.Bytes()
	f[FieldDifficulty] = bigBytes(h.Difficulty)
	f[FieldNumber] = bigBytes(h.Number)
	f[FieldGasLimit] = uintBytes(h.GasLimit)
	f[FieldGasUsed] = uintBytes(h.GasUsed)
	f[FieldTime] = uintBytes(h.Time)
	f[FieldExtra] = h.Extra
	f[FieldMixDigest] = h.MixDigest.Bytes()
	f[FieldNonce] = h.Nonce[:]

	n := presentFields(h)
	if n > 15 {
		f[FieldBaseFee] = bigBytes(h.BaseFee)
	}
	if n > 16 && h.WithdrawalsHash != nil {
		f[FieldWithdrawalsRoot] = h.WithdrawalsHash.Bytes()
	}
	if n > 17 && h.BlobGasUsed != nil {
		f[FieldBlobGasUsed] = uintBytes(*h.BlobGasUsed)
	}
	if n > 18 && h.ExcessBlobGas != nil {
		f[FieldExcessBlobGas] = uintBytes(*h.ExcessBlobGas)
	}
	if n > 19 && h.ParentBeaconRoot != nil {
		f[FieldParentBeaconRoot] = h.ParentBeaconRoot.Bytes()
	}
	if n > 20 && h.RequestsHash != nil {
		f[FieldRequestsHash] = h.RequestsHash.Bytes()
	}

	for i := FieldIndex(0); i < NbFields; i++ {
		if len(f[i]) > fieldWidths[i] {
			return f, 0, fmt.Errorf("field %s is %d bytes, limit %d", i, len(f[i]), fieldWidths[i])
		}
	}
	return f, n, nil
}

// assemble rebuilds a header from extracted field bytes. It inverts extract
// for every header a live chain can produce.
func assemble(f [NbFields][]byte, nPresent int) *types.Header {
	h := &types.Header{
		ParentHash:  common.BytesToHash(f[FieldParentHash]),
		UncleHash:   common.BytesToHash(f[FieldUncleHash]),
		Coinbase:    common.BytesToAddress(f[FieldCoinbase]),
		Root:        common.BytesToHash(f[FieldStateRoot]),
		TxHash:      common.BytesToHash(f[FieldTxRoot]),
		ReceiptHash: common.BytesToHash(f[FieldReceiptRoot]),
		Bloom:       types.BytesToBloom(f[FieldLogsBloom]),
		Difficulty:  new(big.Int).SetBytes(f[FieldDifficulty]),
		Number:      new(big.Int).SetBytes(f[FieldNumber]),
		GasLimit:    bytesUint(f[FieldGasLimit]),
		GasUsed:     bytesUint(f[FieldGasUsed]),
		Time:        bytesUint(f[FieldTime]),
		Extra:       f[FieldExtra],
		MixDigest:   common.BytesToHash(f[FieldMixDigest]),
	}
	copy(h.Nonce[:], f[FieldNonce])
	if nPresent > 15 {
		h.BaseFee = new(big.Int).SetBytes(f[FieldBaseFee])
	}
	if nPresent > 16 {
		v := common.BytesToHash(f[FieldWithdrawalsRoot])
		h.WithdrawalsHash = &v
	}
	if nPresent > 17 {
		v := bytesUint(f[FieldBlobGasUsed])
		h.BlobGasUsed = &v
	}
	if nPresent > 18 {
		v := bytesUint(f[FieldExcessBlobGas])
		h.ExcessBlobGas = &v
	}
	if nPresent > 19 {
		v := common.BytesToHash(f[FieldParentBeaconRoot])
		h.ParentBeaconRoot = &v
	}
	if nPresent > 20 {
		v := common.BytesToHash(f[FieldRequestsHash])
		h.RequestsHash = &v
	}
	return h
}

// limbValues splits field bytes into big-endian limbs, most significant
// first, left-padding to the field's full limb capacity. Integers up to
// LimbBytes wide therefore occupy a single limb whose value is the integer
// itself.
func limbValues(b []byte, f FieldIndex) []fr.Element {
	n := f.NbLimbs()
	padded := make([]byte, n*LimbBytes)
	copy(padded[len(padded)-len(b):], b)
	out := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		out[i].SetBytes(padded[i*LimbBytes : (i+1)*LimbBytes])
	}
	return out
}

// limbBytes inverts limbValues: the limb values are re-serialized to the
// field's capacity and the last length bytes are the field content.
func limbBytes(limbs []fr.Element, length int, f FieldIndex) ([]byte, error) {
	if len(limbs) != f.NbLimbs() {
		return nil, fmt.Errorf("field %s has %d limbs, want %d", f, len(limbs), f.NbLimbs())
	}
	if length < 0 || length > fieldWidths[f] {
		return nil, fmt.Errorf("field %s length %d exceeds width %d", f, length, fieldWidths[f])
	}
	buf := make([]byte, len(limbs)*LimbBytes)
	for i := range limbs {
		v := limbs[i].Bytes()
		for _, b := range v[:len(v)-LimbBytes] {
			if b != 0 {
				return nil, fmt.Errorf("field %s limb %d exceeds %d bytes", f, i, LimbBytes)
			}
		}
		copy(buf[i*LimbBytes:(i+1)*LimbBytes], v[len(v)-LimbBytes:])
	}
	for _, b := range buf[:len(buf)-length] {
		if b != 0 {
			return nil, fmt.Errorf("field %s has non-zero bytes beyond its length %d", f, length)
		}
	}
	return buf[len(buf)-length:], nil
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}

func uintBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	i := 0
	for b[i] == 0 {
		i++
	}
	return b[i:]
}

func bytesUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
