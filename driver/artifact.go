package driver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"

	"github.com/verity-zk/chainscaffold/ir"
)

// ArtifactVersion is bumped on any change to the artifact layout.
const ArtifactVersion = 1

const artifactMagic = 0x43534146 // "CSAF"

// Artifact is the stable, backend-neutral encoding of a bundle, handed to
// external prover processes. Field elements travel as 32-byte big-endian
// blobs, gate wiring as column-oriented id arrays; the structured part is
// deterministic CBOR, so equal bundles always encode to equal bytes.
type Artifact struct {
	Curve      string      `cbor:"1,keyasint"`
	Degree     int         `cbor:"2,keyasint"`
	UsableRows int         `cbor:"3,keyasint"`
	NbAdvice   int         `cbor:"4,keyasint"`
	NbFixed    int         `cbor:"5,keyasint"`
	NbLookup   int         `cbor:"6,keyasint"`
	NbInstance int         `cbor:"7,keyasint"`
	NbCells    int         `cbor:"8,keyasint"`
	GateXA     []ir.CellID `cbor:"9,keyasint"`
	GateXB     []ir.CellID `cbor:"10,keyasint"`
	GateXC     []ir.CellID `cbor:"11,keyasint"`

	// Coeffs holds qL, qR, qO, qM, qC per gate.
	Coeffs []byte `cbor:"12,keyasint"`

	Lookups   []ir.Lookup `cbor:"13,keyasint"`
	Regions   []ir.Region `cbor:"14,keyasint"`
	Columns   []int       `cbor:"15,keyasint"`
	Rows      []int       `cbor:"16,keyasint"`
	PublicIDs []ir.CellID `cbor:"17,keyasint"`
	Witness   []byte      `cbor:"18,keyasint"`
	Instance  []byte      `cbor:"19,keyasint"`
}

// NewArtifact flattens a bundle for serialization.
func NewArtifact(b *Bundle) (*Artifact, error) {
	if b == nil || b.Circuit == nil || b.Geometry == nil || b.Witness == nil {
		return nil, errors.New("incomplete bundle")
	}
	c, g := b.Circuit, b.Geometry

	xa := make([]ir.CellID, len(c.Gates))
	xb := make([]ir.CellID, len(c.Gates))
	xc := make([]ir.CellID, len(c.Gates))
	coeffs := make([]fr.Element, 0, 5*len(c.Gates))
	for i := range c.Gates {
		gt := &c.Gates[i]
		xa[i], xb[i], xc[i] = gt.XA, gt.XB, gt.XC
		coeffs = append(coeffs, gt.QL, gt.QR, gt.QO, gt.QM, gt.QC)
	}
	cols := make([]int, len(g.Placements))
	rows := make([]int, len(g.Placements))
	for i, p := range g.Placements {
		cols[i] = p.Column
		rows[i] = p.Row
	}
	return &Artifact{
		Curve:      "bn254",
		Degree:     g.Degree,
		UsableRows: g.UsableRows,
		NbAdvice:   g.NbAdvice,
		NbFixed:    g.NbFixed,
		NbLookup:   g.NbLookup,
		NbInstance: g.NbInstance,
		NbCells:    c.NbCells,
		GateXA:     xa,
		GateXB:     xb,
		GateXC:     xc,
		Coeffs:     packElements(coeffs),
		Lookups:    c.Lookups,
		Regions:    c.Regions,
		Columns:    cols,
		Rows:       rows,
		PublicIDs:  c.Public,
		Witness:    packElements(b.Witness.Values()),
		Instance:   packElements(b.Public),
	}, nil
}

// MarshalBinary writes a fixed header followed by the deterministic CBOR
// body.
func (a *Artifact) MarshalBinary() ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	body, err := em.Marshal(a)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 12+len(body))
	buf = binary.LittleEndian.AppendUint32(buf, artifactMagic)
	buf = binary.LittleEndian.AppendUint32(buf, ArtifactVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(body)))
	return append(buf, body...), nil
}

func (a *Artifact) UnmarshalBinary(data []byte) error {
	if len(data) < 12 {
		return errors.New("artifact too short")
	}
	if binary.LittleEndian.Uint32(data[:4]) != artifactMagic {
		return errors.New("not a circuit artifact")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != ArtifactVersion {
		return fmt.Errorf("artifact version %d, want %d", v, ArtifactVersion)
	}
	n := binary.LittleEndian.Uint32(data[8:12])
	if len(data) != 12+int(n) {
		return errors.New("artifact length mismatch")
	}
	dm, err := cbor.DecOptions{MaxArrayElements: 1 << 28}.DecMode()
	if err != nil {
		return err
	}
	return dm.Unmarshal(data[12:], a)
}

// Gates reassembles the gate list from the column arrays.
func (a *Artifact) Gates() ([]ir.Gate, error) {
	if len(a.GateXB) != len(a.GateXA) || len(a.GateXC) != len(a.GateXA) {
		return nil, errors.New("gate wiring arrays differ in length")
	}
	coeffs, err := unpackElements(a.Coeffs)
	if err != nil {
		return nil, err
	}
	if len(coeffs) != 5*len(a.GateXA) {
		return nil, fmt.Errorf("%d coefficients for %d gates", len(coeffs), len(a.GateXA))
	}
	out := make([]ir.Gate, len(a.GateXA))
	for i := range out {
		out[i] = ir.Gate{
			XA: a.GateXA[i], XB: a.GateXB[i], XC: a.GateXC[i],
			QL: coeffs[5*i], QR: coeffs[5*i+1], QO: coeffs[5*i+2],
			QM: coeffs[5*i+3], QC: coeffs[5*i+4],
		}
	}
	return out, nil
}

// WitnessValues unpacks the witness blob.
func (a *Artifact) WitnessValues() ([]fr.Element, error) {
	return unpackElements(a.Witness)
}

// InstanceValues unpacks the public instance blob.
func (a *Artifact) InstanceValues() ([]fr.Element, error) {
	return unpackElements(a.Instance)
}

func packElements(xs []fr.Element) []byte {
	var buf bytes.Buffer
	buf.Grow(len(xs) * fr.Bytes)
	for i := range xs {
		b := xs[i].Bytes()
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func unpackElements(b []byte) ([]fr.Element, error) {
	if len(b)%fr.Bytes != 0 {
		return nil, fmt.Errorf("element blob of %d bytes is not a multiple of %d", len(b), fr.Bytes)
	}
	out := make([]fr.Element, len(b)/fr.Bytes)
	for i := range out {
		if err := out[i].SetBytesCanonical(b[i*fr.Bytes : (i+1)*fr.Bytes]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
