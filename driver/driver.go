// Package driver is the boundary to proving backends. A bundle packs the
// finalized circuit, its column geometry, the assigned witness and the
// public instance; a driver turns bundles into proofs. Backends are black
// boxes: every failure surfaces as *ProofError and carries no circuit
// detail beyond what the backend chose to report.
package driver

import (
	"context"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/verity-zk/chainscaffold/ir"
	"github.com/verity-zk/chainscaffold/layout"
	"github.com/verity-zk/chainscaffold/witness"
)

// Bundle packs everything a proving backend consumes.
type Bundle struct {
	Circuit  *ir.Circuit
	Geometry *layout.Geometry
	Witness  *witness.Table

	// Public is the instance column content, in mark order.
	Public []fr.Element
}

// Proof is an opaque proof together with the instance it verifies against.
type Proof struct {
	Scheme string
	Data   []byte
	Public []fr.Element
}

// Driver produces proofs from bundles.
type Driver interface {
	Prove(ctx context.Context, b *Bundle) (*Proof, error)
}
