// Package field provides the scalar-field context that circuit instances are
// parameterized by. The context is passed explicitly to every component that
// performs field arithmetic, so independent circuits can be built and proven
// in the same process without shared state.
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Context is an immutable description of the prime field in use. All values
// flowing through the builder, assigner and importer are fr.Element reduced
// modulo this field.
type Context struct {
	curve   ecc.ID
	modulus *big.Int
	bitLen  int
}

// BN254 returns the context for the bn254 scalar field, the field every
// supported proving backend runs on today.
func BN254() *Context {
	return &Context{
		curve:   ecc.BN254,
		modulus: fr.Modulus(),
		bitLen:  fr.Bits,
	}
}

// ForModulus returns the context matching the given field order.
func ForModulus(x *big.Int) (*Context, error) {
	if x.Cmp(fr.Modulus()) == 0 {
		return BN254(), nil
	}
	return nil, fmt.Errorf("unknown field order %v", x)
}

// Curve returns the curve whose scalar field this is.
func (c *Context) Curve() ecc.ID {
	return c.curve
}

// Modulus returns a copy of the field order.
func (c *Context) Modulus() *big.Int {
	return new(big.Int).Set(c.modulus)
}

// BitLen returns the bit length of the field order.
func (c *Context) BitLen() int {
	return c.bitLen
}

// NbBytes returns the byte length of a canonical serialized element.
func (c *Context) NbBytes() int {
	return fr.Bytes
}

// Zero returns the additive identity.
func (c *Context) Zero() fr.Element {
	var e fr.Element
	return e
}

// One returns the multiplicative identity.
func (c *Context) One() fr.Element {
	var e fr.Element
	e.SetOne()
	return e
}

// FromUint64 returns the element representing v.
func (c *Context) FromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// FromBig returns the element representing v reduced into the field.
func (c *Context) FromBig(v *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(v)
	return e
}

// FromBytes interprets b as a big-endian integer and returns the matching
// element. It rejects slices longer than a canonical element so that callers
// cannot silently feed in values that wrap around the modulus.
func (c *Context) FromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) > fr.Bytes {
		return e, fmt.Errorf("byte string of length %d exceeds element size %d", len(b), fr.Bytes)
	}
	e.SetBigInt(new(big.Int).SetBytes(b))
	return e, nil
}

// ToBig returns the canonical integer representation of e.
func (c *Context) ToBig(e fr.Element) *big.Int {
	r := new(big.Int)
	e.BigInt(r)
	return r
}

// Inverse returns the multiplicative inverse of e, or false when e is zero.
func (c *Context) Inverse(e fr.Element) (fr.Element, bool) {
	if e.IsZero() {
		return e, false
	}
	var r fr.Element
	r.Inverse(&e)
	return r, true
}
