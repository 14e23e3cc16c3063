package field

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestBN254(t *testing.T) {
	fld := BN254()
	require.Equal(t, ecc.BN254, fld.Curve())
	require.Equal(t, 254, fld.BitLen())
	require.Equal(t, 32, fld.NbBytes())
	require.True(t, fld.Modulus().ProbablyPrime(20))

	one := fld.One()
	require.Equal(t, "1", fld.ToBig(one).String())
	require.True(t, fld.Zero().IsZero())
}

func TestForModulus(t *testing.T) {
	fld, err := ForModulus(BN254().Modulus())
	require.NoError(t, err)
	require.Equal(t, ecc.BN254, fld.Curve())

	_, err = ForModulus(big.NewInt(17))
	require.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	fld := BN254()

	e, err := fld.FromBytes([]byte{1, 0})
	require.NoError(t, err)
	require.Equal(t, uint64(256), e.Uint64())

	e, err = fld.FromBytes(nil)
	require.NoError(t, err)
	require.True(t, e.IsZero())

	_, err = fld.FromBytes(make([]byte, 33))
	require.Error(t, err)
}

func TestInverse(t *testing.T) {
	fld := BN254()

	_, ok := fld.Inverse(fld.Zero())
	require.False(t, ok)

	x := fld.FromUint64(42)
	inv, ok := fld.Inverse(x)
	require.True(t, ok)
	var p = inv
	p.Mul(&p, &x)
	require.True(t, p.IsOne())
}

func TestBigRoundTrip(t *testing.T) {
	fld := BN254()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("FromBig(ToBig(x)) == x", prop.ForAll(
		func(a uint64) bool {
			x := fld.FromUint64(a)
			y := fld.FromBig(fld.ToBig(x))
			return x.Equal(&y)
		},
		gen.UInt64(),
	))
	properties.Property("ToBig(FromBig(v)) == v mod q", prop.ForAll(
		func(a uint64) bool {
			v := new(big.Int).Lsh(new(big.Int).SetUint64(a), 200)
			want := new(big.Int).Mod(v, fld.Modulus())
			return fld.ToBig(fld.FromBig(v)).Cmp(want) == 0
		},
		gen.UInt64(),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
