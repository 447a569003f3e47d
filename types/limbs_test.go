package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToLimbs(t *testing.T) {
	limbs, err := ToLimbs(8, 4, big.NewInt(0x01020304))
	require.NoError(t, err)
	require.Equal(t, []string{"4", "3", "2", "1"}, limbs)

	limbs, err = ToLimbs(55, 7, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, []string{"0", "0", "0", "0", "0", "0", "0"}, limbs)
}

func TestToLimbsRoundTrip(t *testing.T) {
	// the BLS12-381 base field modulus needs 381 bits
	p, ok := new(big.Int).SetString("1a0111ea397fe69a4b1ba7b6434bacd764774b84f38512bf6730d2a0f6b0f6241eabfffeb153ffffb9feffffffffaaab", 16)
	require.True(t, ok)
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 385), big.NewInt(1))

	for _, v := range []*big.Int{big.NewInt(1), p, new(big.Int).Sub(p, big.NewInt(1)), max} {
		limbs, err := ToLimbs(55, 7, v)
		require.NoError(t, err)
		require.Len(t, limbs, 7)
		back, err := FromLimbs(55, limbs)
		require.NoError(t, err)
		require.Zero(t, v.Cmp(back))
	}
}

func TestToLimbsOverflow(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), 385)
	_, err := ToLimbs(55, 7, over)
	require.ErrorIs(t, err, ErrInvariant)

	_, err = ToLimbs(55, 7, big.NewInt(-1))
	require.ErrorIs(t, err, ErrInvariant)

	_, err = ToLimbs(0, 7, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvariant)

	_, err = FromLimbs(55, []string{"1", "x"})
	require.ErrorIs(t, err, ErrDecode)
}
