package types

import (
	"math/big"
)

// ToLimbs splits value into count limbs of bitWidth bits, least-significant limb first,
// each rendered as a decimal string. Values that do not fit in bitWidth*count bits are rejected.
func ToLimbs(bitWidth, count uint, value *big.Int) ([]string, error) {
	if bitWidth == 0 || count == 0 {
		return nil, invariantErrorf("limb shape %dx%d", bitWidth, count)
	}
	if value.Sign() < 0 {
		return nil, invariantErrorf("negative value %s", value)
	}
	if uint(value.BitLen()) > bitWidth*count {
		return nil, invariantErrorf("value of %d bits exceeds %dx%d limbs", value.BitLen(), count, bitWidth)
	}

	mod := new(big.Int).Lsh(big.NewInt(1), bitWidth)
	rest := new(big.Int).Set(value)
	limb := new(big.Int)
	out := make([]string, count)
	for i := range out {
		rest.QuoRem(rest, mod, limb)
		out[i] = limb.String()
	}
	return out, nil
}

// FromLimbs is the inverse of ToLimbs: sum(limb[i] * 2^(bitWidth*i)).
func FromLimbs(bitWidth uint, limbs []string) (*big.Int, error) {
	sum := new(big.Int)
	for i := len(limbs) - 1; i >= 0; i-- {
		limb, ok := new(big.Int).SetString(limbs[i], 10)
		if !ok {
			return nil, decodeErrorf("limb %d is not a decimal integer: %q", i, limbs[i])
		}
		sum.Lsh(sum, bitWidth)
		sum.Add(sum, limb)
	}
	return sum, nil
}
