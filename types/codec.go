package types

import (
	"crypto/sha256"
	"math/big"
)

// ToLittleEndianBytes32 encodes v into 32 bytes, least-significant byte first.
func ToLittleEndianBytes32(v uint64) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

// BytesToUnsignedBigEndian reads exactly 32 bytes with byte 0 as the most significant.
func BytesToUnsignedBigEndian(bz []byte) (*big.Int, error) {
	if len(bz) != 32 {
		return nil, decodeErrorf("expected 32 bytes, got %d", len(bz))
	}
	return new(big.Int).SetBytes(bz), nil
}

// BytesToUnsignedLittleEndian reads exactly 32 bytes with byte 0 as the least significant.
func BytesToUnsignedLittleEndian(bz []byte) (*big.Int, error) {
	if len(bz) != 32 {
		return nil, decodeErrorf("expected 32 bytes, got %d", len(bz))
	}
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = bz[31-i]
	}
	return new(big.Int).SetBytes(be[:]), nil
}

var mask253 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 253), big.NewInt(1))

// BitMask253 returns 2^253 - 1.
func BitMask253() *big.Int {
	return new(big.Int).Set(mask253)
}

// IOHash commits to variable length input or output bytes:
// sha256 read big-endian and truncated to the low 253 bits.
// The verifier contract takes [IOHash(output), IOHash(input)] as public inputs.
func IOHash(data []byte) *big.Int {
	sum := sha256.Sum256(data)
	h := new(big.Int).SetBytes(sum[:])
	return h.And(h, BitMask253())
}

// ParticipationCount counts the set bits of a bitvector.
func ParticipationCount(bits []byte) uint64 {
	var n uint64
	for _, b := range bits {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}
