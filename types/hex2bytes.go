package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// HexToBytes decodes a hex string with an optional 0x prefix.
// Odd-length input and non-hex characters are rejected.
func HexToBytes(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	bz, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return bz, nil
}

// HexToBits expands every byte into 8 bits, least-significant bit first.
func HexToBits(hexStr string) ([]uint8, error) {
	bz, err := HexToBytes(hexStr)
	if err != nil {
		return nil, err
	}
	return BytesToBits(bz), nil
}

// BytesToBits expands every byte into 8 bits, least-significant bit first.
func BytesToBits(bz []byte) []uint8 {
	bits := make([]uint8, len(bz)*8)
	for i, b := range bz {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (b >> j) & 1
		}
	}
	return bits
}

// HexToBigIntArray decodes hex into one integer per byte.
func HexToBigIntArray(hexStr string) ([]*big.Int, error) {
	bz, err := HexToBytes(hexStr)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, len(bz))
	for i, b := range bz {
		out[i] = new(big.Int).SetUint64(uint64(b))
	}
	return out, nil
}

// HexBytes is a byte slice carried as 0x-prefixed hex in JSON.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	bz, err := HexToBytes(string(text))
	if err != nil {
		return err
	}
	*b = bz
	return nil
}
