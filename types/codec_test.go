package types

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexToBytes(t *testing.T) {
	bz, err := HexToBytes("0x00ff")
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0xff}, bz)

	bz, err = HexToBytes("abcd")
	require.NoError(t, err)
	require.Equal(t, []byte{0xab, 0xcd}, bz)

	bz, err = HexToBytes("0x")
	require.NoError(t, err)
	require.Empty(t, bz)

	for _, bad := range []string{"0xzz", "0x0", "abc", "0x0g"} {
		_, err := HexToBytes(bad)
		require.ErrorIs(t, err, ErrDecode, bad)
	}
}

func TestHexToBits(t *testing.T) {
	bits, err := HexToBits("0x0180")
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, bits)

	ints, err := HexToBigIntArray("0x0aff")
	require.NoError(t, err)
	require.Len(t, ints, 2)
	require.Equal(t, int64(10), ints[0].Int64())
	require.Equal(t, int64(255), ints[1].Int64())
}

func TestLittleEndianRoundTrip(t *testing.T) {
	le := ToLittleEndianBytes32(0x0102)
	require.Equal(t, byte(0x02), le[0])
	require.Equal(t, byte(0x01), le[1])
	require.Equal(t, make([]byte, 30), le[2:])

	v, err := BytesToUnsignedLittleEndian(le[:])
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102), v.Uint64())

}

func TestBigEndian(t *testing.T) {
	in := append(make([]byte, 31), 0x05)
	v, err := BytesToUnsignedBigEndian(in)
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int64())

	_, err = BytesToUnsignedBigEndian(make([]byte, 31))
	require.ErrorIs(t, err, ErrDecode)
	_, err = BytesToUnsignedLittleEndian(make([]byte, 33))
	require.ErrorIs(t, err, ErrDecode)
}

func TestBitMask253AndIOHash(t *testing.T) {
	mask := BitMask253()
	require.Equal(t, 253, mask.BitLen())
	require.Zero(t, new(big.Int).Add(mask, big.NewInt(1)).Cmp(new(big.Int).Lsh(big.NewInt(1), 253)))

	// callers may mutate the returned value
	mask.SetInt64(0)
	require.Equal(t, 253, BitMask253().BitLen())

	h := IOHash([]byte("hello"))
	require.LessOrEqual(t, h.BitLen(), 253)
	require.Zero(t, h.Cmp(IOHash([]byte("hello"))))
}

func TestParticipationCount(t *testing.T) {
	require.Equal(t, uint64(0), ParticipationCount(nil))
	require.Equal(t, uint64(9), ParticipationCount([]byte{0xff, 0x01}))
	require.Equal(t, uint64(512), ParticipationCount(bytes.Repeat([]byte{0xff}, 64)))
}

func TestHexBytesJSON(t *testing.T) {
	b := HexBytes{0xde, 0xad}
	out, err := json.Marshal(struct {
		Root HexBytes `json:"root"`
	}{b})
	require.NoError(t, err)
	require.JSONEq(t, `{"root":"0xdead"}`, string(out))

	var back HexBytes
	require.NoError(t, json.Unmarshal([]byte(`"0xdead"`), &back))
	require.Equal(t, b, back)

	require.NoError(t, json.Unmarshal([]byte(`"beef"`), &back))
	require.Equal(t, HexBytes{0xbe, 0xef}, back)

	// base64 and odd length hex are not hex bytes
	require.ErrorIs(t, json.Unmarshal([]byte(`"3q0="`), &back), ErrDecode)
	require.ErrorIs(t, json.Unmarshal([]byte(`"0xdea"`), &back), ErrDecode)
}
