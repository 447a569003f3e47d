package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/sha2"
	"github.com/consensys/gnark/std/math/uints"
)

// Bytes32 is a 32-byte SSZ chunk in circuit.
type Bytes32 = [32]uints.U8

// Header is a beacon block header in circuit.
type Header struct {
	Slot          frontend.Variable // uint64
	ProposerIndex frontend.Variable // uint64
	ParentRoot    Bytes32
	StateRoot     Bytes32
	BodyRoot      Bytes32
}

// hashPair is sha256(left || right), the SSZ parent of two chunks.
func hashPair(api frontend.API, left, right Bytes32) Bytes32 {
	hasher, err := sha2.New(api)
	if err != nil {
		panic(err)
	}
	hasher.Write(left[:])
	hasher.Write(right[:])
	return Bytes32(hasher.Sum())
}

// uint64Chunk encodes a 64-bit value little-endian into a zero-padded chunk.
func uint64Chunk(api frontend.API, value frontend.Variable) Bytes32 {
	var chunk Bytes32
	bits := api.ToBinary(value, 64)
	for i := 0; i < 8; i++ {
		chunk[i] = uints.U8{Val: api.FromBinary(bits[i*8 : (i+1)*8]...)}
	}
	for i := 8; i < 32; i++ {
		chunk[i] = uints.NewU8(0)
	}
	return chunk
}

func zeroChunk() Bytes32 {
	var chunk Bytes32
	for i := range chunk {
		chunk[i] = uints.NewU8(0)
	}
	return chunk
}

// headerRoot is the hash tree root of h: five fields padded to eight leaves.
func headerRoot(api frontend.API, h *Header) Bytes32 {
	zero := zeroChunk()
	h01 := hashPair(api, uint64Chunk(api, h.Slot), uint64Chunk(api, h.ProposerIndex))
	h23 := hashPair(api, h.ParentRoot, h.StateRoot)
	h45 := hashPair(api, h.BodyRoot, zero)
	h67 := hashPair(api, zero, zero)
	return hashPair(api, hashPair(api, h01, h23), hashPair(api, h45, h67))
}

// restoreRoot walks branch up from leaf. The low bits of gindex pick the side
// of the running node at each level, 1 meaning it is the right child.
func restoreRoot(api frontend.API, leaf Bytes32, gindex uint64, branch []Bytes32) Bytes32 {
	current := leaf
	for i := range branch {
		if (gindex>>i)&1 == 1 {
			current = hashPair(api, branch[i], current)
		} else {
			current = hashPair(api, current, branch[i])
		}
	}
	return current
}

func assertBytesEqual(api frontend.API, a, b Bytes32) {
	for i := range a {
		api.AssertIsEqual(a[i].Val, b[i].Val)
	}
}

// newBytes32 assigns a native 32-byte value.
func newBytes32(v [32]byte) Bytes32 {
	return Bytes32(uints.NewU8Array(v[:]))
}
