package types

import (
	"bytes"
	"math/big"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// HashPair combines two 32-byte nodes as hash_tree_root(SigningData(left, right)).
func HashPair(left, right []byte) ([32]byte, error) {
	if len(left) != 32 {
		return [32]byte{}, decodeErrorf("expected first input to be of length 32, got %d", len(left))
	}
	if len(right) != 32 {
		return [32]byte{}, decodeErrorf("expected second input to be of length 32, got %d", len(right))
	}
	var objectRoot zrntcommon.Root
	var domain zrntcommon.BLSDomain
	copy(objectRoot[:], left)
	copy(domain[:], right)
	return zrntcommon.ComputeSigningRoot(objectRoot, domain), nil
}

// RestoreMerkleRoot walks a branch from leaf to root. Bit i of index selects
// whether the accumulator is the right (1) or left (0) child at level i.
func RestoreMerkleRoot(leaf []byte, index *big.Int, branch [][32]byte) ([32]byte, error) {
	if len(leaf) != 32 {
		return [32]byte{}, decodeErrorf("leaf must be 32 bytes, got %d", len(leaf))
	}
	var value [32]byte
	copy(value[:], leaf)

	var err error
	for i := range branch {
		if index.Bit(i) == 1 {
			value, err = HashPair(branch[i][:], value[:])
		} else {
			value, err = HashPair(value[:], branch[i][:])
		}
		if err != nil {
			return [32]byte{}, err
		}
	}
	return value, nil
}

// IsValidMerkleBranch reports whether the branch restores exactly root.
func IsValidMerkleBranch(leaf []byte, index *big.Int, branch [][32]byte, root []byte) bool {
	restored, err := RestoreMerkleRoot(leaf, index, branch)
	if err != nil {
		return false
	}
	return bytes.Equal(restored[:], root)
}

// VerifyMerkleBranch is IsValidMerkleBranch reporting failures as ErrInvariant.
func VerifyMerkleBranch(leaf []byte, gindex uint64, branch [][32]byte, root []byte) error {
	if !IsValidMerkleBranch(leaf, new(big.Int).SetUint64(gindex), branch, root) {
		return invariantErrorf("merkle branch for gindex %d does not restore root 0x%x", gindex, root)
	}
	return nil
}

// GindexDepth is the number of branch nodes needed to prove gindex.
func GindexDepth(gindex uint64) int {
	depth := 0
	for g := gindex; g > 1; g >>= 1 {
		depth++
	}
	return depth
}

// ProveGindex collects the leaf at gindex and its sibling branch, leaf level first.
func ProveGindex(root tree.Node, gindex uint64) (leaf [32]byte, branch [][32]byte, err error) {
	if gindex == 0 {
		return leaf, nil, invariantErrorf("gindex 0 is not a tree position")
	}
	hFn := tree.GetHashFn()

	node, err := root.Getter(tree.Gindex64(gindex))
	if err != nil {
		return leaf, nil, invariantErrorf("no node at gindex %d: %v", gindex, err)
	}
	leaf = node.MerkleRoot(hFn)

	branch = make([][32]byte, 0, GindexDepth(gindex))
	for g := gindex; g > 1; g >>= 1 {
		sibling, err := root.Getter(tree.Gindex64(g ^ 1))
		if err != nil {
			return leaf, nil, invariantErrorf("no sibling at gindex %d: %v", g^1, err)
		}
		branch = append(branch, sibling.MerkleRoot(hFn))
	}
	return leaf, branch, nil
}
