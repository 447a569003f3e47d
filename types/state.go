package types

import (
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// BeaconState keeps the state fields the updates need, plus the state tree for proofs.
type BeaconState struct {
	Schema                Schema
	GenesisTime           zrntcommon.Timestamp
	GenesisValidatorsRoot zrntcommon.Root
	Slot                  zrntcommon.Slot
	Fork                  zrntcommon.Fork
	FinalizedCheckpoint   zrntcommon.Checkpoint
	CurrentSyncCommittee  zrntcommon.SyncCommittee
	NextSyncCommittee     zrntcommon.SyncCommittee

	backing tree.Node
}

// Root is the hash tree root of the state.
func (s *BeaconState) Root() zrntcommon.Root {
	return s.backing.MerkleRoot(tree.GetHashFn())
}

// Prove returns the node at gindex of the state tree and its branch.
func (s *BeaconState) Prove(gindex uint64) ([32]byte, [][32]byte, error) {
	return ProveGindex(s.backing, gindex)
}

// ForkVersion is the version the state's slot signs with: the previous
// version until the recorded fork epoch is reached, the current one after.
func (s *BeaconState) ForkVersion(slotsPerEpoch uint64) zrntcommon.Version {
	if uint64(s.Slot)/slotsPerEpoch < uint64(s.Fork.Epoch) {
		return s.Fork.PreviousVersion
	}
	return s.Fork.CurrentVersion
}
