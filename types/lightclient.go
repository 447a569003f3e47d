package types

import (
	"github.com/protolambda/zrnt/eth2/beacon/altair"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// SyncCommitteeSize is the number of validators in a mainnet sync committee.
const SyncCommitteeSize = 512

// DomainSyncCommittee is the domain type sync committee members sign under.
var DomainSyncCommittee = zrntcommon.BLSDomainType{0x07, 0x00, 0x00, 0x00}

// StepUpdate proves that the committee signing at AttestedBlock.Slot+1 attests to
// AttestedBlock, whose state finalizes FinalizedBlock, whose body commits to ExecutionStateRoot.
type StepUpdate struct {
	AttestedBlock         *BeaconBlock
	CurrentSyncCommittee  zrntcommon.SyncCommittee
	FinalizedBlock        *BeaconBlock
	FinalityBranch        [][32]byte
	SyncAggregate         altair.SyncAggregate
	GenesisValidatorsRoot zrntcommon.Root
	GenesisTime           zrntcommon.Timestamp
	ForkVersion           zrntcommon.Version
	ExecutionStateRoot    [32]byte
	ExecutionStateBranch  [][32]byte
}

// Verify checks the finality branch against the attested state root and the
// execution branch against the finalized body root.
func (u *StepUpdate) Verify() error {
	finalizedRoot := u.FinalizedBlock.Root()
	if err := VerifyMerkleBranch(finalizedRoot[:], FinalizedRootGindex, u.FinalityBranch, u.AttestedBlock.StateRoot[:]); err != nil {
		return err
	}
	bodyRoot := u.FinalizedBlock.BodyRoot()
	return VerifyMerkleBranch(u.ExecutionStateRoot[:], ExecutionStateRootGindex, u.ExecutionStateBranch, bodyRoot[:])
}

// Domain is the signing domain of the update's sync aggregate.
func (u *StepUpdate) Domain() ([32]byte, error) {
	return ComputeDomain(u.ForkVersion[:], u.GenesisValidatorsRoot[:])
}

// RotateUpdate proves the identity of the next sync committee through its
// inclusion in the state of FinalizedBlock.
type RotateUpdate struct {
	FinalizedBlock          *BeaconBlock
	CurrentSyncCommittee    zrntcommon.SyncCommittee
	NextSyncCommittee       zrntcommon.SyncCommittee
	NextSyncCommitteeBranch [][32]byte
	SyncAggregate           altair.SyncAggregate
	GenesisValidatorsRoot   zrntcommon.Root
	GenesisTime             zrntcommon.Timestamp
	ForkVersion             zrntcommon.Version
}

// NextSyncCommitteeRoot is the hash tree root of the next committee.
func (u *RotateUpdate) NextSyncCommitteeRoot() zrntcommon.Root {
	return HashSyncCommittee(u.FinalizedBlock.spec, &u.NextSyncCommittee)
}

// Verify checks the next committee branch against the finalized state root.
func (u *RotateUpdate) Verify() error {
	root := u.NextSyncCommitteeRoot()
	return VerifyMerkleBranch(root[:], NextSyncCommitteeGindex, u.NextSyncCommitteeBranch, u.FinalizedBlock.StateRoot[:])
}

// ParseSyncCommitteeBits expands the aggregate bitvector into one flag per
// member. The committee size is the bitvector length in bits.
func ParseSyncCommitteeBits(bitsBytes []byte) []bool {
	bits := make([]bool, len(bitsBytes)*8)
	for i := range bits {
		bits[i] = bitsBytes[i/8]&(1<<(i%8)) != 0
	}
	return bits
}

// ComputeDomain computes the sync committee signing domain:
// domain_type || hash_tree_root(ForkData(fork_version, genesis_validators_root))[:28]
func ComputeDomain(forkVersion []byte, genesisValidatorsRoot []byte) ([32]byte, error) {
	var domain [32]byte
	if len(forkVersion) != 4 {
		return domain, decodeErrorf("forkVersion must be 4 bytes, got %d", len(forkVersion))
	}

	// fork_version is padded to a full chunk
	var forkVersionChunk [32]byte
	copy(forkVersionChunk[:4], forkVersion)
	forkDataRoot, err := HashPair(forkVersionChunk[:], genesisValidatorsRoot)
	if err != nil {
		return domain, err
	}

	copy(domain[:4], DomainSyncCommittee[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain, nil
}

// HashBeaconBlockHeader is the block root of header.
func HashBeaconBlockHeader(header *zrntcommon.BeaconBlockHeader) zrntcommon.Root {
	return header.HashTreeRoot(tree.GetHashFn())
}

// HashSyncCommittee is the hash tree root of a sync committee.
func HashSyncCommittee(spec *zrntcommon.Spec, sc *zrntcommon.SyncCommittee) zrntcommon.Root {
	return sc.HashTreeRoot(spec, tree.GetHashFn())
}
