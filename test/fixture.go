package test

import (
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// Fixture is a chain that can serve both a step update attested at
// AttestedSlot and a rotate update for the block at FinalizedSlot.
type Fixture struct {
	Chain *Chain

	FinalizedSlot uint64
	AttestedSlot  uint64
	SignedSlot    uint64

	FinalizedRoot      zrntcommon.Root
	FinalizedStateRoot zrntcommon.Root
	AttestedRoot       zrntcommon.Root
	AttestedStateRoot  zrntcommon.Root
	ExecutionStateRoot zrntcommon.Root

	Committee     zrntcommon.SyncCommittee
	NextCommittee zrntcommon.SyncCommittee
	Bits          []byte
	Signature     zrntcommon.BLSSignature
}

// NewFixture builds the finalized, attested and signed blocks and states of a
// capella chain, with the attested slot at or above the capella fork.
func NewFixture(spec *zrntcommon.Spec, attestedSlot uint64) (*Fixture, error) {
	f := &Fixture{
		Chain:         NewChain(spec),
		FinalizedSlot: attestedSlot - 2*uint64(spec.SLOTS_PER_EPOCH),
		AttestedSlot:  attestedSlot,
		SignedSlot:    attestedSlot + 1,
		Committee:     Committee(spec, 0),
		NextCommittee: Committee(spec, 1000),
		Signature:     G2(7),
	}
	f.ExecutionStateRoot[0], f.ExecutionStateRoot[31] = 0xee, 0x01

	f.Bits = make([]byte, spec.SYNC_COMMITTEE_SIZE/8)
	for i := range f.Bits {
		f.Bits[i] = 0xff
	}
	f.Bits[len(f.Bits)-1] = 0x0f

	finalizedState, err := NewState(spec, f.FinalizedSlot)
	if err != nil {
		return nil, err
	}
	finalizedState.CurrentSyncCommittee = f.Committee
	finalizedState.NextSyncCommittee = f.NextCommittee
	if f.FinalizedStateRoot, err = f.Chain.AddState(finalizedState); err != nil {
		return nil, err
	}

	finalized := NewBlock(spec, f.FinalizedSlot)
	finalized.StateRoot = f.FinalizedStateRoot
	copy(finalized.Body.ExecutionPayload.StateRoot[:], f.ExecutionStateRoot[:])
	copy(finalized.Body.SyncAggregate.SyncCommitteeBits, f.Bits)
	finalized.Body.SyncAggregate.SyncCommitteeSignature = f.Signature
	f.FinalizedRoot = f.Chain.AddBlock(finalized)

	attestedState, err := NewState(spec, f.AttestedSlot)
	if err != nil {
		return nil, err
	}
	attestedState.FinalizedCheckpoint = zrntcommon.Checkpoint{
		Epoch: zrntcommon.Epoch(f.FinalizedSlot / uint64(spec.SLOTS_PER_EPOCH)),
		Root:  f.FinalizedRoot,
	}
	attestedState.CurrentSyncCommittee = f.Committee
	if f.AttestedStateRoot, err = f.Chain.AddState(attestedState); err != nil {
		return nil, err
	}

	attested := NewBlock(spec, f.AttestedSlot)
	attested.StateRoot = f.AttestedStateRoot
	f.AttestedRoot = f.Chain.AddBlock(attested)

	signedState, err := NewState(spec, f.SignedSlot)
	if err != nil {
		return nil, err
	}
	signedState.CurrentSyncCommittee = f.Committee
	if _, err = f.Chain.AddState(signedState); err != nil {
		return nil, err
	}

	signed := NewBlock(spec, f.SignedSlot)
	signed.ParentRoot = f.AttestedRoot
	copy(signed.Body.SyncAggregate.SyncCommitteeBits, f.Bits)
	signed.Body.SyncAggregate.SyncCommitteeSignature = f.Signature
	f.Chain.AddBlock(signed)

	return f, nil
}
