package circom

import (
	"math/big"

	"github.com/kysee/zk-lightclient/types"
)

// WriteStepWitness writes the inputs of the step circuit.
// On error the serializer is reset, so no partial witness is left behind.
func (s *Serializer) WriteStepWitness(u *types.StepUpdate) error {
	if err := s.writeStepWitness(u); err != nil {
		s.Flush()
		return err
	}
	return nil
}

func (s *Serializer) writeStepWitness(u *types.StepUpdate) error {
	s.WriteBlock("attested", u.AttestedBlock)
	s.WriteBlock("finalized", u.FinalizedBlock)
	s.WriteMerkleBranch("finalityBranch", u.FinalityBranch)
	if err := s.WriteBytes32("executionStateRoot", u.ExecutionStateRoot[:]); err != nil {
		return err
	}
	s.WriteMerkleBranch("executionStateBranch", u.ExecutionStateBranch)

	if err := s.WriteSyncAggregate("syncCommitteeBits", "signature", &u.SyncAggregate); err != nil {
		return err
	}
	if err := s.WriteSyncCommittee("pubkeys", &u.CurrentSyncCommittee); err != nil {
		return err
	}

	if err := s.WriteBytes32("genesisValidatorsRoot", u.GenesisValidatorsRoot[:]); err != nil {
		return err
	}
	s.WriteUint64AsBytes32("genesisTime", uint64(u.GenesisTime))
	s.WriteBytes("forkVersion", u.ForkVersion[:])

	participation := types.ParticipationCount(u.SyncAggregate.SyncCommitteeBits)
	s.WriteBigInt("participation", new(big.Int).SetUint64(participation))

	domain, err := u.Domain()
	if err != nil {
		return err
	}
	return s.WriteBytes32("domain", domain[:])
}

// WriteRotateWitness writes the inputs of the rotate circuit.
// On error the serializer is reset like WriteStepWitness.
func (s *Serializer) WriteRotateWitness(u *types.RotateUpdate) error {
	if err := s.writeRotateWitness(u); err != nil {
		s.Flush()
		return err
	}
	return nil
}

func (s *Serializer) writeRotateWitness(u *types.RotateUpdate) error {
	next := &u.NextSyncCommittee
	s.WriteG1PointsAsBytes("pubkeysBytes", next.Pubkeys)
	if err := s.WriteG1PointAsBytes("aggregatePubkeyBytes", next.AggregatePubkey[:]); err != nil {
		return err
	}
	if err := s.WriteG1PointsXAsLimbs("pubkeysBigIntX", next.Pubkeys); err != nil {
		return err
	}
	if err := s.WriteG1PointsYAsLimbs("pubkeysBigIntY", next.Pubkeys); err != nil {
		return err
	}

	root := u.NextSyncCommitteeRoot()
	if err := s.WriteBytes32("syncCommitteeSSZ", root[:]); err != nil {
		return err
	}
	s.WriteMerkleBranch("nextSyncCommitteeBranch", u.NextSyncCommitteeBranch)
	s.WriteBlock("finalized", u.FinalizedBlock)

	if err := s.WriteSyncAggregate("syncCommitteeBits", "signature", &u.SyncAggregate); err != nil {
		return err
	}
	if err := s.WriteBytes32("genesisValidatorsRoot", u.GenesisValidatorsRoot[:]); err != nil {
		return err
	}
	s.WriteBytes("forkVersion", u.ForkVersion[:])
	return nil
}
