package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zk-lightclient/types"
)

const (
	finalityBranchDepth       = 6
	executionStateBranchDepth = 8
)

// StepCircuit proves that the finalized header is committed to by the
// attested header's state, and that the execution state root is committed
// to by the finalized header's body.
//
// The sync committee signature over the attested header is checked by
// SyncCommitteeCircuit.
type StepCircuit struct {
	Attested  Header
	Finalized Header

	FinalityBranch       [finalityBranchDepth]Bytes32
	ExecutionStateBranch [executionStateBranchDepth]Bytes32

	// Public inputs
	AttestedRoot       Bytes32 `gnark:",public"`
	ExecutionStateRoot Bytes32 `gnark:",public"`
}

func (c *StepCircuit) Define(api frontend.API) error {
	assertBytesEqual(api, headerRoot(api, &c.Attested), c.AttestedRoot)

	finalizedRoot := headerRoot(api, &c.Finalized)
	stateRoot := restoreRoot(api, finalizedRoot, types.FinalizedRootGindex, c.FinalityBranch[:])
	assertBytesEqual(api, stateRoot, c.Attested.StateRoot)

	bodyRoot := restoreRoot(api, c.ExecutionStateRoot, types.ExecutionStateRootGindex, c.ExecutionStateBranch[:])
	assertBytesEqual(api, bodyRoot, c.Finalized.BodyRoot)
	return nil
}
