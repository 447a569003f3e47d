package circuit_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/std/math/uints"
	gnark_test "github.com/consensys/gnark/test"
	"github.com/kysee/zk-lightclient/circom"
	circuit "github.com/kysee/zk-lightclient/circuits"
	relayer "github.com/kysee/zk-lightclient/provers"
	"github.com/kysee/zk-lightclient/test"
	"github.com/kysee/zk-lightclient/types"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/stretchr/testify/require"
)

func stepUpdate(t *testing.T) (*test.Fixture, *types.StepUpdate) {
	spec := configs.Mainnet
	f, err := test.NewFixture(spec, types.CapellaForkSlot+4096)
	require.NoError(t, err)

	srv := httptest.NewServer(f.Chain.Handler())
	t.Cleanup(srv.Close)

	client := relayer.NewConsensusClient(relayer.NewAPIFetcher(srv.URL), types.SlotsPerEpoch, types.SlotsPerPeriod)
	update, err := client.GetStepUpdate(context.Background(), types.SlotID(f.AttestedSlot))
	require.NoError(t, err)
	return f, update
}

func TestStepCircuit_IsSolved(t *testing.T) {
	_, update := stepUpdate(t)

	s := circom.NewSerializer()
	require.NoError(t, s.WriteStepWitness(update))
	assignment, err := circuit.AssignStep(s.Flush())
	require.NoError(t, err)

	err = gnark_test.IsSolved(&circuit.StepCircuit{}, assignment, ecc.BN254.ScalarField())
	require.NoError(t, err)
}

func TestStepCircuit_WrongExecutionStateRoot(t *testing.T) {
	_, update := stepUpdate(t)

	s := circom.NewSerializer()
	require.NoError(t, s.WriteStepWitness(update))
	assignment, err := circuit.AssignStep(s.Flush())
	require.NoError(t, err)

	c := assignment.(*circuit.StepCircuit)
	c.ExecutionStateRoot[0] = uints.NewU8(0x00)

	err = gnark_test.IsSolved(&circuit.StepCircuit{}, c, ecc.BN254.ScalarField())
	require.Error(t, err)
}

func TestAssignStep_MissingInput(t *testing.T) {
	_, update := stepUpdate(t)

	s := circom.NewSerializer()
	s.WriteBlock("attested", update.AttestedBlock)
	_, err := circuit.AssignStep(s.Flush())
	require.ErrorIs(t, err, types.ErrDecode)
}
