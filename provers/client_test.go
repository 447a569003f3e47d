package relayer

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"testing"

	types2 "github.com/kysee/zk-lightclient/provers/types"
	"github.com/kysee/zk-lightclient/test"
	"github.com/kysee/zk-lightclient/types"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"
	"github.com/stretchr/testify/require"
)

const attestedSlot = types.CapellaForkSlot + 4096

func newFixture(t *testing.T) *test.Fixture {
	f, err := test.NewFixture(configs.Mainnet, attestedSlot)
	require.NoError(t, err)
	return f
}

func newTestClient(t *testing.T, f *test.Fixture) *ConsensusClient {
	srv := httptest.NewServer(f.Chain.Handler())
	t.Cleanup(srv.Close)
	return NewConsensusClient(NewAPIFetcher(srv.URL), types.SlotsPerEpoch, types.SlotsPerPeriod)
}

func TestGetStepUpdate(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	for _, id := range []types.BeaconID{types.SlotID(f.AttestedSlot), types.RootID(f.AttestedRoot)} {
		u, err := client.GetStepUpdate(ctx, id)
		require.NoError(t, err, id.String())

		require.Equal(t, f.AttestedSlot, uint64(u.AttestedBlock.Slot))
		require.Equal(t, f.AttestedRoot, u.AttestedBlock.Root())
		require.Equal(t, f.FinalizedRoot, u.FinalizedBlock.Root())
		require.Equal(t, [32]byte(f.ExecutionStateRoot), u.ExecutionStateRoot)
		require.Equal(t, f.Signature, u.SyncAggregate.SyncCommitteeSignature)
		require.Equal(t, test.GenesisRoot, u.GenesisValidatorsRoot)
		require.Equal(t, test.CapellaForkVersion, u.ForkVersion)
		require.Equal(t,
			f.Committee.HashTreeRoot(configs.Mainnet, tree.GetHashFn()),
			u.CurrentSyncCommittee.HashTreeRoot(configs.Mainnet, tree.GetHashFn()))

		finalizedRoot := u.FinalizedBlock.Root()
		attestedStateRoot := u.AttestedBlock.StateRoot
		require.Len(t, u.FinalityBranch, 6)
		require.True(t, types.IsValidMerkleBranch(finalizedRoot[:], big.NewInt(types.FinalizedRootGindex), u.FinalityBranch, attestedStateRoot[:]))
		require.Len(t, u.ExecutionStateBranch, 8)
		require.NoError(t, u.Verify())
	}
}

func TestGetStepUpdate_TamperedBranch(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)

	u, err := client.GetStepUpdate(context.Background(), types.SlotID(f.AttestedSlot))
	require.NoError(t, err)

	u.FinalityBranch[3][0] ^= 0xff
	require.ErrorIs(t, u.Verify(), types.ErrInvariant)
}

func TestGetStepUpdate_MissingSignedBlock(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)

	// nothing was signed on top of the signed block
	_, err := client.GetStepUpdate(context.Background(), types.SlotID(f.SignedSlot))
	require.ErrorIs(t, err, types.ErrTransport)

	var httpErr *types.HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, 404, httpErr.Status)
	require.Contains(t, err.Error(), "getStepUpdate")
}

func TestGetRotateUpdate(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)

	u, err := client.GetRotateUpdate(context.Background(), types.RootID(f.FinalizedRoot))
	require.NoError(t, err)
	require.Equal(t, f.FinalizedSlot, uint64(u.FinalizedBlock.Slot))
	require.Equal(t, types.HashSyncCommittee(configs.Mainnet, &f.NextCommittee), u.NextSyncCommitteeRoot())
	require.Len(t, u.NextSyncCommitteeBranch, 5)

	root := u.NextSyncCommitteeRoot()
	require.NoError(t, types.VerifyMerkleBranch(root[:], types.NextSyncCommitteeGindex, u.NextSyncCommitteeBranch, f.FinalizedStateRoot[:]))
	require.NoError(t, u.Verify())
	require.Equal(t, f.Bits, []byte(u.SyncAggregate.SyncCommitteeBits))
}

func TestResolveSchema(t *testing.T) {
	client := NewConsensusClient(nil, types.SlotsPerEpoch, types.SlotsPerPeriod)
	ctx := context.Background()

	schema, err := client.ResolveSchema(ctx, types.SlotID(194047*32))
	require.NoError(t, err)
	require.Equal(t, types.SchemaBellatrix, schema)

	schema, err = client.ResolveSchema(ctx, types.SlotID(194048*32))
	require.NoError(t, err)
	require.Equal(t, types.SchemaCapella, schema)

	require.Equal(t, uint64(3), client.Period(3*8192+5))
}

func TestGetBlock_SchemaMismatch(t *testing.T) {
	f := newFixture(t)
	// the test node serves every block as capella
	f.Chain.AddBlock(test.NewBlock(configs.Mainnet, types.CapellaForkSlot-1))
	client := newTestClient(t, f)

	_, err := client.GetBlock(context.Background(), types.SlotID(types.CapellaForkSlot-1))
	require.ErrorIs(t, err, types.ErrSchemaMismatch)
	require.ErrorIs(t, err, types.ErrDecode)
}

func TestGenesisAndSyncStatus(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	genesis, err := client.GetGenesis(ctx)
	require.NoError(t, err)
	require.Equal(t, test.GenesisRoot, genesis.GenesisValidatorsRoot)
	require.Equal(t, test.GenesisTime, genesis.GenesisTime)

	status, err := client.GetSyncStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, f.SignedSlot, uint64(status.HeadSlot))
	require.False(t, status.IsSyncing)
}

func TestFileFetcher(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, f.Chain.WriteDir(dir))

	fromFiles := NewConsensusClient(NewFileFetcher(dir), types.SlotsPerEpoch, types.SlotsPerPeriod)
	fromNode := newTestClient(t, f)
	ctx := context.Background()

	want, err := fromNode.GetStepUpdate(ctx, types.SlotID(f.AttestedSlot))
	require.NoError(t, err)
	got, err := fromFiles.GetStepUpdate(ctx, types.SlotID(f.AttestedSlot))
	require.NoError(t, err)
	require.Equal(t, want.FinalizedBlock.Root(), got.FinalizedBlock.Root())
	require.Equal(t, want.FinalityBranch, got.FinalityBranch)
	require.Equal(t, want.ExecutionStateBranch, got.ExecutionStateBranch)

	_, err = fromFiles.GetBlock(ctx, types.SlotID(f.AttestedSlot+100))
	require.ErrorIs(t, err, types.ErrTransport)

	genesis, err := fromFiles.GetGenesis(ctx)
	require.NoError(t, err)
	require.Equal(t, test.GenesisRoot, genesis.GenesisValidatorsRoot)
}

func TestNewFetcher(t *testing.T) {
	config := types2.NewConfig()
	config.DataSource = "file"
	config.RPCEndpoint = t.TempDir()
	fetcher, err := NewFetcher(config)
	require.NoError(t, err)
	require.IsType(t, &FileFetcher{}, fetcher)

	config.DataSource = "rpc"
	fetcher, err = NewFetcher(config)
	require.NoError(t, err)
	require.IsType(t, &APIFetcher{}, fetcher)

	config.DataSource = "ipfs"
	_, err = NewFetcher(config)
	require.Error(t, err)
}
