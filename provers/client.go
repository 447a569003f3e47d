package relayer

import (
	"context"
	"fmt"

	types2 "github.com/kysee/zk-lightclient/provers/types"
	"github.com/kysee/zk-lightclient/types"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ConsensusClient assembles light client updates from a beacon node.
// It keeps no state between calls, so one client may serve concurrent requests.
type ConsensusClient struct {
	fetcher        types2.Fetcher
	spec           *zrntcommon.Spec
	slotsPerEpoch  uint64
	slotsPerPeriod uint64
	logger         zerolog.Logger
}

type ClientOption func(*ConsensusClient)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *ConsensusClient) {
		c.logger = logger
	}
}

// WithSpec sets the chain spec used to decode and hash objects. Defaults to mainnet.
func WithSpec(spec *zrntcommon.Spec) ClientOption {
	return func(c *ConsensusClient) {
		c.spec = spec
	}
}

func NewConsensusClient(fetcher types2.Fetcher, slotsPerEpoch, slotsPerPeriod uint64, opts ...ClientOption) *ConsensusClient {
	c := &ConsensusClient{
		fetcher:        fetcher,
		spec:           configs.Mainnet,
		slotsPerEpoch:  slotsPerEpoch,
		slotsPerPeriod: slotsPerPeriod,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Period is the sync committee period of slot.
func (c *ConsensusClient) Period(slot uint64) uint64 {
	return slot / c.slotsPerPeriod
}

func (c *ConsensusClient) GetHeader(ctx context.Context, id types.BeaconID) (*zrntcommon.BeaconBlockHeader, error) {
	resp, err := c.fetcher.Header(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("getHeader %s: %w", id, err)
	}
	header := resp.Data.Header.Message
	c.logger.Debug().Str("op", "getHeader").Stringer("id", id).Uint64("slot", uint64(header.Slot)).Msg("fetched")
	return &header, nil
}

// ResolveSchema uses slot ids directly and looks up the header slot for the others.
func (c *ConsensusClient) ResolveSchema(ctx context.Context, id types.BeaconID) (types.Schema, error) {
	slot, ok := id.Slot()
	if !ok {
		header, err := c.GetHeader(ctx, id)
		if err != nil {
			return 0, err
		}
		slot = uint64(header.Slot)
	}
	return types.SchemaForSlot(slot), nil
}

func (c *ConsensusClient) GetBlock(ctx context.Context, id types.BeaconID) (*types.BeaconBlock, error) {
	schema, err := c.ResolveSchema(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getBlock %s: %w", id, err)
	}
	resp, err := c.fetcher.Block(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("getBlock %s: %w", id, err)
	}
	if err := checkVersion(schema, resp.Version); err != nil {
		return nil, fmt.Errorf("getBlock %s: %w", id, err)
	}
	block, err := schema.DecodeBlock(c.spec, resp.Data.Message)
	if err != nil {
		return nil, fmt.Errorf("getBlock %s: %w", id, err)
	}
	if got := types.SchemaForSlot(uint64(block.Slot)); got != schema {
		return nil, fmt.Errorf("getBlock %s: %w: block at slot %d decoded as %s", id, types.ErrSchemaMismatch, block.Slot, schema)
	}
	c.logger.Debug().Str("op", "getBlock").Stringer("id", id).Uint64("slot", uint64(block.Slot)).Stringer("schema", schema).Msg("fetched")
	return block, nil
}

func (c *ConsensusClient) GetState(ctx context.Context, id types.BeaconID) (*types.BeaconState, error) {
	schema, err := c.ResolveSchema(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getState %s: %w", id, err)
	}
	resp, err := c.fetcher.State(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("getState %s: %w", id, err)
	}
	if err := checkVersion(schema, resp.Version); err != nil {
		return nil, fmt.Errorf("getState %s: %w", id, err)
	}
	state, err := schema.DecodeState(c.spec, resp.SSZ)
	if err != nil {
		return nil, fmt.Errorf("getState %s: %w", id, err)
	}
	c.logger.Debug().Str("op", "getState").Stringer("id", id).Uint64("slot", uint64(state.Slot)).Stringer("schema", schema).Int("size", len(resp.SSZ)).Msg("fetched")
	return state, nil
}

// GetExecutionStateRootProof proves the execution payload state root within the block body.
func (c *ConsensusClient) GetExecutionStateRootProof(block *types.BeaconBlock) ([32]byte, [][32]byte, error) {
	root, branch, err := block.ProveBody(types.ExecutionStateRootGindex)
	if err != nil {
		return root, nil, fmt.Errorf("getExecutionStateRootProof %d: %w", block.Slot, err)
	}
	return root, branch, nil
}

// GetStepUpdate assembles the step update for the block attestedID names.
// The sync aggregate comes from the block right after it.
func (c *ConsensusClient) GetStepUpdate(ctx context.Context, attestedID types.BeaconID) (*types.StepUpdate, error) {
	update, err := c.getStepUpdate(ctx, attestedID)
	if err != nil {
		return nil, fmt.Errorf("getStepUpdate %s: %w", attestedID, err)
	}
	return update, nil
}

func (c *ConsensusClient) getStepUpdate(ctx context.Context, attestedID types.BeaconID) (*types.StepUpdate, error) {
	attestedBlock, err := c.GetBlock(ctx, attestedID)
	if err != nil {
		return nil, err
	}
	signedSlot := uint64(attestedBlock.Slot) + 1
	signedBlock, err := c.GetBlock(ctx, types.SlotID(signedSlot))
	if err != nil {
		return nil, err
	}

	var attestedState, signedState *types.BeaconState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attestedState, err = c.GetState(gctx, types.SlotID(uint64(attestedBlock.Slot)))
		return err
	})
	g.Go(func() error {
		var err error
		signedState, err = c.GetState(gctx, types.SlotID(signedSlot))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	finalizedBlock, err := c.GetBlock(ctx, types.RootID(attestedState.FinalizedCheckpoint.Root))
	if err != nil {
		return nil, err
	}
	_, finalityBranch, err := attestedState.Prove(types.FinalizedRootGindex)
	if err != nil {
		return nil, err
	}
	executionStateRoot, executionStateBranch, err := c.GetExecutionStateRootProof(finalizedBlock)
	if err != nil {
		return nil, err
	}

	update := &types.StepUpdate{
		AttestedBlock:         attestedBlock,
		CurrentSyncCommittee:  signedState.CurrentSyncCommittee,
		FinalizedBlock:        finalizedBlock,
		FinalityBranch:        finalityBranch,
		SyncAggregate:         *signedBlock.SyncAggregate(),
		GenesisValidatorsRoot: signedState.GenesisValidatorsRoot,
		GenesisTime:           signedState.GenesisTime,
		ForkVersion:           signedState.ForkVersion(c.slotsPerEpoch),
		ExecutionStateRoot:    executionStateRoot,
		ExecutionStateBranch:  executionStateBranch,
	}
	if err := update.Verify(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Uint64("attested", uint64(attestedBlock.Slot)).
		Uint64("finalized", uint64(finalizedBlock.Slot)).
		Uint64("participation", types.ParticipationCount(update.SyncAggregate.SyncCommitteeBits)).
		Hex("executionStateRoot", executionStateRoot[:]).
		Msg("step update assembled")
	return update, nil
}

// GetRotateUpdate assembles the rotate update proving the next sync committee
// recorded in the state of the block id names.
func (c *ConsensusClient) GetRotateUpdate(ctx context.Context, id types.BeaconID) (*types.RotateUpdate, error) {
	update, err := c.getRotateUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getRotateUpdate %s: %w", id, err)
	}
	return update, nil
}

func (c *ConsensusClient) getRotateUpdate(ctx context.Context, id types.BeaconID) (*types.RotateUpdate, error) {
	finalizedBlock, err := c.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	finalizedState, err := c.GetState(ctx, types.SlotID(uint64(finalizedBlock.Slot)))
	if err != nil {
		return nil, err
	}
	_, branch, err := finalizedState.Prove(types.NextSyncCommitteeGindex)
	if err != nil {
		return nil, err
	}

	update := &types.RotateUpdate{
		FinalizedBlock:          finalizedBlock,
		CurrentSyncCommittee:    finalizedState.CurrentSyncCommittee,
		NextSyncCommittee:       finalizedState.NextSyncCommittee,
		NextSyncCommitteeBranch: branch,
		SyncAggregate:           *finalizedBlock.SyncAggregate(),
		GenesisValidatorsRoot:   finalizedState.GenesisValidatorsRoot,
		GenesisTime:             finalizedState.GenesisTime,
		ForkVersion:             finalizedState.ForkVersion(c.slotsPerEpoch),
	}
	if err := update.Verify(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Uint64("slot", uint64(finalizedBlock.Slot)).
		Uint64("period", c.Period(uint64(finalizedBlock.Slot))).
		Msg("rotate update assembled")
	return update, nil
}

func (c *ConsensusClient) GetGenesis(ctx context.Context) (*types2.Genesis, error) {
	genesis, err := c.fetcher.Genesis(ctx)
	if err != nil {
		return nil, fmt.Errorf("getGenesis: %w", err)
	}
	return genesis, nil
}

func (c *ConsensusClient) GetSyncStatus(ctx context.Context) (*types2.SyncStatus, error) {
	status, err := c.fetcher.SyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("getSyncStatus: %w", err)
	}
	return status, nil
}

// checkVersion rejects objects the node announces under a different fork.
func checkVersion(schema types.Schema, version string) error {
	if version == "" || version == schema.String() {
		return nil
	}
	return fmt.Errorf("%w: node served %s, expected %s", types.ErrSchemaMismatch, version, schema)
}

// NewFetcher returns the transport config.DataSource names: "rpc" for the
// REST endpoint or "file" for a directory of saved responses.
func NewFetcher(config *types2.Config) (types2.Fetcher, error) {
	switch config.DataSource {
	case "rpc", "":
		f := NewAPIFetcher(config.RPCEndpoint)
		f.Client.Timeout = config.HTTPTimeout
		return f, nil
	case "file":
		return NewFileFetcher(config.RPCEndpoint), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", config.DataSource)
	}
}
