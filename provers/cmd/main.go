package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	relayer "github.com/kysee/zk-lightclient/provers"
	"github.com/kysee/zk-lightclient/provers/types"
	types2 "github.com/kysee/zk-lightclient/types"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var (
	logLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "log level (trace, debug, info, warn, error)",
		Value: "info",
	}
	rootFlag = &cli.StringFlag{
		Name:    "root",
		Usage:   "working root; gnark artifacts live under <root>/.build",
		EnvVars: []string{"ROOT"},
	}
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "beacon node REST endpoint, or a response directory with --source file",
		EnvVars: []string{"RPC_ENDPOINT"},
	}
	sourceFlag = &cli.StringFlag{
		Name:    "source",
		Usage:   "data source: rpc or file",
		EnvVars: []string{"DATA_SOURCE"},
	}
	timeoutFlag = &cli.DurationFlag{
		Name:    "http.timeout",
		Usage:   "timeout of one node request, 0 for none",
		EnvVars: []string{"HTTP_TIMEOUT"},
	}
	idFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "block id: slot, tag or 0x-prefixed root",
		Required: true,
	}
	functionFlag = &cli.StringFlag{
		Name:  "function",
		Usage: "step or rotate",
		Value: "step",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "output file, stdout when empty",
	}
	proverFlag = &cli.StringFlag{
		Name:    "prover",
		Usage:   "proving backend: external or gnark",
		EnvVars: []string{"PROVER"},
	}
	circuitFlag = &cli.StringFlag{
		Name:    "circuit",
		Usage:   "gnark circuit: StepCircuit or SyncCommitteeCircuit",
		EnvVars: []string{"CIRCUIT"},
	}
	requestFlag = &cli.StringFlag{
		Name:     "request",
		Usage:    "prove request file {\"data\":{\"input\":\"0x...\"}}",
		Required: true,
	}
	workDirFlag = &cli.StringFlag{
		Name:  "workdir",
		Usage: "directory for witness.json, proof.json and output.json",
		Value: ".",
	}
)

func main() {
	app := &cli.App{
		Name:  "lightclient",
		Usage: "beacon chain light client witness builder and prover",
		Flags: []cli.Flag{logLevelFlag, rootFlag, rpcFlag, sourceFlag, timeoutFlag},
		Commands: []*cli.Command{
			{
				Name:   "step",
				Usage:  "assemble and check the step update attested by a block",
				Flags:  []cli.Flag{idFlag, outFlag},
				Action: stepAction,
			},
			{
				Name:   "rotate",
				Usage:  "assemble and check the rotate update of a block",
				Flags:  []cli.Flag{idFlag, outFlag},
				Action: rotateAction,
			},
			{
				Name:   "witness",
				Usage:  "write the circuit witness of a function for a block",
				Flags:  []cli.Flag{functionFlag, idFlag, outFlag},
				Action: witnessAction,
			},
			{
				Name:   "prove",
				Usage:  "run a prove request",
				Flags:  []cli.Flag{functionFlag, requestFlag, workDirFlag, proverFlag, circuitFlag},
				Action: proveAction,
			},
			{
				Name:   "setup",
				Usage:  "compile a gnark circuit and write its keys",
				Flags:  []cli.Flag{circuitFlag},
				Action: setupAction,
			},
			{
				Name:   "export-verifier",
				Usage:  "write the solidity verifier of a gnark circuit",
				Flags:  []cli.Flag{circuitFlag, outFlag},
				Action: exportVerifierAction,
			},
			{
				Name:   "genesis",
				Usage:  "print the genesis parameters",
				Action: genesisAction,
			},
			{
				Name:   "syncing",
				Usage:  "print the node sync status",
				Action: syncingAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(ctx *cli.Context) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(ctx.String(logLevelFlag.Name))
	if err != nil {
		return zerolog.Nop(), err
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// loadConfig reads the environment and lets set flags override it.
func loadConfig(ctx *cli.Context) *types.Config {
	config := types.NewConfig()
	if ctx.IsSet(rootFlag.Name) {
		config.RootDir = ctx.String(rootFlag.Name)
	}
	if ctx.IsSet(rpcFlag.Name) {
		config.RPCEndpoint = ctx.String(rpcFlag.Name)
	}
	if ctx.IsSet(sourceFlag.Name) {
		config.DataSource = ctx.String(sourceFlag.Name)
	}
	if ctx.IsSet(timeoutFlag.Name) {
		config.HTTPTimeout = ctx.Duration(timeoutFlag.Name)
	}
	if ctx.IsSet(proverFlag.Name) {
		config.Prover = ctx.String(proverFlag.Name)
	}
	if ctx.IsSet(circuitFlag.Name) {
		config.Circuit = ctx.String(circuitFlag.Name)
	}
	return config
}

func newClient(ctx *cli.Context) (*relayer.ConsensusClient, *types.Config, zerolog.Logger, error) {
	logger, err := newLogger(ctx)
	if err != nil {
		return nil, nil, logger, err
	}
	config := loadConfig(ctx)
	fetcher, err := relayer.NewFetcher(config)
	if err != nil {
		return nil, nil, logger, err
	}
	client := relayer.NewConsensusClient(fetcher, config.SlotsPerEpoch, config.SlotsPerPeriod, relayer.WithLogger(logger))
	return client, config, logger, nil
}

func newFunction(name string, client *relayer.ConsensusClient) (relayer.Function, error) {
	switch name {
	case "step":
		return &relayer.StepFunction{Client: client}, nil
	case "rotate":
		return &relayer.RotateFunction{Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
}

func writeOutput(ctx *cli.Context, v any) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if out := ctx.String(outFlag.Name); out != "" {
		return os.WriteFile(out, blob, 0644)
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(blob))
	return err
}

type stepSummary struct {
	AttestedSlot       uint64          `json:"attested_slot"`
	AttestedRoot       string          `json:"attested_root"`
	FinalizedSlot      uint64          `json:"finalized_slot"`
	FinalizedRoot      string          `json:"finalized_root"`
	ExecutionStateRoot types2.HexBytes `json:"execution_state_root"`
	Participation      uint64          `json:"participation"`
	ForkVersion        string          `json:"fork_version"`
}

func stepAction(ctx *cli.Context) error {
	client, _, _, err := newClient(ctx)
	if err != nil {
		return err
	}
	id, err := types2.ParseBeaconID(ctx.String(idFlag.Name))
	if err != nil {
		return err
	}
	u, err := client.GetStepUpdate(ctx.Context, id)
	if err != nil {
		return err
	}
	return writeOutput(ctx, &stepSummary{
		AttestedSlot:       uint64(u.AttestedBlock.Slot),
		AttestedRoot:       u.AttestedBlock.Root().String(),
		FinalizedSlot:      uint64(u.FinalizedBlock.Slot),
		FinalizedRoot:      u.FinalizedBlock.Root().String(),
		ExecutionStateRoot: u.ExecutionStateRoot[:],
		Participation:      types2.ParticipationCount(u.SyncAggregate.SyncCommitteeBits),
		ForkVersion:        u.ForkVersion.String(),
	})
}

type rotateSummary struct {
	Slot                  uint64 `json:"slot"`
	Period                uint64 `json:"period"`
	BlockRoot             string `json:"block_root"`
	NextSyncCommitteeRoot string `json:"next_sync_committee_root"`
}

func rotateAction(ctx *cli.Context) error {
	client, _, _, err := newClient(ctx)
	if err != nil {
		return err
	}
	id, err := types2.ParseBeaconID(ctx.String(idFlag.Name))
	if err != nil {
		return err
	}
	u, err := client.GetRotateUpdate(ctx.Context, id)
	if err != nil {
		return err
	}
	slot := uint64(u.FinalizedBlock.Slot)
	return writeOutput(ctx, &rotateSummary{
		Slot:                  slot,
		Period:                client.Period(slot),
		BlockRoot:             u.FinalizedBlock.Root().String(),
		NextSyncCommitteeRoot: u.NextSyncCommitteeRoot().String(),
	})
}

func witnessAction(ctx *cli.Context) error {
	client, _, _, err := newClient(ctx)
	if err != nil {
		return err
	}
	fn, err := newFunction(ctx.String(functionFlag.Name), client)
	if err != nil {
		return err
	}
	id, err := types2.ParseBeaconID(ctx.String(idFlag.Name))
	if err != nil {
		return err
	}
	input, err := inputForID(ctx, client, id)
	if err != nil {
		return err
	}
	witness, _, err := fn.Build(ctx.Context, input)
	if err != nil {
		return err
	}
	return writeOutput(ctx, witness)
}

// inputForID renders id as function input: the block root, resolved through
// the node for tags.
func inputForID(ctx *cli.Context, client *relayer.ConsensusClient, id types2.BeaconID) ([]byte, error) {
	header, err := client.GetHeader(ctx.Context, id)
	if err != nil {
		return nil, err
	}
	root := types2.HashBeaconBlockHeader(header)
	return root[:], nil
}

func proveAction(ctx *cli.Context) error {
	client, config, logger, err := newClient(ctx)
	if err != nil {
		return err
	}
	fn, err := newFunction(ctx.String(functionFlag.Name), client)
	if err != nil {
		return err
	}
	prover, err := relayer.NewProver(config, logger)
	if err != nil {
		return err
	}
	workDir, err := filepath.Abs(ctx.String(workDirFlag.Name))
	if err != nil {
		return err
	}
	_, err = relayer.NewRelayer(fn, prover, logger).Prove(ctx.Context, ctx.String(requestFlag.Name), workDir)
	return err
}

func setupAction(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return err
	}
	config := loadConfig(ctx)
	return relayer.NewGnarkProver(config.RootDir, config.Circuit, logger).Setup()
}

func exportVerifierAction(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return err
	}
	config := loadConfig(ctx)
	p := relayer.NewGnarkProver(config.RootDir, config.Circuit, logger)
	if err := p.Load(); err != nil {
		return err
	}

	out := ctx.String(outFlag.Name)
	if out == "" {
		out = filepath.Join(config.RootDir, "contracts", config.Circuit+"Verifier.sol")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.ExportSolidity(f); err != nil {
		return err
	}
	logger.Info().Str("path", out).Msg("solidity verifier written")
	return nil
}

func genesisAction(ctx *cli.Context) error {
	client, _, _, err := newClient(ctx)
	if err != nil {
		return err
	}
	genesis, err := client.GetGenesis(ctx.Context)
	if err != nil {
		return err
	}
	return writeOutput(ctx, genesis)
}

func syncingAction(ctx *cli.Context) error {
	client, _, _, err := newClient(ctx)
	if err != nil {
		return err
	}
	status, err := client.GetSyncStatus(ctx.Context)
	if err != nil {
		return err
	}
	return writeOutput(ctx, status)
}
