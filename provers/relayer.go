package relayer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zk-lightclient/circom"
	"github.com/kysee/zk-lightclient/types"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/rs/zerolog"
)

const outputFile = "output.json"

// Function builds the witness of one circuit from request input bytes and
// returns the bytes the proof commits to.
type Function interface {
	Name() string
	Build(ctx context.Context, input []byte) (*circom.Input, []byte, error)
}

// StepFunction proves the execution state root finalized by the attested block.
type StepFunction struct {
	Client *ConsensusClient
}

func (f *StepFunction) Name() string { return "step" }

func (f *StepFunction) Build(ctx context.Context, input []byte) (*circom.Input, []byte, error) {
	id, err := blockIDFromInput(input)
	if err != nil {
		return nil, nil, err
	}
	update, err := f.Client.GetStepUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s := circom.NewSerializer()
	if err := s.WriteStepWitness(update); err != nil {
		return nil, nil, err
	}
	return s.Flush(), update.ExecutionStateRoot[:], nil
}

// RotateFunction proves the next sync committee of the finalized block.
type RotateFunction struct {
	Client *ConsensusClient
}

func (f *RotateFunction) Name() string { return "rotate" }

func (f *RotateFunction) Build(ctx context.Context, input []byte) (*circom.Input, []byte, error) {
	id, err := blockIDFromInput(input)
	if err != nil {
		return nil, nil, err
	}
	update, err := f.Client.GetRotateUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s := circom.NewSerializer()
	if err := s.WriteRotateWitness(update); err != nil {
		return nil, nil, err
	}
	root := update.NextSyncCommitteeRoot()
	return s.Flush(), root[:], nil
}

// blockIDFromInput reads a 32-byte block root or an 8-byte big-endian slot.
func blockIDFromInput(input []byte) (types.BeaconID, error) {
	switch len(input) {
	case 32:
		var root zrntcommon.Root
		copy(root[:], input)
		return types.RootID(root), nil
	case 8:
		return types.SlotID(binary.BigEndian.Uint64(input)), nil
	default:
		return types.BeaconID{}, fmt.Errorf("%w: input of %d bytes is neither a block root nor a slot", types.ErrDecode, len(input))
	}
}

// Request is the prove request file.
type Request struct {
	Data struct {
		Input hexutil.Bytes `json:"input"`
	} `json:"data"`
}

// Relayer runs the prove pipeline of one function:
// request -> witness.json -> proof -> output.json.
type Relayer struct {
	fn     Function
	prover Prover
	logger zerolog.Logger
}

func NewRelayer(fn Function, prover Prover, logger zerolog.Logger) *Relayer {
	return &Relayer{fn: fn, prover: prover, logger: logger}
}

// Prove reads the request at requestPath and writes the result to workDir/output.json.
func (r *Relayer) Prove(ctx context.Context, requestPath, workDir string) (*Result, error) {
	blob, err := os.ReadFile(requestPath)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	var req Request
	if err := json.Unmarshal(blob, &req); err != nil {
		return nil, fmt.Errorf("%w: request: %v", types.ErrDecode, err)
	}
	return r.ProveInput(ctx, req.Data.Input, workDir)
}

// ProveInput runs the pipeline for raw input bytes.
func (r *Relayer) ProveInput(ctx context.Context, input []byte, workDir string) (*Result, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}

	r.logger.Info().Str("function", r.fn.Name()).Hex("input", input).Msg("building witness")
	witness, output, err := r.fn.Build(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.fn.Name(), err)
	}
	if err := writeJSON(filepath.Join(workDir, witnessFile), witness); err != nil {
		return nil, err
	}

	raw, err := r.prover.Prove(ctx, workDir, witness)
	if err != nil {
		return nil, fmt.Errorf("%s: prove: %w", r.fn.Name(), err)
	}
	proof, err := EncodeGroth16Proof(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: encode proof: %w", r.fn.Name(), err)
	}

	result := NewResult(proof, output)
	result.Data.InputHash = (*hexutil.Big)(types.IOHash(input))
	result.Data.OutputHash = (*hexutil.Big)(types.IOHash(output))
	if err := writeJSON(filepath.Join(workDir, outputFile), result); err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("function", r.fn.Name()).
		Hex("output", output).
		Str("output_hash", result.Data.OutputHash.String()).
		Str("path", filepath.Join(workDir, outputFile)).
		Msg("proof written")
	return result, nil
}
