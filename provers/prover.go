package relayer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/solidity"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/kysee/zk-lightclient/circom"
	circuit "github.com/kysee/zk-lightclient/circuits"
	types2 "github.com/kysee/zk-lightclient/provers/types"
	"github.com/kysee/zk-lightclient/types"
	"github.com/rs/zerolog"
)

const (
	witnessFile = "witness.json"
	wtnsFile    = "witness.wtns"
	proofFile   = "proof.json"
	publicFile  = "public.json"
)

// Prover turns a serialized witness into a groth16 proof.
// workDir already holds the witness as witness.json, written by the Relayer.
// Intermediate files are written under workDir.
type Prover interface {
	Prove(ctx context.Context, workDir string, in *circom.Input) (*RawProof, error)
}

// NewProver selects the backend named by config.Prover.
func NewProver(config *types2.Config, logger zerolog.Logger) (Prover, error) {
	switch config.Prover {
	case "external", "":
		return &ExternalProver{
			WitnessGen: config.WitnessGen,
			Rapidsnark: config.Rapidsnark,
			Zkey:       config.Zkey,
			logger:     logger,
		}, nil
	case "gnark":
		p := NewGnarkProver(config.RootDir, config.Circuit, logger)
		if err := p.Load(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown prover %q", config.Prover)
	}
}

// ExternalProver runs the circuit's witness generator and rapidsnark as
// separate processes:
//
//	<WitnessGen> witness.json witness.wtns
//	<Rapidsnark> <Zkey> witness.wtns proof.json public.json
type ExternalProver struct {
	WitnessGen string
	Rapidsnark string
	Zkey       string

	logger zerolog.Logger
}

// Prove reads the witness from workDir/witness.json; in is unused.
func (p *ExternalProver) Prove(ctx context.Context, workDir string, _ *circom.Input) (*RawProof, error) {
	if err := p.run(ctx, workDir, p.WitnessGen, witnessFile, wtnsFile); err != nil {
		return nil, err
	}
	if err := p.run(ctx, workDir, p.Rapidsnark, p.Zkey, wtnsFile, proofFile, publicFile); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(filepath.Join(workDir, proofFile))
	if err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}
	var proof RawProof
	if err := json.Unmarshal(blob, &proof); err != nil {
		return nil, fmt.Errorf("%w: proof.json: %v", types.ErrDecode, err)
	}
	return &proof, nil
}

func (p *ExternalProver) run(ctx context.Context, workDir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	p.logger.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}

// GnarkProver proves the step circuit in process.
// The constraint system and keys live under <rootDir>/.build/<name>.{ccs,pk,vk}.
type GnarkProver struct {
	rootDir string
	name    string
	logger  zerolog.Logger

	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

func NewGnarkProver(rootDir, name string, logger zerolog.Logger) *GnarkProver {
	return &GnarkProver{rootDir: rootDir, name: name, logger: logger}
}

func (p *GnarkProver) path(ext string) string {
	return filepath.Join(p.rootDir, ".build", p.name+"."+ext)
}

func (p *GnarkProver) newCircuit() (frontend.Circuit, error) {
	switch p.name {
	case "StepCircuit":
		return &circuit.StepCircuit{}, nil
	case "SyncCommitteeCircuit":
		return circuit.NewSyncCommitteeCircuit(types.SyncCommitteeSize), nil
	default:
		return nil, fmt.Errorf("unknown circuit %q", p.name)
	}
}

// Setup compiles the circuit, runs the groth16 setup and writes the artifacts.
func (p *GnarkProver) Setup() error {
	c, err := p.newCircuit()
	if err != nil {
		return err
	}
	p.logger.Info().Str("circuit", p.name).Msg("compiling circuit")
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, c)
	if err != nil {
		return fmt.Errorf("compile %s: %w", p.name, err)
	}
	p.logger.Info().
		Int("constraints", ccs.GetNbConstraints()).
		Int("public", ccs.GetNbPublicVariables()).
		Msg("circuit compiled")

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return fmt.Errorf("setup %s: %w", p.name, err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path("ccs")), 0755); err != nil {
		return err
	}
	for ext, obj := range map[string]io.WriterTo{"ccs": ccs, "pk": pk, "vk": vk} {
		if err := writeTo(p.path(ext), obj); err != nil {
			return err
		}
	}
	p.ccs, p.pk, p.vk = ccs, pk, vk
	p.logger.Info().Str("dir", filepath.Dir(p.path("ccs"))).Msg("setup complete")
	return nil
}

// Load reads the artifacts written by Setup.
func (p *GnarkProver) Load() error {
	if p.ccs != nil {
		return nil
	}
	ccs := groth16.NewCS(ecc.BN254)
	pk := groth16.NewProvingKey(ecc.BN254)
	vk := groth16.NewVerifyingKey(ecc.BN254)
	for ext, obj := range map[string]io.ReaderFrom{"ccs": ccs, "pk": pk, "vk": vk} {
		if err := readFrom(p.path(ext), obj); err != nil {
			return err
		}
	}
	p.ccs, p.pk, p.vk = ccs, pk, vk
	p.logger.Info().Str("circuit", p.name).Int("constraints", ccs.GetNbConstraints()).Msg("circuit loaded")
	return nil
}

// ExportSolidity writes the verifier contract of the loaded verifying key.
func (p *GnarkProver) ExportSolidity(w io.Writer) error {
	if p.vk == nil {
		return fmt.Errorf("%s: verifying key not loaded", p.name)
	}
	return p.vk.ExportSolidity(w, solidity.WithHashToFieldFunction(sha256.New()))
}

func (p *GnarkProver) Prove(ctx context.Context, _ string, in *circom.Input) (*RawProof, error) {
	if p.ccs == nil {
		return nil, fmt.Errorf("%s: circuit not loaded", p.name)
	}
	if p.name != "StepCircuit" {
		return nil, fmt.Errorf("%s: no assignment from a serialized witness", p.name)
	}
	assignment, err := circuit.AssignStep(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("new witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, fullWitness,
		backend.WithProverHashToFieldFunction(sha256.New()),
		backend.WithSolverOptions(solver.WithLogger(p.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, err
	}
	if err := groth16.Verify(proof, p.vk, publicWitness, backend.WithVerifierHashToFieldFunction(sha256.New())); err != nil {
		return nil, fmt.Errorf("%w: proof does not verify: %v", types.ErrInvariant, err)
	}
	p.logger.Info().Str("circuit", p.name).Msg("proof generated")
	return RawProofFromGnark(proof)
}

func writeJSON(path string, v any) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0644)
}

func writeTo(path string, obj io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := obj.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readFrom(path string, obj io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := obj.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
