package relayer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zk-lightclient/types"
)

// RawProof is a groth16 proof as rapidsnark and snarkjs write it.
// Points may carry a trailing projective coordinate, which is ignored.
// Commitments and CommitmentPok are only set by circuits that commit
// to private values, which rapidsnark never does.
type RawProof struct {
	PiA           []string   `json:"pi_a"`
	PiB           [][]string `json:"pi_b"`
	PiC           []string   `json:"pi_c"`
	Commitments   [][]string `json:"commitments,omitempty"`
	CommitmentPok []string   `json:"commitment_pok,omitempty"`
	Protocol      string     `json:"protocol,omitempty"`
	Curve         string     `json:"curve,omitempty"`
}

var proofArguments = func() abi.Arguments {
	uint2, err := abi.NewType("uint256[2]", "", nil)
	if err != nil {
		panic(err)
	}
	uint22, err := abi.NewType("uint256[2][2]", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: uint2}, {Type: uint22}, {Type: uint2}}
}()

func commitmentArguments(n int) (abi.Arguments, error) {
	points, err := abi.NewType(fmt.Sprintf("uint256[%d]", 2*n), "", nil)
	if err != nil {
		return nil, err
	}
	pok, err := abi.NewType("uint256[2]", "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{{Type: points}, {Type: pok}}, nil
}

// EncodeGroth16Proof packs a proof as abi.encode(uint256[2], uint256[2][2], uint256[2]).
// Both pi_b pairs are emitted in reverse, the order the verifier contract reads them in.
// A proof with n commitments is followed by abi.encode(uint256[2n], uint256[2]):
// the commitment points, then their proof of knowledge.
func EncodeGroth16Proof(p *RawProof) ([]byte, error) {
	a, err := parsePair("pi_a", p.PiA)
	if err != nil {
		return nil, err
	}
	if len(p.PiB) != 2 && len(p.PiB) != 3 {
		return nil, fmt.Errorf("%w: pi_b must hold 2 or 3 pairs, got %d", types.ErrDecode, len(p.PiB))
	}
	var b [2][2]*big.Int
	for i := 0; i < 2; i++ {
		if len(p.PiB[i]) != 2 {
			return nil, fmt.Errorf("%w: pi_b[%d] must hold 2 values, got %d", types.ErrDecode, i, len(p.PiB[i]))
		}
		pair, err := parsePair(fmt.Sprintf("pi_b[%d]", i), p.PiB[i])
		if err != nil {
			return nil, err
		}
		b[i] = [2]*big.Int{pair[1], pair[0]}
	}
	c, err := parsePair("pi_c", p.PiC)
	if err != nil {
		return nil, err
	}
	out, err := proofArguments.Pack(a, b, c)
	if err != nil {
		return nil, err
	}
	if len(p.Commitments) == 0 {
		if len(p.CommitmentPok) != 0 {
			return nil, fmt.Errorf("%w: commitment_pok without commitments", types.ErrDecode)
		}
		return out, nil
	}
	tail, err := encodeCommitments(p.Commitments, p.CommitmentPok)
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}

func encodeCommitments(commitments [][]string, pok []string) ([]byte, error) {
	points := make([]*big.Int, 0, 2*len(commitments))
	for i, cm := range commitments {
		pair, err := parsePair(fmt.Sprintf("commitments[%d]", i), cm)
		if err != nil {
			return nil, err
		}
		points = append(points, pair[0], pair[1])
	}
	if len(pok) == 0 {
		return nil, fmt.Errorf("%w: commitments without commitment_pok", types.ErrDecode)
	}
	k, err := parsePair("commitment_pok", pok)
	if err != nil {
		return nil, err
	}
	args, err := commitmentArguments(len(commitments))
	if err != nil {
		return nil, err
	}
	return args.Pack(points, k)
}

func parsePair(name string, values []string) ([2]*big.Int, error) {
	var out [2]*big.Int
	if len(values) != 2 && len(values) != 3 {
		return out, fmt.Errorf("%w: %s must hold 2 or 3 values, got %d", types.ErrDecode, name, len(values))
	}
	for i := 0; i < 2; i++ {
		v, ok := parseUint256(values[i])
		if !ok {
			return out, fmt.Errorf("%w: %s[%d] is not a uint256: %q", types.ErrDecode, name, i, values[i])
		}
		out[i] = v
	}
	return out, nil
}

// parseUint256 reads a decimal or 0x-prefixed hex integer.
func parseUint256(s string) (*big.Int, bool) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" || strings.ContainsAny(s, "_+-") {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.BitLen() > 256 {
		return nil, false
	}
	return v, true
}

// RawProofFromGnark converts a BN254 gnark proof into the rapidsnark layout.
func RawProofFromGnark(proof groth16.Proof) (*RawProof, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported proof type %T", types.ErrDecode, proof)
	}
	s := func(v interface{ BigInt(*big.Int) *big.Int }) string {
		return v.BigInt(new(big.Int)).String()
	}
	raw := &RawProof{
		PiA: []string{s(&p.Ar.X), s(&p.Ar.Y), "1"},
		PiB: [][]string{
			{s(&p.Bs.X.A0), s(&p.Bs.X.A1)},
			{s(&p.Bs.Y.A0), s(&p.Bs.Y.A1)},
			{"1", "0"},
		},
		PiC:      []string{s(&p.Krs.X), s(&p.Krs.Y), "1"},
		Protocol: "groth16",
		Curve:    "bn128",
	}
	if len(p.Commitments) > 0 {
		for i := range p.Commitments {
			cm := &p.Commitments[i]
			raw.Commitments = append(raw.Commitments, []string{s(&cm.X), s(&cm.Y)})
		}
		raw.CommitmentPok = []string{s(&p.CommitmentPok.X), s(&p.CommitmentPok.Y)}
	}
	return raw, nil
}

// Result is the record written once a proof is done.
type Result struct {
	Type string     `json:"type"`
	Data ResultData `json:"data"`
}

// ResultData carries the encoded proof and output. InputHash and
// OutputHash are the public inputs the verifier checks the proof against.
type ResultData struct {
	Proof      hexutil.Bytes `json:"proof"`
	Output     hexutil.Bytes `json:"output"`
	InputHash  *hexutil.Big  `json:"input_hash,omitempty"`
	OutputHash *hexutil.Big  `json:"output_hash,omitempty"`
}

func NewResult(proof, output []byte) *Result {
	return &Result{
		Type: "res_bytes",
		Data: ResultData{Proof: proof, Output: output},
	}
}
