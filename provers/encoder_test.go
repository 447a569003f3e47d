package relayer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/kysee/zk-lightclient/types"
	"github.com/stretchr/testify/require"
)

func word(bz []byte, i int) *big.Int {
	return new(big.Int).SetBytes(bz[i*32 : (i+1)*32])
}

func TestEncodeGroth16Proof(t *testing.T) {
	raw := &RawProof{
		PiA: []string{"1", "2", "1"},
		PiB: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
		PiC: []string{"7", "0x8", "1"},
	}
	encoded, err := EncodeGroth16Proof(raw)
	require.NoError(t, err)
	require.Len(t, encoded, 8*32)

	want := []int64{1, 2, 4, 3, 6, 5, 7, 8}
	for i, w := range want {
		require.Equal(t, big.NewInt(w), word(encoded, i), "word %d", i)
	}
}

func TestEncodeGroth16Proof_Malformed(t *testing.T) {
	valid := func() *RawProof {
		return &RawProof{
			PiA: []string{"1", "2"},
			PiB: [][]string{{"3", "4"}, {"5", "6"}},
			PiC: []string{"7", "8"},
		}
	}
	tests := []struct {
		name   string
		mutate func(p *RawProof)
	}{
		{"short pi_a", func(p *RawProof) { p.PiA = []string{"1"} }},
		{"long pi_c", func(p *RawProof) { p.PiC = []string{"1", "2", "3", "4"} }},
		{"one pi_b pair", func(p *RawProof) { p.PiB = p.PiB[:1] }},
		{"short pi_b pair", func(p *RawProof) { p.PiB[1] = []string{"5"} }},
		{"not a number", func(p *RawProof) { p.PiA[0] = "zz" }},
		{"negative", func(p *RawProof) { p.PiC[1] = "-1" }},
		{"too wide", func(p *RawProof) { p.PiA[1] = new(big.Int).Lsh(big.NewInt(1), 256).String() }},
		{"explicit sign", func(p *RawProof) { p.PiA[0] = "+1" }},
		{"digit separator", func(p *RawProof) { p.PiA[0] = "1_0" }},
		{"binary prefix", func(p *RawProof) { p.PiA[0] = "0b11" }},
		{"empty hex", func(p *RawProof) { p.PiA[0] = "0x" }},
		{"pok without commitments", func(p *RawProof) { p.CommitmentPok = []string{"1", "2"} }},
		{"commitments without pok", func(p *RawProof) { p.Commitments = [][]string{{"1", "2"}} }},
		{"short commitment", func(p *RawProof) {
			p.Commitments = [][]string{{"1"}}
			p.CommitmentPok = []string{"1", "2"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			_, err := EncodeGroth16Proof(p)
			require.ErrorIs(t, err, types.ErrDecode)
		})
	}
}

func TestEncodeGroth16Proof_Radix(t *testing.T) {
	raw := &RawProof{
		PiA: []string{"010", "0x10", "1"},
		PiB: [][]string{{"0X0a", "0009"}, {"5", "6"}},
		PiC: []string{"7", "8"},
	}
	encoded, err := EncodeGroth16Proof(raw)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), word(encoded, 0))
	require.Equal(t, big.NewInt(16), word(encoded, 1))
	require.Equal(t, big.NewInt(9), word(encoded, 2))
	require.Equal(t, big.NewInt(10), word(encoded, 3))
}

func TestEncodeGroth16Proof_Commitments(t *testing.T) {
	raw := &RawProof{
		PiA:           []string{"1", "2"},
		PiB:           [][]string{{"3", "4"}, {"5", "6"}},
		PiC:           []string{"7", "8"},
		Commitments:   [][]string{{"9", "10"}, {"11", "12"}},
		CommitmentPok: []string{"13", "14"},
	}
	encoded, err := EncodeGroth16Proof(raw)
	require.NoError(t, err)
	require.Len(t, encoded, (8+4+2)*32)

	want := []int64{1, 2, 4, 3, 6, 5, 7, 8, 9, 10, 11, 12, 13, 14}
	for i, w := range want {
		require.Equal(t, big.NewInt(w), word(encoded, i), "word %d", i)
	}
}

func TestRawProofJSON(t *testing.T) {
	blob := []byte(`{
		"pi_a": ["11", "12", "1"],
		"pi_b": [["13", "14"], ["15", "16"], ["1", "0"]],
		"pi_c": ["17", "18", "1"],
		"protocol": "groth16",
		"curve": "bn128"
	}`)
	var raw RawProof
	require.NoError(t, json.Unmarshal(blob, &raw))
	encoded, err := EncodeGroth16Proof(&raw)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(14), word(encoded, 2))
	require.Equal(t, big.NewInt(13), word(encoded, 3))
}

type squareCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
}

func (c *squareCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(c.X, c.X), c.Y)
	return nil
}

func TestRawProofFromGnark(t *testing.T) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &squareCircuit{})
	require.NoError(t, err)
	pk, _, err := groth16.Setup(ccs)
	require.NoError(t, err)

	w, err := frontend.NewWitness(&squareCircuit{X: 3, Y: 9}, ecc.BN254.ScalarField())
	require.NoError(t, err)
	proof, err := groth16.Prove(ccs, pk, w, backend.WithProverHashToFieldFunction(sha256.New()))
	require.NoError(t, err)

	raw, err := RawProofFromGnark(proof)
	require.NoError(t, err)
	require.Len(t, raw.PiB, 3)
	encoded, err := EncodeGroth16Proof(raw)
	require.NoError(t, err)

	solidity, ok := proof.(interface{ MarshalSolidity() []byte })
	require.True(t, ok)
	require.Equal(t, solidity.MarshalSolidity()[:8*32], encoded)
}

// committedCircuit commits to its witness, which adds a Pedersen
// commitment and its proof of knowledge to every groth16 proof.
type committedCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
}

func (c *committedCircuit) Define(api frontend.API) error {
	committer, ok := api.Compiler().(frontend.Committer)
	if !ok {
		return fmt.Errorf("compiler does not commit")
	}
	cm, err := committer.Commit(c.X)
	if err != nil {
		return err
	}
	api.AssertIsDifferent(cm, 0)
	api.AssertIsEqual(api.Mul(c.X, c.X), c.Y)
	return nil
}

// decodeProof rebuilds a gnark proof from the words of an encoded proof.
func decodeProof(t *testing.T, encoded []byte, commitments int) *groth16_bn254.Proof {
	require.Len(t, encoded, (8+2*commitments+2)*32)
	el := func(i int) fp.Element {
		var e fp.Element
		e.SetBytes(encoded[i*32 : (i+1)*32])
		return e
	}
	p := new(groth16_bn254.Proof)
	p.Ar.X, p.Ar.Y = el(0), el(1)
	p.Bs.X.A1, p.Bs.X.A0 = el(2), el(3)
	p.Bs.Y.A1, p.Bs.Y.A0 = el(4), el(5)
	p.Krs.X, p.Krs.Y = el(6), el(7)
	p.Commitments = make([]bn254.G1Affine, commitments)
	for i := range p.Commitments {
		p.Commitments[i].X, p.Commitments[i].Y = el(8+2*i), el(9+2*i)
	}
	p.CommitmentPok.X, p.CommitmentPok.Y = el(8+2*commitments), el(9+2*commitments)
	return p
}

func TestRawProofFromGnark_Commitments(t *testing.T) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &committedCircuit{})
	require.NoError(t, err)
	pk, vk, err := groth16.Setup(ccs)
	require.NoError(t, err)

	w, err := frontend.NewWitness(&committedCircuit{X: 3, Y: 9}, ecc.BN254.ScalarField())
	require.NoError(t, err)
	proof, err := groth16.Prove(ccs, pk, w, backend.WithProverHashToFieldFunction(sha256.New()))
	require.NoError(t, err)
	require.Len(t, proof.(*groth16_bn254.Proof).Commitments, 1)

	raw, err := RawProofFromGnark(proof)
	require.NoError(t, err)
	require.Len(t, raw.Commitments, 1)
	require.Len(t, raw.CommitmentPok, 2)

	encoded, err := EncodeGroth16Proof(raw)
	require.NoError(t, err)
	require.Len(t, encoded, 12*32)

	// same words as the gnark solidity layout, minus its commitment count
	solidity := proof.(interface{ MarshalSolidity() []byte }).MarshalSolidity()
	require.Equal(t, solidity[:8*32], encoded[:8*32])
	require.Equal(t, solidity[8*32+4:], encoded[8*32:])

	public, err := w.Public()
	require.NoError(t, err)
	decoded := decodeProof(t, encoded, 1)
	require.NoError(t, groth16.Verify(decoded, vk, public, backend.WithVerifierHashToFieldFunction(sha256.New())))

	// a proof stripped of its commitment no longer verifies
	stripped := *decoded
	stripped.Commitments = nil
	stripped.CommitmentPok = bn254.G1Affine{}
	require.Error(t, groth16.Verify(&stripped, vk, public, backend.WithVerifierHashToFieldFunction(sha256.New())))
}

func TestNewResult(t *testing.T) {
	blob, err := json.Marshal(NewResult([]byte{0x01, 0x02}, []byte{0xff}))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"res_bytes","data":{"proof":"0x0102","output":"0xff"}}`, string(blob))
}
