package relayer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zk-lightclient/circom"
	"github.com/kysee/zk-lightclient/types"
	"github.com/stretchr/testify/require"
)

// recordingProver returns a fixed proof and keeps the witness it was given.
type recordingProver struct {
	witness *circom.Input
	err     error
}

func (p *recordingProver) Prove(_ context.Context, _ string, in *circom.Input) (*RawProof, error) {
	p.witness = in
	if p.err != nil {
		return nil, p.err
	}
	return &RawProof{
		PiA: []string{"1", "2", "1"},
		PiB: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
		PiC: []string{"7", "8", "1"},
	}, nil
}

func writeRequest(t *testing.T, dir string, input []byte) string {
	path := filepath.Join(dir, "request.json")
	blob, err := json.Marshal(map[string]any{"data": map[string]any{"input": hexutil.Bytes(input)}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0644))
	return path
}

func TestBlockIDFromInput(t *testing.T) {
	var root [32]byte
	root[0] = 0xaa
	id, err := blockIDFromInput(root[:])
	require.NoError(t, err)
	require.Equal(t, types.IDRoot, id.Kind())

	slot := make([]byte, 8)
	binary.BigEndian.PutUint64(slot, 12345)
	id, err = blockIDFromInput(slot)
	require.NoError(t, err)
	s, ok := id.Slot()
	require.True(t, ok)
	require.Equal(t, uint64(12345), s)

	_, err = blockIDFromInput([]byte{1, 2, 3})
	require.ErrorIs(t, err, types.ErrDecode)
}

func TestRelayer_ProveStep(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)
	dir := t.TempDir()
	prover := &recordingProver{}

	r := NewRelayer(&StepFunction{Client: client}, prover, testLogger(t))
	result, err := r.Prove(context.Background(), writeRequest(t, dir, f.AttestedRoot[:]), dir)
	require.NoError(t, err)
	require.Equal(t, "res_bytes", result.Type)
	require.Equal(t, f.ExecutionStateRoot[:], []byte(result.Data.Output))
	require.Len(t, result.Data.Proof, 256)

	_, ok := prover.witness.Get("executionStateBranch")
	require.True(t, ok)

	blob, err := os.ReadFile(filepath.Join(dir, outputFile))
	require.NoError(t, err)
	var written Result
	require.NoError(t, json.Unmarshal(blob, &written))
	require.Equal(t, result.Data.Proof, written.Data.Proof)

	// verifier public inputs
	require.Zero(t, types.IOHash(f.AttestedRoot[:]).Cmp(written.Data.InputHash.ToInt()))
	require.Zero(t, types.IOHash(f.ExecutionStateRoot[:]).Cmp(written.Data.OutputHash.ToInt()))
	require.LessOrEqual(t, written.Data.OutputHash.ToInt().BitLen(), 253)

	blob, err = os.ReadFile(filepath.Join(dir, witnessFile))
	require.NoError(t, err)
	var witness circom.Input
	require.NoError(t, json.Unmarshal(blob, &witness))
	require.Equal(t, prover.witness.Names(), witness.Names())
}

func TestRelayer_ProveRotate(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)
	dir := t.TempDir()

	input := make([]byte, 8)
	binary.BigEndian.PutUint64(input, f.FinalizedSlot)

	r := NewRelayer(&RotateFunction{Client: client}, &recordingProver{}, testLogger(t))
	result, err := r.ProveInput(context.Background(), input, dir)
	require.NoError(t, err)

	want := types.HashSyncCommittee(f.Chain.Spec, &f.NextCommittee)
	require.Equal(t, want[:], []byte(result.Data.Output))
}

func TestRelayer_Errors(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(t, f)
	dir := t.TempDir()

	r := NewRelayer(&StepFunction{Client: client}, &recordingProver{}, testLogger(t))
	_, err := r.Prove(context.Background(), writeRequest(t, dir, []byte{0x01}), dir)
	require.ErrorIs(t, err, types.ErrDecode)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"data":{"input":"0xz"}}`), 0644))
	_, err = r.Prove(context.Background(), filepath.Join(dir, "bad.json"), dir)
	require.ErrorIs(t, err, types.ErrDecode)

	failing := errors.New("prover crashed")
	r = NewRelayer(&StepFunction{Client: client}, &recordingProver{err: failing}, testLogger(t))
	_, err = r.Prove(context.Background(), writeRequest(t, dir, f.AttestedRoot[:]), dir)
	require.ErrorIs(t, err, failing)
	_, statErr := os.Stat(filepath.Join(dir, outputFile))
	require.True(t, os.IsNotExist(statErr))
}
