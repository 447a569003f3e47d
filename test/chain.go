// Package test builds small, self-consistent capella chains for tests and
// serves them over the beacon node REST routes.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/codec"
	"github.com/protolambda/ztyp/tree"
)

var (
	BellatrixForkVersion = zrntcommon.Version{0x02, 0x00, 0x00, 0x00}
	CapellaForkVersion   = zrntcommon.Version{0x03, 0x00, 0x00, 0x00}
	GenesisTime          = zrntcommon.Timestamp(1606824023)
	GenesisRoot          = zrntcommon.Root{0x4b, 0x36, 0x3d, 0xb9, 0x4e, 0x28, 0x61, 0x20}
)

// Chain is an in-memory set of capella blocks and states indexed the way a
// beacon node resolves block and state ids.
type Chain struct {
	Spec *zrntcommon.Spec

	blocks map[string]*capella.BeaconBlock
	states map[string][]byte
}

func NewChain(spec *zrntcommon.Spec) *Chain {
	return &Chain{
		Spec:   spec,
		blocks: make(map[string]*capella.BeaconBlock),
		states: make(map[string][]byte),
	}
}

// AddBlock indexes block by its slot and its root.
func (c *Chain) AddBlock(block *capella.BeaconBlock) zrntcommon.Root {
	root := block.HashTreeRoot(c.Spec, tree.GetHashFn())
	c.blocks[strconv.FormatUint(uint64(block.Slot), 10)] = block
	c.blocks[root.String()] = block
	return root
}

// AddState indexes the SSZ encoding of state by its slot.
func (c *Chain) AddState(state *capella.BeaconState) (zrntcommon.Root, error) {
	var buf bytes.Buffer
	if err := state.Serialize(c.Spec, codec.NewEncodingWriter(&buf)); err != nil {
		return zrntcommon.Root{}, err
	}
	c.states[strconv.FormatUint(uint64(state.Slot), 10)] = buf.Bytes()
	return state.HashTreeRoot(c.Spec, tree.GetHashFn()), nil
}

func (c *Chain) headerJSON(id string) ([]byte, bool) {
	block, ok := c.blocks[id]
	if !ok {
		return nil, false
	}
	header := zrntcommon.BeaconBlockHeader{
		Slot:          block.Slot,
		ProposerIndex: block.ProposerIndex,
		ParentRoot:    block.ParentRoot,
		StateRoot:     block.StateRoot,
		BodyRoot:      block.Body.HashTreeRoot(c.Spec, tree.GetHashFn()),
	}
	out, err := json.Marshal(map[string]any{
		"execution_optimistic": false,
		"finalized":            true,
		"data": map[string]any{
			"root":      header.HashTreeRoot(tree.GetHashFn()),
			"canonical": true,
			"header": map[string]any{
				"message":   header,
				"signature": zrntcommon.BLSSignature{},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return out, true
}

func (c *Chain) blockJSON(id string) ([]byte, bool) {
	block, ok := c.blocks[id]
	if !ok {
		return nil, false
	}
	out, err := json.Marshal(map[string]any{
		"version":              "capella",
		"execution_optimistic": false,
		"finalized":            true,
		"data": map[string]any{
			"message":   block,
			"signature": zrntcommon.BLSSignature{},
		},
	})
	if err != nil {
		panic(err)
	}
	return out, true
}

func genesisJSON() []byte {
	out, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"genesis_time":            GenesisTime,
			"genesis_validators_root": GenesisRoot,
			"genesis_fork_version":    zrntcommon.Version{},
		},
	})
	return out
}

func (c *Chain) syncingJSON() []byte {
	var head uint64
	for _, b := range c.blocks {
		if uint64(b.Slot) > head {
			head = uint64(b.Slot)
		}
	}
	out, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"head_slot":     strconv.FormatUint(head, 10),
			"sync_distance": "0",
			"is_syncing":    false,
			"is_optimistic": false,
			"el_offline":    false,
		},
	})
	return out
}

// Handler serves the chain on the beacon node routes the client consumes.
func (c *Chain) Handler() http.Handler {
	mux := http.NewServeMux()
	notFound := func(w http.ResponseWriter, id string) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"code":404,"message":"NOT_FOUND: %s"}`, id)
	}
	mux.HandleFunc("GET /eth/v1/beacon/headers/{id}", func(w http.ResponseWriter, r *http.Request) {
		out, ok := c.headerJSON(r.PathValue("id"))
		if !ok {
			notFound(w, r.PathValue("id"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})
	mux.HandleFunc("GET /eth/v2/beacon/blocks/{id}", func(w http.ResponseWriter, r *http.Request) {
		out, ok := c.blockJSON(r.PathValue("id"))
		if !ok {
			notFound(w, r.PathValue("id"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Eth-Consensus-Version", "capella")
		_, _ = w.Write(out)
	})
	mux.HandleFunc("GET /eth/v2/debug/beacon/states/{id}", func(w http.ResponseWriter, r *http.Request) {
		raw, ok := c.states[r.PathValue("id")]
		if !ok || r.Header.Get("Accept") != "application/octet-stream" {
			notFound(w, r.PathValue("id"))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Eth-Consensus-Version", "capella")
		_, _ = w.Write(raw)
	})
	mux.HandleFunc("GET /eth/v1/beacon/genesis", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(genesisJSON())
	})
	mux.HandleFunc("GET /eth/v1/node/syncing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(c.syncingJSON())
	})
	return mux
}

// WriteDir dumps the chain in the directory layout read by the file fetcher.
func (c *Chain) WriteDir(dir string) error {
	for _, sub := range []string{"headers", "blocks", "states"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}
	for id := range c.blocks {
		header, _ := c.headerJSON(id)
		if err := os.WriteFile(filepath.Join(dir, "headers", id+".json"), header, 0644); err != nil {
			return err
		}
		block, _ := c.blockJSON(id)
		if err := os.WriteFile(filepath.Join(dir, "blocks", id+".json"), block, 0644); err != nil {
			return err
		}
	}
	for id, raw := range c.states {
		if err := os.WriteFile(filepath.Join(dir, "states", id+".ssz"), raw, 0644); err != nil {
			return err
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "genesis.json"), genesisJSON(), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "syncing.json"), c.syncingJSON(), 0644)
}

// NewState returns a default capella state at slot with the test fork and genesis data.
func NewState(spec *zrntcommon.Spec, slot uint64) (*capella.BeaconState, error) {
	var buf bytes.Buffer
	if err := capella.BeaconStateType(spec).New().Serialize(codec.NewEncodingWriter(&buf)); err != nil {
		return nil, err
	}
	state := new(capella.BeaconState)
	raw := buf.Bytes()
	if err := state.Deserialize(spec, codec.NewDecodingReader(bytes.NewReader(raw), uint64(len(raw)))); err != nil {
		return nil, err
	}
	state.Slot = zrntcommon.Slot(slot)
	state.GenesisTime = GenesisTime
	state.GenesisValidatorsRoot = GenesisRoot
	state.Fork = zrntcommon.Fork{
		PreviousVersion: BellatrixForkVersion,
		CurrentVersion:  CapellaForkVersion,
		Epoch:           194048,
	}
	return state, nil
}

// NewBlock returns a capella block at slot with a full-length sync aggregate bitvector.
func NewBlock(spec *zrntcommon.Spec, slot uint64) *capella.BeaconBlock {
	block := &capella.BeaconBlock{
		Slot:          zrntcommon.Slot(slot),
		ProposerIndex: zrntcommon.ValidatorIndex(slot % 1000),
	}
	block.ParentRoot[0] = byte(slot)
	block.Body.SyncAggregate.SyncCommitteeBits = make([]byte, spec.SYNC_COMMITTEE_SIZE/8)
	return block
}

// G1 returns the compressed encoding of k*G1.
func G1(k int64) [48]byte {
	_, _, g1, _ := bls12381.Generators()
	var p bls12381.G1Affine
	p.ScalarMultiplication(&g1, big.NewInt(k))
	return p.Bytes()
}

// G2 returns the compressed encoding of k*G2.
func G2(k int64) [96]byte {
	_, _, _, g2 := bls12381.Generators()
	var p bls12381.G2Affine
	p.ScalarMultiplication(&g2, big.NewInt(k))
	return p.Bytes()
}

// Committee returns a sync committee of valid keys (offset+1)*G1, (offset+2)*G1, ...
func Committee(spec *zrntcommon.Spec, offset int64) zrntcommon.SyncCommittee {
	_, _, g1, _ := bls12381.Generators()
	size := int64(spec.SYNC_COMMITTEE_SIZE)
	pubkeys := make([]zrntcommon.BLSPubkey, size)
	for i := int64(0); i < size; i++ {
		pubkeys[i] = G1(offset + i + 1)
	}
	// sum_{i=1..n} (offset+i) = n*offset + n(n+1)/2
	sum := big.NewInt(size*offset + size*(size+1)/2)
	var agg bls12381.G1Affine
	agg.ScalarMultiplication(&g1, sum)
	return zrntcommon.SyncCommittee{
		Pubkeys:         pubkeys,
		AggregatePubkey: agg.Bytes(),
	}
}
