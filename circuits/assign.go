package circuit

import (
	"encoding/binary"
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bls12381"
	"github.com/kysee/zk-lightclient/circom"
	"github.com/kysee/zk-lightclient/types"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// AssignStep builds a StepCircuit assignment from a serialized step witness.
func AssignStep(in *circom.Input) (frontend.Circuit, error) {
	attested, err := readHeader(in, "attested")
	if err != nil {
		return nil, err
	}
	finalized, err := readHeader(in, "finalized")
	if err != nil {
		return nil, err
	}
	finalityBranch, err := readBranch(in, "finalityBranch", finalityBranchDepth)
	if err != nil {
		return nil, err
	}
	executionBranch, err := readBranch(in, "executionStateBranch", executionStateBranchDepth)
	if err != nil {
		return nil, err
	}
	executionStateRoot, err := readBytes32(in, "executionStateRoot")
	if err != nil {
		return nil, err
	}

	c := &StepCircuit{
		Attested:           assignHeader(attested),
		Finalized:          assignHeader(finalized),
		AttestedRoot:       newBytes32(types.HashBeaconBlockHeader(attested)),
		ExecutionStateRoot: newBytes32(executionStateRoot),
	}
	for i := range finalityBranch {
		c.FinalityBranch[i] = newBytes32(finalityBranch[i])
	}
	for i := range executionBranch {
		c.ExecutionStateBranch[i] = newBytes32(executionBranch[i])
	}
	return c, nil
}

func assignHeader(h *zrntcommon.BeaconBlockHeader) Header {
	return Header{
		Slot:          uint64(h.Slot),
		ProposerIndex: uint64(h.ProposerIndex),
		ParentRoot:    newBytes32(h.ParentRoot),
		StateRoot:     newBytes32(h.StateRoot),
		BodyRoot:      newBytes32(h.BodyRoot),
	}
}

func readHeader(in *circom.Input, prefix string) (*zrntcommon.BeaconBlockHeader, error) {
	var fields [5][32]byte
	for i, name := range []string{"Slot", "ProposerIndex", "ParentRoot", "StateRoot", "BodyRoot"} {
		v, err := readBytes32(in, prefix+name)
		if err != nil {
			return nil, err
		}
		fields[i] = v
	}
	return &zrntcommon.BeaconBlockHeader{
		Slot:          zrntcommon.Slot(binary.LittleEndian.Uint64(fields[0][:8])),
		ProposerIndex: zrntcommon.ValidatorIndex(binary.LittleEndian.Uint64(fields[1][:8])),
		ParentRoot:    fields[2],
		StateRoot:     fields[3],
		BodyRoot:      fields[4],
	}, nil
}

func readBranch(in *circom.Input, name string, depth int) ([][32]byte, error) {
	e, ok := in.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: missing input %s", types.ErrDecode, name)
	}
	if e.Len() != depth {
		return nil, fmt.Errorf("%w: %s has %d nodes, expected %d", types.ErrDecode, name, e.Len(), depth)
	}
	out := make([][32]byte, depth)
	for i := range out {
		v, err := elementBytes32(fmt.Sprintf("%s[%d]", name, i), e.At(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readBytes32(in *circom.Input, name string) ([32]byte, error) {
	e, ok := in.Get(name)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: missing input %s", types.ErrDecode, name)
	}
	return elementBytes32(name, e)
}

func elementBytes32(name string, e circom.Element) ([32]byte, error) {
	var out [32]byte
	if !e.IsArray() || e.Len() != 32 {
		return out, fmt.Errorf("%w: %s is not a 32-byte array", types.ErrDecode, name)
	}
	for i := range out {
		v := e.At(i).Int()
		if v == nil || !v.IsUint64() || v.Uint64() > 0xff {
			return out, fmt.Errorf("%w: %s[%d] is not a byte", types.ErrDecode, name, i)
		}
		out[i] = byte(v.Uint64())
	}
	return out, nil
}

// AssignSyncCommittee builds a SyncCommitteeCircuit assignment for the
// signature of a step update.
func AssignSyncCommittee(u *types.StepUpdate) (*SyncCommitteeCircuit, error) {
	domain, err := u.Domain()
	if err != nil {
		return nil, err
	}
	return NewSyncCommitteeAssignment(
		u.AttestedBlock.Header(),
		u.CurrentSyncCommittee.Pubkeys,
		types.ParseSyncCommitteeBits(u.SyncAggregate.SyncCommitteeBits),
		u.SyncAggregate.SyncCommitteeSignature,
		domain,
	)
}

// NewSyncCommitteeAssignment assigns a committee of len(pubkeys) members.
func NewSyncCommitteeAssignment(
	attested *zrntcommon.BeaconBlockHeader,
	pubkeys []zrntcommon.BLSPubkey,
	bits []bool,
	signature zrntcommon.BLSSignature,
	domain [32]byte,
) (*SyncCommitteeCircuit, error) {
	if len(bits) != len(pubkeys) {
		return nil, fmt.Errorf("%w: %d bits for %d pubkeys", types.ErrInvariant, len(bits), len(pubkeys))
	}

	c := NewSyncCommitteeCircuit(len(pubkeys))
	c.Attested = assignHeader(attested)
	c.AttestedRoot = newBytes32(types.HashBeaconBlockHeader(attested))
	c.Domain = newBytes32(domain)

	participation := 0
	for i := range pubkeys {
		var pk bls12381.G1Affine
		if _, err := pk.SetBytes(pubkeys[i][:]); err != nil {
			return nil, fmt.Errorf("%w: pubkey %d: %v", types.ErrDecode, i, err)
		}
		c.PubKeys[i] = sw_bls12381.NewG1Affine(pk)
		if bits[i] {
			c.Bits[i] = 1
			participation++
		} else {
			c.Bits[i] = 0
		}
	}
	c.Participation = participation

	var sig bls12381.G2Affine
	if _, err := sig.SetBytes(signature[:]); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", types.ErrDecode, err)
	}
	c.Signature = sw_bls12381.NewG2Affine(sig)
	return c, nil
}
