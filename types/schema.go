package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/protolambda/zrnt/eth2/beacon/bellatrix"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/codec"
	"github.com/protolambda/ztyp/tree"
	"github.com/protolambda/ztyp/view"
)

// Schema is the binary layout of blocks and states, selected by the fork a slot falls after.
type Schema uint8

const (
	SchemaBellatrix Schema = iota
	SchemaCapella
)

// SchemaForSlot selects bellatrix below CapellaForkSlot and capella at or above it.
func SchemaForSlot(slot uint64) Schema {
	if slot < CapellaForkSlot {
		return SchemaBellatrix
	}
	return SchemaCapella
}

// ParseSchema maps a beacon API version string to a schema.
func ParseSchema(version string) (Schema, error) {
	switch version {
	case "bellatrix":
		return SchemaBellatrix, nil
	case "capella":
		return SchemaCapella, nil
	default:
		return 0, fmt.Errorf("%w: unsupported fork %q", ErrSchemaMismatch, version)
	}
}

func (s Schema) String() string {
	switch s {
	case SchemaBellatrix:
		return "bellatrix"
	case SchemaCapella:
		return "capella"
	default:
		return fmt.Sprintf("schema(%d)", uint8(s))
	}
}

func (s Schema) blockBodyType(spec *zrntcommon.Spec) *view.ContainerTypeDef {
	if s == SchemaBellatrix {
		return bellatrix.BeaconBlockBodyType(spec)
	}
	return capella.BeaconBlockBodyType(spec)
}

func (s Schema) stateType(spec *zrntcommon.Spec) *view.ContainerTypeDef {
	if s == SchemaBellatrix {
		return bellatrix.BeaconStateType(spec)
	}
	return capella.BeaconStateType(spec)
}

// DecodeBlock decodes the JSON block message of a /eth/v2/beacon/blocks response.
func (s Schema) DecodeBlock(spec *zrntcommon.Spec, message []byte) (*BeaconBlock, error) {
	switch s {
	case SchemaBellatrix:
		obj := new(bellatrix.BeaconBlock)
		if err := json.Unmarshal(message, obj); err != nil {
			return nil, fmt.Errorf("%w: %s block: %v", ErrDecode, s, err)
		}
		return NewBeaconBlock(spec, obj), nil
	case SchemaCapella:
		obj := new(capella.BeaconBlock)
		if err := json.Unmarshal(message, obj); err != nil {
			return nil, fmt.Errorf("%w: %s block: %v", ErrDecode, s, err)
		}
		return NewBeaconBlock(spec, obj), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, s)
	}
}

// stateView is the part of the bellatrix and capella state views DecodeState reads.
type stateView interface {
	GenesisTime() (zrntcommon.Timestamp, error)
	GenesisValidatorsRoot() (zrntcommon.Root, error)
	Slot() (zrntcommon.Slot, error)
	Fork() (zrntcommon.Fork, error)
	FinalizedCheckpoint() (zrntcommon.Checkpoint, error)
	CurrentSyncCommittee() (*zrntcommon.SyncCommitteeView, error)
	NextSyncCommittee() (*zrntcommon.SyncCommitteeView, error)
	Backing() tree.Node
}

func (s Schema) stateView(spec *zrntcommon.Spec, raw []byte) (stateView, error) {
	switch s {
	case SchemaBellatrix:
		return bellatrix.AsBeaconStateView(s.stateType(spec).Deserialize(reader(raw)))
	case SchemaCapella:
		return capella.AsBeaconStateView(s.stateType(spec).Deserialize(reader(raw)))
	default:
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, s)
	}
}

// DecodeState decodes an SSZ encoded beacon state into its tree and reads
// the fields the updates need from that tree.
func (s Schema) DecodeState(spec *zrntcommon.Spec, raw []byte) (*BeaconState, error) {
	if s != SchemaBellatrix && s != SchemaCapella {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, s)
	}
	v, err := s.stateView(spec, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s state: %v", ErrDecode, s, err)
	}
	state, err := readState(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s state: %v", ErrDecode, s, err)
	}
	if got := SchemaForSlot(uint64(state.Slot)); got != s {
		return nil, fmt.Errorf("%w: state at slot %d decoded as %s, expected %s", ErrSchemaMismatch, state.Slot, s, got)
	}
	state.Schema = s
	return state, nil
}

func readState(v stateView) (*BeaconState, error) {
	state := &BeaconState{backing: v.Backing()}
	var err error
	if state.GenesisTime, err = v.GenesisTime(); err != nil {
		return nil, err
	}
	if state.GenesisValidatorsRoot, err = v.GenesisValidatorsRoot(); err != nil {
		return nil, err
	}
	if state.Slot, err = v.Slot(); err != nil {
		return nil, err
	}
	if state.Fork, err = v.Fork(); err != nil {
		return nil, err
	}
	if state.FinalizedCheckpoint, err = v.FinalizedCheckpoint(); err != nil {
		return nil, err
	}
	current, err := v.CurrentSyncCommittee()
	if err != nil {
		return nil, err
	}
	if state.CurrentSyncCommittee, err = readSyncCommittee(current); err != nil {
		return nil, fmt.Errorf("current sync committee: %w", err)
	}
	next, err := v.NextSyncCommittee()
	if err != nil {
		return nil, err
	}
	if state.NextSyncCommittee, err = readSyncCommittee(next); err != nil {
		return nil, fmt.Errorf("next sync committee: %w", err)
	}
	return state, nil
}

func readSyncCommittee(v *zrntcommon.SyncCommitteeView) (zrntcommon.SyncCommittee, error) {
	pubkeys, err := v.Pubkeys()
	if err != nil {
		return zrntcommon.SyncCommittee{}, err
	}
	flat, err := pubkeys.Flatten()
	if err != nil {
		return zrntcommon.SyncCommittee{}, err
	}
	aggregate, err := v.AggregatePubkey()
	if err != nil {
		return zrntcommon.SyncCommittee{}, err
	}
	return zrntcommon.SyncCommittee{Pubkeys: flat, AggregatePubkey: aggregate}, nil
}

func reader(raw []byte) *codec.DecodingReader {
	return codec.NewDecodingReader(bytes.NewReader(raw), uint64(len(raw)))
}
