package types

import (
	"strconv"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

const (
	SlotsPerEpoch          = 32
	EpochsPerPeriod        = 256
	SlotsPerPeriod         = SlotsPerEpoch * EpochsPerPeriod
	SlotsPerHistoricalRoot = 8192

	CapellaForkEpoch = 194048
	// CapellaForkSlot is the first slot decoded with the capella schema.
	CapellaForkSlot = CapellaForkEpoch * SlotsPerEpoch
)

// Generalized indices of the proven tree paths. The bellatrix and capella
// layouts agree on all three.
const (
	// BeaconState field 20 (finalized_checkpoint) at depth 5, then Checkpoint.root.
	FinalizedRootGindex = (32+20)*2 + 1
	// BeaconState field 23 (next_sync_committee) at depth 5.
	NextSyncCommitteeGindex = 32 + 23
	// BeaconBlockBody field 9 (execution_payload) at depth 4, then ExecutionPayload field 2 (state_root) at depth 4.
	ExecutionStateRootGindex = (16+9)*16 + 2
)

type BeaconIDKind uint8

const (
	IDSlot BeaconIDKind = iota
	IDTag
	IDRoot
)

// BeaconID names a block or state by slot, by tag ("head", "finalized", ...) or by root.
type BeaconID struct {
	kind BeaconIDKind
	slot uint64
	tag  string
	root zrntcommon.Root
}

func SlotID(slot uint64) BeaconID {
	return BeaconID{kind: IDSlot, slot: slot}
}

func TagID(tag string) BeaconID {
	return BeaconID{kind: IDTag, tag: tag}
}

func RootID(root zrntcommon.Root) BeaconID {
	return BeaconID{kind: IDRoot, root: root}
}

// ParseBeaconID reads a decimal slot, a 0x-prefixed 32-byte root or otherwise a tag.
func ParseBeaconID(s string) (BeaconID, error) {
	if slot, err := strconv.ParseUint(s, 10, 64); err == nil {
		return SlotID(slot), nil
	}
	if len(s) > 2 && s[:2] == "0x" {
		bz, err := HexToBytes(s)
		if err != nil {
			return BeaconID{}, err
		}
		if len(bz) != 32 {
			return BeaconID{}, decodeErrorf("root id must be 32 bytes, got %d", len(bz))
		}
		var root zrntcommon.Root
		copy(root[:], bz)
		return RootID(root), nil
	}
	return TagID(s), nil
}

func (id BeaconID) Kind() BeaconIDKind {
	return id.kind
}

// Slot returns the slot for slot ids.
func (id BeaconID) Slot() (uint64, bool) {
	return id.slot, id.kind == IDSlot
}

func (id BeaconID) String() string {
	switch id.kind {
	case IDSlot:
		return strconv.FormatUint(id.slot, 10)
	case IDRoot:
		return id.root.String()
	default:
		return id.tag
	}
}
