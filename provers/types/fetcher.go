package types

import (
	"context"
	"encoding/json"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// HeaderAPIResponse represents the Beacon API response for block headers
type HeaderAPIResponse struct {
	Data struct {
		Root      zrntcommon.Root `json:"root"`
		Canonical bool            `json:"canonical"`
		Header    struct {
			Message   zrntcommon.BeaconBlockHeader `json:"message"`
			Signature zrntcommon.BLSSignature      `json:"signature"`
		} `json:"header"`
	} `json:"data"`
}

// BlockAPIResponse represents the Beacon API v2 response for blocks.
// The message stays raw until the fork schema is known.
type BlockAPIResponse struct {
	Version             string `json:"version"`
	ExecutionOptimistic bool   `json:"execution_optimistic"`
	Finalized           bool   `json:"finalized"`
	Data                struct {
		Message   json.RawMessage         `json:"message"`
		Signature zrntcommon.BLSSignature `json:"signature"`
	} `json:"data"`
}

// StateResponse is an SSZ encoded beacon state and the fork it was served as, if announced.
type StateResponse struct {
	Version string
	SSZ     []byte
}

type Genesis struct {
	GenesisTime           zrntcommon.Timestamp `json:"genesis_time"`
	GenesisValidatorsRoot zrntcommon.Root      `json:"genesis_validators_root"`
	GenesisForkVersion    zrntcommon.Version   `json:"genesis_fork_version"`
}

type SyncStatus struct {
	HeadSlot     zrntcommon.Slot `json:"head_slot"`
	SyncDistance zrntcommon.Slot `json:"sync_distance"`
	IsSyncing    bool            `json:"is_syncing"`
	IsOptimistic bool            `json:"is_optimistic"`
	ElOffline    bool            `json:"el_offline"`
}

// Fetcher defines the interface for fetching raw consensus objects.
// Ids are rendered block or state ids: a slot, a tag or a 0x-prefixed root.
type Fetcher interface {
	Header(ctx context.Context, id string) (*HeaderAPIResponse, error)
	Block(ctx context.Context, id string) (*BlockAPIResponse, error)
	State(ctx context.Context, id string) (*StateResponse, error)
	Genesis(ctx context.Context) (*Genesis, error)
	SyncStatus(ctx context.Context) (*SyncStatus, error)
}
