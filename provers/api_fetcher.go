package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	types2 "github.com/kysee/zk-lightclient/provers/types"
	"github.com/kysee/zk-lightclient/types"
)

const (
	routeBlock      = "/eth/v2/beacon/blocks/%s"
	routeHeader     = "/eth/v1/beacon/headers/%s"
	routeState      = "/eth/v2/debug/beacon/states/%s"
	routeGenesis    = "/eth/v1/beacon/genesis"
	routeSyncStatus = "/eth/v1/node/syncing"

	consensusVersionHeader = "Eth-Consensus-Version"
)

// APIFetcher implements Fetcher by calling Beacon API REST endpoint
type APIFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewAPIFetcher creates a new APIFetcher with the given base URL
func NewAPIFetcher(baseURL string) *APIFetcher {
	return &APIFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{},
	}
}

// Header retrieves a block header
// GET /eth/v1/beacon/headers/{block_id}
func (a *APIFetcher) Header(ctx context.Context, id string) (*types2.HeaderAPIResponse, error) {
	var resp types2.HeaderAPIResponse
	if err := a.getJSON(ctx, fmt.Sprintf(routeHeader, id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Block retrieves a beacon block
// GET /eth/v2/beacon/blocks/{block_id}
func (a *APIFetcher) Block(ctx context.Context, id string) (*types2.BlockAPIResponse, error) {
	var resp types2.BlockAPIResponse
	if err := a.getJSON(ctx, fmt.Sprintf(routeBlock, id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// State retrieves an SSZ encoded beacon state
// GET /eth/v2/debug/beacon/states/{state_id}
func (a *APIFetcher) State(ctx context.Context, id string) (*types2.StateResponse, error) {
	body, header, err := a.get(ctx, fmt.Sprintf(routeState, id), "application/octet-stream")
	if err != nil {
		return nil, err
	}
	return &types2.StateResponse{
		Version: header.Get(consensusVersionHeader),
		SSZ:     body,
	}, nil
}

// Genesis retrieves the genesis parameters
// GET /eth/v1/beacon/genesis
func (a *APIFetcher) Genesis(ctx context.Context) (*types2.Genesis, error) {
	var resp struct {
		Data types2.Genesis `json:"data"`
	}
	if err := a.getJSON(ctx, routeGenesis, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SyncStatus retrieves the node sync status
// GET /eth/v1/node/syncing
func (a *APIFetcher) SyncStatus(ctx context.Context) (*types2.SyncStatus, error) {
	var resp struct {
		Data types2.SyncStatus `json:"data"`
	}
	if err := a.getJSON(ctx, routeSyncStatus, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (a *APIFetcher) getJSON(ctx context.Context, route string, out any) error {
	body, _, err := a.get(ctx, route, "application/json")
	if err != nil {
		return err
	}
	// Parse API response
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse response of %s: %v", types.ErrDecode, route, err)
	}
	return nil
}

func (a *APIFetcher) get(ctx context.Context, route, accept string) ([]byte, http.Header, error) {
	// Build URL
	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base URL: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, route)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("Accept", accept)

	// Send HTTP GET request
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to send request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", types.ErrTransport, err)
	}

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &types.HTTPError{Path: route, Status: resp.StatusCode, Body: string(body)}
	}
	return body, resp.Header, nil
}
