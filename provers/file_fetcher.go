package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	types2 "github.com/kysee/zk-lightclient/provers/types"
	"github.com/kysee/zk-lightclient/types"
)

// FileFetcher implements Fetcher by replaying node responses saved in a directory:
//
//	headers/{id}.json  blocks/{id}.json  states/{id}.ssz  genesis.json  syncing.json
type FileFetcher struct {
	Dir string
}

// NewFileFetcher creates a new FileFetcher reading from dir
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{
		Dir: dir,
	}
}

func (f *FileFetcher) Header(_ context.Context, id string) (*types2.HeaderAPIResponse, error) {
	var resp types2.HeaderAPIResponse
	if err := f.readJSON(filepath.Join("headers", id+".json"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *FileFetcher) Block(_ context.Context, id string) (*types2.BlockAPIResponse, error) {
	var resp types2.BlockAPIResponse
	if err := f.readJSON(filepath.Join("blocks", id+".json"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// State reads a saved SSZ state. The fork is not recorded, so Version is empty.
func (f *FileFetcher) State(_ context.Context, id string) (*types2.StateResponse, error) {
	data, err := f.read(filepath.Join("states", id+".ssz"))
	if err != nil {
		return nil, err
	}
	return &types2.StateResponse{SSZ: data}, nil
}

func (f *FileFetcher) Genesis(_ context.Context) (*types2.Genesis, error) {
	var resp struct {
		Data types2.Genesis `json:"data"`
	}
	if err := f.readJSON("genesis.json", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (f *FileFetcher) SyncStatus(_ context.Context) (*types2.SyncStatus, error) {
	var resp struct {
		Data types2.SyncStatus `json:"data"`
	}
	if err := f.readJSON("syncing.json", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (f *FileFetcher) read(name string) ([]byte, error) {
	// Read the file
	data, err := os.ReadFile(filepath.Join(f.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file %s: %v", types.ErrTransport, name, err)
	}
	return data, nil
}

func (f *FileFetcher) readJSON(name string, out any) error {
	data, err := f.read(name)
	if err != nil {
		return err
	}
	// Parse JSON
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", types.ErrDecode, name, err)
	}
	return nil
}
