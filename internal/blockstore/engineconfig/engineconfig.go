// Package engineconfig loads [blockstore.Options] from a JSONC config
// file, the way the teacher repo's root config.go loads its own
// Config - defaults, then an optional file, parsed with hujson so
// comments and trailing commas are tolerated.
package engineconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/blockstore/internal/blockstore"
)

// ErrFileNotFound is returned when an explicitly named config path does
// not exist.
var ErrFileNotFound = errors.New("engineconfig: file not found")

// ErrInvalid is returned when a config file fails validation after
// parsing.
var ErrInvalid = errors.New("engineconfig: invalid configuration")

// File mirrors the on-disk JSONC shape. Field names use snake_case to
// match the teacher's config file convention.
type File struct {
	TotalBlocks           int    `json:"total_blocks"`
	TotalInodes           int    `json:"total_inodes"`
	DiskPath              string `json:"disk_path,omitempty"`
	DefaultStrategy       string `json:"default_strategy,omitempty"`
	DefaultGranularity    string `json:"default_granularity,omitempty"`
	AutoSnapshotEnabled   bool   `json:"auto_snapshot_enabled,omitempty"`
	AutoSnapshotThreshold int    `json:"auto_snapshot_threshold,omitempty"`
}

// Default returns the zero-value file contents' natural defaults: no
// disk persistence, COW strategy, medium granularity, auto-snapshot
// off.
func Default() File {
	return File{
		TotalBlocks: 1000,
		TotalInodes: 100,
	}
}

// Load reads and parses a JSONC config file at path. A missing path
// returns ErrFileNotFound; a present-but-malformed or invalid file
// returns a wrapped parse or ErrInvalid.
func Load(path string) (blockstore.Options, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled, matching the teacher's own config loader
	if err != nil {
		if os.IsNotExist(err) {
			return blockstore.Options{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return blockstore.Options{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return Parse(data)
}

// Parse standardizes JSONC to JSON (tolerating comments and trailing
// commas, as the teacher's parseConfig does) and converts the result
// into [blockstore.Options].
func Parse(data []byte) (blockstore.Options, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return blockstore.Options{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	f := Default()

	if err := json.Unmarshal(standardized, &f); err != nil {
		return blockstore.Options{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return f.toOptions()
}

func (f File) toOptions() (blockstore.Options, error) {
	if f.TotalBlocks <= 0 || f.TotalInodes <= 0 {
		return blockstore.Options{}, fmt.Errorf("%w: total_blocks and total_inodes must be positive", ErrInvalid)
	}

	strategy, err := parseStrategy(f.DefaultStrategy)
	if err != nil {
		return blockstore.Options{}, err
	}

	granularity, err := parseGranularity(f.DefaultGranularity)
	if err != nil {
		return blockstore.Options{}, err
	}

	return blockstore.Options{
		TotalBlocks:           f.TotalBlocks,
		TotalInodes:           f.TotalInodes,
		DiskPath:              f.DiskPath,
		DefaultStrategy:       strategy,
		DefaultGranularity:    granularity,
		AutoSnapshotEnabled:   f.AutoSnapshotEnabled,
		AutoSnapshotThreshold: f.AutoSnapshotThreshold,
	}, nil
}

func parseStrategy(s string) (blockstore.WriteStrategy, error) {
	switch s {
	case "", "cow":
		return blockstore.StrategyCOW, nil
	case "row":
		return blockstore.StrategyROW, nil
	default:
		return 0, fmt.Errorf("%w: unknown default_strategy %q", ErrInvalid, s)
	}
}

func parseGranularity(s string) (blockstore.Granularity, error) {
	switch s {
	case "", "medium":
		return blockstore.GranularityMedium, nil
	case "fine":
		return blockstore.GranularityFine, nil
	case "coarse":
		return blockstore.GranularityCoarse, nil
	default:
		return 0, fmt.Errorf("%w: unknown default_granularity %q", ErrInvalid, s)
	}
}
