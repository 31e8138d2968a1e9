package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/campuspass/server/internal/campus/types"
)

// Snapshot is a full dump of the store as seen through the paginated reads.
type Snapshot struct {
	ExportedAt string                           `json:"exported_at" yaml:"exported_at"`
	Users      []types.User                     `json:"users" yaml:"users"`
	Sensors    []types.Sensor                   `json:"sensors" yaml:"sensors"`
	Vehicles   []types.Vehicle                  `json:"vehicles" yaml:"vehicles"`
	Passages   map[string][]types.PassageRecord `json:"passages" yaml:"passages"` // by vehicle code
}

// walk follows next_cursor from offset 0 until the listing is exhausted.
func walk[T any](fetch func(limit, offset int) types.PageResult[T], pageSize int) ([]T, error) {
	var out []T
	offset := 0
	for {
		page := fetch(pageSize, offset)
		if !page.OK {
			return nil, errors.New(page.Message)
		}
		out = append(out, page.Data...)
		if page.NextCursor == nil {
			return out, nil
		}
		offset = *page.NextCursor
	}
}

// Export walks every listing page by page, then each vehicle's passages.
func (e *Engine) Export(ctx context.Context, pageSize int) (Snapshot, error) {
	snap := Snapshot{
		ExportedAt: types.FormatTime(types.Now()),
		Passages:   map[string][]types.PassageRecord{},
	}

	var err error
	if snap.Users, err = walk(func(limit, offset int) types.PageResult[types.User] {
		return e.GetUsers(ctx, limit, offset)
	}, pageSize); err != nil {
		return Snapshot{}, fmt.Errorf("export users: %w", err)
	}
	if snap.Sensors, err = walk(func(limit, offset int) types.PageResult[types.Sensor] {
		return e.GetSensors(ctx, limit, offset)
	}, pageSize); err != nil {
		return Snapshot{}, fmt.Errorf("export sensors: %w", err)
	}
	if snap.Vehicles, err = walk(func(limit, offset int) types.PageResult[types.Vehicle] {
		return e.GetVehicles(ctx, limit, offset)
	}, pageSize); err != nil {
		return Snapshot{}, fmt.Errorf("export vehicles: %w", err)
	}

	for _, v := range snap.Vehicles {
		records, err := walk(func(limit, offset int) types.PageResult[types.PassageRecord] {
			return e.GetPassageByVehicle(ctx, v.Code, limit, offset)
		}, pageSize)
		if err != nil {
			return Snapshot{}, fmt.Errorf("export passages of %s: %w", v.Code, err)
		}
		snap.Passages[v.Code] = records
	}
	return snap, nil
}

// WriteSnapshot encodes snap as "json" or "yaml".
func WriteSnapshot(w io.Writer, snap Snapshot, format string) error {
	switch strings.ToLower(format) {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
