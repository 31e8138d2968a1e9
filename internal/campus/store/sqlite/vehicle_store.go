package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	dbpkg "github.com/campuspass/server/internal/db"
)

type VehicleStore struct {
	mgr *dbpkg.Manager
}

func NewVehicleStore(mgr *dbpkg.Manager) *VehicleStore {
	return &VehicleStore{mgr: mgr}
}

func (s *VehicleStore) AddVehicle(ctx context.Context, code string, ownerID int64, onCampus bool) error {
	if strings.TrimSpace(code) == "" {
		return store.ErrEmptyVehicleCode
	}
	now := types.FormatTime(types.Now())

	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM vehicles WHERE vehicle_id = ?;`, code)
		if err != nil {
			return fmt.Errorf("AddVehicle lookup: %w", err)
		}
		if exists {
			return store.ErrVehicleAlreadyRegistered
		}

		exists, err = rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = ?;`, ownerID)
		if err != nil {
			return fmt.Errorf("AddVehicle owner lookup: %w", err)
		}
		if !exists {
			return store.ErrOwnerNotFound
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO vehicles(vehicle_id, is_on_campus, registered_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?);
`, code, boolInt(onCampus), ownerID, now, now); err != nil {
			return fmt.Errorf("AddVehicle insert: %w", err)
		}
		return nil
	})
}

// DeleteVehicle removes the vehicle's passage records and then the vehicle.
func (s *VehicleStore) DeleteVehicle(ctx context.Context, code string) error {
	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM vehicles WHERE vehicle_id = ?;`, code)
		if err != nil {
			return fmt.Errorf("DeleteVehicle lookup: %w", err)
		}
		if !exists {
			return store.ErrVehicleNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM passage_records WHERE vehicle_id = ?;`, code); err != nil {
			return fmt.Errorf("DeleteVehicle passages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE vehicle_id = ?;`, code); err != nil {
			return fmt.Errorf("DeleteVehicle vehicle: %w", err)
		}
		return nil
	})
}

const vehicleColumns = `
SELECT v.vehicle_id, v.is_on_campus, v.registered_by, u.name, v.created_at, v.updated_at
FROM vehicles v
LEFT JOIN users u ON v.registered_by = u.id
`

// GetVehicle joins the owner's name; OwnerName is nil for a dangling owner.
func (s *VehicleStore) GetVehicle(ctx context.Context, code string) (types.Vehicle, error) {
	var out types.Vehicle
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		v, err := scanVehicle(q.QueryRowContext(ctx, vehicleColumns+`WHERE v.vehicle_id = ?;`, code))
		if err == sql.ErrNoRows {
			return store.ErrVehicleNotFound
		}
		if err != nil {
			return fmt.Errorf("GetVehicle: %w", err)
		}
		out = v
		return nil
	})
	return out, err
}

func (s *VehicleStore) ListVehicles(ctx context.Context, page types.PageRequest) ([]types.Vehicle, int, error) {
	page = page.Normalize()

	var (
		vehicles []types.Vehicle
		total    int
	)
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		vehicles = vehicles[:0]

		var err error
		total, err = countRows(ctx, q, `SELECT COUNT(*) FROM vehicles;`)
		if err != nil {
			return fmt.Errorf("ListVehicles count: %w", err)
		}

		// rowid order is insertion order.
		rows, err := q.QueryContext(ctx, vehicleColumns+`ORDER BY v.rowid LIMIT ? OFFSET ?;`, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("ListVehicles query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVehicle(rows)
			if err != nil {
				return fmt.Errorf("ListVehicles scan: %w", err)
			}
			vehicles = append(vehicles, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func scanVehicle(sc scanner) (types.Vehicle, error) {
	var (
		v                    types.Vehicle
		ownerID              sql.NullInt64
		ownerName            sql.NullString
		createdAt, updatedAt string
	)
	if err := sc.Scan(&v.Code, &v.OnCampus, &ownerID, &ownerName, &createdAt, &updatedAt); err != nil {
		return types.Vehicle{}, err
	}
	if ownerID.Valid {
		id := ownerID.Int64
		v.OwnerID = &id
	}
	if ownerName.Valid {
		name := ownerName.String
		v.OwnerName = &name
	}
	v.CreatedAt = parseStored(createdAt)
	v.UpdatedAt = parseStored(updatedAt)
	return v, nil
}
