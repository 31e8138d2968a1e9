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

type SensorStore struct {
	mgr *dbpkg.Manager
}

func NewSensorStore(mgr *dbpkg.Manager) *SensorStore {
	return &SensorStore{mgr: mgr}
}

// AddSensor checks the code, then the location, before inserting. The gate
// flag cannot be changed afterwards.
func (s *SensorStore) AddSensor(ctx context.Context, in types.NewSensor) error {
	if strings.TrimSpace(in.Code) == "" {
		return store.ErrEmptySensorCode
	}
	now := types.FormatTime(types.Now())

	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM sensors WHERE sensor_id = ?;`, in.Code)
		if err != nil {
			return fmt.Errorf("AddSensor code lookup: %w", err)
		}
		if exists {
			return store.ErrDuplicateCode
		}

		exists, err = rowExists(ctx, tx, `SELECT 1 FROM sensors WHERE location = ?;`, in.Location)
		if err != nil {
			return fmt.Errorf("AddSensor location lookup: %w", err)
		}
		if exists {
			return store.ErrDuplicateLocation
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO sensors(sensor_id, location, description, is_active, is_gate, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, in.Code, in.Location, in.Description, boolInt(in.Active), boolInt(in.Gate), now, now); err != nil {
			return fmt.Errorf("AddSensor insert: %w", err)
		}
		return nil
	})
}

// DeleteSensor removes the sensor's passage records and then the sensor.
func (s *SensorStore) DeleteSensor(ctx context.Context, code string) error {
	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		id, err := sensorIDByCode(ctx, tx, code)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM passage_records WHERE sensor_id = ?;`, id); err != nil {
			return fmt.Errorf("DeleteSensor passages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sensors WHERE id = ?;`, id); err != nil {
			return fmt.Errorf("DeleteSensor sensor: %w", err)
		}
		return nil
	})
}

// UpdateSensorStatus changes only the active flag.
func (s *SensorStore) UpdateSensorStatus(ctx context.Context, code string, active bool) error {
	now := types.FormatTime(types.Now())

	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		id, err := sensorIDByCode(ctx, tx, code)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE sensors SET is_active = ?, updated_at = ? WHERE id = ?;
`, boolInt(active), now, id); err != nil {
			return fmt.Errorf("UpdateSensorStatus: %w", err)
		}
		return nil
	})
}

func (s *SensorStore) GetSensor(ctx context.Context, code string) (types.Sensor, error) {
	var out types.Sensor
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		row := q.QueryRowContext(ctx, `
SELECT id, sensor_id, location, description, is_active, is_gate, created_at, updated_at
FROM sensors
WHERE sensor_id = ?;
`, code)
		sensor, err := scanSensor(row)
		if err == sql.ErrNoRows {
			return store.ErrSensorNotFound
		}
		if err != nil {
			return fmt.Errorf("GetSensor: %w", err)
		}
		out = sensor
		return nil
	})
	return out, err
}

func (s *SensorStore) ListSensors(ctx context.Context, page types.PageRequest) ([]types.Sensor, int, error) {
	page = page.Normalize()

	var (
		sensors []types.Sensor
		total   int
	)
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		sensors = sensors[:0]

		var err error
		total, err = countRows(ctx, q, `SELECT COUNT(*) FROM sensors;`)
		if err != nil {
			return fmt.Errorf("ListSensors count: %w", err)
		}

		rows, err := q.QueryContext(ctx, `
SELECT id, sensor_id, location, description, is_active, is_gate, created_at, updated_at
FROM sensors
ORDER BY id
LIMIT ? OFFSET ?;
`, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("ListSensors query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			sensor, err := scanSensor(rows)
			if err != nil {
				return fmt.Errorf("ListSensors scan: %w", err)
			}
			sensors = append(sensors, sensor)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return sensors, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSensor(sc scanner) (types.Sensor, error) {
	var (
		s                    types.Sensor
		createdAt, updatedAt string
	)
	if err := sc.Scan(&s.ID, &s.Code, &s.Location, &s.Description, &s.Active, &s.Gate, &createdAt, &updatedAt); err != nil {
		return types.Sensor{}, err
	}
	s.CreatedAt = parseStored(createdAt)
	s.UpdatedAt = parseStored(updatedAt)
	return s, nil
}

func sensorIDByCode(ctx context.Context, q dbpkg.Querier, code string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM sensors WHERE sensor_id = ?;`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, store.ErrSensorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup sensor %s: %w", code, err)
	}
	return id, nil
}
