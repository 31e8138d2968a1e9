package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	dbpkg "github.com/campuspass/server/internal/db"
)

type PassageStore struct {
	mgr *dbpkg.Manager
	now func() time.Time
}

func NewPassageStore(mgr *dbpkg.Manager) *PassageStore {
	return &PassageStore{mgr: mgr, now: types.Now}
}

// WithClock replaces the wall clock used to stamp passages. Times are
// truncated to whole seconds regardless of the clock's precision.
func (s *PassageStore) WithClock(now func() time.Time) *PassageStore {
	s.now = now
	return s
}

// RecordPassage inserts the crossing and updates the vehicle in one
// transaction: gate sensors flip is_on_campus, other sensors leave it as is.
func (s *PassageStore) RecordPassage(ctx context.Context, vehicleCode string, sensorID int64) (types.PassageOutcome, error) {
	var out types.PassageOutcome

	err := s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var onCampus bool
		err := tx.QueryRowContext(ctx, `SELECT is_on_campus FROM vehicles WHERE vehicle_id = ?;`, vehicleCode).Scan(&onCampus)
		if err == sql.ErrNoRows {
			return store.ErrVehicleNotFound
		}
		if err != nil {
			return fmt.Errorf("RecordPassage vehicle lookup: %w", err)
		}

		var (
			gate     bool
			location string
		)
		err = tx.QueryRowContext(ctx, `SELECT is_gate, location FROM sensors WHERE id = ?;`, sensorID).Scan(&gate, &location)
		if err == sql.ErrNoRows {
			return store.ErrSensorNotFound
		}
		if err != nil {
			return fmt.Errorf("RecordPassage sensor lookup: %w", err)
		}

		// Stamped inside the attempt so a retried write gets a fresh time.
		at := s.now().UTC().Truncate(time.Second)
		stamp := types.FormatTime(at)

		res, err := tx.ExecContext(ctx, `
INSERT INTO passage_records(vehicle_id, sensor_id, passage_time, created_at)
VALUES (?, ?, ?, ?);
`, vehicleCode, sensorID, stamp, stamp)
		if err != nil {
			return fmt.Errorf("RecordPassage insert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("RecordPassage insert id: %w", err)
		}

		next := onCampus
		if gate {
			next = !onCampus
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE vehicles SET is_on_campus = ?, updated_at = ? WHERE vehicle_id = ?;
`, boolInt(next), stamp, vehicleCode); err != nil {
			return fmt.Errorf("RecordPassage update vehicle: %w", err)
		}

		out = types.PassageOutcome{
			Record: types.PassageRecord{
				ID:          id,
				VehicleCode: vehicleCode,
				SensorID:    sensorID,
				Location:    location,
				PassageTime: at,
				CreatedAt:   at,
			},
			OnCampus: next,
			Toggled:  gate,
		}
		return nil
	})
	if err != nil {
		return types.PassageOutcome{}, err
	}
	return out, nil
}

const passageColumns = `
SELECT p.id, p.vehicle_id, p.sensor_id, COALESCE(s.location, ''), p.passage_time, p.created_at
FROM passage_records p
LEFT JOIN sensors s ON p.sensor_id = s.id
`

// ListByVehicle returns the vehicle's records newest first. An unknown
// vehicle is ErrVehicleNotFound even when orphaned records remain.
func (s *PassageStore) ListByVehicle(ctx context.Context, vehicleCode string, page types.PageRequest) ([]types.PassageRecord, int, error) {
	return s.list(ctx, page,
		`SELECT 1 FROM vehicles WHERE vehicle_id = ?;`, store.ErrVehicleNotFound,
		`p.vehicle_id = ?`, vehicleCode)
}

// ListBySensor returns the sensor's records newest first.
func (s *PassageStore) ListBySensor(ctx context.Context, sensorID int64, page types.PageRequest) ([]types.PassageRecord, int, error) {
	return s.list(ctx, page,
		`SELECT 1 FROM sensors WHERE id = ?;`, store.ErrSensorNotFound,
		`p.sensor_id = ?`, sensorID)
}

func (s *PassageStore) list(
	ctx context.Context,
	page types.PageRequest,
	existsQuery string,
	notFound error,
	filter string,
	key any,
) ([]types.PassageRecord, int, error) {
	page = page.Normalize()

	var (
		records []types.PassageRecord
		total   int
	)
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		records = records[:0]

		exists, err := rowExists(ctx, q, existsQuery, key)
		if err != nil {
			return fmt.Errorf("list passages lookup: %w", err)
		}
		if !exists {
			return notFound
		}

		total, err = countRows(ctx, q, `SELECT COUNT(*) FROM passage_records p WHERE `+filter+`;`, key)
		if err != nil {
			return fmt.Errorf("list passages count: %w", err)
		}

		rows, err := q.QueryContext(ctx, passageColumns+`
WHERE `+filter+`
ORDER BY p.passage_time DESC, p.id DESC
LIMIT ? OFFSET ?;
`, key, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("list passages query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				r                    types.PassageRecord
				passageAt, createdAt string
			)
			if err := rows.Scan(&r.ID, &r.VehicleCode, &r.SensorID, &r.Location, &passageAt, &createdAt); err != nil {
				return fmt.Errorf("list passages scan: %w", err)
			}
			r.PassageTime = parseStored(passageAt)
			r.CreatedAt = parseStored(createdAt)
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// DeleteByTimeRange removes records whose passage time lies within
// [start, end], both bounds inclusive, and reports how many were removed.
func (s *PassageStore) DeleteByTimeRange(ctx context.Context, start, end time.Time) (int64, error) {
	from, to := types.FormatTime(start), types.FormatTime(end)

	var affected int64
	err := s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM passage_records WHERE passage_time BETWEEN ? AND ?;
`, from, to)
		if err != nil {
			return fmt.Errorf("DeleteByTimeRange: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DeleteByTimeRange rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
