// Package sqlite implements the campus stores over a db.Manager. Every
// operation runs inside the manager's retry envelope; mutations that touch
// more than one row commit as a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuspass/server/internal/campus/types"
	dbpkg "github.com/campuspass/server/internal/db"
)

// Store bundles the four repositories over one manager.
type Store struct {
	*UserStore
	*SensorStore
	*VehicleStore
	*PassageStore
}

func New(mgr *dbpkg.Manager) *Store {
	return &Store{
		UserStore:    NewUserStore(mgr),
		SensorStore:  NewSensorStore(mgr),
		VehicleStore: NewVehicleStore(mgr),
		PassageStore: NewPassageStore(mgr),
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseStored reads a canonical timestamp column. Rows written by other
// tools with a malformed value yield the zero time rather than failing the
// whole listing.
func parseStored(s string) time.Time {
	t, err := types.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func rowExists(ctx context.Context, q dbpkg.Querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func countRows(ctx context.Context, q dbpkg.Querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
