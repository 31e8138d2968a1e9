package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	sqlitestore "github.com/campuspass/server/internal/campus/store/sqlite"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/db"
)

// newTestStore returns a store over a fresh file-backed database with the
// production schema and admin seed. It is shut down when the test finishes.
// Shared-cache memory databases report SQLITE_LOCKED under concurrent
// writers, so tests use a temp file like production.
func newTestStore(t *testing.T) (*sqlitestore.Store, *db.Manager) {
	t.Helper()

	mgr := db.NewManager(db.Config{})
	err := mgr.Initialize(context.Background(), filepath.Join(t.TempDir(), "campus.db"))
	require.NoError(t, err, "Initialize")

	t.Cleanup(func() { _ = mgr.Shutdown() })
	return sqlitestore.New(mgr), mgr
}

func adminID(t *testing.T, s *sqlitestore.Store) int64 {
	t.Helper()

	cred, err := s.VerifyUser(context.Background(), db.DefaultAdminName, db.DefaultAdminPassword)
	require.NoError(t, err)
	require.True(t, cred.Matched, "seeded admin must verify")
	return cred.UserID
}

func seedSensor(t *testing.T, s *sqlitestore.Store, code string, gate bool) types.Sensor {
	t.Helper()
	ctx := context.Background()

	err := s.AddSensor(ctx, types.NewSensor{Code: code, Location: "loc-" + code, Active: true, Gate: gate})
	require.NoError(t, err, "AddSensor %s", code)

	sensor, err := s.GetSensor(ctx, code)
	require.NoError(t, err)
	return sensor
}

func seedVehicle(t *testing.T, s *sqlitestore.Store, code string, ownerID int64, onCampus bool) {
	t.Helper()
	require.NoError(t, s.AddVehicle(context.Background(), code, ownerID, onCampus), "AddVehicle %s", code)
}

func onCampus(t *testing.T, s *sqlitestore.Store, code string) bool {
	t.Helper()
	v, err := s.GetVehicle(context.Background(), code)
	require.NoError(t, err)
	return v.OnCampus
}

func countPassages(t *testing.T, mgr *db.Manager) int {
	t.Helper()

	var n int
	err := mgr.Read(context.Background(), func(ctx context.Context, q db.Querier) error {
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM passage_records;`).Scan(&n)
	})
	require.NoError(t, err)
	return n
}
