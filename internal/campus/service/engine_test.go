package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/server/internal/apperr"
	"github.com/campuspass/server/internal/campus/service"
	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/store/memory"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/logging"
)

func newEngine(t *testing.T) (*service.Engine, *memory.Store) {
	t.Helper()
	ms := memory.New("root", "123456")
	return service.NewEngine(ms, logging.Discard()), ms
}

// brokenStore fails vehicle reads with the configured error.
type brokenStore struct {
	*memory.Store
	err error
}

func (b brokenStore) GetVehicle(context.Context, string) (types.Vehicle, error) {
	return types.Vehicle{}, b.err
}

func (b brokenStore) ListVehicles(context.Context, types.PageRequest) ([]types.Vehicle, int, error) {
	return nil, 0, b.err
}

// ═══════════════════════════════════════════════════════════════════════════
// Result flattening
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_DomainErrorsBecomeMessages(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	res := e.AddUser(ctx, "root", "x", false)
	assert.False(t, res.OK)
	assert.Equal(t, store.ErrDuplicateName.Message, res.Message)

	res = e.DeleteVehicle(ctx, "NOPE")
	assert.Equal(t, types.Failed(store.ErrVehicleNotFound.Message), res)

	look := e.GetVehicleStatus(ctx, "NOPE")
	assert.False(t, look.OK)
	assert.Nil(t, look.Data)
	assert.Equal(t, store.ErrVehicleNotFound.Message, look.Message)
}

func TestEngine_UnexpectedErrorsAreLoggedAndHidden(t *testing.T) {
	var buf bytes.Buffer
	ms := memory.New("root", "123456")
	e := service.NewEngine(brokenStore{Store: ms, err: errors.New("disk I/O error")}, logging.New(&buf, "info", "text"))

	look := e.GetVehicleStatus(context.Background(), "ABC123")
	assert.False(t, look.OK)
	assert.Equal(t, "operation failed", look.Message)
	assert.NotContains(t, look.Message, "disk")

	assert.Contains(t, buf.String(), "disk I/O error")
	assert.Contains(t, buf.String(), "get_vehicle_status")
}

func TestEngine_ExhaustedContention(t *testing.T) {
	busy := apperr.New(apperr.KindContention, "store_busy", "store busy")
	e := service.NewEngine(brokenStore{Store: memory.New("root", "123456"), err: busy}, logging.Discard())

	page := e.GetVehicles(context.Background(), 10, 0)
	assert.False(t, page.OK)
	assert.Equal(t, "store busy, retry later", page.Message)
	assert.Nil(t, page.NextCursor)
}

// ═══════════════════════════════════════════════════════════════════════════
// Users
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_UserLifecycle(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.True(t, e.AddUser(ctx, "alice", "pw", false).OK)

	cred := e.VerifyUser(ctx, "alice", "pw")
	assert.True(t, cred.Matched)
	assert.Equal(t, types.NoCredential, e.VerifyUser(ctx, "alice", "bad"))
	assert.Equal(t, types.NoCredential, e.VerifyUser(ctx, "ghost", "pw"))

	wrong := "bad"
	res := e.ChangePassword(ctx, "alice", &wrong, "new")
	assert.Equal(t, store.ErrWrongPassword.Message, res.Message)

	require.True(t, e.ChangePassword(ctx, "alice", nil, "new").OK)
	require.True(t, e.AddVehicle(ctx, "A-1", cred.UserID, false).OK)

	newPw := "new"
	require.True(t, e.DeleteUser(ctx, "alice", &newPw).OK)

	page := e.GetVehicles(ctx, 10, 0)
	require.True(t, page.OK)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Data)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_PageCursor(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	for _, code := range []string{"S1", "S2", "S3", "S4", "S5"} {
		require.True(t, e.AddSensor(ctx, types.NewSensor{Code: code, Location: "at " + code}).OK)
	}

	page := e.GetSensors(ctx, 2, 0)
	require.True(t, page.OK)
	assert.Equal(t, 5, page.Total)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 2, *page.NextCursor)

	page = e.GetSensors(ctx, 2, 4)
	require.True(t, page.OK)
	assert.Len(t, page.Data, 1)
	assert.Nil(t, page.NextCursor)

	page = e.GetSensors(ctx, 0, -3)
	require.True(t, page.OK)
	assert.Len(t, page.Data, 5, "limit defaults to %d", types.DefaultPageLimit)
	assert.Nil(t, page.NextCursor)
}

func TestEngine_PaginationWalkCoversEveryRow(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	for i := 0; i < 13; i++ {
		require.True(t, e.AddUser(ctx, string(rune('a'+i)), "pw", false).OK)
	}

	for _, limit := range []int{1, 4, 5, 14} {
		seen := map[int64]bool{}
		offset := 0
		for {
			page := e.GetUsers(ctx, limit, offset)
			require.True(t, page.OK)
			for _, u := range page.Data {
				assert.False(t, seen[u.ID])
				seen[u.ID] = true
			}
			if page.NextCursor == nil {
				break
			}
			offset = *page.NextCursor
		}
		assert.Len(t, seen, 14, "limit %d", limit)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Passages
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_RecordPassageScenario(t *testing.T) {
	e, ms := newEngine(t)
	ctx := context.Background()

	require.True(t, e.AddSensor(ctx, types.NewSensor{Code: "GATE1", Location: "gate", Active: true, Gate: true}).OK)
	require.True(t, e.AddSensor(ctx, types.NewSensor{Code: "SENSOR_A", Location: "lot", Active: true}).OK)
	require.True(t, e.AddVehicle(ctx, "V1", 1, false).OK)

	gate := e.GetSensorStatus(ctx, "GATE1").Data
	plain := e.GetSensorStatus(ctx, "SENSOR_A").Data

	require.True(t, e.RecordPassage(ctx, "V1", gate.ID).OK)
	assert.True(t, e.GetVehicleStatus(ctx, "V1").Data.OnCampus)

	require.True(t, e.RecordPassage(ctx, "V1", plain.ID).OK)
	assert.True(t, e.GetVehicleStatus(ctx, "V1").Data.OnCampus)
	assert.Equal(t, 2, e.GetPassageByVehicle(ctx, "V1", 10, 0).Total)

	require.True(t, e.RecordPassage(ctx, "V1", gate.ID).OK)
	assert.False(t, e.GetVehicleStatus(ctx, "V1").Data.OnCampus)

	res := e.RecordPassage(ctx, "UNKNOWN", gate.ID)
	assert.Equal(t, types.Failed(store.ErrVehicleNotFound.Message), res)
	assert.Len(t, ms.Passages(), 3)

	bySensor := e.GetPassageBySensor(ctx, gate.ID, 10, 0)
	require.True(t, bySensor.OK)
	assert.Equal(t, 2, bySensor.Total)

	missing := e.GetPassageBySensor(ctx, 999, 10, 0)
	assert.False(t, missing.OK)
	assert.Equal(t, store.ErrSensorNotFound.Message, missing.Message)
}

func TestEngine_DeletePassageRecordsByTime(t *testing.T) {
	e, ms := newEngine(t)
	ctx := context.Background()
	require.True(t, e.AddSensor(ctx, types.NewSensor{Code: "S", Location: "lot"}).OK)
	require.True(t, e.AddVehicle(ctx, "V1", 1, false).OK)
	sensor := e.GetSensorStatus(ctx, "S").Data

	for _, ts := range []string{"2026-01-01 00:00:00", "2026-01-02 00:00:00", "2026-01-03 00:00:00"} {
		at, err := types.ParseTime(ts)
		require.NoError(t, err)
		ms.WithClock(func() time.Time { return at })
		require.True(t, e.RecordPassage(ctx, "V1", sensor.ID).OK)
	}

	res := e.DeletePassageRecordsByTime(ctx, "2026-01-01 00:00:00", "2026-01-02 00:00:00")
	assert.True(t, res.OK)
	assert.Equal(t, int64(2), res.Affected)
	assert.Len(t, ms.Passages(), 1)

	res = e.DeletePassageRecordsByTime(ctx, "yesterday", "2026-01-02 00:00:00")
	assert.False(t, res.OK)
	assert.Equal(t, store.ErrInvalidTimestamp.Message, res.Message)
}
