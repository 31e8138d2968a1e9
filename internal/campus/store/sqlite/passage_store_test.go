package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// RecordPassage: gate toggling
// ═══════════════════════════════════════════════════════════════════════════

func TestPassageStore_GateScenario(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()

	gate := seedSensor(t, s, "GATE1", true)
	plain := seedSensor(t, s, "SENSOR_A", false)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	out, err := s.RecordPassage(ctx, "V1", gate.ID)
	require.NoError(t, err)
	assert.True(t, out.OnCampus)
	assert.True(t, out.Toggled)
	assert.True(t, onCampus(t, s, "V1"))

	out, err = s.RecordPassage(ctx, "V1", plain.ID)
	require.NoError(t, err)
	assert.True(t, out.OnCampus)
	assert.False(t, out.Toggled)
	assert.True(t, onCampus(t, s, "V1"))
	assert.Equal(t, 2, countPassages(t, mgr))

	_, err = s.RecordPassage(ctx, "V1", gate.ID)
	require.NoError(t, err)
	assert.False(t, onCampus(t, s, "V1"))
}

func TestPassageStore_GateParity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := adminID(t, s)
	gate := seedSensor(t, s, "GATE1", true)

	for _, start := range []bool{false, true} {
		for n := 1; n <= 4; n++ {
			code := fmt.Sprintf("P%d-%v", n, start)
			seedVehicle(t, s, code, owner, start)

			for i := 0; i < n; i++ {
				_, err := s.RecordPassage(ctx, code, gate.ID)
				require.NoError(t, err)
			}

			want := start
			if n%2 == 1 {
				want = !start
			}
			assert.Equal(t, want, onCampus(t, s, code), "start=%v crossings=%d", start, n)
		}
	}
}

func TestPassageStore_NonGateNeverToggles(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()
	owner := adminID(t, s)
	plain := seedSensor(t, s, "LOT_A", false)
	seedVehicle(t, s, "IN", owner, true)
	seedVehicle(t, s, "OUT", owner, false)

	for i := 0; i < 3; i++ {
		_, err := s.RecordPassage(ctx, "IN", plain.ID)
		require.NoError(t, err)
		_, err = s.RecordPassage(ctx, "OUT", plain.ID)
		require.NoError(t, err)
	}

	assert.True(t, onCampus(t, s, "IN"))
	assert.False(t, onCampus(t, s, "OUT"))
	assert.Equal(t, 6, countPassages(t, mgr))
}

// ═══════════════════════════════════════════════════════════════════════════
// RecordPassage: failures insert nothing
// ═══════════════════════════════════════════════════════════════════════════

func TestPassageStore_UnknownVehicle(t *testing.T) {
	s, mgr := newTestStore(t)
	gate := seedSensor(t, s, "GATE1", true)

	_, err := s.RecordPassage(context.Background(), "UNKNOWN", gate.ID)
	assert.ErrorIs(t, err, store.ErrVehicleNotFound)
	assert.Equal(t, 0, countPassages(t, mgr))
}

func TestPassageStore_UnknownSensor(t *testing.T) {
	s, mgr := newTestStore(t)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	_, err := s.RecordPassage(context.Background(), "V1", 4242)
	assert.ErrorIs(t, err, store.ErrSensorNotFound)
	assert.Equal(t, 0, countPassages(t, mgr))
	assert.False(t, onCampus(t, s, "V1"))
}

// ═══════════════════════════════════════════════════════════════════════════
// Queries
// ═══════════════════════════════════════════════════════════════════════════

func TestPassageStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	gate := seedSensor(t, s, "GATE1", true)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	at := time.Date(2026, 3, 1, 8, 30, 15, 987_000_000, time.UTC)
	s.PassageStore.WithClock(func() time.Time { return at })

	out, err := s.RecordPassage(ctx, "V1", gate.ID)
	require.NoError(t, err)

	records, total, err := s.ListByVehicle(ctx, "V1", types.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, out.Record.ID, got.ID)
	assert.Equal(t, gate.ID, got.SensorID)
	assert.Equal(t, "loc-GATE1", got.Location)
	assert.Equal(t, at.Truncate(time.Second), got.PassageTime)
	assert.Equal(t, out.Record.PassageTime, got.PassageTime)
}

func TestPassageStore_ListNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	gate := seedSensor(t, s, "GATE1", true)
	plain := seedSensor(t, s, "LOT", false)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.PassageStore.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for _, id := range []int64{gate.ID, plain.ID, gate.ID, plain.ID} {
		_, err := s.RecordPassage(ctx, "V1", id)
		require.NoError(t, err)
	}

	records, total, err := s.ListByVehicle(ctx, "V1", types.PageRequest{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, records, 3)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].PassageTime.After(records[i].PassageTime))
	}

	bySensor, total, err := s.ListBySensor(ctx, plain.ID, types.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, bySensor, 2)
	assert.Equal(t, base.Add(4*time.Minute), bySensor[0].PassageTime)
}

func TestPassageStore_ListUnknownKey(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.ListByVehicle(ctx, "NOPE", types.PageRequest{})
	assert.ErrorIs(t, err, store.ErrVehicleNotFound)

	_, _, err = s.ListBySensor(ctx, 99, types.PageRequest{})
	assert.ErrorIs(t, err, store.ErrSensorNotFound)
}

func TestPassageStore_ListKnownKeyWithoutRecords(t *testing.T) {
	s, _ := newTestStore(t)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	records, total, err := s.ListByVehicle(context.Background(), "V1", types.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, records)
}

// ═══════════════════════════════════════════════════════════════════════════
// DeleteByTimeRange
// ═══════════════════════════════════════════════════════════════════════════

func TestPassageStore_DeleteByTimeRange_Inclusive(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()
	plain := seedSensor(t, s, "LOT", false)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.PassageStore.WithClock(func() time.Time {
		at := base.Add(time.Duration(tick) * time.Hour)
		tick++
		return at
	})
	for i := 0; i < 5; i++ { // 00:00 .. 04:00
		_, err := s.RecordPassage(ctx, "V1", plain.ID)
		require.NoError(t, err)
	}

	n, err := s.DeleteByTimeRange(ctx, base.Add(1*time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 2, countPassages(t, mgr))

	n, err = s.DeleteByTimeRange(ctx, base.Add(10*time.Hour), base.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ═══════════════════════════════════════════════════════════════════════════
// Concurrency: writers contend for the single write lock
// ═══════════════════════════════════════════════════════════════════════════

func TestPassageStore_ConcurrentRecordPassage(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()
	gate := seedSensor(t, s, "GATE1", true)
	seedVehicle(t, s, "V1", adminID(t, s), false)

	const workers, each = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if _, err := s.RecordPassage(ctx, "V1", gate.ID); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("RecordPassage: %v", err)
	}
	assert.Equal(t, workers*each, countPassages(t, mgr))
	// An even number of gate crossings returns the vehicle to where it started.
	assert.False(t, onCampus(t, s, "V1"))
	assert.Zero(t, mgr.OpenSessions())
}
