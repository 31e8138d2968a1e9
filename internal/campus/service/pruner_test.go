package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/server/internal/campus/service"
	"github.com/campuspass/server/internal/campus/store/memory"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/logging"
)

func seedAgedPassages(t *testing.T, ms *memory.Store, ages ...time.Duration) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, ms.AddSensor(ctx, types.NewSensor{Code: "S", Location: "lot"}))
	require.NoError(t, ms.AddVehicle(ctx, "V1", 1, false))
	sensor, err := ms.GetSensor(ctx, "S")
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, age := range ages {
		at := now.Add(-age)
		ms.WithClock(func() time.Time { return at })
		_, err := ms.RecordPassage(ctx, "V1", sensor.ID)
		require.NoError(t, err)
	}
	ms.WithClock(types.Now)
}

func TestRetentionPruner_DisabledWhenRetentionZero(t *testing.T) {
	ms := memory.New("root", "123456")
	seedAgedPassages(t, ms, 400*24*time.Hour)

	pruner := service.NewRetentionPruner(ms, service.PrunerConfig{RetentionDays: 0, IntervalHours: 1}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pruner.Start(ctx)
	pruner.Stop()

	n, err := pruner.PruneOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, ms.Passages(), 1)
}

func TestRetentionPruner_PruneOnce(t *testing.T) {
	ms := memory.New("root", "123456")
	seedAgedPassages(t, ms, 40*24*time.Hour, 31*24*time.Hour, 24*time.Hour)

	pruner := service.NewRetentionPruner(ms, service.PrunerConfig{RetentionDays: 30}, logging.Discard())
	n, err := pruner.PruneOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, ms.Passages(), 1)
}

func TestRetentionPruner_StartPrunesImmediately(t *testing.T) {
	ms := memory.New("root", "123456")
	seedAgedPassages(t, ms, 10*24*time.Hour)

	pruner := service.NewRetentionPruner(ms, service.PrunerConfig{RetentionDays: 1, IntervalHours: 24}, logging.Discard())
	pruner.Start(context.Background())
	defer pruner.Stop()

	assert.Eventually(t, func() bool { return len(ms.Passages()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
