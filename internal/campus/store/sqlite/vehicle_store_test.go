package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
)

func TestVehicleStore_AddAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := adminID(t, s)

	seedVehicle(t, s, "ABC123", owner, true)

	v, err := s.GetVehicle(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, v.OnCampus)
	require.NotNil(t, v.OwnerID)
	assert.Equal(t, owner, *v.OwnerID)
	require.NotNil(t, v.OwnerName)
	assert.Equal(t, "root", *v.OwnerName)
}

func TestVehicleStore_AddVehicle_Failures(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := adminID(t, s)
	seedVehicle(t, s, "ABC123", owner, false)

	assert.ErrorIs(t, s.AddVehicle(ctx, "ABC123", owner, false), store.ErrVehicleAlreadyRegistered)
	assert.ErrorIs(t, s.AddVehicle(ctx, "NEW1", 9999, false), store.ErrOwnerNotFound)
	assert.ErrorIs(t, s.AddVehicle(ctx, "", owner, false), store.ErrEmptyVehicleCode)
}

func TestVehicleStore_DanglingOwnerIsNull(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()
	seedVehicle(t, s, "ORPHAN", adminID(t, s), false)

	// Remove the owner behind the repository's back.
	err := mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE name = 'root';`)
		return err
	})
	require.NoError(t, err)

	v, err := s.GetVehicle(ctx, "ORPHAN")
	require.NoError(t, err)
	assert.Nil(t, v.OwnerName)

	list, total, err := s.ListVehicles(ctx, types.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].OwnerName)
}

func TestVehicleStore_DeleteVehicle_CascadesPassages(t *testing.T) {
	s, mgr := newTestStore(t)
	ctx := context.Background()
	owner := adminID(t, s)
	gate := seedSensor(t, s, "G1", true)
	seedVehicle(t, s, "V1", owner, false)
	seedVehicle(t, s, "V2", owner, false)

	for _, code := range []string{"V1", "V1", "V2"} {
		_, err := s.RecordPassage(ctx, code, gate.ID)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteVehicle(ctx, "V1"))
	assert.Equal(t, 1, countPassages(t, mgr))
	assert.ErrorIs(t, s.DeleteVehicle(ctx, "V1"), store.ErrVehicleNotFound)
}

func TestVehicleStore_ListVehicles_InsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	owner := adminID(t, s)
	for _, code := range []string{"ZZZ", "AAA", "MMM"} {
		seedVehicle(t, s, code, owner, false)
	}

	list, total, err := s.ListVehicles(context.Background(), types.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"ZZZ", "AAA", "MMM"}, []string{list[0].Code, list[1].Code, list[2].Code})
}
