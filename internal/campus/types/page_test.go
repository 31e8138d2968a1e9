package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/server/internal/campus/types"
)

func TestNextCursor(t *testing.T) {
	next := types.NextCursor(0, 20, 45)
	require.NotNil(t, next)
	assert.Equal(t, 20, *next)

	next = types.NextCursor(20, 20, 45)
	require.NotNil(t, next)
	assert.Equal(t, 40, *next)

	assert.Nil(t, types.NextCursor(40, 20, 45))
	assert.Nil(t, types.NextCursor(0, 20, 20))
	assert.Nil(t, types.NextCursor(0, 20, 0))
}

func TestPageRequest_Normalize(t *testing.T) {
	assert.Equal(t, types.PageRequest{Limit: 20, Offset: 0}, types.PageRequest{Limit: 0, Offset: -5}.Normalize())
	assert.Equal(t, types.PageRequest{Limit: 100, Offset: 3}, types.PageRequest{Limit: 1000, Offset: 3}.Normalize())
	assert.Equal(t, types.PageRequest{Limit: 7, Offset: 14}, types.PageRequest{Limit: 7, Offset: 14}.Normalize())
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 1, 8, 30, 15, 0, time.UTC)
	s := types.FormatTime(in)
	assert.Equal(t, "2026-03-01 08:30:15", s)

	out, err := types.ParseTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	_, err = types.ParseTime("2026-03-01T08:30:15Z")
	assert.Error(t, err)
}

func TestNow_WholeSeconds(t *testing.T) {
	assert.Zero(t, types.Now().Nanosecond())
}
