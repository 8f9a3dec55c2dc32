package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLoadStateEmpty(t *testing.T) {
	conn := openTestDB(t)

	_, err := LoadState(conn)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	s := protocol.NewOperatingState()
	s.On = true
	s.Mode = protocol.ModeCool
	s.Temperature = 24
	s.WideVane = protocol.WideVaneRight
	s.FanSpeed = 2
	s.Vane = protocol.VaneSwing
	s.ClockSet = protocol.Clock{Value: 90}
	s.EndTime = 120
	s.StartTime = 48
	s.Program = protocol.TimerStartEnd
	s.EconoCool = true
	s.Plasma = true

	require.NoError(t, SaveState(conn, *s))

	got, err := LoadState(conn)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSaveStateOverwrites(t *testing.T) {
	conn := openTestDB(t)

	first := protocol.NewOperatingState()
	require.NoError(t, SaveState(conn, *first))

	second := protocol.NewOperatingState()
	second.On = true
	second.Temperature = 28
	require.NoError(t, SaveState(conn, *second))

	got, err := LoadState(conn)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestReadClockIsNotPersisted(t *testing.T) {
	conn := openTestDB(t)

	s := protocol.NewOperatingState()
	rc := 77
	s.ReadClock = &rc
	require.NoError(t, SaveState(conn, *s))

	got, err := LoadState(conn)
	require.NoError(t, err)
	assert.Nil(t, got.ReadClock)
	assert.True(t, got.ClockSet.Auto)
}
