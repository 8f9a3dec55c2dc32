// Package db persists the believed-current heat pump state across restarts.
// The unit itself is write-only over IR, so this record is the only memory
// the service has.
package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

const schema = `CREATE TABLE IF NOT EXISTS pump_state (
	id INTEGER PRIMARY KEY CHECK(id=1),
	on_state BOOLEAN NOT NULL,
	hvac_mode TEXT NOT NULL,
	isee BOOLEAN NOT NULL,
	temp INTEGER NOT NULL,
	wide_vane TEXT NOT NULL,
	fan_speed INTEGER NOT NULL,
	vane TEXT NOT NULL,
	clock TEXT NOT NULL,
	end_time INTEGER NOT NULL,
	start_time INTEGER NOT NULL,
	prog TEXT NOT NULL,
	econo_cool BOOLEAN NOT NULL,
	clean_mode BOOLEAN NOT NULL,
	plasma BOOLEAN NOT NULL,
	long_mode BOOLEAN NOT NULL,
	updated_at TEXT NOT NULL
)`

// Open opens (or creates) the state database and ensures the schema exists.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return conn, nil
}

// SaveState upserts the single state row. ReadClock is transient and is not
// persisted.
func SaveState(conn *sql.DB, s protocol.OperatingState) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO pump_state
		(id, on_state, hvac_mode, isee, temp, wide_vane, fan_speed, vane, clock,
		 end_time, start_time, prog, econo_cool, clean_mode, plasma, long_mode, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.On, string(s.Mode), s.ISee, s.Temperature, string(s.WideVane),
		s.FanSpeed, string(s.Vane), clockToText(s.ClockSet),
		s.EndTime, s.StartTime, string(s.Program),
		s.EconoCool, s.CleanMode, s.Plasma, s.LongMode,
		time.Now().Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert pump state: %w", err)
	}
	return tx.Commit()
}

// LoadState reads the persisted state. sql.ErrNoRows means nothing has been
// saved yet; callers fall back to power-on defaults.
func LoadState(conn *sql.DB) (*protocol.OperatingState, error) {
	var (
		s     protocol.OperatingState
		mode  string
		wide  string
		vane  string
		clock string
		prog  string
	)
	err := conn.QueryRow(`SELECT on_state, hvac_mode, isee, temp, wide_vane,
		fan_speed, vane, clock, end_time, start_time, prog,
		econo_cool, clean_mode, plasma, long_mode
		FROM pump_state WHERE id = 1`).Scan(
		&s.On, &mode, &s.ISee, &s.Temperature, &wide,
		&s.FanSpeed, &vane, &clock, &s.EndTime, &s.StartTime, &prog,
		&s.EconoCool, &s.CleanMode, &s.Plasma, &s.LongMode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("query pump state: %w", err)
	}

	s.Mode = protocol.Mode(mode)
	s.WideVane = protocol.WideVane(wide)
	s.Vane = protocol.Vane(vane)
	s.Program = protocol.TimerProgram(prog)
	if s.ClockSet, err = clockFromText(clock); err != nil {
		return nil, err
	}
	return &s, nil
}

func clockToText(c protocol.Clock) string {
	if c.Auto {
		return "auto"
	}
	return strconv.Itoa(c.Value)
}

func clockFromText(text string) (protocol.Clock, error) {
	if text == "auto" {
		return protocol.Clock{Auto: true}, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return protocol.Clock{}, fmt.Errorf("parse stored clock %q: %w", text, err)
	}
	return protocol.Clock{Value: v}, nil
}
