package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSetTemperature(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{22, 22},
		{22.9, 22}, // truncates toward zero
		{35, 31},
		{10, 16},
		{16, 16},
		{31, 31},
	}
	for _, tt := range tests {
		s := NewOperatingState()
		s.SetTemperature(tt.in)
		if s.Temperature != tt.want {
			t.Errorf("SetTemperature(%v) = %d, want %d", tt.in, s.Temperature, tt.want)
		}
	}
}

func TestSetFanSpeed(t *testing.T) {
	s := NewOperatingState()

	if err := s.SetFanSpeed("auto"); err != nil || s.FanSpeed != 0 {
		t.Errorf(`SetFanSpeed("auto") = %v, fan %d`, err, s.FanSpeed)
	}
	if err := s.SetFanSpeed(3); err != nil || s.FanSpeed != 3 {
		t.Errorf("SetFanSpeed(3) = %v, fan %d", err, s.FanSpeed)
	}
	if err := s.SetFanSpeed(float64(2)); err != nil || s.FanSpeed != 2 {
		t.Errorf("SetFanSpeed(2.0) = %v, fan %d", err, s.FanSpeed)
	}

	for _, bad := range []any{"high", 4, -1, true} {
		if err := s.SetFanSpeed(bad); !errors.Is(err, ErrInvalidField) {
			t.Errorf("SetFanSpeed(%v) error = %v, want %v", bad, err, ErrInvalidField)
		}
	}
	if s.FanSpeed != 2 {
		t.Errorf("failed SetFanSpeed mutated state: fan %d", s.FanSpeed)
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{45, "7:30"},
		{143, "23:50"},
		{61, "10:10"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClockJSON(t *testing.T) {
	b, err := json.Marshal(Clock{Auto: true})
	if err != nil || string(b) != `"auto"` {
		t.Errorf("Marshal auto clock = %s, %v", b, err)
	}
	b, err = json.Marshal(Clock{Value: 45})
	if err != nil || string(b) != "45" {
		t.Errorf("Marshal clock 45 = %s, %v", b, err)
	}

	var c Clock
	if err := json.Unmarshal([]byte(`"auto"`), &c); err != nil || !c.Auto {
		t.Errorf(`Unmarshal "auto" = %+v, %v`, c, err)
	}
	if err := json.Unmarshal([]byte("120"), &c); err != nil || c.Auto || c.Value != 120 {
		t.Errorf("Unmarshal 120 = %+v, %v", c, err)
	}
	if err := json.Unmarshal([]byte("144"), &c); !errors.Is(err, ErrInvalidField) {
		t.Errorf("Unmarshal 144 error = %v, want %v", err, ErrInvalidField)
	}
	if err := json.Unmarshal([]byte(`"noon"`), &c); !errors.Is(err, ErrInvalidField) {
		t.Errorf(`Unmarshal "noon" error = %v, want %v`, err, ErrInvalidField)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewOperatingState()
	s.On = true
	rc := 45
	s.ReadClock = &rc

	snap := s.Snapshot()
	if snap["on"] != true {
		t.Error("snapshot on mismatch")
	}
	if snap["hvac_mode"] != "auto" || snap["vane"] != "auto" || snap["wide_vane"] != "middle" {
		t.Errorf("snapshot enums mismatch: %v", snap)
	}
	if snap["clock"] != "auto" {
		t.Errorf("snapshot clock = %v, want auto", snap["clock"])
	}
	if snap["read_clock"] != 45 {
		t.Errorf("snapshot read_clock = %v, want 45", snap["read_clock"])
	}

	s.ClockSet = Clock{Value: 30}
	s.ReadClock = nil
	snap = s.Snapshot()
	if snap["clock"] != 30 {
		t.Errorf("snapshot clock = %v, want 30", snap["clock"])
	}
	if snap["read_clock"] != nil {
		t.Errorf("snapshot read_clock = %v, want nil", snap["read_clock"])
	}
}

func TestStringRendering(t *testing.T) {
	s := NewOperatingState()
	s.On = true
	s.Mode = ModeHeat
	s.Temperature = 22
	s.Plasma = true

	out := s.String()
	for _, want := range []string{"on: true", "mode: heat", "temp: 22C", "fan: auto", "plasma"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() = %q, missing %q", out, want)
		}
	}

	s.FanSpeed = 2
	if !strings.Contains(s.String(), "fan: 2") {
		t.Errorf("String() = %q, missing fan level", s.String())
	}
}
