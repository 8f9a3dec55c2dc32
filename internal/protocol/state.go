// Package protocol implements the IR control protocol of the Mitsubishi
// MSZ-GA60VA heat pump: the operating-state model, the 18-byte frame codec
// and the mark/space pulse codec used against a lirc transceiver.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Field ranges for the MSZ-GA60VA.
const (
	MinTemperature = 16
	MaxTemperature = 31
	MaxFanSpeed    = 3

	// MaxClock is the last 10-minute increment of the day (23:50).
	MaxClock = 143
)

// Mode is the primary HVAC operating mode.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeHeat Mode = "heat"
	ModeDry  Mode = "dry"
	ModeCool Mode = "cool"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAuto, ModeHeat, ModeDry, ModeCool:
		return true
	default:
		return false
	}
}

// WideVane is the horizontal vane position.
type WideVane string

const (
	WideVaneLeftEnd  WideVane = "leftend"
	WideVaneLeft     WideVane = "left"
	WideVaneMiddle   WideVane = "middle"
	WideVaneRight    WideVane = "right"
	WideVaneRightEnd WideVane = "rightend"
	WideVaneSides    WideVane = "sides"
	WideVaneSwing    WideVane = "swing"
)

func (w WideVane) Valid() bool {
	switch w {
	case WideVaneLeftEnd, WideVaneLeft, WideVaneMiddle, WideVaneRight,
		WideVaneRightEnd, WideVaneSides, WideVaneSwing:
		return true
	default:
		return false
	}
}

// Vane is the vertical vane position.
type Vane string

const (
	VaneUpEnd   Vane = "upend"
	VaneUp      Vane = "up"
	VaneMiddle  Vane = "middle"
	VaneDown    Vane = "down"
	VaneDownEnd Vane = "downend"
	VaneSwing   Vane = "swing"
	VaneAuto    Vane = "auto"
)

func (v Vane) Valid() bool {
	switch v {
	case VaneUpEnd, VaneUp, VaneMiddle, VaneDown, VaneDownEnd, VaneSwing, VaneAuto:
		return true
	default:
		return false
	}
}

// TimerProgram says which programmed timers are armed.
type TimerProgram string

const (
	TimerNone     TimerProgram = "none"
	TimerStart    TimerProgram = "start"
	TimerEnd      TimerProgram = "end"
	TimerStartEnd TimerProgram = "startend"
)

func (p TimerProgram) Valid() bool {
	switch p {
	case TimerNone, TimerStart, TimerEnd, TimerStartEnd:
		return true
	default:
		return false
	}
}

// Clock is a wall-clock setting: either "fill in the current time at encode
// time" (Auto) or an explicit count of 10-minute increments since midnight.
// It serializes as the string "auto" or a bare integer.
type Clock struct {
	Auto  bool
	Value int // 0..MaxClock, meaningful when !Auto
}

func (c Clock) MarshalJSON() ([]byte, error) {
	if c.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(c.Value)
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "auto" {
			return fmt.Errorf("%w: clock %q", ErrInvalidField, s)
		}
		*c = Clock{Auto: true}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: clock must be \"auto\" or an integer", ErrInvalidField)
	}
	if v < 0 || v > MaxClock {
		return fmt.Errorf("%w: clock %d out of range", ErrInvalidField, v)
	}
	*c = Clock{Value: v}
	return nil
}

// OperatingState is the believed-current configuration of one heat pump.
// One instance per managed unit; inbound frames mutate it only through
// Apply, which keeps the decoded clock in ReadClock so a pending ClockSet
// write is never clobbered by a read.
type OperatingState struct {
	On          bool         `json:"on"`
	Mode        Mode         `json:"hvac_mode"`
	ISee        bool         `json:"isee"` // MSZ-FD25 only, decoded but unused here
	Temperature int          `json:"temp"` // degrees C, MinTemperature..MaxTemperature
	WideVane    WideVane     `json:"wide_vane"`
	FanSpeed    int          `json:"fan_speed"` // 0..MaxFanSpeed, 0 is auto
	Vane        Vane         `json:"vane"`
	ClockSet    Clock        `json:"clock"`
	ReadClock   *int         `json:"read_clock"` // last clock observed in an inbound frame
	EndTime     int          `json:"end_time"`   // 10-minute increments
	StartTime   int          `json:"start_time"` // 10-minute increments
	Program     TimerProgram `json:"prog"`
	EconoCool   bool         `json:"econo_cool"` // only legal in cool mode, forces auto vane
	CleanMode   bool         `json:"clean_mode"`
	Plasma      bool         `json:"plasma"`
	LongMode    bool         `json:"long_mode"` // forces auto vane, beats econo cool on encode
}

// NewOperatingState returns the power-on defaults: off, auto mode, 20C,
// middle wide vane, auto fan, auto vane, auto clock, no timers.
func NewOperatingState() *OperatingState {
	return &OperatingState{
		Mode:        ModeAuto,
		Temperature: 20,
		WideVane:    WideVaneMiddle,
		Vane:        VaneAuto,
		ClockSet:    Clock{Auto: true},
		Program:     TimerNone,
	}
}

// SetTemperature sets the target temperature, truncating toward zero and
// clamping into the unit's supported range.
func (s *OperatingState) SetTemperature(temp float64) {
	t := int(temp)
	if t > MaxTemperature {
		t = MaxTemperature
	}
	if t < MinTemperature {
		t = MinTemperature
	}
	s.Temperature = t
}

// SetFanSpeed accepts the literal "auto" or an integer 0..MaxFanSpeed;
// 0 means auto.
func (s *OperatingState) SetFanSpeed(fan any) error {
	switch v := fan.(type) {
	case string:
		if v != "auto" {
			return fmt.Errorf("%w: fan speed %q", ErrInvalidField, v)
		}
		s.FanSpeed = 0
	case int:
		if v < 0 || v > MaxFanSpeed {
			return fmt.Errorf("%w: fan speed %d out of range", ErrInvalidField, v)
		}
		s.FanSpeed = v
	case float64:
		// JSON numbers arrive as float64.
		return s.SetFanSpeed(int(v))
	default:
		return fmt.Errorf("%w: fan speed must be \"auto\" or an integer", ErrInvalidField)
	}
	return nil
}
