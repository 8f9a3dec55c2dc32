package protocol

import (
	"fmt"
	"strings"
)

// FormatTime renders a 10-minute-increment clock value as H:MM.
func FormatTime(value int) string {
	return fmt.Sprintf("%d:%02d", value/6, value%6*10)
}

func (c Clock) String() string {
	if c.Auto {
		return "auto"
	}
	return FormatTime(c.Value)
}

// String renders the state on a single line, for logs and the debug CLI.
func (s *OperatingState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "on: %v  mode: %s  temp: %dC  wide vane: %s", s.On, s.Mode, s.Temperature, s.WideVane)
	if s.FanSpeed == 0 {
		b.WriteString("  fan: auto")
	} else {
		fmt.Fprintf(&b, "  fan: %d", s.FanSpeed)
	}
	fmt.Fprintf(&b, "  vane: %s  clock: %s", s.Vane, s.ClockSet)
	if s.ReadClock != nil {
		fmt.Fprintf(&b, " [%s]", FormatTime(*s.ReadClock))
	}
	fmt.Fprintf(&b, "  start: %s  end: %s  timers: %s",
		FormatTime(s.StartTime), FormatTime(s.EndTime), s.Program)

	var modes []string
	if s.EconoCool {
		modes = append(modes, "econo cool")
	}
	if s.CleanMode {
		modes = append(modes, "clean")
	}
	if s.Plasma {
		modes = append(modes, "plasma")
	}
	if s.LongMode {
		modes = append(modes, "long")
	}
	if s.ISee {
		modes = append(modes, "i-see")
	}
	fmt.Fprintf(&b, "  modes: [%s]", strings.Join(modes, ","))
	return b.String()
}

// Snapshot returns a flat field-to-primitive mapping of the state for
// external serialization.
func (s *OperatingState) Snapshot() map[string]any {
	var clock any = s.ClockSet.Value
	if s.ClockSet.Auto {
		clock = "auto"
	}
	var readClock any
	if s.ReadClock != nil {
		readClock = *s.ReadClock
	}
	return map[string]any{
		"on":         s.On,
		"hvac_mode":  string(s.Mode),
		"isee":       s.ISee,
		"temp":       s.Temperature,
		"wide_vane":  string(s.WideVane),
		"fan_speed":  s.FanSpeed,
		"vane":       string(s.Vane),
		"clock":      clock,
		"read_clock": readClock,
		"end_time":   s.EndTime,
		"start_time": s.StartTime,
		"prog":       string(s.Program),
		"econo_cool": s.EconoCool,
		"clean_mode": s.CleanMode,
		"plasma":     s.Plasma,
		"long_mode":  s.LongMode,
	}
}
