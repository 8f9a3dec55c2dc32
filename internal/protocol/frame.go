package protocol

import (
	"fmt"
	"time"
)

// Frame is one complete 18-byte control message.
type Frame [FrameLength]byte

// preamble is fixed across every message this unit produces.
var preamble = [5]byte{0x23, 0xCB, 0x26, 0x01, 0x00}

var modeCodes = map[Mode]byte{
	ModeAuto: 0x20,
	ModeHeat: 0x08,
	ModeDry:  0x10,
	ModeCool: 0x18,
}

// Byte 8 carries the mode a second time under a different coding; auto and
// cool share 0x06 there and are told apart by byte 6.
var modeCodes2 = map[Mode]byte{
	ModeAuto: 0x06,
	ModeHeat: 0x00,
	ModeDry:  0x02,
	ModeCool: 0x06,
}

var wideVaneCodes = map[WideVane]byte{
	WideVaneLeftEnd:  0x10,
	WideVaneLeft:     0x20,
	WideVaneMiddle:   0x30,
	WideVaneRight:    0x40,
	WideVaneRightEnd: 0x50,
	WideVaneSides:    0x80,
	WideVaneSwing:    0xC0,
}

var vaneCodes = map[Vane]byte{
	VaneUpEnd:   0x48,
	VaneUp:      0x50,
	VaneMiddle:  0x58,
	VaneDown:    0x60,
	VaneDownEnd: 0x68,
	VaneSwing:   0x78,
	VaneAuto:    0x40,
}

// now is a seam for tests; Encode resolves an auto clock through it.
var now = time.Now

// Checksum returns the unsigned 8-bit truncated sum of bytes 0..16.
func Checksum(f Frame) byte {
	var sum int
	for _, b := range f[:FrameLength-1] {
		sum += int(b)
	}
	return byte(sum)
}

// Encode produces the wire frame for the state. Out-of-range or
// inconsistent fields are contract violations and fail with an error;
// clamping is the job of the state mutators, never the encoder. The only
// normalizations applied here are the ones the remote itself performs:
// econo cool and long mode force the vane code to auto, and long mode
// suppresses the econo bit when both are set.
func Encode(s *OperatingState) (Frame, error) {
	var f Frame
	copy(f[:5], preamble[:])

	if s.On {
		f[5] = 0x20
	}

	mode, ok := modeCodes[s.Mode]
	if !ok {
		return Frame{}, fmt.Errorf("%w: mode %q", ErrInvalidField, s.Mode)
	}
	f[6] = mode
	if s.ISee {
		f[6] |= 0x40
	}

	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return Frame{}, fmt.Errorf("%w: temperature %d", ErrInvalidField, s.Temperature)
	}
	f[7] = byte(s.Temperature - MinTemperature)

	wide, ok := wideVaneCodes[s.WideVane]
	if !ok {
		return Frame{}, fmt.Errorf("%w: wide vane %q", ErrInvalidField, s.WideVane)
	}
	f[8] = modeCodes2[s.Mode] | wide

	if s.FanSpeed < 0 || s.FanSpeed > MaxFanSpeed {
		return Frame{}, fmt.Errorf("%w: fan speed %d", ErrInvalidField, s.FanSpeed)
	}
	if s.EconoCool && s.Mode != ModeCool {
		return Frame{}, fmt.Errorf("%w: econo cool with mode %q", ErrInconsistentState, s.Mode)
	}
	vane, ok := vaneCodes[s.Vane]
	if !ok {
		return Frame{}, fmt.Errorf("%w: vane %q", ErrInvalidField, s.Vane)
	}
	if s.EconoCool || s.LongMode {
		vane = vaneCodes[VaneAuto]
	}
	f[9] = byte(s.FanSpeed) | vane

	if s.ClockSet.Auto {
		t := now()
		f[10] = byte(t.Hour()*6 + t.Minute()/10)
	} else {
		if s.ClockSet.Value < 0 || s.ClockSet.Value > MaxClock {
			return Frame{}, fmt.Errorf("%w: clock %d", ErrInvalidField, s.ClockSet.Value)
		}
		f[10] = byte(s.ClockSet.Value)
	}

	if s.EndTime < 0 || s.EndTime > MaxClock {
		return Frame{}, fmt.Errorf("%w: end time %d", ErrInvalidField, s.EndTime)
	}
	f[11] = byte(s.EndTime)
	if s.StartTime < 0 || s.StartTime > MaxClock {
		return Frame{}, fmt.Errorf("%w: start time %d", ErrInvalidField, s.StartTime)
	}
	f[12] = byte(s.StartTime)

	// Byte 13 is where the remote reports the armed timer programs
	// (none=0x00, start=0x05, end=0x03, startend=0x07), but this codec has
	// never reconstructed it on send: the unit accepts 0x00 regardless.
	// Apply still parses it. Known round-trip asymmetry.
	f[13] = 0x00

	if s.EconoCool && !s.LongMode {
		f[14] = 0x20
	}
	if s.CleanMode {
		f[14] |= 0x04
	}

	if s.LongMode {
		f[15] = 0x10
	}
	if s.Plasma {
		f[15] |= 0x04
	}

	f[16] = 0x00
	f[17] = Checksum(f)
	return f, nil
}

// FrameFromInts builds a Frame from a raw 18-integer sequence, as delivered
// by the inbound update API.
func FrameFromInts(values []int) (Frame, error) {
	if len(values) != FrameLength {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(values))
	}
	var f Frame
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return Frame{}, fmt.Errorf("%w: byte %d is %d", ErrInvalidField, i, v)
		}
		f[i] = byte(v)
	}
	return f, nil
}

// Apply validates the frame and commits its settings to the state. It is
// all-or-nothing: on any error the state is untouched. The observed clock
// lands in ReadClock; ClockSet is never overwritten by a read.
func Apply(f Frame, s *OperatingState) error {
	if got := Checksum(f); f[17] != got {
		return fmt.Errorf("%w: byte 17 is 0x%02X, sum is 0x%02X", ErrChecksum, f[17], got)
	}
	if [5]byte(f[0:5]) != preamble {
		return fmt.Errorf("%w: preamble % X", ErrMalformedHeader, f[0:5])
	}

	var on bool
	switch f[5] {
	case 0x20:
		on = true
	case 0x00:
	default:
		return fmt.Errorf("%w: byte 5 is 0x%02X", ErrInvalidField, f[5])
	}

	if f[6]&^0x78 != 0 {
		return fmt.Errorf("%w: byte 6 reserved bits set in 0x%02X", ErrInvalidField, f[6])
	}
	isee := f[6]&0x40 != 0
	var mode Mode
	switch f[6] & 0x38 {
	case 0x20:
		mode = ModeAuto
	case 0x08:
		mode = ModeHeat
	case 0x10:
		mode = ModeDry
	case 0x18:
		mode = ModeCool
	default:
		return fmt.Errorf("%w: mode code 0x%02X", ErrInvalidField, f[6]&0x38)
	}

	if f[7]&0xF0 != 0 {
		return fmt.Errorf("%w: byte 7 upper nibble set in 0x%02X", ErrInvalidField, f[7])
	}
	temp := int(f[7]) + MinTemperature

	if f[8]&0x08 != 0 {
		return fmt.Errorf("%w: byte 8 reserved bit set in 0x%02X", ErrInvalidField, f[8])
	}
	var wide WideVane
	switch f[8] & 0xF0 {
	case 0x10:
		wide = WideVaneLeftEnd
	case 0x20:
		wide = WideVaneLeft
	case 0x30:
		wide = WideVaneMiddle
	case 0x40:
		wide = WideVaneRight
	case 0x50:
		wide = WideVaneRightEnd
	case 0x80:
		wide = WideVaneSides
	case 0xC0:
		wide = WideVaneSwing
	default:
		return fmt.Errorf("%w: wide vane code 0x%02X", ErrInvalidField, f[8]&0xF0)
	}
	switch f[8] & 0x07 {
	case 0x00:
		if mode != ModeHeat {
			return fmt.Errorf("%w: byte 8 says heat, byte 6 says %s", ErrInconsistentMode, mode)
		}
	case 0x02:
		if mode != ModeDry {
			return fmt.Errorf("%w: byte 8 says dry, byte 6 says %s", ErrInconsistentMode, mode)
		}
	case 0x06:
		// Auto and cool share this code.
		if mode != ModeAuto && mode != ModeCool {
			return fmt.Errorf("%w: byte 8 says auto/cool, byte 6 says %s", ErrInconsistentMode, mode)
		}
	default:
		return fmt.Errorf("%w: byte 8 mode code 0x%02X", ErrInvalidField, f[8]&0x07)
	}

	fan := int(f[9] & 0x07)
	if fan > MaxFanSpeed {
		return fmt.Errorf("%w: fan speed %d", ErrInvalidField, fan)
	}
	var vane Vane
	switch f[9] & 0x78 {
	case 0x48:
		vane = VaneUpEnd
	case 0x50:
		vane = VaneUp
	case 0x58:
		vane = VaneMiddle
	case 0x60:
		vane = VaneDown
	case 0x68:
		vane = VaneDownEnd
	case 0x78:
		vane = VaneSwing
	case 0x00, 0x40:
		// The remote emits both codes for auto depending on edit history,
		// though it only ever transmits 0x40 from a fresh state. Accept
		// either.
		vane = VaneAuto
	default:
		return fmt.Errorf("%w: vane code 0x%02X", ErrInvalidField, f[9]&0x78)
	}

	readClock := int(f[10])
	if readClock > MaxClock {
		return fmt.Errorf("%w: clock %d", ErrInvalidField, readClock)
	}
	endTime := int(f[11])
	if endTime > MaxClock {
		return fmt.Errorf("%w: end time %d", ErrInvalidField, endTime)
	}
	startTime := int(f[12])
	if startTime > MaxClock {
		return fmt.Errorf("%w: start time %d", ErrInvalidField, startTime)
	}

	var prog TimerProgram
	switch f[13] {
	case 0x00:
		prog = TimerNone
	case 0x05:
		prog = TimerStart
	case 0x03:
		prog = TimerEnd
	case 0x07:
		prog = TimerStartEnd
	default:
		return fmt.Errorf("%w: timer program code 0x%02X", ErrInvalidField, f[13])
	}

	if f[14]&^0x24 != 0 {
		return fmt.Errorf("%w: byte 14 reserved bits set in 0x%02X", ErrInvalidField, f[14])
	}
	econo := f[14]&0x20 != 0
	clean := f[14]&0x04 != 0
	if econo {
		if mode != ModeCool {
			return fmt.Errorf("%w: econo cool with mode %s", ErrInconsistentState, mode)
		}
		if vane != VaneAuto {
			return fmt.Errorf("%w: econo cool with vane %s", ErrInconsistentState, vane)
		}
	}

	// 0x08 is the install-position bit on other models; tolerated, ignored.
	if f[15]&^0x1C != 0 {
		return fmt.Errorf("%w: byte 15 reserved bits set in 0x%02X", ErrInvalidField, f[15])
	}
	plasma := f[15]&0x04 != 0
	long := f[15]&0x10 != 0
	if long && vane != VaneAuto {
		return fmt.Errorf("%w: long mode with vane %s", ErrInconsistentState, vane)
	}

	if f[16] != 0 {
		return fmt.Errorf("%w: byte 16 is 0x%02X", ErrInvalidField, f[16])
	}

	s.On = on
	s.Mode = mode
	s.ISee = isee
	s.Temperature = temp
	s.WideVane = wide
	s.FanSpeed = fan
	s.Vane = vane
	rc := readClock
	s.ReadClock = &rc
	s.EndTime = endTime
	s.StartTime = startTime
	s.Program = prog
	s.EconoCool = econo
	s.CleanMode = clean
	s.Plasma = plasma
	s.LongMode = long
	return nil
}
