package protocol

import "fmt"

// Pulses is a mark/space timing sequence in microseconds, alternating and
// odd in length, as read from or written to the transceiver.
type Pulses []uint32

// within reports whether an observed duration matches an expected protocol
// constant inside the tolerance window.
func within(observed uint32, expected, tol int) bool {
	d := int(observed) - expected
	if d < 0 {
		d = -d
	}
	return d < tol
}

// EncodePulses renders the frame as a transmission-ready pulse train. The
// whole header+data unit is emitted twice: receivers routinely miss the
// first pass, and the duplicate is free redundancy. Bits go out least
// significant first within each byte.
func EncodePulses(f Frame) Pulses {
	p := make(Pulses, 0, DoublePulseCount)
	for i := 0; i < 2; i++ {
		p = append(p, hdrMark, hdrSpace)
		for _, b := range f {
			for shift := 0; shift < 8; shift++ {
				p = append(p, bitMark)
				if b&(1<<shift) == 0 {
					p = append(p, zeroSpace)
				} else {
					p = append(p, oneSpace)
				}
			}
		}
		p = append(p, rptMark)
		if i == 0 {
			p = append(p, rptSpace)
		}
	}
	return p
}

// DecodePulses recovers a frame from raw receiver timings. tol is the
// per-duration tolerance; header marks, repeat marks and the inter-frame
// gap get twice that, since receivers smear long durations the most.
//
// A doubled transmission is accepted when either half decodes; when both
// decode they must agree byte for byte. Any other length of at least one
// single unit triggers a header search.
func DecodePulses(pulses Pulses, tol int) (Frame, error) {
	switch {
	case len(pulses) == DoublePulseCount:
		return reconcile(pulses, tol)
	case len(pulses) == SinglePulseCount:
		return decodeSingle(pulses, tol)
	case len(pulses) > SinglePulseCount:
		return searchHeader(pulses, tol)
	default:
		return Frame{}, fmt.Errorf("%w: %d pulses", ErrInvalidLength, len(pulses))
	}
}

// reconcile decodes both halves of a doubled transmission independently and
// combines the outcomes. Structural failures inside one half are expected
// reception noise and only fatal when both halves fail; a disagreement
// between two clean halves is not recoverable.
func reconcile(pulses Pulses, tol int) (Frame, error) {
	if !within(pulses[SinglePulseCount], rptSpace, tol*2) {
		return Frame{}, fmt.Errorf("%w: inter-frame gap %dus", ErrBadTiming, pulses[SinglePulseCount])
	}
	first, errFirst := decodeSingle(pulses[:SinglePulseCount], tol)
	second, errSecond := decodeSingle(pulses[SinglePulseCount+1:], tol)
	switch {
	case errFirst == nil && errSecond == nil:
		if first != second {
			return Frame{}, fmt.Errorf("%w: % X vs % X", ErrRepeatMismatch, first[:], second[:])
		}
		return first, nil
	case errFirst == nil:
		return first, nil
	case errSecond == nil:
		return second, nil
	default:
		return Frame{}, fmt.Errorf("%w: first half: %v; second half: %v", ErrNoValidFrame, errFirst, errSecond)
	}
}

func decodeSingle(pulses Pulses, tol int) (Frame, error) {
	if !within(pulses[0], hdrMark, tol*2) || !within(pulses[1], hdrSpace, tol*2) {
		return Frame{}, fmt.Errorf("%w: header %dus/%dus", ErrMalformedHeader, pulses[0], pulses[1])
	}
	if !within(pulses[SinglePulseCount-1], rptMark, tol*2) {
		return Frame{}, fmt.Errorf("%w: trailing repeat mark %dus", ErrBadTiming, pulses[SinglePulseCount-1])
	}
	return decodeBits(pulses[2:SinglePulseCount-1], tol)
}

// searchHeader scans for a plausible header mark and attempts a single-unit
// decode from each candidate offset, returning the first that succeeds.
func searchHeader(pulses Pulses, tol int) (Frame, error) {
	for i := 0; i+SinglePulseCount <= len(pulses); i++ {
		if !within(pulses[i], hdrMark, tol*2) {
			continue
		}
		f, err := decodeSingle(pulses[i:i+SinglePulseCount], tol)
		if err == nil {
			return f, nil
		}
	}
	return Frame{}, fmt.Errorf("%w: scanned %d offsets", ErrNoHeaderFound, len(pulses)-SinglePulseCount+1)
}

// decodeBits turns 144 mark/space pairs into 18 bytes and verifies the
// checksum. An ambiguous or out-of-tolerance space is a hard failure, never
// a best guess.
func decodeBits(pulses Pulses, tol int) (Frame, error) {
	var f Frame
	for bit := 0; bit < FrameLength*8; bit++ {
		mark, space := pulses[bit*2], pulses[bit*2+1]
		if !within(mark, bitMark, tol) {
			return Frame{}, fmt.Errorf("%w: bit %d mark %dus", ErrBadMark, bit, mark)
		}
		switch {
		case within(space, zeroSpace, tol):
		case within(space, oneSpace, tol):
			f[bit/8] |= 1 << (bit % 8)
		default:
			return Frame{}, fmt.Errorf("%w: bit %d space %dus", ErrBadTiming, bit, space)
		}
	}
	if got := Checksum(f); f[17] != got {
		return Frame{}, fmt.Errorf("%w: byte 17 is 0x%02X, sum is 0x%02X", ErrChecksum, f[17], got)
	}
	return f, nil
}
