package protocol

import "errors"

// Failure kinds for frame and pulse decoding. Every error returned by this
// package wraps exactly one of these, so callers can match with errors.Is.
var (
	ErrMalformedHeader   = errors.New("malformed frame header")
	ErrInvalidField      = errors.New("invalid field value")
	ErrInconsistentMode  = errors.New("mode codes disagree between bytes")
	ErrInconsistentState = errors.New("cross-field invariant violated")
	ErrBadMark           = errors.New("pulse mark outside tolerance")
	ErrBadTiming         = errors.New("pulse space outside tolerance")
	ErrChecksum          = errors.New("checksum mismatch")
	ErrRepeatMismatch    = errors.New("repeated frames differ")
	ErrNoHeaderFound     = errors.New("no header mark found")
	ErrNoValidFrame      = errors.New("no valid frame in transmission")
	ErrInvalidLength     = errors.New("invalid pulse train length")
)
