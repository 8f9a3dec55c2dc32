package protocol

// IR timing constants in microseconds, as lirc reports them. Based on the
// analysir Mitsubishi protocol notes, adjusted for the MSZ-GA60VA.
const (
	hdrMark   = 3400
	hdrSpace  = 1750
	bitMark   = 450
	oneSpace  = 1300
	zeroSpace = 420
	rptMark   = 440
	rptSpace  = 17100
)

// DefaultTolerance is the allowed deviation in microseconds when matching an
// observed duration against a protocol constant. Keeping it high works best
// with real receivers; the ~880us gap between the one and zero spaces still
// separates cleanly at twice this value.
const DefaultTolerance = 300

const (
	// FrameLength is the size of one control message in bytes.
	FrameLength = 18

	// SinglePulseCount is one header pair, 144 bit pairs and the trailing
	// repeat mark.
	SinglePulseCount = 291

	// DoublePulseCount is a full transmission: two single units separated by
	// a repeat space.
	DoublePulseCount = 583
)
