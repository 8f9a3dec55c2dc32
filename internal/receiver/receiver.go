// Package receiver frames the transceiver's sample stream into candidate
// pulse trains and decodes them opportunistically. A failed decode of a
// noisy window is an expected, non-fatal event.
package receiver

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/heatpump-ir/internal/datadog"
	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

// SampleSource yields discrete timing samples, typically a lirc device.
type SampleSource interface {
	ReadSample() (uint32, error)
}

// maxSample discards inter-transmission gaps and receiver noise before they
// reach the decoder.
const maxSample = 1_000_000

type Receiver struct {
	src     SampleSource
	idle    time.Duration
	tol     int
	onFrame func(protocol.Frame)
}

// New builds a receiver that calls onFrame for every successfully decoded
// inbound frame. idle is the no-sample window after which an accumulated
// partial transmission is flushed to the decoder.
func New(src SampleSource, idle time.Duration, onFrame func(protocol.Frame)) *Receiver {
	return &Receiver{
		src:     src,
		idle:    idle,
		tol:     protocol.DefaultTolerance,
		onFrame: onFrame,
	}
}

// Run consumes samples until the source fails or stop is closed. The window
// is flushed immediately when a full double transmission has accumulated,
// or on idle timeout once at least one single unit is buffered.
func (r *Receiver) Run(stop <-chan struct{}) error {
	samples := make(chan uint32)
	readErr := make(chan error, 1)
	go func() {
		for {
			v, err := r.src.ReadSample()
			if err != nil {
				readErr <- err
				return
			}
			samples <- v
		}
	}()

	var window protocol.Pulses
	timer := time.NewTimer(r.idle)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return nil
		case err := <-readErr:
			return err
		case v := <-samples:
			if v > maxSample {
				continue
			}
			window = append(window, v)
			if len(window) == protocol.DoublePulseCount {
				r.flush(window)
				window = nil
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.idle)
		case <-timer.C:
			if len(window) >= protocol.SinglePulseCount {
				r.flush(window)
			}
			window = nil
			timer.Reset(r.idle)
		}
	}
}

func (r *Receiver) flush(window protocol.Pulses) {
	datadog.Gauge("receiver.window_samples", float64(len(window)))

	frame, err := protocol.DecodePulses(window, r.tol)
	if err != nil {
		datadog.Count("receiver.decode_failures", 1)
		log.Debug().Err(err).Int("samples", len(window)).Msg("Discarding undecodable sample window")
		return
	}

	datadog.Count("receiver.frames_decoded", 1)
	log.Info().Str("frame", fmt.Sprintf("% X", frame[:])).Msg("Decoded inbound frame")
	r.onFrame(frame)
}
