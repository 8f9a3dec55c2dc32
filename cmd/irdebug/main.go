// irdebug is a bench tool: point it at a lirc device, press buttons on the
// remote, and it prints each captured transmission with a decode verdict.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/thatsimonsguy/heatpump-ir/internal/lirc"
	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

const maxSample = 1_000_000

var (
	good = color.New(color.FgGreen).SprintfFunc()
	bad  = color.New(color.FgRed).SprintfFunc()
)

func main() {
	var devicePath string
	var tolerance, idleMS int
	flag.StringVar(&devicePath, "device", "/dev/lirc0", "Path to the lirc character device")
	flag.IntVar(&tolerance, "tolerance", protocol.DefaultTolerance, "Pulse timing tolerance in microseconds")
	flag.IntVar(&idleMS, "idle", 100, "Idle window in milliseconds before a partial capture is reported")
	flag.Parse()

	dev, err := lirc.Open(devicePath)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", devicePath, err)
		os.Exit(1)
	}
	defer dev.Close()

	fmt.Printf("Listening on %s (tolerance %dus, idle %dms). Press remote buttons; Ctrl-C to quit.\n",
		devicePath, tolerance, idleMS)

	samples := make(chan uint32)
	readErr := make(chan error, 1)
	go func() {
		for {
			v, err := dev.ReadSample()
			if err != nil {
				readErr <- err
				return
			}
			samples <- v
		}
	}()

	idle := time.Duration(idleMS) * time.Millisecond
	var window protocol.Pulses
	timer := time.NewTimer(idle)

	for {
		select {
		case err := <-readErr:
			fmt.Printf("Read failed: %v\n", err)
			os.Exit(1)
		case v := <-samples:
			if v > maxSample {
				continue
			}
			window = append(window, v)
			if len(window) == protocol.DoublePulseCount {
				report(window, tolerance)
				window = nil
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		case <-timer.C:
			if len(window) > 0 {
				report(window, tolerance)
			}
			window = nil
			timer.Reset(idle)
		}
	}
}

func report(window protocol.Pulses, tolerance int) {
	fmt.Printf("\n--- capture: %d samples ---\n", len(window))

	frame, err := protocol.DecodePulses(window, tolerance)
	if err != nil {
		fmt.Println(bad("decode failed: %v", err))
		return
	}
	fmt.Println(good("decoded frame: % X", frame[:]))

	st := protocol.NewOperatingState()
	if err := protocol.Apply(frame, st); err != nil {
		fmt.Println(bad("frame rejected: %v", err))
		return
	}
	fmt.Println(good("state: %s", st.String()))
}
