// Package lirc talks to a raw lirc character device in MODE2: four-byte
// timing samples in, packed pulse trains out. It knows nothing about the
// heat pump protocol.
package lirc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

// sampleMask strips the lirc mode bits, leaving the 24-bit duration.
const sampleMask = 0x00FFFFFF

type Device struct {
	f *os.File
}

func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open lirc device %s: %w", path, err)
	}
	return &Device{f: f}, nil
}

// ReadSample blocks until the device delivers one timing sample and returns
// its duration in microseconds.
func (d *Device) ReadSample() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.f, buf[:]); err != nil {
		return 0, err
	}
	// lirc samples are host-endian; this runs on little-endian boards.
	return binary.LittleEndian.Uint32(buf[:]) & sampleMask, nil
}

// Send writes a pulse train to the device verbatim.
func (d *Device) Send(p protocol.Pulses) error {
	buf := make([]byte, 4*len(p))
	for i, v := range p {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	if _, err := d.f.Write(buf); err != nil {
		return fmt.Errorf("failed to write pulse train: %w", err)
	}
	return nil
}

func (d *Device) Close() error {
	return d.f.Close()
}
