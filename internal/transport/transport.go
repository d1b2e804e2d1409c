// Package transport provides the byte-stream channel drivers talk through.
//
// A Port is a plain io.ReadWriteCloser so protocol state machines are written
// once and run unchanged against real serial hardware or a deterministic
// simulated backend.
package transport

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacobsa/go-serial/serial"
)

type Port = io.ReadWriteCloser

// openSerialFn is swappable in tests.
var openSerialFn = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	return serial.Open(opts)
}

// OpenSerial opens device at baud in raw 8N1 mode.
//
// Reads are bounded: with MinimumReadSize=0 the port returns after the
// inter-character timeout even when no data arrived, so callers can enforce
// their own deadlines without blocking forever.
func OpenSerial(device string, baud int) (Port, error) {
	return openSerialFn(serial.OpenOptions{
		PortName:              device,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	})
}

// FindDevice locates a serial device by descriptor keyword, then by
// conventional path.
//
// /dev/serial/by-id entries carry the USB product description in their name,
// which is the closest portable equivalent of a port-description scan.
// Returns "" when nothing matches.
func FindDevice(keywords []string, fallbacks []string) string {
	entries, err := os.ReadDir("/dev/serial/by-id")
	if err == nil {
		for _, e := range entries {
			name := strings.ToLower(e.Name())
			for _, kw := range keywords {
				if strings.Contains(name, strings.ToLower(kw)) {
					return filepath.Join("/dev/serial/by-id", e.Name())
				}
			}
		}
	}
	for _, p := range fallbacks {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
