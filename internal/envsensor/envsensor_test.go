package envsensor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"kagami-orb/internal/hal"
)

func init() {
	sleep = func(time.Duration) {}
}

// fakeSHT serves one canned 6-byte measurement frame.
type fakeSHT struct {
	frame   []byte
	gotCmd  byte
	failCmd bool
}

func (f *fakeSHT) Tx(w, r []byte) error {
	if len(w) > 0 {
		if f.failCmd {
			return fmt.Errorf("nak")
		}
		f.gotCmd = w[0]
		return nil
	}
	copy(r, f.frame)
	return nil
}

func frame(rawT, rawH uint16) []byte {
	t := []byte{byte(rawT >> 8), byte(rawT)}
	h := []byte{byte(rawH >> 8), byte(rawH)}
	return []byte{t[0], t[1], crc8(t), h[0], h[1], crc8(h)}
}

func TestMeasureConversion(t *testing.T) {
	// rawT 26214 -> about 25 C, rawH 26214 -> about 44 %RH.
	dev := &fakeSHT{frame: frame(26214, 26214)}
	d := newWithIO(dev)

	tempC, err := d.ReadTemperature()
	if err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if tempC < 24.9 || tempC > 25.1 {
		t.Fatalf("temperature = %v", tempC)
	}
	if dev.gotCmd != cmdMeasureHigh {
		t.Fatalf("command = 0x%02X", dev.gotCmd)
	}

	hum, err := d.ReadHumidity()
	if err != nil {
		t.Fatalf("humidity: %v", err)
	}
	if hum < 43.9 || hum > 44.1 {
		t.Fatalf("humidity = %v", hum)
	}
}

func TestHumidityClamped(t *testing.T) {
	d := newWithIO(&fakeSHT{frame: frame(32768, 65535)})
	hum, err := d.ReadHumidity()
	if err != nil {
		t.Fatalf("humidity: %v", err)
	}
	if hum != 100 {
		t.Fatalf("humidity = %v, want clamp to 100", hum)
	}

	d = newWithIO(&fakeSHT{frame: frame(32768, 0)})
	hum, err = d.ReadHumidity()
	if err != nil {
		t.Fatalf("humidity: %v", err)
	}
	if hum != 0 {
		t.Fatalf("humidity = %v, want clamp to 0", hum)
	}
}

func TestBadCRCRejected(t *testing.T) {
	f := frame(26214, 26214)
	f[2] ^= 0xFF
	d := newWithIO(&fakeSHT{frame: f})

	if _, err := d.ReadTemperature(); !errors.Is(err, hal.ErrCommunication) {
		t.Fatalf("err = %v, want communication error", err)
	}
}

func TestCRCKnownVector(t *testing.T) {
	// Datasheet example: 0xBEEF -> 0x92.
	if got := crc8([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Fatalf("crc8(BEEF) = 0x%02X, want 0x92", got)
	}
}

func TestSimulationReadings(t *testing.T) {
	d := New(Config{Simulate: true})
	defer d.Close()

	if !d.Simulated() {
		t.Fatalf("expected simulated driver")
	}
	tempC, err := d.ReadTemperature()
	if err != nil || tempC < -40 || tempC > 85 {
		t.Fatalf("sim temperature = %v, %v", tempC, err)
	}
	hum, err := d.ReadHumidity()
	if err != nil || hum < 0 || hum > 100 {
		t.Fatalf("sim humidity = %v, %v", hum, err)
	}
}

func TestClosedDriverErrors(t *testing.T) {
	d := New(Config{Simulate: true})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := d.ReadTemperature(); !errors.Is(err, hal.ErrNotInitialized) {
		t.Fatalf("err = %v, want not initialized", err)
	}
}
