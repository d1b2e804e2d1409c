package hal

import (
	"errors"
	"fmt"
)

// Driver is the lifecycle contract every hardware driver implements.
//
// Close must be idempotent: releasing an already-released or never-opened
// driver is a no-op.
type Driver interface {
	// Simulated reports whether the driver runs against a deterministic
	// simulated transport instead of real hardware.
	Simulated() bool
	Initialized() bool
	Close() error
}

// Capability is a named feature tag a platform may expose.
type Capability string

const (
	CapLEDRing     Capability = "led_ring"
	CapBattery     Capability = "battery"
	CapCharging    Capability = "charging"
	CapIMU         Capability = "imu"
	CapToF         Capability = "tof"
	CapTemperature Capability = "temperature"
	CapHumidity    Capability = "humidity"
	CapNPU         Capability = "npu"
	CapCellular    Capability = "cellular"
	CapGNSS        Capability = "gnss"
	CapWiFi        Capability = "wifi"
	CapBluetooth   Capability = "bluetooth"
	CapAudioIn     Capability = "audio_in"
	CapAudioOut    Capability = "audio_out"
	CapCamera      Capability = "camera"
)

func allCapabilities() []Capability {
	return []Capability{
		CapLEDRing, CapBattery, CapCharging, CapIMU, CapToF,
		CapTemperature, CapHumidity, CapNPU, CapCellular, CapGNSS,
		CapWiFi, CapBluetooth, CapAudioIn, CapAudioOut, CapCamera,
	}
}

// Capabilities is an immutable manifest of what a platform can do.
// Callers consult it at startup to skip unavailable subsystems instead of
// probing hardware.
type Capabilities struct {
	Platform string
	caps     map[Capability]struct{}
}

func NewCapabilities(platform string, caps ...Capability) Capabilities {
	m := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		m[c] = struct{}{}
	}
	return Capabilities{Platform: platform, caps: m}
}

// QCS6490 is the manifest for the production SoM.
func QCS6490() Capabilities {
	return NewCapabilities("QCS6490", allCapabilities()...)
}

// Simulation reports the full capability set so every subsystem can be
// exercised without hardware.
func Simulation() Capabilities {
	return NewCapabilities("Simulation", allCapabilities()...)
}

func (c Capabilities) Has(cap Capability) bool {
	_, ok := c.caps[cap]
	return ok
}

func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c.caps))
	for _, want := range allCapabilities() {
		if _, ok := c.caps[want]; ok {
			out = append(out, want)
		}
	}
	return out
}

// ErrHAL is the common base of the HAL error taxonomy. Callers can match the
// whole family with errors.Is(err, ErrHAL) or a specific member.
var (
	ErrHAL            = errors.New("hal error")
	ErrNotInitialized = fmt.Errorf("%w: not initialized", ErrHAL)
	ErrNotAvailable   = fmt.Errorf("%w: hardware not available", ErrHAL)
	ErrCommunication  = fmt.Errorf("%w: communication failure", ErrHAL)
	ErrTimeout        = fmt.Errorf("%w: timeout", ErrHAL)
)
