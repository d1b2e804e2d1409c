// Package gnss drives an NMEA-0183 GNSS receiver over a serial transport and
// layers geofencing on top of the decoded fix.
package gnss

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"kagami-orb/internal/hal"
	"kagami-orb/internal/nmea"
	"kagami-orb/internal/transport"
)

// sentencesPerRead bounds how many lines one ReadPosition call consumes.
const sentencesPerRead = 10

var detectDeviceFn = func() string {
	return transport.FindDevice(
		[]string{"gps", "gnss", "u-blox", "nmea"},
		[]string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyAMA0"},
	)
}

var openSerialFn = transport.OpenSerial

type Config struct {
	// Device is the serial device path; auto-detected when empty.
	Device string
	// Baud defaults to 9600.
	Baud int
	// ReadTimeout bounds each line read. Defaults to 1s.
	ReadTimeout time.Duration
	Simulate    bool
}

// Geofence is a named circular region checked against every valid fix.
//
// By default the callback fires only on enter/exit transitions. Set
// LevelTriggered to be called on every valid fix instead.
type Geofence struct {
	Name      string
	Latitude  float64
	Longitude float64
	RadiusM   float64

	LevelTriggered bool
	Callback       func(name string, inside bool)
}

type fenceState struct {
	fence      Geofence
	lastInside *bool
}

type Driver struct {
	cfg Config

	port transport.Port
	lr   *transport.LineReader
	dec  *nmea.Decoder

	simulated   bool
	initialized bool

	mu     sync.Mutex
	fences map[string]*fenceState

	posCb func(nmea.Position)
}

// New opens the receiver. Missing hardware is not fatal: the driver degrades
// into simulation mode with a logged warning so the system always starts.
func New(cfg Config) *Driver {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}

	d := &Driver{
		cfg:    cfg,
		dec:    nmea.NewDecoder(),
		fences: make(map[string]*fenceState),
	}

	if !cfg.Simulate {
		device := cfg.Device
		if device == "" {
			device = detectDeviceFn()
		}
		if device == "" {
			log.Printf("gnss: no receiver found, running in simulation mode")
		} else {
			port, err := openSerialFn(device, cfg.Baud)
			if err != nil {
				log.Printf("gnss: open failed device=%s baud=%d: %v (simulating)", device, cfg.Baud, err)
			} else {
				log.Printf("gnss: receiver on device=%s baud=%d", device, cfg.Baud)
				d.port = port
				d.lr = transport.NewLineReader(port)
				d.initialized = true
				return d
			}
		}
	}

	d.simulated = true
	d.port = NewSimPort()
	d.lr = transport.NewLineReader(d.port)
	d.initialized = true
	return d
}

func (d *Driver) Simulated() bool   { return d.simulated }
func (d *Driver) Initialized() bool { return d.initialized }

// Close releases the transport. Safe to call repeatedly.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.initialized = false
	return err
}

// ReadPosition pulls a bounded burst of sentences, feeds the decoder, and
// returns the fused snapshot. nil before the first contributing sentence.
// Geofences are evaluated whenever the snapshot is a valid fix.
func (d *Driver) ReadPosition() (*nmea.Position, error) {
	d.mu.Lock()
	if !d.initialized {
		d.mu.Unlock()
		return nil, hal.ErrNotInitialized
	}

	for i := 0; i < sentencesPerRead; i++ {
		line, err := d.lr.ReadLine(time.Now().Add(d.cfg.ReadTimeout))
		if err != nil {
			// Timeouts just end the burst early; a parse decides the rest.
			break
		}
		d.dec.Parse(line)
	}

	pos, ok := d.dec.Position()
	var fired []func()
	if ok && pos.Valid() {
		fired = d.collectFenceEventsLocked(pos)
	}
	d.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the driver.
	for _, fn := range fired {
		fn()
	}
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (d *Driver) Satellites() []nmea.Satellite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dec.Satellites()
}

// SetPositionCallback installs the callback Track invokes per poll.
func (d *Driver) SetPositionCallback(cb func(nmea.Position)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posCb = cb
}

func (d *Driver) AddGeofence(g Geofence) error {
	if g.Name == "" {
		return fmt.Errorf("gnss: geofence name is required")
	}
	if g.RadiusM <= 0 {
		return fmt.Errorf("gnss: geofence radius must be > 0")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fences[g.Name] = &fenceState{fence: g}
	return nil
}

func (d *Driver) RemoveGeofence(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, name)
}

// InsideGeofence reads the current position and reports containment.
// hal.ErrNotAvailable covers both an unknown fence and the lack of a valid fix.
func (d *Driver) InsideGeofence(name string) (bool, error) {
	pos, err := d.ReadPosition()
	if err != nil {
		return false, err
	}
	if pos == nil || !pos.Valid() {
		return false, fmt.Errorf("no valid fix: %w", hal.ErrNotAvailable)
	}

	d.mu.Lock()
	st, ok := d.fences[name]
	d.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("unknown geofence %q: %w", name, hal.ErrNotAvailable)
	}
	return pos.DistanceTo(st.fence.Latitude, st.fence.Longitude) <= st.fence.RadiusM, nil
}

func (d *Driver) collectFenceEventsLocked(pos nmea.Position) []func() {
	var fired []func()
	for name, st := range d.fences {
		inside := pos.DistanceTo(st.fence.Latitude, st.fence.Longitude) <= st.fence.RadiusM

		fire := st.fence.LevelTriggered ||
			st.lastInside == nil || *st.lastInside != inside
		v := inside
		st.lastInside = &v

		if fire && st.fence.Callback != nil {
			name, inside, cb := name, inside, st.fence.Callback
			fired = append(fired, func() { cb(name, inside) })
		}
	}
	return fired
}

// Track polls the receiver at interval until ctx is done, invoking the
// position callback after each successful read.
func (d *Driver) Track(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		pos, err := d.ReadPosition()
		if err == nil && pos != nil {
			d.mu.Lock()
			cb := d.posCb
			d.mu.Unlock()
			if cb != nil {
				cb(*pos)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
