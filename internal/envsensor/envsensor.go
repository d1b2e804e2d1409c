// Package envsensor reads ambient temperature and humidity from an SHT45.
package envsensor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"kagami-orb/internal/hal"
)

var sleep = time.Sleep

const (
	addrSHT45 = 0x44

	// Single-shot measurement, high repeatability. The part needs ~8.3ms
	// before the result can be clocked out.
	cmdMeasureHigh = 0xFD
	measureDelay   = 10 * time.Millisecond
)

type txer interface {
	Tx(w, r []byte) error
}

var openBusFn = func(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return i2creg.Open(name)
}

type Config struct {
	Bus      string
	Simulate bool
}

type Driver struct {
	mu  sync.Mutex
	dev txer
	bus i2c.BusCloser

	simulated   bool
	initialized bool

	simTemp float64
	simHum  float64
}

// New opens the sensor, degrading to fixed simulated readings when the bus
// or part is absent.
func New(cfg Config) *Driver {
	d := &Driver{simTemp: 22.5, simHum: 45.0}

	if !cfg.Simulate {
		bus, err := openBusFn(cfg.Bus)
		if err == nil {
			d.bus = bus
			d.dev = &i2c.Dev{Bus: bus, Addr: addrSHT45}
			if _, _, err := measure(d.dev); err == nil {
				d.initialized = true
				log.Printf("envsensor: sht45 on i2c bus=%q", cfg.Bus)
				return d
			}
			_ = bus.Close()
			d.bus = nil
			d.dev = nil
		}
		log.Printf("envsensor: no sht45 found, running in simulation mode")
	}

	d.simulated = true
	d.initialized = true
	return d
}

func newWithIO(dev txer) *Driver {
	return &Driver{dev: dev, initialized: true}
}

func (d *Driver) Simulated() bool   { return d.simulated }
func (d *Driver) Initialized() bool { return d.initialized }

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	d.initialized = false
	if d.bus != nil {
		err := d.bus.Close()
		d.bus = nil
		return err
	}
	return nil
}

// crc8 is the SHT4x checksum: polynomial 0x31, init 0xFF, over two bytes.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// measure runs one single-shot conversion and returns (tempC, humidity%).
func measure(dev txer) (float64, float64, error) {
	if err := dev.Tx([]byte{cmdMeasureHigh}, nil); err != nil {
		return 0, 0, fmt.Errorf("%w: measure cmd: %v", hal.ErrCommunication, err)
	}
	sleep(measureDelay)

	buf := make([]byte, 6)
	if err := dev.Tx(nil, buf); err != nil {
		return 0, 0, fmt.Errorf("%w: measure read: %v", hal.ErrCommunication, err)
	}
	if crc8(buf[0:2]) != buf[2] || crc8(buf[3:5]) != buf[5] {
		return 0, 0, fmt.Errorf("%w: sht45 crc mismatch", hal.ErrCommunication)
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])

	tempC := -45.0 + 175.0*float64(rawT)/65535.0
	hum := -6.0 + 125.0*float64(rawH)/65535.0
	if hum < 0 {
		hum = 0
	}
	if hum > 100 {
		hum = 100
	}
	return tempC, hum, nil
}

func (d *Driver) read() (float64, float64, error) {
	if !d.initialized {
		return 0, 0, hal.ErrNotInitialized
	}
	if d.simulated {
		return d.simTemp, d.simHum, nil
	}
	return measure(d.dev)
}

func (d *Driver) ReadTemperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, _, err := d.read()
	return t, err
}

func (d *Driver) ReadHumidity() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, h, err := d.read()
	return h, err
}
