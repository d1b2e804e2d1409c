// Package power reads battery state from a BQ25895 charger and a BQ40Z50
// fuel gauge over I2C.
package power

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"kagami-orb/internal/hal"
)

const (
	chargerAddr = 0x6A // BQ25895
	gaugeAddr   = 0x0B // BQ40Z50, SBS smart battery

	// BQ25895 registers.
	regChargerStatus = 0x0B
	regBatV          = 0x0E

	// SBS word commands.
	cmdTemperature   = 0x08
	cmdVoltage       = 0x09
	cmdCurrent       = 0x0A
	cmdStateOfCharge = 0x0D
)

// txer is the slice of i2c.Dev the driver needs; fakes implement it in tests.
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
	// Bus is the periph.io I2C bus name, e.g. "/dev/i2c-1". Empty picks the
	// platform default.
	Bus      string
	Simulate bool
}

// ChargeState mirrors the BQ25895 CHRG_STAT field.
type ChargeState int

const (
	ChargeNone ChargeState = iota
	ChargePre
	ChargeFast
	ChargeDone
)

func (c ChargeState) String() string {
	switch c {
	case ChargeNone:
		return "not_charging"
	case ChargePre:
		return "pre_charge"
	case ChargeFast:
		return "fast_charge"
	case ChargeDone:
		return "done"
	default:
		return "unknown"
	}
}

// Status is one battery snapshot.
type Status struct {
	Percent      int         `json:"percent"`
	VoltageMV    int         `json:"voltage_mv"`
	CurrentMA    int         `json:"current_ma"`
	Charging     bool        `json:"charging"`
	ChargeState  ChargeState `json:"-"`
	TemperatureC float64     `json:"temperature_c"`
}

type Driver struct {
	mu sync.Mutex

	charger txer
	gauge   txer
	bus     i2c.BusCloser
	sim     *simBattery

	simulated   bool
	initialized bool
}

// New opens the charger and gauge. Missing hardware degrades to a simulated
// battery rather than failing.
func New(cfg Config) *Driver {
	d := &Driver{}

	if !cfg.Simulate {
		bus, err := openBusFn(cfg.Bus)
		if err == nil {
			d.bus = bus
			d.charger = &i2c.Dev{Bus: bus, Addr: chargerAddr}
			d.gauge = &i2c.Dev{Bus: bus, Addr: gaugeAddr}
			// Probe the gauge; a missing battery pack answers nothing.
			if _, err := readWord(d.gauge, cmdVoltage); err == nil {
				d.initialized = true
				log.Printf("power: charger+gauge on i2c bus=%q", cfg.Bus)
				return d
			}
			_ = bus.Close()
			d.bus = nil
			d.charger = nil
			d.gauge = nil
		}
		log.Printf("power: no i2c battery hardware, running in simulation mode")
	}

	d.simulated = true
	d.sim = newSimBattery()
	d.initialized = true
	return d
}

func newWithIO(charger, gauge txer) *Driver {
	return &Driver{charger: charger, gauge: gauge, initialized: true}
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

func readWord(dev txer, cmd byte) (uint16, error) {
	buf := make([]byte, 2)
	if err := dev.Tx([]byte{cmd}, buf); err != nil {
		return 0, fmt.Errorf("%w: sbs cmd 0x%02X: %v", hal.ErrCommunication, cmd, err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func readReg(dev txer, reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := dev.Tx([]byte{reg}, buf); err != nil {
		return 0, fmt.Errorf("%w: reg 0x%02X: %v", hal.ErrCommunication, reg, err)
	}
	return buf[0], nil
}

func (d *Driver) BatteryPercent() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.sim != nil {
		return d.sim.percent(), nil
	}
	v, err := readWord(d.gauge, cmdStateOfCharge)
	if err != nil {
		return 0, err
	}
	pct := int(v)
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

func (d *Driver) VoltageMV() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.sim != nil {
		return d.sim.voltageMV(), nil
	}
	v, err := readWord(d.gauge, cmdVoltage)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// CurrentMA is the gauge current; negative while discharging.
func (d *Driver) CurrentMA() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.sim != nil {
		return d.sim.currentMA(), nil
	}
	v, err := readWord(d.gauge, cmdCurrent)
	if err != nil {
		return 0, err
	}
	return int(int16(v)), nil
}

// TemperatureC is the pack temperature. The gauge reports 0.1 K units.
func (d *Driver) TemperatureC() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.sim != nil {
		return d.sim.temperatureC(), nil
	}
	v, err := readWord(d.gauge, cmdTemperature)
	if err != nil {
		return 0, err
	}
	return float64(v)/10.0 - 273.15, nil
}

func (d *Driver) chargeState() (ChargeState, error) {
	if d.sim != nil {
		return d.sim.chargeState(), nil
	}
	b, err := readReg(d.charger, regChargerStatus)
	if err != nil {
		return ChargeNone, err
	}
	return ChargeState((b >> 3) & 0x3), nil
}

func (d *Driver) Charging() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return false, hal.ErrNotInitialized
	}
	st, err := d.chargeState()
	if err != nil {
		return false, err
	}
	return st == ChargePre || st == ChargeFast, nil
}

// ChargerVoltageMV reads the charger's own battery voltage ADC as a cross
// check against the gauge.
func (d *Driver) ChargerVoltageMV() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.sim != nil {
		return d.sim.voltageMV(), nil
	}
	b, err := readReg(d.charger, regBatV)
	if err != nil {
		return 0, err
	}
	// BATV: 2304 mV offset, 20 mV per LSB over the low 7 bits.
	return 2304 + int(b&0x7F)*20, nil
}

// Snapshot reads everything at once for telemetry.
func (d *Driver) Snapshot() (Status, error) {
	pct, err := d.BatteryPercent()
	if err != nil {
		return Status{}, err
	}
	mv, err := d.VoltageMV()
	if err != nil {
		return Status{}, err
	}
	ma, err := d.CurrentMA()
	if err != nil {
		return Status{}, err
	}
	temp, err := d.TemperatureC()
	if err != nil {
		return Status{}, err
	}

	d.mu.Lock()
	st, err := d.chargeState()
	d.mu.Unlock()
	if err != nil {
		return Status{}, err
	}

	return Status{
		Percent:      pct,
		VoltageMV:    mv,
		CurrentMA:    ma,
		Charging:     st == ChargePre || st == ChargeFast,
		ChargeState:  st,
		TemperatureC: temp,
	}, nil
}
