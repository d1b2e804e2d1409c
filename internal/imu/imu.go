// Package imu reads accelerometer/gyro data from an ICM-20948.
package imu

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"kagami-orb/internal/hal"
)

var sleep = time.Sleep

const (
	addrICM20948 = 0x68

	regWhoAmI  = 0x00
	whoAmIVal  = 0xEA
	regBankSel = 0x7F

	// Bank 0.
	regPwrMgmt1   = 0x06
	bitReset      = 0x80
	regAccelXoutH = 0x2D // contiguous accel+gyro block
	regTempOutH   = 0x39
	regIntEnable  = 0x38

	// Bank 2.
	bank2           = 2
	regGyroSmplrt   = 0x00
	regGyroConfig   = 0x01
	regAccelSmplrt2 = 0x11
	regAccelConfig  = 0x14

	fsGyro250dps = 0x00
	fsAccel4g    = 0x02
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

	curBank    byte
	scaleAccel float64
	scaleGyro  float64

	simulated   bool
	initialized bool
	simReads    int
}

// New probes and configures the part, with the usual simulation fallback
// when nothing answers.
func New(cfg Config) *Driver {
	d := &Driver{curBank: 0xFF}

	if !cfg.Simulate {
		bus, err := openBusFn(cfg.Bus)
		if err == nil {
			d.bus = bus
			d.dev = &i2c.Dev{Bus: bus, Addr: addrICM20948}
			if err := d.setup(); err == nil {
				d.initialized = true
				log.Printf("imu: icm20948 on i2c bus=%q", cfg.Bus)
				return d
			}
			_ = bus.Close()
			d.bus = nil
			d.dev = nil
		}
		log.Printf("imu: no icm20948 found, running in simulation mode")
	}

	d.simulated = true
	d.initialized = true
	return d
}

func newWithIO(dev txer) (*Driver, error) {
	d := &Driver{dev: dev, curBank: 0xFF}
	if err := d.setup(); err != nil {
		return nil, err
	}
	d.initialized = true
	return d, nil
}

func (d *Driver) readReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, fmt.Errorf("%w: reg 0x%02X: %v", hal.ErrCommunication, reg, err)
	}
	return buf[0], nil
}

func (d *Driver) readBlock(reg byte, dst []byte) error {
	if err := d.dev.Tx([]byte{reg}, dst); err != nil {
		return fmt.Errorf("%w: block 0x%02X: %v", hal.ErrCommunication, reg, err)
	}
	return nil
}

func (d *Driver) writeReg(reg, value byte) error {
	if err := d.dev.Tx([]byte{reg, value}, nil); err != nil {
		return fmt.Errorf("%w: write 0x%02X: %v", hal.ErrCommunication, reg, err)
	}
	return nil
}

func (d *Driver) setBank(bank byte) error {
	if d.curBank == bank {
		return nil
	}
	if err := d.writeReg(regBankSel, bank<<4); err != nil {
		return err
	}
	d.curBank = bank
	return nil
}

func (d *Driver) setup() error {
	who, err := d.readReg(regWhoAmI)
	if err != nil {
		return err
	}
	if who != whoAmIVal {
		return fmt.Errorf("%w: whoami=0x%02X want 0x%02X", hal.ErrNotAvailable, who, whoAmIVal)
	}

	if err := d.setBank(0); err != nil {
		return err
	}
	_ = d.writeReg(regIntEnable, 0x00)

	if err := d.writeReg(regPwrMgmt1, bitReset); err != nil {
		return err
	}
	sleep(100 * time.Millisecond)

	// Wake with PLL clock source.
	if err := d.writeReg(regPwrMgmt1, 0x01); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)

	if err := d.setBank(bank2); err != nil {
		return err
	}

	// Base rate 1125 Hz; divide down to 50 Hz.
	div := byte(1125/50 - 1)
	_ = d.writeReg(regGyroSmplrt, div)
	_ = d.writeReg(regAccelSmplrt2, div)
	if err := d.writeReg(regGyroConfig, fsGyro250dps); err != nil {
		return err
	}
	if err := d.writeReg(regAccelConfig, fsAccel4g); err != nil {
		return err
	}

	if err := d.setBank(0); err != nil {
		return err
	}

	d.scaleAccel = 4.0 / 32768.0
	d.scaleGyro = 250.0 / 32768.0
	return nil
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

func (d *Driver) readSample() (ax, ay, az, gx, gy, gz float64, err error) {
	if err := d.setBank(0); err != nil {
		return 0, 0, 0, 0, 0, 0, err
	}
	buf := make([]byte, 12)
	if err := d.readBlock(regAccelXoutH, buf); err != nil {
		return 0, 0, 0, 0, 0, 0, err
	}
	ax = float64(int16(buf[0])<<8|int16(buf[1])) * d.scaleAccel
	ay = float64(int16(buf[2])<<8|int16(buf[3])) * d.scaleAccel
	az = float64(int16(buf[4])<<8|int16(buf[5])) * d.scaleAccel
	gx = float64(int16(buf[6])<<8|int16(buf[7])) * d.scaleGyro
	gy = float64(int16(buf[8])<<8|int16(buf[9])) * d.scaleGyro
	gz = float64(int16(buf[10])<<8|int16(buf[11])) * d.scaleGyro
	return ax, ay, az, gx, gy, gz, nil
}

func (d *Driver) ReadAcceleration() (x, y, z float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, 0, 0, hal.ErrNotInitialized
	}
	if d.simulated {
		d.simReads++
		n := 0.002 * math.Sin(float64(d.simReads))
		return n, -n, 1.0 + n, nil
	}
	ax, ay, az, _, _, _, err := d.readSample()
	return ax, ay, az, err
}

func (d *Driver) ReadGyroscope() (x, y, z float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, 0, 0, hal.ErrNotInitialized
	}
	if d.simulated {
		d.simReads++
		n := 0.05 * math.Sin(float64(d.simReads))
		return n, n, -n, nil
	}
	_, _, _, gx, gy, gz, err := d.readSample()
	return gx, gy, gz, err
}

func (d *Driver) ReadTemperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, hal.ErrNotInitialized
	}
	if d.simulated {
		return 31.0, nil
	}
	if err := d.setBank(0); err != nil {
		return 0, err
	}
	buf := make([]byte, 2)
	if err := d.readBlock(regTempOutH, buf); err != nil {
		return 0, err
	}
	raw := int16(buf[0])<<8 | int16(buf[1])
	// Datasheet: TempC = raw/333.87 + 21.
	return float64(raw)/333.87 + 21.0, nil
}
