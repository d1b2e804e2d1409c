package imu

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"

	"kagami-orb/internal/hal"
)

func init() {
	sleep = func(time.Duration) {}
}

type writeOp struct {
	reg byte
	val byte
}

// fakeICM answers register reads from a map and records writes.
type fakeICM struct {
	regs   map[byte][]byte
	writes []writeOp
}

func (f *fakeICM) Tx(w, r []byte) error {
	switch {
	case len(w) == 2 && len(r) == 0:
		f.writes = append(f.writes, writeOp{reg: w[0], val: w[1]})
		return nil
	case len(w) == 1 && len(r) > 0:
		b := f.regs[w[0]]
		if len(b) < len(r) {
			return errors.New("short reg")
		}
		copy(r, b[:len(r)])
		return nil
	default:
		return fmt.Errorf("unexpected tx w=%d r=%d", len(w), len(r))
	}
}

func TestSetupRejectsWrongWhoAmI(t *testing.T) {
	f := &fakeICM{regs: map[byte][]byte{regWhoAmI: {0x00}}}
	if _, err := newWithIO(f); !errors.Is(err, hal.ErrNotAvailable) {
		t.Fatalf("err = %v, want not available", err)
	}
}

func TestSetupWritesResetWakeAndBank2(t *testing.T) {
	f := &fakeICM{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	if _, err := newWithIO(f); err != nil {
		t.Fatalf("newWithIO: %v", err)
	}

	var sawReset, sawWake, sawBank2 bool
	for _, w := range f.writes {
		if w.reg == regPwrMgmt1 && w.val == bitReset {
			sawReset = true
		}
		if w.reg == regPwrMgmt1 && w.val == 0x01 {
			sawWake = true
		}
		if w.reg == regBankSel && w.val == (bank2<<4) {
			sawBank2 = true
		}
	}
	if !sawReset || !sawWake || !sawBank2 {
		t.Fatalf("init writes incomplete: reset=%v wake=%v bank2=%v", sawReset, sawWake, sawBank2)
	}
}

func TestReadScalesAccelAndGyro(t *testing.T) {
	f := &fakeICM{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	// ax=16384 -> 2g at 4g full-scale; gx=16384 -> 125 dps at 250 dps.
	f.regs[regAccelXoutH] = []byte{
		0x40, 0x00, // ax
		0x00, 0x00, // ay
		0xC0, 0x00, // az = -16384 -> -2g
		0x40, 0x00, // gx
		0x00, 0x00, // gy
		0xC0, 0x00, // gz = -16384 -> -125 dps
	}

	d, err := newWithIO(f)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}

	ax, _, az, err := d.ReadAcceleration()
	if err != nil {
		t.Fatalf("acceleration: %v", err)
	}
	if ax < 1.99 || ax > 2.01 {
		t.Fatalf("ax=%v want ~2.0", ax)
	}
	if az > -1.99 || az < -2.01 {
		t.Fatalf("az=%v want ~-2.0", az)
	}

	gx, _, gz, err := d.ReadGyroscope()
	if err != nil {
		t.Fatalf("gyroscope: %v", err)
	}
	if gx < 124.9 || gx > 125.1 {
		t.Fatalf("gx=%v want ~125", gx)
	}
	if gz > -124.9 || gz < -125.1 {
		t.Fatalf("gz=%v want ~-125", gz)
	}
}

func TestReadTemperature(t *testing.T) {
	f := &fakeICM{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	// raw 3339 -> about 31 C.
	f.regs[regTempOutH] = []byte{0x0D, 0x0B}

	d, err := newWithIO(f)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	tC, err := d.ReadTemperature()
	if err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if tC < 30.5 || tC > 31.5 {
		t.Fatalf("temperature = %v", tC)
	}
}

func TestSimulationFallback(t *testing.T) {
	old := openBusFn
	openBusFn = func(string) (i2c.BusCloser, error) { return nil, fmt.Errorf("no bus") }
	defer func() { openBusFn = old }()

	d := New(Config{})
	defer d.Close()

	if !d.Simulated() || !d.Initialized() {
		t.Fatalf("expected simulated driver, sim=%v init=%v", d.Simulated(), d.Initialized())
	}
	_, _, z, err := d.ReadAcceleration()
	if err != nil {
		t.Fatalf("acceleration: %v", err)
	}
	if z < 0.99 || z > 1.01 {
		t.Fatalf("z = %v, want about 1g", z)
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := New(Config{Simulate: true})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, _, _, err := d.ReadAcceleration(); !errors.Is(err, hal.ErrNotInitialized) {
		t.Fatalf("err = %v, want not initialized", err)
	}
}
