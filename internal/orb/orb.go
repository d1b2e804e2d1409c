// Package orb assembles the device subsystems into one System.
package orb

import (
	"log"

	"kagami-orb/internal/cellular"
	"kagami-orb/internal/config"
	"kagami-orb/internal/envsensor"
	"kagami-orb/internal/gnss"
	"kagami-orb/internal/hal"
	"kagami-orb/internal/imu"
	"kagami-orb/internal/location"
	"kagami-orb/internal/power"
	"kagami-orb/internal/pps"
)

// System owns every constructed subsystem. Fields stay nil when the config
// or the capability manifest excludes them.
type System struct {
	Caps hal.Capabilities

	LED hal.LEDDriver
	NPU hal.NPUDriver
	IMU hal.IMUDriver
	ToF hal.ToFDriver
	Env hal.EnvironmentDriver

	Power    *power.Driver
	GNSS     *gnss.Driver
	Location *location.Service
	Cellular *cellular.Manager
	PPS      *pps.Monitor
}

// Build constructs the subsystems named by cfg. Missing hardware never
// fails the build: drivers degrade to their simulated backends.
func Build(cfg config.Config) *System {
	caps := hal.Simulation()
	if cfg.Platform == "qcs6490" {
		caps = hal.QCS6490()
	}
	sys := &System{Caps: caps}

	simulatePlatform := cfg.Platform == "simulation"

	if cfg.GNSS.Enable && caps.Has(hal.CapGNSS) {
		sys.GNSS = gnss.New(gnss.Config{
			Device:   cfg.GNSS.Device,
			Baud:     cfg.GNSS.Baud,
			Simulate: cfg.GNSS.Simulate || simulatePlatform,
		})
		sys.Location = location.New(sys.GNSS)
	}

	if cfg.Cellular.Enable && caps.Has(hal.CapCellular) {
		modem := cellular.New(cellular.Config{
			Device:   cfg.Cellular.Device,
			Baud:     cfg.Cellular.Baud,
			APN:      cfg.Cellular.APN,
			Simulate: cfg.Cellular.Simulate || simulatePlatform,
		})
		sys.Cellular = cellular.NewManager(modem, cfg.Cellular.MonitorInterval)
	}

	if cfg.Power.Enable && caps.Has(hal.CapBattery) {
		sys.Power = power.New(power.Config{
			Bus:      cfg.Power.I2CBus,
			Simulate: cfg.Power.Simulate || simulatePlatform,
		})
	}

	if cfg.Env.Enable && caps.Has(hal.CapTemperature) {
		sys.Env = envsensor.New(envsensor.Config{
			Bus:      cfg.Env.I2CBus,
			Simulate: cfg.Env.Simulate || simulatePlatform,
		})
	}

	if cfg.PPS.Enable && caps.Has(hal.CapGNSS) {
		sys.PPS = pps.New(pps.Config{
			Chip:     cfg.PPS.Chip,
			Line:     cfg.PPS.Line,
			Simulate: cfg.PPS.Simulate || simulatePlatform,
		})
	}

	if caps.Has(hal.CapIMU) {
		sys.IMU = imu.New(imu.Config{Simulate: simulatePlatform})
	}

	// The remaining subsystems have no Go hardware backend yet; simulation
	// keeps their interfaces live for the application layer.
	if caps.Has(hal.CapLEDRing) {
		sys.LED = newSimLED()
	}
	if caps.Has(hal.CapNPU) {
		sys.NPU = newSimNPU()
	}
	if caps.Has(hal.CapToF) {
		sys.ToF = newSimToF()
	}

	log.Printf("orb: system built platform=%s capabilities=%d", caps.Platform, len(caps.List()))
	return sys
}

// Validate reports what a fully assembled system is missing. Diagnostics
// are strings, not errors: a degraded system still runs.
func Validate(sys *System) []string {
	var problems []string
	if sys == nil {
		return []string{"system is nil"}
	}

	check := func(name string, d hal.Driver) {
		switch {
		case d == nil:
			problems = append(problems, name+": not constructed")
		case !d.Initialized():
			problems = append(problems, name+": not initialized")
		}
	}

	if sys.Caps.Has(hal.CapGNSS) {
		if sys.GNSS == nil {
			problems = append(problems, "gnss: not constructed")
		} else if !sys.GNSS.Initialized() {
			problems = append(problems, "gnss: not initialized")
		}
		if sys.Location == nil {
			problems = append(problems, "location: not constructed")
		}
	}
	if sys.Caps.Has(hal.CapCellular) && sys.Cellular == nil {
		problems = append(problems, "cellular: not constructed")
	}
	if sys.Caps.Has(hal.CapBattery) {
		if sys.Power == nil {
			problems = append(problems, "power: not constructed")
		} else if !sys.Power.Initialized() {
			problems = append(problems, "power: not initialized")
		}
	}
	if sys.Caps.Has(hal.CapTemperature) {
		check("env", sys.Env)
	}
	if sys.Caps.Has(hal.CapLEDRing) {
		check("led", sys.LED)
	}
	if sys.Caps.Has(hal.CapNPU) {
		check("npu", sys.NPU)
	}
	if sys.Caps.Has(hal.CapIMU) {
		check("imu", sys.IMU)
	}
	if sys.Caps.Has(hal.CapToF) {
		check("tof", sys.ToF)
	}
	return problems
}

// Close releases every subsystem. Errors are logged, not returned: shutdown
// keeps going past a failed driver.
func (s *System) Close() {
	closeDriver := func(name string, d hal.Driver) {
		if d == nil {
			return
		}
		if err := d.Close(); err != nil {
			log.Printf("orb: close %s: %v", name, err)
		}
	}

	closeDriver("led", s.LED)
	closeDriver("npu", s.NPU)
	closeDriver("imu", s.IMU)
	closeDriver("tof", s.ToF)
	closeDriver("env", s.Env)
	if s.PPS != nil {
		if err := s.PPS.Close(); err != nil {
			log.Printf("orb: close pps: %v", err)
		}
	}
	if s.Cellular != nil {
		if err := s.Cellular.Close(); err != nil {
			log.Printf("orb: close cellular: %v", err)
		}
	}
	if s.GNSS != nil {
		if err := s.GNSS.Close(); err != nil {
			log.Printf("orb: close gnss: %v", err)
		}
	}
	if s.Power != nil {
		if err := s.Power.Close(); err != nil {
			log.Printf("orb: close power: %v", err)
		}
	}
}
