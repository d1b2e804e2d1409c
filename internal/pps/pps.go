// Package pps watches the GNSS receiver's pulse-per-second line. The pulse
// train is a cheap health signal for the timing side of the receiver; the
// position path does not depend on it.
package pps

import (
	"io"
	"log"
	"sync"
	"time"
)

// lockWindow is how stale the last pulse may be before the monitor reports
// the pulse train lost.
const lockWindow = 2 * time.Second

var nowFn = time.Now

type Config struct {
	// Chip is the gpiochip device, e.g. "/dev/gpiochip0".
	Chip string
	// Line is the offset of the PPS line on that chip.
	Line     int
	Simulate bool
}

type Stats struct {
	PulseCount uint64    `json:"pulse_count"`
	LastPulse  time.Time `json:"last_pulse"`
	Locked     bool      `json:"locked"`
}

type Monitor struct {
	mu    sync.Mutex
	count uint64
	last  time.Time

	watcher io.Closer
	done    chan struct{}

	simulated   bool
	initialized bool
}

// New starts watching the PPS line. A missing line is not an error: the
// monitor degrades to a simulated 1 Hz pulse train.
func New(cfg Config) *Monitor {
	m := &Monitor{}

	if !cfg.Simulate {
		w, err := openWatcherFn(cfg.Chip, cfg.Line, m.pulse)
		if err == nil {
			m.watcher = w
			m.initialized = true
			log.Printf("pps: watching chip=%s line=%d", cfg.Chip, cfg.Line)
			return m
		}
		log.Printf("pps: %v, running in simulation mode", err)
	}

	m.simulated = true
	m.initialized = true
	m.done = make(chan struct{})
	go m.simLoop()
	return m
}

func (m *Monitor) simLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case t := <-ticker.C:
			m.pulse(t)
		}
	}
}

func (m *Monitor) pulse(t time.Time) {
	m.mu.Lock()
	m.count++
	m.last = t
	m.mu.Unlock()
}

func (m *Monitor) Simulated() bool   { return m.simulated }
func (m *Monitor) Initialized() bool { return m.initialized }

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		PulseCount: m.count,
		LastPulse:  m.last,
		Locked:     m.count > 0 && nowFn().Sub(m.last) < lockWindow,
	}
}

func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}
	m.initialized = false
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	if m.watcher != nil {
		err := m.watcher.Close()
		m.watcher = nil
		return err
	}
	return nil
}
