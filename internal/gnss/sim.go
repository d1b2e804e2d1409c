package gnss

import (
	"fmt"
	"math"
	"sync"
	"time"

	"kagami-orb/internal/nmea"
)

// Simulated receiver home position (Seattle).
const (
	simLat = 47.6062
	simLon = -122.3321
	simAlt = 56.0
)

// SimPort is a deterministic transport backend that emits alternating GGA and
// RMC sentences for a slowly drifting fixed location. Each sentence carries a
// correctly computed checksum, so it exercises the same decode path as real
// hardware.
type SimPort struct {
	mu     sync.Mutex
	n      int
	buf    []byte
	closed bool

	nowFn func() time.Time
}

func NewSimPort() *SimPort {
	return &SimPort{nowFn: func() time.Time { return time.Now().UTC() }}
}

func (p *SimPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, fmt.Errorf("gnss: sim port closed")
	}
	if len(p.buf) == 0 {
		p.buf = append(p.buf, p.nextSentence()...)
		p.buf = append(p.buf, '\r', '\n')
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Write discards; a GNSS receiver stream is effectively read-only.
func (p *SimPort) Write(b []byte) (int, error) { return len(b), nil }

func (p *SimPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *SimPort) nextSentence() string {
	// Sinusoidal jitter around the home position, advanced per sentence so
	// the track is reproducible without wall-clock dependence.
	drift := 0.00001 * math.Sin(0.1*float64(p.n))
	lat := simLat + drift
	lon := simLon + drift*0.5
	p.n++

	latStr, latHemi := nmea.FormatLat(lat)
	lonStr, lonHemi := nmea.FormatLon(lon)

	now := p.nowFn()
	timeStr := now.Format("150405") + ".00"

	if p.n%2 == 1 {
		payload := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,0.9,%.1f,M,0.0,M,,",
			timeStr, latStr, latHemi, lonStr, lonHemi, simAlt)
		return nmea.AppendChecksum(payload)
	}
	dateStr := now.Format("020106")
	payload := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,0.0,0.0,%s,,",
		timeStr, latStr, latHemi, lonStr, lonHemi, dateStr)
	return nmea.AppendChecksum(payload)
}
