package web

import (
	"sync/atomic"
	"time"

	"kagami-orb/internal/cellular"
	"kagami-orb/internal/location"
	"kagami-orb/internal/power"
	"kagami-orb/internal/pps"
)

// Status aggregates the latest per-subsystem snapshots for /api/status.
// Writers store whole values; readers get a consistent copy.
type Status struct {
	startUnixNano int64
	location      atomic.Value // *location.Update
	cellular      atomic.Value // cellular.Status
	pwr           atomic.Value // power.Status
	ppsStats      atomic.Value // pps.Stats
	platform      atomic.Value // string
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.platform.Store("")
	return s
}

func (s *Status) SetPlatform(p string)           { s.platform.Store(p) }
func (s *Status) SetLocation(u *location.Update) { s.location.Store(u) }
func (s *Status) SetCellular(c cellular.Status)  { s.cellular.Store(c) }
func (s *Status) SetPower(p power.Status)        { s.pwr.Store(p) }
func (s *Status) SetPPS(p pps.Stats)             { s.ppsStats.Store(p) }

type StatusSnapshot struct {
	Service   string           `json:"service"`
	Platform  string           `json:"platform"`
	NowUTC    string           `json:"now_utc"`
	UptimeSec int64            `json:"uptime_sec"`
	Location  *location.Update `json:"location,omitempty"`
	Cellular  *cellular.Status `json:"cellular,omitempty"`
	Power     *power.Status    `json:"power,omitempty"`
	PPS       *pps.Stats       `json:"pps,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "orbd",
		Platform:  s.platform.Load().(string),
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
	}
	if v := s.location.Load(); v != nil {
		snap.Location = v.(*location.Update)
	}
	if v := s.cellular.Load(); v != nil {
		c := v.(cellular.Status)
		snap.Cellular = &c
	}
	if v := s.pwr.Load(); v != nil {
		p := v.(power.Status)
		snap.Power = &p
	}
	if v := s.ppsStats.Load(); v != nil {
		p := v.(pps.Stats)
		snap.PPS = &p
	}
	return snap
}
