// Package location wraps the GNSS driver with confidence scoring, caching and
// a push-based update loop.
package location

import (
	"context"
	"log"
	"sync"
	"time"

	"kagami-orb/internal/nmea"
)

// Source reads positions; satisfied by *gnss.Driver.
type Source interface {
	ReadPosition() (*nmea.Position, error)
}

// Update is one location result handed to callers and subscribers.
type Update struct {
	Position   nmea.Position `json:"position"`
	Source     string        `json:"source"`
	Confidence float64       `json:"confidence"`
	Time       time.Time     `json:"time"`
}

type Service struct {
	src Source

	mu    sync.Mutex
	last  *Update
	subs  []func(Update)
	nowFn func() time.Time
}

func New(src Source) *Service {
	return &Service{src: src, nowFn: func() time.Time { return time.Now().UTC() }}
}

// Get pulls one position. A valid fix refreshes the cache; otherwise the last
// successful update is returned, nil when there has never been one.
func (s *Service) Get() *Update {
	pos, err := s.src.ReadPosition()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || pos == nil || !pos.Valid() {
		return s.last
	}

	conf := 1.0
	if pos.HDOP > 0 {
		conf = 10.0 / pos.HDOP
		if conf > 1 {
			conf = 1
		}
	}
	u := &Update{
		Position:   *pos,
		Source:     "gnss",
		Confidence: conf,
		Time:       s.nowFn(),
	}
	s.last = u
	return u
}

// LastKnown returns the cached update without touching the hardware.
func (s *Service) LastKnown() *Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) Subscribe(fn func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Run polls at interval, fanning each update out to subscribers, until ctx is
// done. Subscriber panics are contained so one bad callback cannot take down
// the loop.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if u := s.Get(); u != nil {
			s.mu.Lock()
			subs := make([]func(Update), len(s.subs))
			copy(subs, s.subs)
			s.mu.Unlock()
			for _, fn := range subs {
				s.notify(fn, *u)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Service) notify(fn func(Update), u Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("location: subscriber panic: %v", r)
		}
	}()
	fn(u)
}
