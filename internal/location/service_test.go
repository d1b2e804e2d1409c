package location

import (
	"context"
	"math"
	"testing"
	"time"

	"kagami-orb/internal/nmea"
)

type fakeSource struct {
	pos *nmea.Position
	err error
}

func (f *fakeSource) ReadPosition() (*nmea.Position, error) { return f.pos, f.err }

func validFix(hdop float64) *nmea.Position {
	return &nmea.Position{
		Latitude:       47.6062,
		Longitude:      -122.3321,
		FixType:        nmea.FixGPS,
		SatellitesUsed: 8,
		HDOP:           hdop,
	}
}

func TestGetTagsSourceAndConfidence(t *testing.T) {
	svc := New(&fakeSource{pos: validFix(20)})
	u := svc.Get()
	if u == nil {
		t.Fatalf("expected update")
	}
	if u.Source != "gnss" {
		t.Fatalf("source=%q", u.Source)
	}
	if math.Abs(u.Confidence-0.5) > 1e-9 {
		t.Fatalf("confidence=%f want 10/hdop", u.Confidence)
	}
}

func TestConfidenceClampedToOne(t *testing.T) {
	svc := New(&fakeSource{pos: validFix(0.9)})
	u := svc.Get()
	if u == nil || u.Confidence != 1 {
		t.Fatalf("update=%+v want confidence 1", u)
	}
}

func TestGetFallsBackToCacheOnInvalidFix(t *testing.T) {
	src := &fakeSource{pos: validFix(1)}
	svc := New(src)
	first := svc.Get()
	if first == nil {
		t.Fatalf("expected first update")
	}

	src.pos = &nmea.Position{FixType: nmea.FixNone}
	second := svc.Get()
	if second != first {
		t.Fatalf("expected cached update")
	}
	if svc.LastKnown() != first {
		t.Fatalf("LastKnown mismatch")
	}
}

func TestGetNilBeforeAnyFix(t *testing.T) {
	svc := New(&fakeSource{pos: nil})
	if u := svc.Get(); u != nil {
		t.Fatalf("expected nil, got %+v", u)
	}
	if svc.LastKnown() != nil {
		t.Fatalf("expected no last known")
	}
}

func TestRunNotifiesSubscribersAndStops(t *testing.T) {
	svc := New(&fakeSource{pos: validFix(1)})
	updates := make(chan Update, 16)
	svc.Subscribe(func(u Update) {
		select {
		case updates <- u:
		default:
		}
	})
	// A panicking subscriber must not kill the loop.
	svc.Subscribe(func(Update) { panic("boom") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-updates:
		case <-time.After(time.Second):
			t.Fatalf("missing update %d", i)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}
