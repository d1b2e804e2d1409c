package cellular

import (
	"context"
	"testing"
	"time"
)

func TestRefreshSnapshot(t *testing.T) {
	m, _ := newSimModem(t)
	mg := NewManager(m, time.Second)
	defer mg.Close()

	s := mg.Refresh()
	if s.Registration != RegHome {
		t.Fatalf("registration = %v", s.Registration)
	}
	if s.State != StateConnected {
		t.Fatalf("state = %v, want connected", s.State)
	}
	if s.Signal.RSSIdBm >= 0 {
		t.Fatalf("rssi = %d, want negative dBm", s.Signal.RSSIdBm)
	}
	if s.Cell == nil || s.Cell.Operator == "" {
		t.Fatalf("missing cell info: %+v", s.Cell)
	}
	if !s.Simulated {
		t.Fatalf("expected simulated flag")
	}
	if got := mg.Status(); got.State != s.State {
		t.Fatalf("cached status diverged: %v vs %v", got.State, s.State)
	}
}

func TestRefreshReconnects(t *testing.T) {
	m, _ := newSimModem(t)
	mg := NewManager(m, time.Second)
	defer mg.Close()

	mg.Refresh()
	if !m.Disconnect() {
		t.Fatalf("disconnect failed")
	}

	s := mg.Refresh()
	if s.State != StateConnected {
		t.Fatalf("state = %v after refresh, want reconnected", s.State)
	}
}

func TestRefreshNoConnectWithoutNetwork(t *testing.T) {
	m, sp := newSimModem(t)
	mg := NewManager(m, time.Second)
	defer mg.Close()

	sp.SetRegistered(false)
	m.Disconnect()

	s := mg.Refresh()
	if s.Registration.Registered() {
		t.Fatalf("registration = %v, want unregistered", s.Registration)
	}
	if s.State == StateConnected {
		t.Fatalf("connected without network registration")
	}
}

func TestStartPollsAndStops(t *testing.T) {
	m, _ := newSimModem(t)
	mg := NewManager(m, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	mg.Start(ctx)

	deadline := time.After(time.Second)
	for mg.Status().Registration != RegHome {
		select {
		case <-deadline:
			t.Fatalf("monitor loop never refreshed status")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := mg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.Initialized() {
		t.Fatalf("modem still open after manager close")
	}
}
