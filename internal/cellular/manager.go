package cellular

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultMonitorInterval = 30 * time.Second

// Status is a point-in-time snapshot of the cellular link, safe to hand to
// telemetry and the web layer.
type Status struct {
	State        ConnectionState    `json:"state"`
	Registration RegistrationStatus `json:"registration"`
	Signal       SignalQuality      `json:"signal"`
	Cell         *CellInfo          `json:"cell,omitempty"`
	Simulated    bool               `json:"simulated"`
}

// Manager supervises a Modem: it polls signal and registration on an
// interval and re-establishes the data connection when the network is
// available but the link is down.
type Manager struct {
	modem    *Modem
	interval time.Duration

	mu     sync.Mutex
	status Status

	wg sync.WaitGroup
}

func NewManager(modem *Modem, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &Manager{
		modem:    modem,
		interval: interval,
		status: Status{
			State:        modem.State(),
			Registration: RegUnknown,
			Simulated:    modem.Simulated(),
		},
	}
}

func (mg *Manager) Modem() *Modem { return mg.modem }

// Status returns the last snapshot taken by the monitor loop (or Refresh).
func (mg *Manager) Status() Status {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.status
}

// Refresh polls the modem once and updates the snapshot. Reconnects when
// the network is registered but the data link is down.
func (mg *Manager) Refresh() Status {
	reg, cell := mg.modem.Registration()
	sig := mg.modem.Signal()

	if reg.Registered() && !mg.modem.IsConnected() {
		log.Printf("cellular: registered but disconnected, reconnecting")
		mg.modem.Connect()
	}

	s := Status{
		State:        mg.modem.State(),
		Registration: reg,
		Signal:       sig,
		Cell:         cell,
		Simulated:    mg.modem.Simulated(),
	}
	mg.mu.Lock()
	mg.status = s
	mg.mu.Unlock()
	return s
}

// Start runs the monitor loop until ctx is cancelled. An initial refresh
// happens immediately so callers see real state without waiting a full
// interval.
func (mg *Manager) Start(ctx context.Context) {
	mg.wg.Add(1)
	go func() {
		defer mg.wg.Done()
		mg.Refresh()
		ticker := time.NewTicker(mg.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mg.Refresh()
			}
		}
	}()
}

// Close stops accepting work, drops the data connection and releases the
// modem. Call after cancelling the Start context.
func (mg *Manager) Close() error {
	mg.wg.Wait()
	if mg.modem.State() == StateConnected {
		mg.modem.Disconnect()
	}
	return mg.modem.Close()
}
