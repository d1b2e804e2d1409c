package orb

import (
	"fmt"
	"sync"

	"kagami-orb/internal/hal"
)

// Simulated backends for subsystems without a hardware driver. They keep
// deterministic state so tests can assert on behavior, not just on nil.

type simLED struct {
	mu     sync.Mutex
	state  hal.AnimationState
	closed bool
}

func newSimLED() *simLED { return &simLED{} }

func (l *simLED) Simulated() bool   { return true }
func (l *simLED) Initialized() bool { l.mu.Lock(); defer l.mu.Unlock(); return !l.closed }

func (l *simLED) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *simLED) SetAnimation(state hal.AnimationState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return hal.ErrNotInitialized
	}
	l.state = state
	return nil
}

func (l *simLED) Clear() error {
	return l.SetAnimation(hal.AnimIdle)
}

// State is test-visible only; the HAL interface has no getter.
func (l *simLED) State() hal.AnimationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

type simNPU struct {
	mu     sync.Mutex
	models map[string]bool
	closed bool
}

func newSimNPU() *simNPU { return &simNPU{models: make(map[string]bool)} }

func (n *simNPU) Simulated() bool   { return true }
func (n *simNPU) Initialized() bool { n.mu.Lock(); defer n.mu.Unlock(); return !n.closed }

func (n *simNPU) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

func (n *simNPU) LoadModel(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return hal.ErrNotInitialized
	}
	if path == "" {
		return fmt.Errorf("%w: empty model path", hal.ErrNotAvailable)
	}
	n.models[path] = true
	return nil
}

func (n *simNPU) Infer(model string, input []byte) ([]hal.Detection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, hal.ErrNotInitialized
	}
	if !n.models[model] {
		return nil, fmt.Errorf("%w: model %q not loaded", hal.ErrNotAvailable, model)
	}
	return []hal.Detection{{Model: model, Label: "person", Confidence: 0.87}}, nil
}

func (n *simNPU) Utilization() float64 { return 0.05 }

type simToF struct {
	mu     sync.Mutex
	closed bool
}

func newSimToF() *simToF { return &simToF{} }

func (t *simToF) Simulated() bool   { return true }
func (t *simToF) Initialized() bool { t.mu.Lock(); defer t.mu.Unlock(); return !t.closed }

func (t *simToF) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *simToF) DistanceMM() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, hal.ErrNotInitialized
	}
	return 850, nil
}

// DistanceMap returns an 8x8 zone grid with a near object in the center.
func (t *simToF) DistanceMap() ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, hal.ErrNotInitialized
	}
	grid := make([]int, 64)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			d := 2000
			if row >= 3 && row <= 4 && col >= 3 && col <= 4 {
				d = 850
			}
			grid[row*8+col] = d
		}
	}
	return grid, nil
}
