package power

// simBattery models a pack that drains a little on every read, so long
// running simulations show realistic movement.
type simBattery struct {
	reads int
}

func newSimBattery() *simBattery {
	return &simBattery{}
}

func (s *simBattery) percent() int {
	s.reads++
	pct := 87 - s.reads/50
	if pct < 5 {
		pct = 5
	}
	return pct
}

func (s *simBattery) voltageMV() int {
	pct := 87 - s.reads/50
	if pct < 5 {
		pct = 5
	}
	return 3700 + pct*6
}

func (s *simBattery) currentMA() int {
	return -420
}

func (s *simBattery) temperatureC() float64 {
	return 24.5
}

func (s *simBattery) chargeState() ChargeState {
	return ChargeNone
}
