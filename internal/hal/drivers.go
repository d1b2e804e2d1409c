package hal

// Narrow per-subsystem contracts. Application code depends on these, never on
// concrete driver types, so simulated and real backends stay interchangeable.

// AnimationState is the discrete state an LED driver renders. Rendering
// itself is out of scope here; the enum is the whole interface surface.
type AnimationState int

const (
	AnimIdle AnimationState = iota
	AnimListening
	AnimThinking
	AnimSpeaking
	AnimError
	AnimCharging
	AnimLowBattery
)

func (a AnimationState) String() string {
	switch a {
	case AnimIdle:
		return "idle"
	case AnimListening:
		return "listening"
	case AnimThinking:
		return "thinking"
	case AnimSpeaking:
		return "speaking"
	case AnimError:
		return "error"
	case AnimCharging:
		return "charging"
	case AnimLowBattery:
		return "low_battery"
	default:
		return "unknown"
	}
}

type LEDDriver interface {
	Driver
	SetAnimation(state AnimationState) error
	Clear() error
}

// Detection is an inference result keyed by the model that produced it.
type Detection struct {
	Model      string
	Label      string
	Confidence float64
}

type NPUDriver interface {
	Driver
	LoadModel(path string) error
	Infer(model string, input []byte) ([]Detection, error)
	Utilization() float64
}

type IMUDriver interface {
	Driver
	// Acceleration in g, gyro in deg/s.
	ReadAcceleration() (x, y, z float64, err error)
	ReadGyroscope() (x, y, z float64, err error)
	ReadTemperature() (float64, error)
}

type ToFDriver interface {
	Driver
	// DistanceMM is the closest detected distance across all zones.
	DistanceMM() (int, error)
	DistanceMap() ([]int, error)
}

type EnvironmentDriver interface {
	Driver
	ReadTemperature() (float64, error)
	ReadHumidity() (float64, error)
}

type PowerDriver interface {
	Driver
	BatteryPercent() (int, error)
	VoltageMV() (int, error)
	Charging() (bool, error)
}
