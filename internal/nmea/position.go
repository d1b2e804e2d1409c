package nmea

import (
	"math"
	"time"
)

// earthRadiusM is the mean Earth radius used for great-circle math.
const earthRadiusM = 6371000.0

type FixType int

const (
	FixNone FixType = iota
	FixGPS
	FixDGPS
	FixPPS
	FixRTK
	FixRTKFloat
	FixEstimated
	FixManual
	FixSimulation
)

func (f FixType) String() string {
	switch f {
	case FixNone:
		return "no_fix"
	case FixGPS:
		return "gps"
	case FixDGPS:
		return "dgps"
	case FixPPS:
		return "pps"
	case FixRTK:
		return "rtk_fixed"
	case FixRTKFloat:
		return "rtk_float"
	case FixEstimated:
		return "estimated"
	case FixManual:
		return "manual"
	case FixSimulation:
		return "simulation"
	default:
		return "unknown"
	}
}

// FixMode follows the GSA encoding: 1=no fix, 2=2D, 3=3D.
type FixMode int

const (
	ModeNoFix FixMode = 1
	Mode2D    FixMode = 2
	Mode3D    FixMode = 3
)

// Constellation identifies the GNSS system a satellite belongs to,
// derived from the sentence talker ID.
type Constellation string

const (
	GPS      Constellation = "gps"
	GLONASS  Constellation = "glonass"
	Galileo  Constellation = "galileo"
	BeiDou   Constellation = "beidou"
	QZSS     Constellation = "qzss"
	NavIC    Constellation = "navic"
	SBAS     Constellation = "sbas"
	Combined Constellation = "combined"
)

func constellationFromTalker(talker string) Constellation {
	switch talker {
	case "GP":
		return GPS
	case "GL":
		return GLONASS
	case "GA":
		return Galileo
	case "BD", "GB":
		return BeiDou
	case "QZ":
		return QZSS
	case "GI":
		return NavIC
	case "SB":
		return SBAS
	case "GN":
		return Combined
	default:
		return GPS
	}
}

// Satellite is one satellite in view, populated from GSV and cross-referenced
// against the active PRN list from GSA.
type Satellite struct {
	PRN           int
	Constellation Constellation
	ElevationDeg  int
	AzimuthDeg    int
	SNR           int
	UsedInFix     bool
}

// Position is the fused fix built up field-by-field from successive sentences.
type Position struct {
	Time time.Time

	// Decimal degrees; north and east positive.
	Latitude  float64
	Longitude float64
	AltitudeM float64

	FixType FixType
	FixMode FixMode

	SatellitesUsed    int
	SatellitesVisible int

	HDOP float64
	VDOP float64
	PDOP float64

	SpeedKnots float64
	SpeedKMH   float64
	CourseDeg  float64

	GeoidSepM float64

	// Rough estimates derived from DOP, not a standard formula.
	HorizAccuracyM float64
	VertAccuracyM  float64
}

// Valid reports whether the fix is usable: some fix type and at least three
// satellites contributing.
func (p Position) Valid() bool {
	return p.FixType != FixNone && p.SatellitesUsed >= 3
}

func (p Position) SpeedMPS() float64 {
	return p.SpeedKnots * 0.514444
}

// DistanceTo returns the great-circle distance in meters to (lat, lon),
// via the Haversine formula.
func (p Position) DistanceTo(lat, lon float64) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := lat * math.Pi / 180
	dlat := (lat - p.Latitude) * math.Pi / 180
	dlon := (lon - p.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// BearingTo returns the initial bearing in degrees [0, 360) toward (lat, lon).
func (p Position) BearingTo(lat, lon float64) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := lat * math.Pi / 180
	dlon := (lon - p.Longitude) * math.Pi / 180

	x := math.Sin(dlon) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)

	deg := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// emptyPosition carries the documented "unknown" defaults: DOPs pinned high
// and accuracy estimates pessimistic until sentences say otherwise.
func emptyPosition(now time.Time) Position {
	return Position{
		Time:           now,
		FixType:        FixNone,
		FixMode:        ModeNoFix,
		HDOP:           99.9,
		VDOP:           99.9,
		PDOP:           99.9,
		HorizAccuracyM: 999.9,
		VertAccuracyM:  999.9,
	}
}
