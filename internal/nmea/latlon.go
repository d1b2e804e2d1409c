package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseLatLon decodes an NMEA coordinate plus hemisphere letter into decimal
// degrees.
//
// Latitude is DDMM.MMMM, longitude DDDMM.MMMM: the last two digits before the
// decimal point are whole minutes. S and W negate the result.
func ParseLatLon(v, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	switch hemi {
	case "N", "S", "E", "W":
	default:
		return 0, false
	}

	intPart := v
	if dot := strings.IndexByte(v, '.'); dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}

// FormatLat encodes decimal degrees as DDMM.MMMM plus hemisphere.
func FormatLat(lat float64) (string, string) {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
	}
	deg := int(math.Abs(lat))
	mins := (math.Abs(lat) - float64(deg)) * 60
	return fmt.Sprintf("%02d%07.4f", deg, mins), hemi
}

// FormatLon encodes decimal degrees as DDDMM.MMMM plus hemisphere.
func FormatLon(lon float64) (string, string) {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
	}
	deg := int(math.Abs(lon))
	mins := (math.Abs(lon) - float64(deg)) * 60
	return fmt.Sprintf("%03d%07.4f", deg, mins), hemi
}
