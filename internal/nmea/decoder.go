package nmea

import (
	"strconv"
	"strings"
	"time"
)

// nowFn is swappable in tests.
var nowFn = func() time.Time { return time.Now().UTC() }

// Decoder fuses a stream of sentences into one Position accumulator plus a
// satellite table keyed by PRN.
//
// Parse never returns an error: a malformed or checksum-failed sentence is
// dropped and the prior state is left untouched.
type Decoder struct {
	pos  *Position
	sats map[int]*Satellite
	// satOrder preserves first-seen PRN order for stable Satellites output.
	satOrder []int
}

func NewDecoder() *Decoder {
	return &Decoder{sats: make(map[int]*Satellite)}
}

// Parse consumes one sentence and reports whether it contributed state.
func (d *Decoder) Parse(line string) bool {
	sent, err := Split(line)
	if err != nil {
		return false
	}
	switch sent.Type {
	case "GGA":
		return d.applyGGA(sent.Fields)
	case "RMC":
		return d.applyRMC(sent.Fields)
	case "GSA":
		return d.applyGSA(sent.Fields)
	case "GSV":
		return d.applyGSV(sent.Talker, sent.Fields)
	case "VTG":
		return d.applyVTG(sent.Fields)
	case "GLL":
		return d.applyGLL(sent.Fields)
	default:
		return false
	}
}

// Position returns a copy of the accumulator; ok is false before the first
// contributing sentence.
func (d *Decoder) Position() (Position, bool) {
	if d.pos == nil {
		return Position{}, false
	}
	return *d.pos, true
}

func (d *Decoder) Satellites() []Satellite {
	out := make([]Satellite, 0, len(d.satOrder))
	for _, prn := range d.satOrder {
		out = append(out, *d.sats[prn])
	}
	return out
}

// Reset clears all decoder state. This is the only way fields return to their
// defaults; individual sentences only ever merge forward.
func (d *Decoder) Reset() {
	d.pos = nil
	d.sats = make(map[int]*Satellite)
	d.satOrder = nil
}

func (d *Decoder) position() *Position {
	if d.pos == nil {
		p := emptyPosition(nowFn())
		d.pos = &p
	}
	return d.pos
}

// GGA: fix data.
//
//	1: time  2/3: lat,N/S  4/5: lon,E/W  6: fix quality
//	7: satellites used  8: HDOP  9: altitude (m)  11: geoid separation (m)
func (d *Decoder) applyGGA(f []string) bool {
	if len(f) < 15 {
		return false
	}
	p := d.position()

	if lat, ok := ParseLatLon(f[2], f[3]); ok {
		p.Latitude = lat
	}
	if lon, ok := ParseLatLon(f[4], f[5]); ok {
		p.Longitude = lon
	}
	if q, ok := parseIntField(f[6]); ok {
		p.FixType = fixTypeFromQuality(q)
	}
	if sats, ok := parseIntField(f[7]); ok {
		p.SatellitesUsed = sats
	}
	if hdop, ok := parseFloatField(f[8]); ok {
		p.HDOP = hdop
		p.HorizAccuracyM = hdop * 5.0
	}
	if alt, ok := parseFloatField(f[9]); ok {
		p.AltitudeM = alt
	}
	if geoid, ok := parseFloatField(f[11]); ok {
		p.GeoidSepM = geoid
	}
	return true
}

func fixTypeFromQuality(q int) FixType {
	switch q {
	case 1:
		return FixGPS
	case 2:
		return FixDGPS
	case 3:
		return FixPPS
	case 4:
		return FixRTK
	case 5:
		return FixRTKFloat
	case 6:
		return FixEstimated
	default:
		return FixNone
	}
}

// RMC: recommended minimum.
//
//	1: time (hhmmss)  2: status  3/4: lat,N/S  5/6: lon,E/W
//	7: speed over ground (kt)  8: course (deg)  9: date (ddmmyy)
func (d *Decoder) applyRMC(f []string) bool {
	if len(f) < 12 {
		return false
	}
	p := d.position()

	if lat, ok := ParseLatLon(f[3], f[4]); ok {
		p.Latitude = lat
	}
	if lon, ok := ParseLatLon(f[5], f[6]); ok {
		p.Longitude = lon
	}
	if kt, ok := parseFloatField(f[7]); ok {
		p.SpeedKnots = kt
		p.SpeedKMH = kt * 1.852
	}
	if crs, ok := parseFloatField(f[8]); ok {
		p.CourseDeg = crs
	}
	if ts, ok := parseRMCTime(f[1], f[9]); ok {
		p.Time = ts
	}
	return true
}

func parseRMCTime(timeStr, dateStr string) (time.Time, bool) {
	timeStr = strings.TrimSpace(timeStr)
	dateStr = strings.TrimSpace(dateStr)
	if len(timeStr) < 6 || len(dateStr) < 6 {
		return time.Time{}, false
	}
	hh, e1 := strconv.Atoi(timeStr[0:2])
	mm, e2 := strconv.Atoi(timeStr[2:4])
	ss, e3 := strconv.Atoi(timeStr[4:6])
	day, e4 := strconv.Atoi(dateStr[0:2])
	mon, e5 := strconv.Atoi(dateStr[2:4])
	yy, e6 := strconv.Atoi(dateStr[4:6])
	for _, err := range []error{e1, e2, e3, e4, e5, e6} {
		if err != nil {
			return time.Time{}, false
		}
	}
	if mon < 1 || mon > 12 || day < 1 || day > 31 || hh > 23 || mm > 59 || ss > 60 {
		return time.Time{}, false
	}
	return time.Date(2000+yy, time.Month(mon), day, hh, mm, ss, 0, time.UTC), true
}

// GSA: fix mode, active satellite PRNs and DOP values.
//
//	2: mode (1/2/3)  3..14: active PRNs  15: PDOP  16: HDOP  17: VDOP
func (d *Decoder) applyGSA(f []string) bool {
	if len(f) < 18 {
		return false
	}
	p := d.position()

	if mode, ok := parseIntField(f[2]); ok && mode >= 1 && mode <= 3 {
		p.FixMode = FixMode(mode)
	}

	active := make(map[int]bool, 12)
	for i := 3; i <= 14; i++ {
		if prn, ok := parseIntField(f[i]); ok {
			active[prn] = true
		}
	}

	if pdop, ok := parseFloatField(f[15]); ok {
		p.PDOP = pdop
	}
	if hdop, ok := parseFloatField(f[16]); ok {
		p.HDOP = hdop
		p.HorizAccuracyM = hdop * 5.0
	}
	if vdop, ok := parseFloatField(f[17]); ok {
		p.VDOP = vdop
		p.VertAccuracyM = vdop * 5.0
	}

	for prn, sat := range d.sats {
		sat.UsedInFix = active[prn]
	}
	return true
}

// GSV: satellites in view, four per message across a numbered batch.
// The constellation comes from the talker ID.
//
//	1: total messages  2: message number  3: satellites in view
//	then repeating (PRN, elevation, azimuth, SNR)
func (d *Decoder) applyGSV(talker string, f []string) bool {
	if len(f) < 4 {
		return false
	}
	system := constellationFromTalker(talker)

	for i := 4; i+3 < len(f); i += 4 {
		prn, ok := parseIntField(f[i])
		if !ok || prn <= 0 {
			continue
		}
		elev, _ := parseIntField(f[i+1])
		azim, _ := parseIntField(f[i+2])
		snr, _ := parseIntField(f[i+3])

		if _, seen := d.sats[prn]; !seen {
			d.satOrder = append(d.satOrder, prn)
		}
		d.sats[prn] = &Satellite{
			PRN:           prn,
			Constellation: system,
			ElevationDeg:  elev,
			AzimuthDeg:    azim,
			SNR:           snr,
		}
	}

	if total, ok := parseIntField(f[3]); ok && d.pos != nil {
		d.pos.SatellitesVisible = total
	}
	return true
}

// VTG: course and ground speed only.
//
//	1: true course  5: speed (kt)  7: speed (km/h)
func (d *Decoder) applyVTG(f []string) bool {
	if len(f) < 9 {
		return false
	}
	p := d.position()

	if crs, ok := parseFloatField(f[1]); ok {
		p.CourseDeg = crs
	}
	if kt, ok := parseFloatField(f[5]); ok {
		p.SpeedKnots = kt
	}
	if kmh, ok := parseFloatField(f[7]); ok {
		p.SpeedKMH = kmh
	}
	return true
}

// GLL: lat/lon only, gated on the status flag (A=active).
//
//	1/2: lat,N/S  3/4: lon,E/W  6: status
func (d *Decoder) applyGLL(f []string) bool {
	if len(f) < 7 {
		return false
	}
	if strings.TrimSpace(f[6]) != "A" {
		return false
	}
	p := d.position()

	if lat, ok := ParseLatLon(f[1], f[2]); ok {
		p.Latitude = lat
	}
	if lon, ok := ParseLatLon(f[3], f[4]); ok {
		p.Longitude = lon
	}
	return true
}
