package nmea

import (
	"fmt"
	"math"
	"testing"
)

func line(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, Checksum(payload))
}

func TestSplitChecksumOK(t *testing.T) {
	s, err := Split(line("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Talker != "GP" || s.Type != "RMC" {
		t.Fatalf("talker=%q type=%q", s.Talker, s.Type)
	}
}

func TestSplitChecksumMismatch(t *testing.T) {
	good := line("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	bad := good[:len(good)-2] + "00"
	if _, err := Split(bad); err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestSplitWithoutDollarOrChecksum(t *testing.T) {
	s, err := Split("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Type != "VTG" {
		t.Fatalf("type=%q", s.Type)
	}
}

func TestParseRejectsBadChecksumAndKeepsState(t *testing.T) {
	d := NewDecoder()
	if !d.Parse(line("GPGGA,123519,4807.0380,N,01131.0000,E,1,08,0.9,545.4,M,46.9,M,,")) {
		t.Fatalf("good GGA rejected")
	}
	before, ok := d.Position()
	if !ok {
		t.Fatalf("expected position")
	}

	bad := line("GPGGA,123519,0000.0000,N,00000.0000,E,0,00,9.9,0.0,M,0.0,M,,")
	bad = bad[:len(bad)-2] + "00"
	if d.Parse(bad) {
		t.Fatalf("bad checksum accepted")
	}
	after, _ := d.Position()
	if before != after {
		t.Fatalf("state changed by rejected sentence")
	}
}

func TestGGAPopulatesFix(t *testing.T) {
	d := NewDecoder()
	if !d.Parse(line("GPGGA,123519,4807.0380,N,01131.0000,E,1,08,0.9,545.4,M,46.9,M,,")) {
		t.Fatalf("parse failed")
	}
	p, ok := d.Position()
	if !ok {
		t.Fatalf("no position")
	}
	if p.FixType != FixGPS {
		t.Fatalf("fix=%v", p.FixType)
	}
	if p.SatellitesUsed != 8 {
		t.Fatalf("sats=%d", p.SatellitesUsed)
	}
	if math.Abs(p.Latitude-48.1173) > 1e-3 || math.Abs(p.Longitude-11.5167) > 1e-3 {
		t.Fatalf("lat=%f lon=%f", p.Latitude, p.Longitude)
	}
	if math.Abs(p.AltitudeM-545.4) > 1e-6 {
		t.Fatalf("alt=%f", p.AltitudeM)
	}
	if math.Abs(p.GeoidSepM-46.9) > 1e-6 {
		t.Fatalf("geoid=%f", p.GeoidSepM)
	}
	if math.Abs(p.HorizAccuracyM-4.5) > 1e-6 {
		t.Fatalf("horiz acc=%f want hdop*5", p.HorizAccuracyM)
	}
}

func TestRMCAddsSpeedCourseAndTimestamp(t *testing.T) {
	d := NewDecoder()
	if !d.Parse(line("GPRMC,123519,A,4807.0380,N,01131.0000,E,022.4,084.4,230394,003.1,W")) {
		t.Fatalf("parse failed")
	}
	p, _ := d.Position()
	if math.Abs(p.SpeedKnots-22.4) > 1e-6 {
		t.Fatalf("kt=%f", p.SpeedKnots)
	}
	if math.Abs(p.SpeedKMH-22.4*1.852) > 1e-6 {
		t.Fatalf("kmh=%f", p.SpeedKMH)
	}
	if math.Abs(p.CourseDeg-84.4) > 1e-6 {
		t.Fatalf("course=%f", p.CourseDeg)
	}
	if p.Time.Year() != 1994 || p.Time.Month() != 3 || p.Time.Day() != 23 {
		t.Fatalf("date=%v", p.Time)
	}
	if p.Time.Hour() != 12 || p.Time.Minute() != 35 || p.Time.Second() != 19 {
		t.Fatalf("time=%v", p.Time)
	}
}

func TestGSASetsModeDOPAndActiveFlags(t *testing.T) {
	d := NewDecoder()
	// Two GSV satellites first, then GSA marking only PRN 4 active.
	if !d.Parse(line("GPGSV,1,1,02,04,77,088,48,05,13,292,33")) {
		t.Fatalf("gsv parse failed")
	}
	if !d.Parse(line("GPGSA,A,3,04,,,,,,,,,,,,2.5,1.3,2.1")) {
		t.Fatalf("gsa parse failed")
	}
	p, _ := d.Position()
	if p.FixMode != Mode3D {
		t.Fatalf("mode=%v", p.FixMode)
	}
	if math.Abs(p.PDOP-2.5) > 1e-6 || math.Abs(p.HDOP-1.3) > 1e-6 || math.Abs(p.VDOP-2.1) > 1e-6 {
		t.Fatalf("dop=%f/%f/%f", p.PDOP, p.HDOP, p.VDOP)
	}
	if math.Abs(p.VertAccuracyM-2.1*5) > 1e-6 {
		t.Fatalf("vert acc=%f", p.VertAccuracyM)
	}

	sats := d.Satellites()
	if len(sats) != 2 {
		t.Fatalf("sats=%d", len(sats))
	}
	for _, s := range sats {
		want := s.PRN == 4
		if s.UsedInFix != want {
			t.Fatalf("prn %d used=%v", s.PRN, s.UsedInFix)
		}
	}
}

func TestGSVConstellationFromTalker(t *testing.T) {
	d := NewDecoder()
	if !d.Parse(line("GLGSV,1,1,01,65,45,100,30")) {
		t.Fatalf("parse failed")
	}
	sats := d.Satellites()
	if len(sats) != 1 || sats[0].Constellation != GLONASS {
		t.Fatalf("sats=%+v", sats)
	}
	if sats[0].ElevationDeg != 45 || sats[0].AzimuthDeg != 100 || sats[0].SNR != 30 {
		t.Fatalf("sat=%+v", sats[0])
	}
}

func TestGSVUpdatesVisibleCount(t *testing.T) {
	d := NewDecoder()
	d.Parse(line("GPGGA,123519,4807.0380,N,01131.0000,E,1,08,0.9,545.4,M,46.9,M,,"))
	d.Parse(line("GPGSV,3,1,11,04,77,088,48,05,13,292,33,09,24,047,27,06,08,120,20"))
	p, _ := d.Position()
	if p.SatellitesVisible != 11 {
		t.Fatalf("visible=%d", p.SatellitesVisible)
	}
}

func TestGLLGatedOnStatus(t *testing.T) {
	d := NewDecoder()
	if d.Parse(line("GPGLL,4916.45,N,12311.12,W,225444,V")) {
		t.Fatalf("void GLL accepted")
	}
	if _, ok := d.Position(); ok {
		t.Fatalf("void GLL created state")
	}
	if !d.Parse(line("GPGLL,4916.45,N,12311.12,W,225444,A")) {
		t.Fatalf("active GLL rejected")
	}
	p, _ := d.Position()
	if math.Abs(p.Latitude-49.27417) > 1e-3 {
		t.Fatalf("lat=%f", p.Latitude)
	}
	if p.Longitude >= 0 {
		t.Fatalf("lon=%f want west negative", p.Longitude)
	}
}

func TestVTGSpeedAndCourse(t *testing.T) {
	d := NewDecoder()
	if !d.Parse(line("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")) {
		t.Fatalf("parse failed")
	}
	p, _ := d.Position()
	if math.Abs(p.CourseDeg-54.7) > 1e-6 || math.Abs(p.SpeedKnots-5.5) > 1e-6 || math.Abs(p.SpeedKMH-10.2) > 1e-6 {
		t.Fatalf("course=%f kt=%f kmh=%f", p.CourseDeg, p.SpeedKnots, p.SpeedKMH)
	}
}

func TestUnknownSentenceIgnored(t *testing.T) {
	d := NewDecoder()
	if d.Parse(line("GPZDA,160012.71,11,03,2004,-1,00")) {
		t.Fatalf("unknown type accepted")
	}
}

func TestResetClearsState(t *testing.T) {
	d := NewDecoder()
	d.Parse(line("GPGGA,123519,4807.0380,N,01131.0000,E,1,08,0.9,545.4,M,46.9,M,,"))
	d.Parse(line("GPGSV,1,1,01,04,77,088,48"))
	d.Reset()
	if _, ok := d.Position(); ok {
		t.Fatalf("position survived reset")
	}
	if len(d.Satellites()) != 0 {
		t.Fatalf("satellites survived reset")
	}
}
