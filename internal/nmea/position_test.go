package nmea

import (
	"math"
	"testing"
)

func TestLatLonRoundTrip(t *testing.T) {
	cases := []struct {
		lat float64
		lon float64
	}{
		{47.6062, -122.3321},
		{-33.8688, 151.2093},
		{0.5, 0.5},
		{-0.75, -0.25},
		{89.9, 179.9},
	}
	for _, c := range cases {
		latStr, latHemi := FormatLat(c.lat)
		lonStr, lonHemi := FormatLon(c.lon)
		lat, ok := ParseLatLon(latStr, latHemi)
		if !ok {
			t.Fatalf("lat parse failed for %q", latStr)
		}
		lon, ok := ParseLatLon(lonStr, lonHemi)
		if !ok {
			t.Fatalf("lon parse failed for %q", lonStr)
		}
		if math.Abs(lat-c.lat) > 1e-4 || math.Abs(lon-c.lon) > 1e-4 {
			t.Fatalf("round trip (%f,%f) -> (%f,%f)", c.lat, c.lon, lat, lon)
		}
	}
}

func TestParseLatLonRejectsJunk(t *testing.T) {
	if _, ok := ParseLatLon("", "N"); ok {
		t.Fatalf("empty accepted")
	}
	if _, ok := ParseLatLon("4807.038", "X"); ok {
		t.Fatalf("bad hemisphere accepted")
	}
	if _, ok := ParseLatLon("4x07.038", "N"); ok {
		t.Fatalf("non-numeric accepted")
	}
}

func TestDistanceToSelfIsZero(t *testing.T) {
	p := Position{Latitude: 47.6062, Longitude: -122.3321}
	if d := p.DistanceTo(p.Latitude, p.Longitude); d > 1.0 {
		t.Fatalf("distance to self = %f m", d)
	}
}

func TestDistanceSeattlePortland(t *testing.T) {
	seattle := Position{Latitude: 47.6062, Longitude: -122.3321}
	d := seattle.DistanceTo(45.5051, -122.6750)
	if d < 230_000 || d > 240_000 {
		t.Fatalf("seattle-portland = %f m", d)
	}
}

func TestBearingCardinal(t *testing.T) {
	p := Position{Latitude: 47.0, Longitude: -122.0}
	north := p.BearingTo(48.0, -122.0)
	if north > 5 && north < 355 {
		t.Fatalf("bearing north = %f", north)
	}
	east := p.BearingTo(47.0, -121.0)
	if math.Abs(east-90) > 5 {
		t.Fatalf("bearing east = %f", east)
	}
}

func TestValidRequiresFixAndSatellites(t *testing.T) {
	p := Position{FixType: FixGPS, SatellitesUsed: 3}
	if !p.Valid() {
		t.Fatalf("expected valid")
	}
	p.SatellitesUsed = 2
	if p.Valid() {
		t.Fatalf("valid with 2 sats")
	}
	p = Position{FixType: FixNone, SatellitesUsed: 9}
	if p.Valid() {
		t.Fatalf("valid with no fix")
	}
}

func TestSpeedMPS(t *testing.T) {
	p := Position{SpeedKnots: 10}
	if math.Abs(p.SpeedMPS()-5.14444) > 1e-4 {
		t.Fatalf("mps=%f", p.SpeedMPS())
	}
}
