package snapshot

import (
	"testing"

	"github.com/hangarwatch/aerofuse/internal/enrich"
	"github.com/hangarwatch/aerofuse/internal/fusion"
	"github.com/hangarwatch/aerofuse/internal/geo"
	"github.com/hangarwatch/aerofuse/internal/milcache"
)

func fPtr(v float64) *float64 { return &v }

func TestBuildComputesDistanceBearingWithinRadius(t *testing.T) {
	center := geo.Point{Lat: 46.168689, Lon: -123.020309}

	var m fusion.MergedAircraft
	m.Hex = "AC82EC"
	m.Lat = fPtr(46.0)
	m.Lon = fPtr(-123.0)
	m.IsMilitary = milcache.Unknown

	p := Build(m, center, 50, enrich.Enriched{})

	if p.DistanceNM == nil || *p.DistanceNM <= 0 {
		t.Fatalf("expected a positive distance, got %+v", p.DistanceNM)
	}
	if p.BearingDeg == nil || *p.BearingDeg < 0 || *p.BearingDeg >= 360 {
		t.Fatalf("bearing out of range: %+v", p.BearingDeg)
	}
	if !p.WithinRadius {
		t.Fatal("expected within radius for a nearby point")
	}
	if p.SoulsOnBoardMaxText != "N/A" {
		t.Fatalf("expected N/A souls text when unresolved, got %q", p.SoulsOnBoardMaxText)
	}
}

func TestBuildETAWhenDestinationAndSpeedKnown(t *testing.T) {
	center := geo.Point{Lat: 46.168689, Lon: -123.020309}
	speed := 200.0

	var m fusion.MergedAircraft
	m.Hex = "AC82EC"
	m.Lat = fPtr(46.0)
	m.Lon = fPtr(-123.0)
	m.GroundSpeedKt = &speed
	m.IsMilitary = milcache.Unknown

	e := enrich.Enriched{
		Destination: enrich.AirportLookup{LookupStatus: "found", Lat: 47.0, Lon: -122.0},
	}

	p := Build(m, center, 50, e)

	if p.RemainingNM == nil || p.ETAMin == nil {
		t.Fatal("expected ETA to be computed when destination and speed are known")
	}
	if *p.ETAMin != round1(*p.RemainingNM/speed*60.0) {
		t.Fatalf("eta_min does not match remaining_nm/speed*60 rounded to 1dp: %+v vs %+v", *p.ETAMin, *p.RemainingNM)
	}
}

func TestBuildOmitsETAWhenSpeedUnknown(t *testing.T) {
	center := geo.Point{Lat: 46.168689, Lon: -123.020309}

	var m fusion.MergedAircraft
	m.Hex = "AC82EC"
	m.Lat = fPtr(46.0)
	m.Lon = fPtr(-123.0)
	m.IsMilitary = milcache.Unknown

	e := enrich.Enriched{
		Destination: enrich.AirportLookup{LookupStatus: "found", Lat: 47.0, Lon: -122.0},
	}

	p := Build(m, center, 50, e)

	if p.RemainingNM != nil || p.ETAMin != nil {
		t.Fatal("expected no ETA when ground speed is unknown")
	}
}
