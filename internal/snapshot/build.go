package snapshot

import (
	"fmt"
	"math"

	"github.com/hangarwatch/aerofuse/internal/enrich"
	"github.com/hangarwatch/aerofuse/internal/fusion"
	"github.com/hangarwatch/aerofuse/internal/geo"
)

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Build fuses a MergedAircraft's telemetry with its geospatial
// derivation and reference-data enrichment into a published Plane.
func Build(m fusion.MergedAircraft, center geo.Point, radiusNM float64, e enrich.Enriched) *Plane {
	p := &Plane{
		Hex:             m.Hex,
		MergedTimestamp: m.MergedTimestamp,

		Lat: m.Lat, Lon: m.Lon,
		AltBaroFt:       m.AltBaroFt,
		GroundSpeedKt:   m.GroundSpeedKt,
		TrackDeg:        m.TrackDeg,
		VerticalRateFPM: m.VerticalRateFPM,
		Squawk:          m.Squawk,
		OnGround:        m.OnGround,

		Registration:     m.Registration,
		AircraftTypeICAO: m.AircraftTypeICAO,
		AirlineICAO:      m.AirlineICAO,
		AirlineIATA:      e.AirlineIATA,
		Callsign:         m.Callsign,
		FlightNo:         m.FlightNo,
		OriginIATA:       m.OriginIATA,
		DestinationIATA:  m.DestinationIATA,
		OriginCountry:    m.OriginCountry,

		IsMilitary: m.IsMilitary.String(),

		PositionTimestamp: m.PositionTimestamp,
		PositionAgeSec:    m.PositionAgeSec,

		Classification: e.Classification,

		AirlineLogoCode: e.AirlineLogoCode,
		AirlineLogoURL:  e.AirlineLogoURL,

		CountryFlagCode:   e.CountryFlagCode,
		CountryFlagSource: e.CountryFlagSource,
		CountryFlagURL:    e.CountryFlagURL,

		Extras: m.Extras,
	}

	p.Sources = make([]string, len(m.Sources))
	for i, s := range m.Sources {
		p.Sources[i] = string(s)
	}

	p.FieldSources = make(map[string]string, len(m.FieldSources))
	for field, provID := range m.FieldSources {
		p.FieldSources[field] = string(provID)
	}

	p.Lookups.Aircraft = AircraftLookup{
		ICAO: e.Aircraft.ICAO, Name: e.Aircraft.Name,
		Manufacturer: e.Aircraft.Manufacturer, Model: e.Aircraft.Model,
		SeatsMax: e.Aircraft.SeatsMax, IATAAliases: e.Aircraft.IATAAliases,
		LookupStatus: e.Aircraft.LookupStatus,
	}
	p.Lookups.Airline = AirlineLookup{
		ICAO: e.Airline.ICAO, IATA: e.Airline.IATA, Name: e.Airline.Name,
		Callsign: e.Airline.Callsign, CountryCode: e.Airline.CountryCode,
		CountryName: e.Airline.CountryName, LookupStatus: e.Airline.LookupStatus,
	}
	p.Lookups.OriginAirport = airportFromLookup(e.Origin)
	p.Lookups.DestinationAirport = airportFromLookup(e.Destination)

	p.SoulsOnBoardMax = e.Aircraft.SoulsOnBoardMax
	p.SoulsOnBoardMaxIsEstimate = e.Aircraft.SoulsIsEstimate
	if e.Aircraft.SoulsOnBoardMax != nil {
		p.SoulsOnBoardMaxText = fmt.Sprintf("%d", *e.Aircraft.SoulsOnBoardMax)
	} else {
		p.SoulsOnBoardMaxText = "N/A"
	}

	if p.Lat != nil && p.Lon != nil {
		pos := geo.Point{Lat: *p.Lat, Lon: *p.Lon}
		d := geo.DistanceNM(center, pos)
		b := geo.InitialBearingDeg(center, pos)
		p.DistanceNM = &d
		p.BearingDeg = &b
		p.WithinRadius = d <= radiusNM

		if e.Destination.LookupStatus == "found" && p.GroundSpeedKt != nil && *p.GroundSpeedKt > 0 {
			dest := geo.Point{Lat: e.Destination.Lat, Lon: e.Destination.Lon}
			remaining := round1(geo.DistanceNM(pos, dest))
			if eta, ok := geo.ETAMinutes(remaining, *p.GroundSpeedKt); ok {
				eta = round1(eta)
				p.RemainingNM = &remaining
				p.ETAMin = &eta
			}
		}
	}

	if e.Airline.LookupStatus == "found" && e.AirlineIATA != "" {
		p.AirlineKey = e.AirlineIATA
	} else if m.AirlineICAO != "" {
		p.AirlineKey = m.AirlineICAO
	}
	if m.Registration != "" {
		p.PlaneKey = m.Registration
	} else {
		p.PlaneKey = m.AircraftTypeICAO
	}

	return p
}

func airportFromLookup(a enrich.AirportLookup) AirportLookup {
	return AirportLookup{
		IATA: a.IATA, Name: a.Name, City: a.City, Region: a.Region,
		CountryCode: a.CountryCode, CountryName: a.CountryName,
		Lat: a.Lat, Lon: a.Lon, ElevationFt: a.ElevationFt,
		LookupStatus: a.LookupStatus,
	}
}
