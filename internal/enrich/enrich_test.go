package enrich

import (
	"testing"

	"github.com/hangarwatch/aerofuse/internal/catalog"
	"github.com/hangarwatch/aerofuse/internal/milcache"
)

func TestClassifyMilitaryWins(t *testing.T) {
	got := Classify(milcache.True, AircraftLookup{}, 8)
	if got != "Military" {
		t.Fatalf("expected Military, got %q", got)
	}
}

func TestClassifyPrivateVsCommercial(t *testing.T) {
	seats := 6
	lookup := AircraftLookup{SoulsOnBoardMax: &seats}
	if got := Classify(milcache.False, lookup, 8); got != "Private" {
		t.Fatalf("expected Private for 6 seats with threshold 8, got %q", got)
	}

	seats = 180
	lookup.SoulsOnBoardMax = &seats
	if got := Classify(milcache.Unknown, lookup, 8); got != "Commercial" {
		t.Fatalf("expected Commercial for 180 seats, got %q", got)
	}
}

func TestClassifyUnresolvedWhenNoSeats(t *testing.T) {
	if got := Classify(milcache.Unknown, AircraftLookup{}, 8); got != "" {
		t.Fatalf("expected empty classification when seats unknown, got %q", got)
	}
}

func TestEstimateSeatMaxPrefixAndExact(t *testing.T) {
	if seats, ok := estimateSeatMax("B738"); !ok || seats != 230 {
		t.Fatalf("expected 230 seats for B738 prefix match, got %d, ok=%v", seats, ok)
	}
	if seats, ok := estimateSeatMax("B350"); !ok || seats != 11 {
		t.Fatalf("expected 11 seats for exact B350 match, got %d, ok=%v", seats, ok)
	}
	if _, ok := estimateSeatMax("ZZZZ"); ok {
		t.Fatal("expected no match for unknown type code")
	}
}

func TestCountryFlagSelection(t *testing.T) {
	e := &Enricher{countryFlagBaseURL: "https://example.test/flags"}

	cases := []struct {
		name       string
		origin     string
		dest       string
		wantCode   string
		wantSource string
	}{
		{"both foreign, dest wins", "FR", "DE", "DE", "destination"},
		{"dest is US, origin foreign -> origin wins", "FR", "US", "FR", "origin"},
		{"origin US, dest foreign -> dest wins", "US", "FR", "FR", "destination"},
		{"same country -> origin", "US", "US", "US", "origin"},
		{"only origin known", "CA", "", "CA", "origin"},
		{"only destination known", "", "JP", "JP", "destination"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &Enriched{
				Origin:      AirportLookup{CountryCode: tc.origin},
				Destination: AirportLookup{CountryCode: tc.dest},
			}
			e.resolveCountryFlag(out)
			if out.CountryFlagCode != tc.wantCode || out.CountryFlagSource != tc.wantSource {
				t.Fatalf("expected %s/%s, got %s/%s", tc.wantCode, tc.wantSource, out.CountryFlagCode, out.CountryFlagSource)
			}
		})
	}
}

func TestLookupAirlineByIATAFlightPrefixRequiresIATAShape(t *testing.T) {
	cats := &catalog.Catalogs{
		Airlines:       map[string]catalog.Airline{},
		AirlinesByIATA: map[string]catalog.Airline{"UA": {ICAO: "UAL", IATA: "UA", Name: "United Airlines"}},
	}
	e := NewEnricher(cats, 8, "", "", "")

	// Not IATA-flight-shaped -> no inference.
	if got := e.lookupAirline("", "united123"); got.LookupStatus != "not_found" {
		t.Fatalf("expected not_found for malformed flight number, got %+v", got)
	}

	// IATA-shaped -> infers from prefix.
	got := e.lookupAirline("", "UA123")
	if got.LookupStatus != "found" || got.Name != "United Airlines" {
		t.Fatalf("expected United Airlines inferred from IATA prefix, got %+v", got)
	}
}
