package fusion

import (
	"testing"

	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/internal/provider"
)

func f(v float64) *float64 { return &v }

func TestMergePicksFreshestWithinPriority(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "ABC123", Lat: f(1), Lon: f(1), AgeSeconds: 10, Extras: map[string]any{}},
		{Provider: provider.ProviderB, Hex: "ABC123", Lat: f(2), Lon: f(2), AgeSeconds: 3, Extras: map[string]any{}},
		{Provider: provider.ProviderC, Hex: "ABC123", Lat: f(3), Lon: f(3), AgeSeconds: 3, Extras: map[string]any{}},
	}

	merged := Merge(obs, []string{"A", "B", "C"})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged aircraft, got %d", len(merged))
	}

	m := merged[0]
	// B and C tie at age 3; priority order picks B.
	if *m.Lat != 2 {
		t.Fatalf("expected lat from provider B (freshest + priority), got %f", *m.Lat)
	}
	if m.FieldSources["latitude"] != provider.ProviderB {
		t.Fatalf("expected field source B, got %s", m.FieldSources["latitude"])
	}
}

func TestMergeFallsBackWhenFreshestHasNoPriorityMatch(t *testing.T) {
	// Only C has a value; A/B priority order should still resolve to C.
	obs := []provider.Observation{
		{Provider: provider.ProviderC, Hex: "DEF456", Lat: f(5), AgeSeconds: 1, Extras: map[string]any{}},
	}

	merged := Merge(obs, []string{"A", "B"})
	if merged[0].FieldSources["latitude"] != provider.ProviderC {
		t.Fatalf("expected fallback to provider C, got %s", merged[0].FieldSources["latitude"])
	}
}

func TestIdentityFieldPrecedence(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "HEX1", AircraftTypeICAO: "A320", AgeSeconds: 5, Extras: map[string]any{}},
		{Provider: provider.ProviderB, Hex: "HEX1", Registration: "N123AB", AirlineICAO: "UAL", AircraftTypeICAO: "B738", OriginIATA: "ORD", DestinationIATA: "LAX", AgeSeconds: 5, Extras: map[string]any{}},
		{Provider: provider.ProviderC, Hex: "HEX1", AircraftTypeICAO: "B737", FlightNo: "UAL123", AgeSeconds: 5, Extras: map[string]any{}},
	}

	merged := Merge(obs, []string{"A", "B", "C"})[0]

	if merged.Registration != "N123AB" {
		t.Fatalf("expected registration from B, got %q", merged.Registration)
	}
	if merged.AircraftTypeICAO != "B737" {
		t.Fatalf("expected aircraft_type_icao from C (C,B,A precedence), got %q", merged.AircraftTypeICAO)
	}
	if merged.AirlineICAO != "UAL" {
		t.Fatalf("expected airline_icao from B, got %q", merged.AirlineICAO)
	}
	if merged.OriginIATA != "ORD" || merged.DestinationIATA != "LAX" {
		t.Fatalf("expected origin/destination from B, got %q/%q", merged.OriginIATA, merged.DestinationIATA)
	}
}

func TestMilitaryThreeValuedMerge(t *testing.T) {
	cases := []struct {
		name     string
		values   []milcache.TriState
		expected milcache.TriState
	}{
		{"any true wins", []milcache.TriState{milcache.False, milcache.True, milcache.Unknown}, milcache.True},
		{"false when no true", []milcache.TriState{milcache.False, milcache.Unknown}, milcache.False},
		{"unknown when nothing decisive", []milcache.TriState{milcache.Unknown, milcache.Unknown}, milcache.Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := make([]provider.Observation, len(tc.values))
			for i, v := range tc.values {
				obs[i] = provider.Observation{Provider: provider.ID(string(rune('A' + i))), Hex: "MIL1", IsMilitary: v, Extras: map[string]any{}}
			}
			merged := Merge(obs, []string{"A", "B", "C"})[0]
			if merged.IsMilitary != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, merged.IsMilitary)
			}
		})
	}
}

func TestExtrasPassthrough(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "EX1", AgeSeconds: 1, Extras: map[string]any{"category": "A3"}},
	}
	merged := Merge(obs, []string{"A", "B", "C"})[0]
	if merged.Extras["extras_a_category"] != "A3" {
		t.Fatalf("expected extras passthrough, got %+v", merged.Extras)
	}
}

func TestFieldSourcesUsesTelemetryFieldNames(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "FS1", Lat: f(1), Lon: f(2), AltBaroFt: f(30000), AgeSeconds: 1, Extras: map[string]any{}},
	}
	merged := Merge(obs, []string{"A", "B", "C"})[0]

	if merged.FieldSources["latitude"] != provider.ProviderA {
		t.Fatalf("expected field_sources key 'latitude', got %+v", merged.FieldSources)
	}
	if merged.FieldSources["longitude"] != provider.ProviderA {
		t.Fatalf("expected field_sources key 'longitude', got %+v", merged.FieldSources)
	}
	if merged.FieldSources["altitude_ft"] != provider.ProviderA {
		t.Fatalf("expected field_sources key 'altitude_ft', got %+v", merged.FieldSources)
	}
	if _, ok := merged.FieldSources["lat"]; ok {
		t.Fatalf("did not expect legacy key 'lat' in field_sources: %+v", merged.FieldSources)
	}
}

func TestMergeDropsUnknownAndEmptyHex(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "UNKNOWN", Lat: f(1), AgeSeconds: 1, Extras: map[string]any{}},
		{Provider: provider.ProviderB, Hex: "", Lat: f(2), AgeSeconds: 1, Extras: map[string]any{}},
		{Provider: provider.ProviderC, Hex: "ABC999", Lat: f(3), AgeSeconds: 1, Extras: map[string]any{}},
	}

	merged := Merge(obs, []string{"A", "B", "C"})
	if len(merged) != 1 {
		t.Fatalf("expected UNKNOWN and empty hex to be dropped, got %d merged aircraft: %+v", len(merged), merged)
	}
	if merged[0].Hex != "ABC999" {
		t.Fatalf("expected surviving aircraft to be ABC999, got %q", merged[0].Hex)
	}
}

func TestResolvePositionAgeFallsBackToLongitude(t *testing.T) {
	obs := []provider.Observation{
		{Provider: provider.ProviderA, Hex: "POS1", Lon: f(10), AgeSeconds: 7, FetchedAtUnix: 1000, Extras: map[string]any{}},
	}
	merged := Merge(obs, []string{"A", "B", "C"})[0]

	if merged.PositionAgeSec != 7 {
		t.Fatalf("expected position age to fall back to the longitude source, got %f", merged.PositionAgeSec)
	}
	if merged.PositionTimestamp != 993 {
		t.Fatalf("expected position timestamp derived from longitude source, got %d", merged.PositionTimestamp)
	}
}
