// Package fusion merges per-provider Observations of the same aircraft
// into one MergedAircraft, picking each field from whichever
// observation is freshest among the configured priority order.
package fusion

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/internal/provider"
)

var iataFlightPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}\d{1,4}[A-Z]?$`)

// byHex groups raw observations under their hex code, dropping any
// observation whose hex is empty or the sentinel "UNKNOWN".
func byHex(observations []provider.Observation) map[string][]provider.Observation {
	grouped := make(map[string][]provider.Observation)
	for _, obs := range observations {
		hex := strings.ToUpper(strings.TrimSpace(obs.Hex))
		if hex == "" || hex == "UNKNOWN" {
			continue
		}
		grouped[hex] = append(grouped[hex], obs)
	}
	return grouped
}

// Merge groups observations by hex and fuses each group into a
// MergedAircraft, sorted by freshness (then hex, for determinism).
func Merge(observations []provider.Observation, defaultPriority []string) []MergedAircraft {
	now := time.Now().Unix()
	grouped := byHex(observations)

	merged := make([]MergedAircraft, 0, len(grouped))
	for hex, obsList := range grouped {
		merged = append(merged, mergeOne(hex, obsList, defaultPriority, now))
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].MinAgeSeconds != merged[j].MinAgeSeconds {
			return merged[i].MinAgeSeconds < merged[j].MinAgeSeconds
		}
		return merged[i].Hex < merged[j].Hex
	})

	return merged
}

// candidate is one provider's contribution toward a single field.
type candidate struct {
	provider provider.ID
	age      float64
	present  bool
}

// pickSource returns, among candidates that have a value, the one from
// the priority-ordered provider in the freshest tier; when none of the
// freshest candidates appears in priority, falls back to the first
// priority-ordered provider with any value at all.
func pickSource(candidates []candidate, priority []string) (provider.ID, bool) {
	present := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.present {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return "", false
	}

	minAge := present[0].age
	for _, c := range present[1:] {
		if c.age < minAge {
			minAge = c.age
		}
	}

	freshest := make(map[provider.ID]bool)
	for _, c := range present {
		if c.age == minAge {
			freshest[c.provider] = true
		}
	}

	for _, p := range priority {
		if freshest[provider.ID(p)] {
			return provider.ID(p), true
		}
	}

	byProvider := make(map[provider.ID]bool)
	for _, c := range present {
		byProvider[c.provider] = true
	}
	for _, p := range priority {
		if byProvider[provider.ID(p)] {
			return provider.ID(p), true
		}
	}

	return present[0].provider, true
}

func mergeOne(hex string, obsList []provider.Observation, defaultPriority []string, now int64) MergedAircraft {
	m := MergedAircraft{
		Hex:             hex,
		MergedTimestamp: now,
		FieldSources:    map[string]provider.ID{},
		Extras:          map[string]any{},
	}

	byID := make(map[provider.ID]*provider.Observation, len(obsList))
	minAge := -1.0
	for i := range obsList {
		o := &obsList[i]
		byID[o.Provider] = o
		if minAge < 0 || o.AgeSeconds < minAge {
			minAge = o.AgeSeconds
		}
		for k, v := range o.Extras {
			m.Extras[fmt.Sprintf("extras_%s_%s", strings.ToLower(string(o.Provider)), k)] = v
		}
	}
	m.MinAgeSeconds = minAge

	m.pickNumericFields(obsList, defaultPriority)
	m.pickIdentityFields(byID)
	m.mergeMilitary(obsList)
	m.resolvePositionAge(obsList)
	m.collectSources()

	return m
}

// collectSources derives the Sources set as the sorted, de-duplicated
// providers that won at least one field.
func (m *MergedAircraft) collectSources() {
	seen := make(map[provider.ID]bool, len(m.FieldSources))
	for _, p := range m.FieldSources {
		seen[p] = true
	}
	ordered := make([]provider.ID, 0, len(seen))
	for _, p := range []provider.ID{provider.ProviderA, provider.ProviderB, provider.ProviderC} {
		if seen[p] {
			ordered = append(ordered, p)
		}
	}
	m.Sources = ordered
}

// pickNumericFields resolves the telemetry fields using the general
// freshest-with-priority-tiebreak rule.
func (m *MergedAircraft) pickNumericFields(obsList []provider.Observation, priority []string) {
	pick := func(name string, has func(provider.Observation) bool) (provider.ID, bool) {
		candidates := make([]candidate, 0, len(obsList))
		for _, o := range obsList {
			candidates = append(candidates, candidate{provider: o.Provider, age: o.AgeSeconds, present: has(o)})
		}
		winner, ok := pickSource(candidates, priority)
		if ok {
			m.FieldSources[name] = winner
		}
		return winner, ok
	}

	if winner, ok := pick("latitude", func(o provider.Observation) bool { return o.Lat != nil }); ok {
		m.Lat = byID(obsList, winner).Lat
	}
	if winner, ok := pick("longitude", func(o provider.Observation) bool { return o.Lon != nil }); ok {
		m.Lon = byID(obsList, winner).Lon
	}
	if winner, ok := pick("altitude_ft", func(o provider.Observation) bool { return o.AltBaroFt != nil }); ok {
		m.AltBaroFt = byID(obsList, winner).AltBaroFt
	}
	if winner, ok := pick("ground_speed_kt", func(o provider.Observation) bool { return o.GroundSpeedKt != nil }); ok {
		m.GroundSpeedKt = byID(obsList, winner).GroundSpeedKt
	}
	if winner, ok := pick("track_deg", func(o provider.Observation) bool { return o.TrackDeg != nil }); ok {
		m.TrackDeg = byID(obsList, winner).TrackDeg
	}
	if winner, ok := pick("vertical_rate_fpm", func(o provider.Observation) bool { return o.VerticalRateFPM != nil }); ok {
		m.VerticalRateFPM = byID(obsList, winner).VerticalRateFPM
	}
	if winner, ok := pick("squawk", func(o provider.Observation) bool { return o.Squawk != nil }); ok {
		m.Squawk = byID(obsList, winner).Squawk
	}
	if winner, ok := pick("on_ground", func(o provider.Observation) bool { return o.OnGround != nil }); ok {
		m.OnGround = byID(obsList, winner).OnGround
	}
}

func byID(obsList []provider.Observation, id provider.ID) *provider.Observation {
	for i := range obsList {
		if obsList[i].Provider == id {
			return &obsList[i]
		}
	}
	return nil
}

// pickIdentityFields applies the fixed per-field precedence the
// identity and routing fields use, instead of the freshness-based rule
// (these fields don't vary cycle-to-cycle the way telemetry does, so a
// fixed provider ranking is the more meaningful signal).
func (m *MergedAircraft) pickIdentityFields(byID map[provider.ID]*provider.Observation) {
	// registration: B then C
	if o, ok := byID[provider.ProviderB]; ok && o.Registration != "" {
		m.Registration = o.Registration
		m.FieldSources["registration"] = provider.ProviderB
	} else if o, ok := byID[provider.ProviderC]; ok && o.Registration != "" {
		m.Registration = o.Registration
		m.FieldSources["registration"] = provider.ProviderC
	}

	// aircraft_type_icao: C, B, A
	for _, id := range []provider.ID{provider.ProviderC, provider.ProviderB, provider.ProviderA} {
		if o, ok := byID[id]; ok && o.AircraftTypeICAO != "" {
			m.AircraftTypeICAO = o.AircraftTypeICAO
			m.FieldSources["aircraft_type_icao"] = id
			break
		}
	}

	// airline_icao: B only
	if o, ok := byID[provider.ProviderB]; ok && o.AirlineICAO != "" {
		m.AirlineICAO = o.AirlineICAO
		m.FieldSources["airline_icao"] = provider.ProviderB
	}

	// callsign: C(flight) else C(callsign) else B else A
	if o, ok := byID[provider.ProviderC]; ok && o.FlightNo != "" {
		m.Callsign = o.FlightNo
		m.FieldSources["callsign"] = provider.ProviderC
	} else if o, ok := byID[provider.ProviderC]; ok && o.Callsign != "" {
		m.Callsign = o.Callsign
		m.FieldSources["callsign"] = provider.ProviderC
	} else if o, ok := byID[provider.ProviderB]; ok && o.Callsign != "" {
		m.Callsign = o.Callsign
		m.FieldSources["callsign"] = provider.ProviderB
	} else if o, ok := byID[provider.ProviderA]; ok && o.Callsign != "" {
		m.Callsign = o.Callsign
		m.FieldSources["callsign"] = provider.ProviderA
	}

	// flight_no: prefer an IATA-shaped flight number from B, then C
	if o, ok := byID[provider.ProviderB]; ok && looksLikeIATAFlight(o.FlightNo) {
		m.FlightNo = o.FlightNo
		m.FieldSources["flight_no"] = provider.ProviderB
	} else if o, ok := byID[provider.ProviderC]; ok && looksLikeIATAFlight(o.FlightNo) {
		m.FlightNo = o.FlightNo
		m.FieldSources["flight_no"] = provider.ProviderC
	} else if o, ok := byID[provider.ProviderB]; ok && o.FlightNo != "" {
		m.FlightNo = o.FlightNo
		m.FieldSources["flight_no"] = provider.ProviderB
	} else if o, ok := byID[provider.ProviderC]; ok && o.FlightNo != "" {
		m.FlightNo = o.FlightNo
		m.FieldSources["flight_no"] = provider.ProviderC
	}

	// origin_iata / destination_iata: B only, set together
	if o, ok := byID[provider.ProviderB]; ok && o.OriginIATA != "" && o.DestinationIATA != "" {
		m.OriginIATA = o.OriginIATA
		m.DestinationIATA = o.DestinationIATA
		m.FieldSources["origin_iata"] = provider.ProviderB
		m.FieldSources["destination_iata"] = provider.ProviderB
	}

	// origin_country: A only
	if o, ok := byID[provider.ProviderA]; ok && o.OriginCountry != "" {
		m.OriginCountry = o.OriginCountry
		m.FieldSources["origin_country"] = provider.ProviderA
	}
}

// mergeMilitary combines the three-valued is_military flag across every
// contributing observation: true wins outright, false wins only when no
// observation said true, otherwise unknown.
func (m *MergedAircraft) mergeMilitary(obsList []provider.Observation) {
	sawFalse := false
	for _, o := range obsList {
		switch o.IsMilitary {
		case milcache.True:
			m.IsMilitary = milcache.True
			return
		case milcache.False:
			sawFalse = true
		}
	}
	if sawFalse {
		m.IsMilitary = milcache.False
		return
	}
	m.IsMilitary = milcache.Unknown
}

// resolvePositionAge derives the position timestamp/age from whichever
// observation supplied the winning latitude, falling back to the
// longitude source when latitude wasn't resolved (first non-null
// between the two).
func (m *MergedAircraft) resolvePositionAge(obsList []provider.Observation) {
	posSource, ok := m.FieldSources["latitude"]
	if !ok {
		posSource, ok = m.FieldSources["longitude"]
		if !ok {
			return
		}
	}
	o := byID(obsList, posSource)
	if o == nil {
		return
	}
	m.PositionAgeSec = o.AgeSeconds
	m.PositionTimestamp = o.FetchedAtUnix - int64(o.AgeSeconds)
}

// looksLikeIATAFlight reports whether s has the shape of an IATA-style
// flight number: 2-3 alphanumerics, 1-4 digits, optional trailing
// letter.
func looksLikeIATAFlight(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return iataFlightPattern.MatchString(s)
}
