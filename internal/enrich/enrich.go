// Package enrich resolves a MergedAircraft's reference-data lookups
// (aircraft type, airline, origin/destination airport), classifies it
// as Military/Private/Commercial, and derives the airline-logo and
// country-flag URLs used downstream.
package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hangarwatch/aerofuse/internal/catalog"
	"github.com/hangarwatch/aerofuse/internal/fusion"
	"github.com/hangarwatch/aerofuse/internal/milcache"
)

// AircraftLookup is the resolved aircraft-type reference.
type AircraftLookup struct {
	ICAO             string
	Name             string
	Manufacturer     string
	Model            string
	SeatsMax         *int // catalog's raw seats_max, nil when not found or not set
	IATAAliases      []string
	SoulsOnBoardMax  *int
	SoulsIsEstimate  bool
	LookupStatus     string // "found" or "not_found"
}

// AirlineLookup is the resolved airline reference.
type AirlineLookup struct {
	ICAO        string
	IATA        string
	Name        string
	Callsign    string
	CountryCode string
	CountryName string
	LookupStatus string
}

// AirportLookup is a resolved origin/destination airport reference.
type AirportLookup struct {
	IATA        string
	Name        string
	City        string
	Region      string
	CountryCode string
	CountryName string
	Lat, Lon    float64
	ElevationFt float64
	LookupStatus string
}

// Enriched is the set of derived fields attached to a MergedAircraft.
type Enriched struct {
	Aircraft    AircraftLookup
	Airline     AirlineLookup
	Origin      AirportLookup
	Destination AirportLookup

	Classification string // "Military", "Private", "Commercial", or "" when unclassified

	AirlineIATA     string
	AirlineLogoCode string
	AirlineLogoURL  string

	CountryFlagCode   string
	CountryFlagSource string // "origin" or "destination"
	CountryFlagURL    string
}

var iataFlightPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}\d{1,4}[A-Z]?$`)
var flightPrefixPattern = regexp.MustCompile(`^([A-Z0-9]{2,3}?)\d`)

// seatHeuristic is one entry in the seat-count estimation table, keyed
// by an ICAO type-code prefix or exact code.
type seatHeuristic struct {
	match string
	exact bool
	seats int
}

// seatTable estimates maximum seat count from an ICAO aircraft type
// code when the type catalog doesn't carry an explicit seat count. Each
// entry is checked in order; prefix entries match on HasPrefix.
var seatTable = []seatHeuristic{
	{"A31", false, 244}, {"A32", false, 244},
	{"B70", false, 189},
	{"B72", false, 189},
	{"B73", false, 230},
	{"B78", false, 330},
	{"E17", false, 146}, {"E19", false, 146}, {"E29", false, 146}, {"E75", false, 146},
	{"CRJ", false, 104},
	{"AT4", false, 78}, {"AT7", false, 78},
	{"DH8", false, 90},
	{"DH2", false, 7},
	{"TISB", false, 6},
	{"BE33", false, 4}, {"BE35", false, 4}, {"BE36", false, 4},
	{"BE55", false, 6}, {"BE56", false, 6}, {"BE58", false, 6},
	{"BE76", false, 4}, {"BE77", false, 4}, {"BE80", false, 4}, {"BE95", false, 4},
	{"BE9", false, 9}, {"BE10", false, 9},
	{"B350", true, 11},
	{"LJ", false, 9},
	{"PRM1", true, 6},
	{"GALX", true, 10},
	{"MU30", true, 8},
	{"H25A", true, 8}, {"H25B", true, 8}, {"H25C", true, 8},
	{"FA10", true, 8},
	{"FA20", true, 12},
	{"FA8X", true, 19},
	{"C120", true, 2}, {"C140", true, 2},
	{"C17", false, 4}, {"C15", false, 4}, {"C19", false, 4},
	{"C180", true, 4},
	{"C185", true, 6},
	{"C188", true, 1},
	{"C195", true, 5},
	{"C210", true, 6},
	{"C310", true, 6},
}

// estimateSeatMax returns a heuristic maximum seat count for an ICAO
// type code, or false when no entry matches.
func estimateSeatMax(icao string) (int, bool) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" {
		return 0, false
	}
	for _, h := range seatTable {
		if h.exact {
			if icao == h.match {
				return h.seats, true
			}
			continue
		}
		if strings.HasPrefix(icao, h.match) {
			return h.seats, true
		}
	}
	return 0, false
}

// Classify resolves Military/Private/Commercial from a merged
// aircraft's military flag and its resolved seat count.
func Classify(isMilitary milcache.TriState, aircraft AircraftLookup, privateThreshold int) string {
	if isMilitary == milcache.True {
		return "Military"
	}
	if aircraft.SoulsOnBoardMax == nil {
		return ""
	}
	if *aircraft.SoulsOnBoardMax <= privateThreshold {
		return "Private"
	}
	return "Commercial"
}

// Enricher resolves Enriched data for a MergedAircraft using the
// loaded reference catalogs.
type Enricher struct {
	catalogs                *catalog.Catalogs
	privateThreshold        int
	airlineLogoBaseURL      string
	airlineLogoAssetRoot    string
	countryFlagBaseURL      string
}

// NewEnricher constructs an Enricher.
func NewEnricher(catalogs *catalog.Catalogs, privateThreshold int, airlineLogoBaseURL, airlineLogoAssetRoot, countryFlagBaseURL string) *Enricher {
	return &Enricher{
		catalogs:             catalogs,
		privateThreshold:     privateThreshold,
		airlineLogoBaseURL:   airlineLogoBaseURL,
		airlineLogoAssetRoot: airlineLogoAssetRoot,
		countryFlagBaseURL:   countryFlagBaseURL,
	}
}

// Enrich resolves all reference-data lookups and derived fields for m.
func (e *Enricher) Enrich(m fusion.MergedAircraft) Enriched {
	var out Enriched

	out.Aircraft = e.lookupAircraft(m.AircraftTypeICAO)
	out.Airline = e.lookupAirline(m.AirlineICAO, m.FlightNo)
	out.Origin = e.lookupAirport(m.OriginIATA, m.OriginCountry)
	out.Destination = e.lookupAirport(m.DestinationIATA, "")

	out.Classification = Classify(m.IsMilitary, out.Aircraft, e.privateThreshold)

	if out.Airline.LookupStatus == "found" {
		out.AirlineIATA = out.Airline.IATA
		e.resolveAirlineLogo(&out)
	}

	e.resolveCountryFlag(&out)

	return out
}

func (e *Enricher) lookupAircraft(typeICAO string) AircraftLookup {
	lookup := AircraftLookup{ICAO: strings.ToUpper(typeICAO), LookupStatus: "not_found"}

	if typeICAO == "" {
		return lookup
	}

	cat, ok := e.catalogs.AircraftTypes[lookup.ICAO]
	if !ok {
		if seats, found := estimateSeatMax(lookup.ICAO); found {
			lookup.SoulsOnBoardMax = intPtr(seats)
			lookup.SoulsIsEstimate = true
		}
		return lookup
	}

	lookup.LookupStatus = "found"
	lookup.Name = firstNonEmpty(cat.Name, cat.Model, cat.ICAO)
	lookup.Manufacturer = cat.Manufacturer
	lookup.Model = cat.Model
	lookup.IATAAliases = cat.IATAAliases

	if cat.SeatsMax > 0 {
		lookup.SeatsMax = intPtr(cat.SeatsMax)
	}

	if cat.SeatsMax > 0 {
		lookup.SoulsOnBoardMax = intPtr(cat.SeatsMax)
		lookup.SoulsIsEstimate = false
	} else if seats, found := estimateSeatMax(lookup.ICAO); found {
		lookup.SoulsOnBoardMax = intPtr(seats)
		lookup.SoulsIsEstimate = true
	}

	return lookup
}

func (e *Enricher) lookupAirline(airlineICAO, flightNo string) AirlineLookup {
	lookup := AirlineLookup{LookupStatus: "not_found"}

	if airlineICAO != "" {
		if a, ok := e.catalogs.Airlines[strings.ToUpper(airlineICAO)]; ok {
			return airlineFromCatalog(a)
		}
	}

	if looksLikeIATAFlight(flightNo) {
		if match := flightPrefixPattern.FindStringSubmatch(strings.ToUpper(flightNo)); match != nil {
			if a, ok := e.catalogs.AirlinesByIATA[match[1]]; ok {
				return airlineFromCatalog(a)
			}
		}
	}

	return lookup
}

func airlineFromCatalog(a catalog.Airline) AirlineLookup {
	return AirlineLookup{
		ICAO:         a.ICAO,
		IATA:         a.IATA,
		Name:         a.Name,
		Callsign:     a.Callsign,
		CountryCode:  a.CountryCode,
		CountryName:  a.CountryName,
		LookupStatus: "found",
	}
}

func (e *Enricher) lookupAirport(iata, fallbackCountryCode string) AirportLookup {
	lookup := AirportLookup{IATA: strings.ToUpper(iata), LookupStatus: "not_found"}

	if iata == "" {
		return lookup
	}

	a, ok := e.catalogs.Airports[lookup.IATA]
	if !ok {
		return lookup
	}

	lookup.LookupStatus = "found"
	lookup.Name = a.Name
	lookup.City = a.City
	lookup.Region = a.Region
	lookup.CountryCode = a.CountryCode
	lookup.CountryName = a.CountryName
	lookup.Lat = a.Lat
	lookup.Lon = a.Lon
	lookup.ElevationFt = a.ElevationFt

	if lookup.CountryName == "" && lookup.CountryCode != "" {
		lookup.CountryName = e.catalogs.CountryName(lookup.CountryCode)
	}

	return lookup
}

// resolveAirlineLogo checks whether a logo asset exists for the
// resolved airline and, if so, sets the derived logo fields. The
// published URL extension (.bmp) differs from the on-disk asset
// extension (.png); this function only checks that the .png exists and
// does not convert it.
func (e *Enricher) resolveAirlineLogo(out *Enriched) {
	code := out.Airline.ICAO
	if code == "" {
		code = out.Airline.IATA
	}
	if code == "" {
		return
	}

	assetPath := filepath.Join(e.airlineLogoAssetRoot, fmt.Sprintf("airline_logo_%s.png", code))
	if _, err := os.Stat(assetPath); err != nil {
		return
	}

	out.AirlineLogoCode = code
	out.AirlineLogoURL = fmt.Sprintf("%s/airline_logo_%s.bmp", strings.TrimRight(e.airlineLogoBaseURL, "/"), code)
}

// resolveCountryFlag picks which of origin/destination country to
// display a flag for: destination wins unless it's the US and origin
// isn't, or the two countries are the same (so a domestic US flight
// shows its origin instead of always defaulting to US).
func (e *Enricher) resolveCountryFlag(out *Enriched) {
	originCountry := out.Origin.CountryCode
	destCountry := out.Destination.CountryCode

	var selected, source string
	switch {
	case originCountry != "" && destCountry != "":
		if destCountry != "US" && (originCountry == "US" || destCountry != originCountry) {
			selected, source = destCountry, "destination"
		} else {
			selected, source = originCountry, "origin"
		}
	case destCountry != "":
		selected, source = destCountry, "destination"
	case originCountry != "":
		selected, source = originCountry, "origin"
	default:
		return
	}

	out.CountryFlagCode = selected
	out.CountryFlagSource = source
	out.CountryFlagURL = fmt.Sprintf("%s/country_flag_%s.png", strings.TrimRight(e.countryFlagBaseURL, "/"), selected)
}

func looksLikeIATAFlight(s string) bool {
	return iataFlightPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intPtr(v int) *int { return &v }
