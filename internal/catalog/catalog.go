// Package catalog loads the line-delimited JSON reference datasets
// (aircraft types, airlines, airports, countries) used to enrich merged
// aircraft records, and exposes the lookups enrichment needs.
package catalog

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// AircraftType is one row of the aircraft-type reference dataset.
type AircraftType struct {
	ICAO         string   `json:"icao"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SeatsMax     int      `json:"seats_max"`
	IATAAliases  []string `json:"iata_aliases"`
}

// Airline is one row of the airline reference dataset.
type Airline struct {
	ICAO        string `json:"icao"`
	IATA        string `json:"iata"`
	Name        string `json:"name"`
	Callsign    string `json:"callsign"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

// Airport is one row of the airport reference dataset.
type Airport struct {
	IATA        string  `json:"iata"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ElevationFt float64 `json:"elevation_ft"`
}

// Country is one row of the country reference dataset.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalogs bundles the four reference datasets plus the cross-indexes
// built over them.
type Catalogs struct {
	AircraftTypes map[string]AircraftType // keyed by ICAO type code
	Airlines      map[string]Airline      // keyed by ICAO airline code
	AirlinesByIATA map[string]Airline     // keyed by IATA airline code
	Airports      map[string]Airport      // keyed by IATA airport code
	Countries     map[string]Country      // keyed by ISO country code
}

// Load reads all four datasets. A missing file yields an empty map for
// that dataset rather than an error — catalogs are best-effort
// enrichment, not a hard startup dependency.
func Load(aircraftTypesPath, airlinesPath, airportsPath, countriesPath string, log *logger.Logger) *Catalogs {
	catLog := log.Named("catalog")

	c := &Catalogs{
		AircraftTypes:  map[string]AircraftType{},
		Airlines:       map[string]Airline{},
		AirlinesByIATA: map[string]Airline{},
		Airports:       map[string]Airport{},
		Countries:      map[string]Country{},
	}

	loadJSONLInto(aircraftTypesPath, catLog, func(raw map[string]any) {
		var t AircraftType
		if !remarshal(raw, &t) || t.ICAO == "" {
			return
		}
		c.AircraftTypes[strings.ToUpper(t.ICAO)] = t
	})

	loadJSONLInto(airlinesPath, catLog, func(raw map[string]any) {
		var a Airline
		if !remarshal(raw, &a) || a.ICAO == "" {
			return
		}
		key := strings.ToUpper(a.ICAO)
		c.Airlines[key] = a
		if a.IATA != "" {
			c.AirlinesByIATA[strings.ToUpper(a.IATA)] = a
		}
	})

	loadJSONLInto(airportsPath, catLog, func(raw map[string]any) {
		var a Airport
		if !remarshal(raw, &a) || a.IATA == "" {
			return
		}
		c.Airports[strings.ToUpper(a.IATA)] = a
	})

	loadJSONLInto(countriesPath, catLog, func(raw map[string]any) {
		var co Country
		if !remarshal(raw, &co) || co.Code == "" {
			return
		}
		c.Countries[strings.ToUpper(co.Code)] = co
	})

	catLog.Info("catalogs loaded",
		logger.Int("aircraft_types", len(c.AircraftTypes)),
		logger.Int("airlines", len(c.Airlines)),
		logger.Int("airports", len(c.Airports)),
		logger.Int("countries", len(c.Countries)),
	)

	return c
}

// loadJSONLInto reads path line by line, decoding each non-blank line
// as a JSON object and passing it to onRow. Malformed lines are skipped.
func loadJSONLInto(path string, log *logger.Logger, onRow func(map[string]any)) {
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn("catalog file not found, continuing without it", logger.String("path", path), logger.Error(err))
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		onRow(raw)
	}
}

func remarshal(raw map[string]any, dst any) bool {
	b, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// CountryName resolves a country code to a display name, falling back
// to the bare code when the countries catalog has no entry.
func (c *Catalogs) CountryName(code string) string {
	if code == "" {
		return ""
	}
	if co, ok := c.Countries[strings.ToUpper(code)]; ok && co.Name != "" {
		return co.Name
	}
	return code
}
