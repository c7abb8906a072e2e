package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// rawTargetC is one aircraft record from provider C's response shape,
// a direct dump1090-style feed with no bounding-box query parameters —
// the receiver itself only ever reports what's in range.
type rawTargetC struct {
	Hex      string  `json:"hex"`
	Flight   string  `json:"flight"`
	R        string  `json:"r"` // registration, occasionally present
	T        string  `json:"t"` // aircraft type ICAO
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	AltBaro  float64 `json:"alt_baro"`
	GS       float64 `json:"gs"`
	Track    float64 `json:"track"`
	BaroRate float64 `json:"baro_rate"`
	Squawk   string  `json:"squawk"`
	Ground   bool    `json:"ground"`
	Seen     float64 `json:"seen"`
}

type responseC struct {
	Now      float64      `json:"now"`
	Aircraft []rawTargetC `json:"aircraft"`
}

// ClientC polls a directly-reachable JSON feed with no authentication.
// Wins fusion precedence for aircraft_type_icao and callsign.
type ClientC struct {
	httpClient *http.Client
	url        string
	milCache   *milcache.Cache
	log        *logger.Logger
}

// NewClientC constructs a ClientC against a fixed URL.
func NewClientC(url string, timeout time.Duration, milCache *milcache.Cache, log *logger.Logger) *ClientC {
	return &ClientC{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		milCache:   milCache,
		log:        log.Named("provider-c"),
	}
}

func (c *ClientC) ID() ID { return ProviderC }

func (c *ClientC) Fetch(ctx context.Context) ([]Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider C request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider C request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider C returned status %d: %s", resp.StatusCode, string(body))
	}

	var data responseC
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse provider C response: %w", err)
	}

	now := time.Now().Unix()
	observations := make([]Observation, 0, len(data.Aircraft))
	for _, t := range data.Aircraft {
		hex := strings.ToUpper(strings.TrimSpace(t.Hex))
		if hex == "" {
			continue
		}

		callsign := strings.TrimSpace(t.Flight)

		obs := Observation{
			Provider:         ProviderC,
			Hex:              hex,
			Registration:     strings.TrimSpace(t.R),
			AircraftTypeICAO: strings.ToUpper(strings.TrimSpace(t.T)),
			Callsign:         callsign,
			FlightNo:         callsign,
			Lat:              floatPtr(t.Lat),
			Lon:              floatPtr(t.Lon),
			AltBaroFt:        floatPtr(t.AltBaro),
			GroundSpeedKt:    floatPtr(t.GS),
			TrackDeg:         floatPtr(t.Track),
			VerticalRateFPM:  floatPtr(t.BaroRate),
			OnGround:         boolPtr(t.Ground),
			FetchedAtUnix:    now,
			AgeSeconds:       t.Seen,
			Extras:           map[string]any{},
		}
		if t.Squawk != "" {
			obs.Squawk = stringPtr(t.Squawk)
		}

		obs.IsMilitary = c.milCache.Lookup(ctx, hex)
		observations = append(observations, obs)
	}

	return observations, nil
}
