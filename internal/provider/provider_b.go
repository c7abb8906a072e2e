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

// rawTargetB is one aircraft record from provider B's response shape.
type rawTargetB struct {
	Hex             string  `json:"hex"`
	Reg             string  `json:"reg"`
	Type            string  `json:"type"`
	AirlineICAO     string  `json:"airline_icao"`
	Callsign        string  `json:"callsign"`
	Flight          string  `json:"flight"`
	FromIATA        string  `json:"from_iata"`
	ToIATA          string  `json:"to_iata"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	AltFt           float64 `json:"alt"`
	GroundSpeedKt   float64 `json:"gspeed"`
	TrackDeg        float64 `json:"track"`
	VerticalRateFPM float64 `json:"vspeed"`
	Squawk          string  `json:"squawk"`
	OnGround        bool    `json:"on_ground"`
	Timestamp       float64 `json:"timestamp"`
}

type responseB struct {
	Aircraft []rawTargetB `json:"aircraft"`
}

// ClientB polls a center+radius REST endpoint behind an API-host/key
// pair (RapidAPI-style headers). Wins fusion precedence for
// registration, airline_icao, and origin/destination IATA.
type ClientB struct {
	httpClient *http.Client
	urlTemplate string
	apiHost    string
	apiKey     string
	stationLat float64
	stationLon float64
	radiusNM   float64
	milCache   *milcache.Cache
	log        *logger.Logger
}

// NewClientB constructs a ClientB. urlTemplate is formatted with
// (lat, lon, radiusNM) via fmt.Sprintf, e.g.
// "https://provider.example/v2/point/%f/%f/%f/json".
func NewClientB(urlTemplate, apiHost, apiKey string, stationLat, stationLon, radiusNM float64, timeout time.Duration, milCache *milcache.Cache, log *logger.Logger) *ClientB {
	return &ClientB{
		httpClient:  &http.Client{Timeout: timeout},
		urlTemplate: urlTemplate,
		apiHost:     apiHost,
		apiKey:      apiKey,
		stationLat:  stationLat,
		stationLon:  stationLon,
		radiusNM:    radiusNM,
		milCache:    milCache,
		log:         log.Named("provider-b"),
	}
}

func (c *ClientB) ID() ID { return ProviderB }

func (c *ClientB) Fetch(ctx context.Context) ([]Observation, error) {
	urlStr := fmt.Sprintf(c.urlTemplate, c.stationLat, c.stationLon, c.radiusNM)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider B request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider B request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider B returned status %d: %s", resp.StatusCode, string(body))
	}

	var data responseB
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse provider B response: %w", err)
	}

	now := time.Now().Unix()
	observations := make([]Observation, 0, len(data.Aircraft))
	for _, t := range data.Aircraft {
		hex := strings.ToUpper(strings.TrimSpace(t.Hex))
		if hex == "" {
			continue
		}

		flightNo := t.Flight
		if flightNo == "" {
			flightNo = t.Callsign
		}

		obs := Observation{
			Provider:         ProviderB,
			Hex:              hex,
			Registration:     strings.TrimSpace(t.Reg),
			AircraftTypeICAO: strings.ToUpper(strings.TrimSpace(t.Type)),
			AirlineICAO:      strings.ToUpper(strings.TrimSpace(t.AirlineICAO)),
			Callsign:         strings.TrimSpace(t.Callsign),
			FlightNo:         strings.TrimSpace(flightNo),
			OriginIATA:       strings.ToUpper(strings.TrimSpace(t.FromIATA)),
			DestinationIATA:  strings.ToUpper(strings.TrimSpace(t.ToIATA)),
			Lat:              floatPtr(t.Lat),
			Lon:              floatPtr(t.Lon),
			AltBaroFt:        floatPtr(t.AltFt),
			GroundSpeedKt:    floatPtr(t.GroundSpeedKt),
			TrackDeg:         floatPtr(t.TrackDeg),
			VerticalRateFPM:  floatPtr(t.VerticalRateFPM),
			OnGround:         boolPtr(t.OnGround),
			FetchedAtUnix:    now,
			Extras:           map[string]any{},
		}
		if t.Squawk != "" {
			obs.Squawk = stringPtr(t.Squawk)
		}
		if t.Timestamp > 0 {
			obs.AgeSeconds = float64(now) - t.Timestamp
		}

		obs.IsMilitary = c.milCache.Lookup(ctx, hex)
		observations = append(observations, obs)
	}

	return observations, nil
}
