// Package provider fetches raw telemetry from the three configured
// data sources and normalizes each into a common Observation shape for
// the fusion engine.
package provider

import (
	"context"

	"github.com/hangarwatch/aerofuse/internal/milcache"
)

// ID names one of the three provider slots.
type ID string

const (
	ProviderA ID = "A"
	ProviderB ID = "B"
	ProviderC ID = "C"
)

// Observation is one provider's view of one aircraft at fetch time.
type Observation struct {
	Provider ID
	Hex      string

	Lat, Lon     *float64
	AltBaroFt    *float64
	GroundSpeedKt *float64
	TrackDeg     *float64
	VerticalRateFPM *float64
	Squawk       *string
	OnGround     *bool

	Registration     string
	AircraftTypeICAO string
	AirlineICAO      string
	Callsign         string
	FlightNo         string
	OriginIATA       string
	DestinationIATA  string
	OriginCountry    string

	IsMilitary milcache.TriState

	// AgeSeconds is this provider's own freshness signal for the
	// observation (time since last contact/position/report, as the
	// provider's wire format defines it).
	AgeSeconds float64

	// FetchedAtUnix is when this observation was retrieved.
	FetchedAtUnix int64

	// Extras holds provider-specific fields keyed by their raw field
	// name, for round-trip diagnostics (surfaced by fusion as
	// extras_<provider>_<field>). Clients A, B and C set it to an empty
	// map; wire fields outside the struct above are not carried over.
	Extras map[string]any
}

// Client fetches and normalizes observations from one provider.
type Client interface {
	ID() ID
	Fetch(ctx context.Context) ([]Observation, error)
}
