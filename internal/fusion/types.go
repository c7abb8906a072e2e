package fusion

import (
	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/internal/provider"
)

// MergedAircraft is the fused, per-hex view built from every provider's
// observation of that aircraft during one cycle.
type MergedAircraft struct {
	Hex              string
	MergedTimestamp  int64

	Lat, Lon         *float64
	AltBaroFt        *float64
	GroundSpeedKt    *float64
	TrackDeg         *float64
	VerticalRateFPM  *float64
	Squawk           *string
	OnGround         *bool

	Registration     string
	AircraftTypeICAO string
	AirlineICAO      string
	Callsign         string
	FlightNo         string
	OriginIATA       string
	DestinationIATA  string
	OriginCountry    string

	IsMilitary milcache.TriState

	PositionTimestamp int64
	PositionAgeSec    float64

	// Sources is the set of providers that contributed at least one
	// winning field to this record, derived from FieldSources.
	Sources []provider.ID

	// FieldSources records, for every field that was actually set, the
	// provider whose value won.
	FieldSources map[string]provider.ID

	// Extras carries the entries of every contributing observation's
	// Extras map, keyed extras_<provider>_<field>.
	Extras map[string]any

	// MinAgeSeconds is the freshest AgeSeconds across all contributing
	// observations, used as the primary sort key for output ordering.
	MinAgeSeconds float64
}
