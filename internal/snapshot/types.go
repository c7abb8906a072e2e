// Package snapshot defines the published data model — one Plane per
// aircraft and the Snapshot that bundles them for a cycle — and builds
// a Plane from a fused, geolocated, enriched aircraft record.
package snapshot

// Point is a latitude/longitude/radius area of interest.
type Point struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusNM float64 `json:"radius_nm"`
}

// AircraftLookup mirrors enrich.AircraftLookup in the wire shape §3
// describes for lookups.aircraft.
type AircraftLookup struct {
	ICAO         string   `json:"icao"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SeatsMax     *int     `json:"seats_max"`
	IATAAliases  []string `json:"iata_aliases"`
	LookupStatus string   `json:"lookup_status"`
}

// AirlineLookup mirrors enrich.AirlineLookup.
type AirlineLookup struct {
	ICAO         string `json:"icao"`
	IATA         string `json:"iata"`
	Name         string `json:"name"`
	Callsign     string `json:"callsign"`
	CountryCode  string `json:"country_code"`
	CountryName  string `json:"country_name"`
	LookupStatus string `json:"lookup_status"`
}

// AirportLookup mirrors enrich.AirportLookup.
type AirportLookup struct {
	IATA         string  `json:"iata"`
	Name         string  `json:"name"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	CountryCode  string  `json:"country_code"`
	CountryName  string  `json:"country_name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	ElevationFt  float64 `json:"elevation_ft"`
	LookupStatus string  `json:"lookup_status"`
}

// Lookups bundles the reference-data lookups §3 attaches to a Plane.
type Lookups struct {
	Aircraft           AircraftLookup `json:"aircraft"`
	Airline            AirlineLookup  `json:"airline"`
	OriginAirport      AirportLookup  `json:"origin_airport"`
	DestinationAirport AirportLookup  `json:"destination_airport"`
}

// ImageRef is one photo associated with an aircraft.
type ImageRef struct {
	FullURL      string `json:"full_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FlightRow is one row of recent-flight history, per §4.H.
type FlightRow struct {
	Flight                  string `json:"flight"`
	Origin                  string `json:"origin"`
	Destination             string `json:"destination"`
	DateYYYYMMDD            string `json:"date_yyyy_mm_dd"`
	BlockTimeHHMM           string `json:"block_time_hhmm"`
	DepartureTimeHHMM       string `json:"departure_time_hhmm"`
	ActualDepartureTimeHHMM string `json:"actual_departure_time_hhmm"`
	ArrivalTimeHHMM         string `json:"arrival_time_hhmm"`
	StatusText              string `json:"status_text"`
	ArrOrETAHHMM            string `json:"arr_or_eta_hhmm"`
}

// Media is the photo/thumbnail bundle §4.H attaches to the nearest and
// nearest-commercial aircraft.
type Media struct {
	PlaneImage        string   `json:"plane_image,omitempty"`
	Thumbnails        []string `json:"thumbnails,omitempty"`
	ProcessedImageURL string   `json:"processed_image_url,omitempty"`
	DisplayBMPURL     string   `json:"display_bmp_url,omitempty"`
}

// Plane is the fully fused, enriched, geolocated, published view of one
// aircraft — the wire shape of fusion.MergedAircraft plus its
// enrichment fields.
type Plane struct {
	Hex             string   `json:"hex"`
	Sources         []string `json:"sources"`
	MergedTimestamp int64    `json:"merged_timestamp"`

	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	AltBaroFt       *float64 `json:"alt_baro_ft"`
	GroundSpeedKt   *float64 `json:"ground_speed_kt"`
	TrackDeg        *float64 `json:"track_deg"`
	VerticalRateFPM *float64 `json:"vertical_rate_fpm"`
	Squawk          *string  `json:"squawk"`
	OnGround        *bool    `json:"on_ground"`

	Registration     string `json:"registration"`
	AircraftTypeICAO string `json:"aircraft_type_icao"`
	AirlineICAO      string `json:"airline_icao"`
	AirlineIATA      string `json:"airline_iata"`
	Callsign         string `json:"callsign"`
	FlightNo         string `json:"flight_no"`
	OriginIATA       string `json:"origin_iata"`
	DestinationIATA  string `json:"destination_iata"`
	OriginCountry    string `json:"origin_country"`

	IsMilitary string `json:"is_military"` // "true" | "false" | "unknown"

	PositionTimestamp int64   `json:"position_timestamp,omitempty"`
	PositionAgeSec    float64 `json:"position_age_sec,omitempty"`

	DistanceNM   *float64 `json:"distance_nm"`
	BearingDeg   *float64 `json:"bearing_deg"`
	WithinRadius bool     `json:"within_radius"`

	Lookups Lookups `json:"lookups"`

	SoulsOnBoardMax          *int   `json:"souls_on_board_max"`
	SoulsOnBoardMaxIsEstimate bool  `json:"souls_on_board_max_is_estimate"`
	SoulsOnBoardMaxText      string `json:"souls_on_board_max_text"`

	Classification string `json:"classification"`

	AirlineLogoCode string `json:"airline_logo_code"`
	AirlineLogoPath string `json:"airline_logo_path"`
	AirlineLogoURL  string `json:"airline_logo_url"`

	CountryFlagCode   string `json:"country_flag_code"`
	CountryFlagSource string `json:"country_flag_source"`
	CountryFlagURL    string `json:"country_flag_url"`

	RemainingNM *float64 `json:"remaining_nm"`
	ETAMin      *float64 `json:"eta_min"`

	Media       *Media      `json:"media,omitempty"`
	History     []FlightRow `json:"history,omitempty"`
	MediaErrors []string    `json:"media_errors,omitempty"`

	AirlineKey string `json:"airline_key,omitempty"`
	PlaneKey   string `json:"plane_key,omitempty"`

	Extras map[string]any `json:"extras,omitempty"`

	FieldSources map[string]string `json:"field_sources"`
}

// Stats is the payload published on the stats topic (§4.I).
type Stats struct {
	Runs                 int64  `json:"runs"`
	SuccessfulPublishes  int64  `json:"successful_publishes"`
	Errors               int64  `json:"errors"`
	StartTime            string `json:"start_time"`
	LastUpdate           string `json:"last_update"`
	AircraftCount        int    `json:"aircraft_count"`
	NearestAircraft      string `json:"nearest_aircraft"`
}

// Snapshot is the fully assembled, published cycle result (§3).
type Snapshot struct {
	Timestamp         int64  `json:"timestamp"`
	Point             Point  `json:"point"`
	Planes            []*Plane `json:"planes"`
	Nearest           *Plane `json:"nearest,omitempty"`
	NearestCommercial *Plane `json:"nearest_commercial,omitempty"`
}
