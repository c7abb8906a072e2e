// Package config loads and validates the aerofuse configuration: a
// structured TOML file for anything naturally structured (providers,
// catalogs, fusion priorities), overlaid with the environment variables
// that make up the service's external contract.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the fully-resolved application configuration.
type Config struct {
	Station   StationConfig   `toml:"station"`
	Providers ProvidersConfig `toml:"providers"`
	MilCache  MilCacheConfig  `toml:"mil_cache"`
	Catalogs  CatalogsConfig  `toml:"catalogs"`
	Fusion    FusionConfig    `toml:"fusion"`
	Enrich    EnrichConfig    `toml:"enrich"`
	Media     MediaConfig     `toml:"media"`
	MQTT      MQTTConfig      `toml:"mqtt"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Storage   StorageConfig   `toml:"storage"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StationConfig is the fixed observation point aircraft distance and
// bearing are measured from.
type StationConfig struct {
	Lat      float64 `toml:"lat"`
	Lon      float64 `toml:"lon"`
	RadiusNM float64 `toml:"radius_nm"`
}

// ProviderConfig configures a single telemetry provider client.
type ProviderConfig struct {
	Skip bool `toml:"skip"`

	// Provider A (OpenSky-style: bbox + OAuth2 client credentials)
	BaseURL         string `toml:"base_url"`
	CredentialsPath string `toml:"credentials_path"`
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	BBoxLamin       float64 `toml:"bbox_lamin"`
	BBoxLomin       float64 `toml:"bbox_lomin"`
	BBoxLamax       float64 `toml:"bbox_lamax"`
	BBoxLomax       float64 `toml:"bbox_lomax"`

	// Provider B (center+radius REST behind an API host/key pair)
	URL    string `toml:"url"`
	APIHost string `toml:"api_host"`
	APIKey  string `toml:"api_key"`

	// Provider C (direct bounding-box JSON feed, no auth)
	LocalURL string `toml:"local_url"`

	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ProvidersConfig holds the three telemetry provider configurations.
type ProvidersConfig struct {
	A ProviderConfig `toml:"a"`
	B ProviderConfig `toml:"b"`
	C ProviderConfig `toml:"c"`
}

// MilCacheConfig configures the military-status lookup cache.
type MilCacheConfig struct {
	Path       string `toml:"path"`
	TTLSeconds int    `toml:"ttl_seconds"`
	APIBaseURL string `toml:"api_base_url"`
}

// CatalogsConfig points at the JSONL reference datasets.
type CatalogsConfig struct {
	AircraftTypesPath string `toml:"aircraft_types_path"`
	AirlinesPath      string `toml:"airlines_path"`
	AirportsPath      string `toml:"airports_path"`
	CountriesPath     string `toml:"countries_path"`
}

// FusionConfig configures multi-provider field selection.
type FusionConfig struct {
	// DefaultPriority orders providers for the freshness-selected
	// telemetry fields: among the providers tied on the freshest value,
	// the first one listed here wins. Identity fields use a fixed
	// per-field precedence instead.
	DefaultPriority []string `toml:"default_priority"`
}

// EnrichConfig configures reference-data enrichment.
type EnrichConfig struct {
	PrivateDesignationSeats int    `toml:"private_designation_seats"`
	AirlineLogoBaseURL      string `toml:"airline_logo_base_url"`
	AirlineLogoAssetRoot    string `toml:"airline_logo_asset_root"`
	CountryFlagBaseURL      string `toml:"country_flag_base_url"`
}

// MediaConfig configures the optional media enrichment collaborators.
type MediaConfig struct {
	Enabled        bool   `toml:"enabled"`
	MaxWorkers     int    `toml:"max_workers"`
	MaxThumbnails  int    `toml:"max_thumbnails"`
	PhotosBaseURL  string `toml:"photos_base_url"`
	FlightsBaseURL string `toml:"flights_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	ZiplineBaseURL        string `toml:"zipline_base_url"`
	ZiplineToken          string `toml:"zipline_token"`
	ZiplineFolderID       string `toml:"zipline_folder_id"`
	ZiplineTimeoutSeconds int    `toml:"zipline_timeout_seconds"`
}

// MQTTConfig configures the broker connection and topic prefix.
type MQTTConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TopicPrefix    string `toml:"topic_prefix"`
	ClientID       string `toml:"client_id"`
	PublishPlanes  bool   `toml:"publish_planes"`
	PublishNearestCommercial bool `toml:"publish_nearest_commercial"`
}

// SchedulerConfig configures the polling cycle.
type SchedulerConfig struct {
	FetchIntervalMinSeconds int `toml:"fetch_interval_min_seconds"`
	FetchIntervalMaxSeconds int `toml:"fetch_interval_max_seconds"`
}

// StorageConfig configures local durability of cycle state.
type StorageConfig struct {
	WriteJSONPath string `toml:"write_json_path"`
	StatsDBPath   string `toml:"stats_db_path"`
}

// ServerConfig configures the debug HTTP API and WebSocket broadcaster.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load decodes the TOML config file at path, then applies the
// environment-variable overlay.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	applyEnvOverlay(&cfg)

	return &cfg, nil
}

// LoadWithFallback tries preferredPath, then a couple of conventional
// locations, and finally falls back to environment-variables only (the
// config file is optional; without it, only the fields applyEnvOverlay
// covers can be set, and the rest keep their Validate defaults).
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{preferredPath, "configs/aerofuse.toml", "aerofuse.toml"}

	seen := make(map[string]bool)
	for _, p := range searchPaths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}

	return Load("")
}

// applyEnvOverlay copies the environment-driven interface onto cfg,
// overriding anything the TOML file set. This mirrors the legacy
// SourceURL-style field overlay pattern: the env vars are the contract
// callers script against, the TOML file is for what doesn't fit a flat
// key=value shape.
func applyEnvOverlay(cfg *Config) {
	if v, ok := getFloat("LAT"); ok {
		cfg.Station.Lat = v
	}
	if v, ok := getFloat("LON"); ok {
		cfg.Station.Lon = v
	}
	if v, ok := getFloat("RADIUS_NM"); ok {
		cfg.Station.RadiusNM = v
	}
	if v, ok := getInt("FETCH_INTERVAL_MIN_SEC"); ok {
		cfg.Scheduler.FetchIntervalMinSeconds = v
	}
	if v, ok := getInt("FETCH_INTERVAL_MAX_SEC"); ok {
		cfg.Scheduler.FetchIntervalMaxSeconds = v
	}
	if v, ok := getBool("SKIP_A"); ok {
		cfg.Providers.A.Skip = v
	}
	if v, ok := getBool("SKIP_B"); ok {
		cfg.Providers.B.Skip = v
	}
	if v, ok := getBool("SKIP_C"); ok {
		cfg.Providers.C.Skip = v
	}
	if v := os.Getenv("OSK_CLIENT_ID"); v != "" {
		cfg.Providers.A.ClientID = v
	}
	if v := os.Getenv("OSK_CLIENT_SECRET"); v != "" {
		cfg.Providers.A.ClientSecret = v
	}
	if v := os.Getenv("MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v, ok := getInt("MQTT_PORT"); ok {
		cfg.MQTT.Port = v
	}
	if v := os.Getenv("MQTT_USER"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASS"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("MQTT_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
	if v, ok := getBool("MQTT_PUBLISH_ALL_PLANES"); ok {
		cfg.MQTT.PublishPlanes = v
	}
	if v, ok := getBool("MQTT_PUBLISH_NEAREST_COMMERCIAL"); ok {
		cfg.MQTT.PublishNearestCommercial = v
	}
	if v, ok := getInt("PRIVATE_DESIGNATION_SEATS"); ok {
		cfg.Enrich.PrivateDesignationSeats = v
	}
	if v := os.Getenv("AIRLINE_LOGO_BASE_URL"); v != "" {
		cfg.Enrich.AirlineLogoBaseURL = v
	}
	if v := os.Getenv("WRITE_JSON_PATH"); v != "" {
		cfg.Storage.WriteJSONPath = v
	}
	if v := os.Getenv("ZIPLINE_TOKEN"); v != "" {
		cfg.Media.ZiplineToken = v
	}
	if v := os.Getenv("ZIPLINE_URL"); v != "" {
		cfg.Media.ZiplineBaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func getFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}

// Validate fails fast on a configuration that cannot possibly run.
func (c *Config) Validate() error {
	if c.Station.RadiusNM <= 0 {
		return fmt.Errorf("station.radius_nm (RADIUS_NM) must be positive")
	}
	if c.Station.Lat < -90 || c.Station.Lat > 90 {
		return fmt.Errorf("station.lat (LAT) out of range: %f", c.Station.Lat)
	}
	if c.Station.Lon < -180 || c.Station.Lon > 180 {
		return fmt.Errorf("station.lon (LON) out of range: %f", c.Station.Lon)
	}

	if c.Providers.A.Skip && c.Providers.B.Skip && c.Providers.C.Skip {
		return fmt.Errorf("at least one provider must be enabled")
	}
	if c.Providers.A.BaseURL == "" {
		c.Providers.A.BaseURL = "https://opensky-network.org/api"
	}

	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host (MQTT_HOST) is required")
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "aerofuse"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "aerofuse"
	}

	if c.Scheduler.FetchIntervalMinSeconds <= 0 {
		c.Scheduler.FetchIntervalMinSeconds = 20
	}
	if c.Scheduler.FetchIntervalMaxSeconds <= 0 {
		c.Scheduler.FetchIntervalMaxSeconds = 40
	}
	if c.Scheduler.FetchIntervalMaxSeconds < c.Scheduler.FetchIntervalMinSeconds {
		return fmt.Errorf("scheduler.fetch_interval_max_seconds must be >= fetch_interval_min_seconds")
	}

	if c.MilCache.TTLSeconds <= 0 {
		c.MilCache.TTLSeconds = 21600
	}
	if c.MilCache.Path == "" {
		c.MilCache.Path = "data/mil_cache.json"
	}

	if c.Enrich.PrivateDesignationSeats <= 0 {
		c.Enrich.PrivateDesignationSeats = 8
	}
	if c.Enrich.AirlineLogoBaseURL == "" {
		c.Enrich.AirlineLogoBaseURL = "https://zip.spacegeese.com/raw"
	}
	if c.Enrich.CountryFlagBaseURL == "" {
		c.Enrich.CountryFlagBaseURL = "https://zip.spacegeese.com/u"
	}

	if c.Media.MaxThumbnails <= 0 {
		c.Media.MaxThumbnails = 4
	}
	if c.Media.MaxWorkers <= 0 {
		c.Media.MaxWorkers = 8
	}
	if c.Media.TimeoutSeconds <= 0 {
		c.Media.TimeoutSeconds = 15
	}
	if c.Media.ZiplineBaseURL == "" {
		c.Media.ZiplineBaseURL = "https://zip.spacegeese.com"
	}
	if c.Media.ZiplineTimeoutSeconds <= 0 {
		c.Media.ZiplineTimeoutSeconds = 30
	}

	if len(c.Fusion.DefaultPriority) == 0 {
		c.Fusion.DefaultPriority = []string{"A", "B", "C"}
	}
	if err := validatePriority(c.Fusion.DefaultPriority); err != nil {
		return fmt.Errorf("fusion.default_priority: %w", err)
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "console"
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

func validatePriority(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, p := range order {
		switch p {
		case "A", "B", "C":
		default:
			return fmt.Errorf("unknown provider id: %s", p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate provider id: %s", p)
		}
		seen[p] = true
	}
	if len(seen) != 3 {
		return fmt.Errorf("priority list must name all three providers exactly once")
	}
	return nil
}
