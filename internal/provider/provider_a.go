package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// ClientA fetches state vectors from a bounding-box REST source
// authenticated with OAuth2 client-credentials, falling back to an
// anonymous request when no credentials are configured. Supplies
// origin_country for the fusion engine.
type ClientA struct {
	httpClient      *http.Client
	baseURL         string
	credentialsPath string
	clientID        string
	clientSecret    string
	stationLat      float64
	stationLon      float64
	radiusNM        float64
	bboxLamin       float64
	bboxLomin       float64
	bboxLamax       float64
	bboxLomax       float64
	milCache        *milcache.Cache
	log             *logger.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClientA constructs a ClientA. An explicit bounding box (any of the
// four corners nonzero) takes precedence over one derived from the
// station coordinates and search radius.
func NewClientA(baseURL, credentialsPath, clientID, clientSecret string, stationLat, stationLon, radiusNM float64, bboxLamin, bboxLomin, bboxLamax, bboxLomax float64, timeout time.Duration, milCache *milcache.Cache, log *logger.Logger) *ClientA {
	if baseURL == "" {
		baseURL = "https://opensky-network.org/api"
	}
	return &ClientA{
		httpClient:      &http.Client{Timeout: timeout},
		baseURL:         baseURL,
		credentialsPath: credentialsPath,
		clientID:        clientID,
		clientSecret:    clientSecret,
		stationLat:      stationLat,
		stationLon:      stationLon,
		radiusNM:        radiusNM,
		bboxLamin:       bboxLamin,
		bboxLomin:       bboxLomin,
		bboxLamax:       bboxLamax,
		bboxLomax:       bboxLomax,
		milCache:        milCache,
		log:             log.Named("provider-a"),
	}
}

func (c *ClientA) ID() ID { return ProviderA }

// bbox returns lamin, lomin, lamax, lomax. The lon margin widens
// toward the poles as 1/cos(lat); cos(lat) is floored at 0.1 so the box
// doesn't blow up near them.
func (c *ClientA) bbox() (lamin, lomin, lamax, lomax float64) {
	if c.bboxLamin != 0 || c.bboxLamax != 0 || c.bboxLomin != 0 || c.bboxLomax != 0 {
		return c.bboxLamin, c.bboxLomin, c.bboxLamax, c.bboxLomax
	}

	latDeg := c.radiusNM / 60.0
	cosLat := math.Cos(c.stationLat * math.Pi / 180.0)
	if cosLat < 0.1 {
		cosLat = 0.1
	}
	lonDeg := c.radiusNM / (60.0 * cosLat)

	return c.stationLat - latDeg, c.stationLon - lonDeg, c.stationLat + latDeg, c.stationLon + lonDeg
}

func (c *ClientA) bearerToken(ctx context.Context) string {
	c.tokenMu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		tok := c.token
		c.tokenMu.Unlock()
		return tok
	}
	c.tokenMu.Unlock()

	if c.clientID == "" || c.clientSecret == "" {
		if c.credentialsPath != "" {
			if b, err := os.ReadFile(c.credentialsPath); err == nil {
				var creds map[string]string
				if json.Unmarshal(b, &creds) == nil {
					if creds["access_token"] != "" {
						c.tokenMu.Lock()
						c.token = creds["access_token"]
						c.tokenExpiry = time.Now().Add(29 * time.Minute)
						c.tokenMu.Unlock()
						return c.token
					}
					if creds["client_id"] != "" && creds["client_secret"] != "" {
						c.clientID = creds["client_id"]
						c.clientSecret = creds["client_secret"]
					}
				}
			}
		}
	}

	if c.clientID == "" || c.clientSecret == "" {
		c.log.Warn("no OAuth2 credentials configured, proceeding anonymously")
		return ""
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		c.log.Warn("failed to build token request", logger.Error(err))
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("token request failed", logger.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("token endpoint returned non-200", logger.Int("status", resp.StatusCode))
		return ""
	}

	var tokResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokResp); err != nil || tokResp.AccessToken == "" {
		c.log.Warn("failed to decode token response", logger.Error(err))
		return ""
	}

	expiry := time.Now().Add(29 * time.Minute)
	if tokResp.ExpiresIn > 60 {
		expiry = time.Now().Add(time.Duration(tokResp.ExpiresIn-30) * time.Second)
	}

	c.tokenMu.Lock()
	c.token = tokResp.AccessToken
	c.tokenExpiry = expiry
	c.tokenMu.Unlock()

	return c.token
}

func (c *ClientA) Fetch(ctx context.Context) ([]Observation, error) {
	lamin, lomin, lamax, lomax := c.bbox()

	urlStr := fmt.Sprintf("%s/states/all?lamin=%f&lomin=%f&lamax=%f&lomax=%f", c.baseURL, lamin, lomin, lamax, lomax)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider A request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider A request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider A returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Time   int64           `json:"time"`
		States [][]interface{} `json:"states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse provider A response: %w", err)
	}

	now := time.Now().Unix()
	observations := make([]Observation, 0, len(raw.States))
	for _, s := range raw.States {
		obs := parseStateVector(s, raw.Time)
		if obs.Hex == "" {
			continue
		}
		obs.Provider = ProviderA
		obs.FetchedAtUnix = now
		obs.IsMilitary = c.milCache.Lookup(ctx, obs.Hex)
		observations = append(observations, obs)
	}

	return observations, nil
}

func parseStateVector(s []interface{}, serverTime int64) Observation {
	obs := Observation{Extras: map[string]any{}}

	str := func(i int) string {
		if i < len(s) {
			if v, ok := s[i].(string); ok {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	num := func(i int) (float64, bool) {
		if i < len(s) {
			if v, ok := s[i].(float64); ok {
				return v, true
			}
		}
		return 0, false
	}

	obs.Hex = strings.ToUpper(str(0))
	obs.Callsign = strings.TrimSpace(str(1))
	obs.OriginCountry = str(2)

	var lastContact, timePosition float64
	if v, ok := num(3); ok {
		timePosition = v
	}
	if v, ok := num(4); ok {
		lastContact = v
	}
	if v, ok := num(5); ok {
		obs.Lon = floatPtr(v)
	}
	if v, ok := num(6); ok {
		obs.Lat = floatPtr(v)
	}
	if v, ok := num(7); ok {
		obs.AltBaroFt = floatPtr(v * 3.28084)
	}
	if len(s) > 8 {
		if v, ok := s[8].(bool); ok {
			obs.OnGround = boolPtr(v)
		}
	}
	if v, ok := num(9); ok {
		obs.GroundSpeedKt = floatPtr(v * 1.943844)
	}
	if v, ok := num(10); ok {
		obs.TrackDeg = floatPtr(v)
	}
	if v, ok := num(11); ok {
		obs.VerticalRateFPM = floatPtr(v * 196.850394)
	}
	if len(s) > 14 {
		obs.Squawk = stringPtr(str(14))
	}

	age := lastContact
	if age == 0 {
		age = timePosition
	}
	if age > 0 {
		obs.AgeSeconds = float64(serverTime) - age
	}

	return obs
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func stringPtr(v string) *string  { return &v }
