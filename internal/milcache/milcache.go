// Package milcache maintains a TTL-bounded, disk-persisted cache of
// per-hex military-status lookups, falling back to an external hex
// lookup API on a cache miss or expiry.
//
// A failed lookup is still recorded — as unknown, with the current
// timestamp — so a flapping upstream cannot be retried every single
// cycle; only the TTL's worth of thrash is paid once.
package milcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// TriState is a three-valued boolean: unknown, true, or false.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// entry is one cached hex's military status and the time it was set.
type entry struct {
	Status    TriState `json:"status"`
	Timestamp int64    `json:"ts"`
}

// Cache is a mutex-guarded, disk-persisted hex -> military-status map.
type Cache struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	data map[string]entry

	apiBaseURL string
	httpClient *http.Client
	log        *logger.Logger
}

// New constructs a Cache and loads any existing state from disk.
// A missing or unparsable file yields an empty cache, matching the
// original tool's tolerance for a fresh deployment.
func New(path string, ttl time.Duration, apiBaseURL string, log *logger.Logger) *Cache {
	c := &Cache{
		path:       path,
		ttl:        ttl,
		data:       map[string]entry{},
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        log.Named("milcache"),
	}
	c.load()
	return c
}

func (c *Cache) load() {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var stored map[string]entry
	if err := json.Unmarshal(b, &stored); err != nil {
		c.log.Warn("mil cache file malformed, starting empty", logger.String("path", c.path), logger.Error(err))
		return
	}
	c.data = stored
}

// save writes the cache atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// leaves a truncated cache file behind.
func (c *Cache) save() error {
	b, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("failed to marshal mil cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create mil cache directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".mil_cache-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create mil cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write mil cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close mil cache temp file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename mil cache temp file into place: %w", err)
	}

	return nil
}

// Lookup returns the military status for hex, consulting the cache
// first and falling back to the external hex-lookup API when the entry
// is absent or past its TTL.
func (c *Cache) Lookup(ctx context.Context, hex string) TriState {
	hex = strings.ToUpper(strings.TrimSpace(hex))
	if hex == "" {
		return Unknown
	}

	c.mu.Lock()
	if e, ok := c.data[hex]; ok && time.Since(time.Unix(e.Timestamp, 0)) < c.ttl {
		c.mu.Unlock()
		return e.Status
	}
	c.mu.Unlock()

	status := c.fetch(ctx, hex)

	c.mu.Lock()
	c.data[hex] = entry{Status: status, Timestamp: time.Now().Unix()}
	if err := c.save(); err != nil {
		c.log.Warn("failed to persist mil cache", logger.Error(err))
	}
	c.mu.Unlock()

	return status
}

func (c *Cache) fetch(ctx context.Context, hex string) TriState {
	if c.apiBaseURL == "" {
		return Unknown
	}

	url := fmt.Sprintf("%s/v2/hex/%s", strings.TrimRight(c.apiBaseURL, "/"), hex)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Warn("failed to build mil lookup request", logger.String("hex", hex), logger.Error(err))
		return Unknown
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("mil lookup request failed", logger.String("hex", hex), logger.Error(err))
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("mil lookup returned non-200", logger.String("hex", hex), logger.Int("status", resp.StatusCode))
		return Unknown
	}

	var body struct {
		Mil bool `json:"mil"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn("mil lookup response unparsable", logger.String("hex", hex), logger.Error(err))
		return Unknown
	}

	if body.Mil {
		return True
	}
	return False
}
