// Package pipeline wires one fetch/fuse/enrich/publish cycle together
// as the scheduler's CycleFunc.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/hangarwatch/aerofuse/internal/config"
	"github.com/hangarwatch/aerofuse/internal/enrich"
	"github.com/hangarwatch/aerofuse/internal/fusion"
	"github.com/hangarwatch/aerofuse/internal/geo"
	"github.com/hangarwatch/aerofuse/internal/media"
	"github.com/hangarwatch/aerofuse/internal/nearest"
	"github.com/hangarwatch/aerofuse/internal/provider"
	"github.com/hangarwatch/aerofuse/internal/publish"
	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/internal/store"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// SnapshotSink receives the latest Snapshot and Stats after every
// cycle, whether or not publication succeeded. internal/httpapi's
// Handler implements this.
type SnapshotSink interface {
	SetLatest(snap *snapshot.Snapshot, stats snapshot.Stats)
}

// Broadcaster fans a Snapshot out to debug WebSocket subscribers.
type Broadcaster interface {
	Broadcast(snap *snapshot.Snapshot)
}

// Pipeline owns one cycle's worth of collaborators plus the running
// stats counters published alongside every snapshot.
type Pipeline struct {
	cfg       *config.Config
	providers []provider.Client
	enricher  *enrich.Enricher
	media     *media.Enricher
	publisher *publish.Publisher
	store     *store.Store
	sink      SnapshotSink
	broadcast Broadcaster
	log       *logger.Logger

	center   geo.Point
	radiusNM float64

	mu        sync.Mutex
	runs      int64
	successes int64
	errors    int64
	startTime time.Time
}

// New constructs a Pipeline. media and store may be nil (media
// enrichment and stats persistence are both optional collaborators).
func New(
	cfg *config.Config,
	providers []provider.Client,
	enricher *enrich.Enricher,
	mediaEnricher *media.Enricher,
	publisher *publish.Publisher,
	statsStore *store.Store,
	sink SnapshotSink,
	broadcast Broadcaster,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		providers: providers,
		enricher:  enricher,
		media:     mediaEnricher,
		publisher: publisher,
		store:     statsStore,
		sink:      sink,
		broadcast: broadcast,
		log:       log.Named("pipeline"),
		center:    geo.Point{Lat: cfg.Station.Lat, Lon: cfg.Station.Lon},
		radiusNM:  cfg.Station.RadiusNM,
		startTime: time.Now(),
	}
}

// Run executes one full cycle: fetch every provider concurrently, fuse,
// enrich and geolocate each aircraft, select the aircraft of interest,
// optionally enrich with media, publish, and record. It never returns
// an error that would stop the scheduler — every failure is absorbed
// into the stats counters and logged instead.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	observations := p.fetchAll(ctx)

	merged := fusion.Merge(observations, p.cfg.Fusion.DefaultPriority)

	planes := make([]*snapshot.Plane, 0, len(merged))
	for _, m := range merged {
		enriched := p.enricher.Enrich(m)
		planes = append(planes, snapshot.Build(m, p.center, p.radiusNM, enriched))
	}

	nearestOverall, nearestCommercial := nearest.Select(planes)
	nearest.ApplyDefaults(nearestOverall)
	nearest.ApplyDefaults(nearestCommercial)

	if p.media != nil {
		candidates := make([]*snapshot.Plane, 0, 2)
		if nearestOverall != nil {
			candidates = append(candidates, nearestOverall)
		}
		if nearestCommercial != nil && nearestCommercial != nearestOverall {
			candidates = append(candidates, nearestCommercial)
		}
		if len(candidates) > 0 {
			p.media.EnrichAll(ctx, candidates)
		}
	}

	snap := &snapshot.Snapshot{
		Timestamp:         time.Now().Unix(),
		Point:             snapshot.Point{Lat: p.center.Lat, Lon: p.center.Lon, RadiusNM: p.radiusNM},
		Planes:            planes,
		Nearest:           nearestOverall,
		NearestCommercial: nearestCommercial,
	}

	stats := p.buildStats(len(planes), nearestOverall)

	result := p.publisher.Publish(snap, stats)

	p.mu.Lock()
	p.successes += int64(result.Successful)
	p.errors += int64(result.Failed)
	p.mu.Unlock()
	stats = p.buildStats(len(planes), nearestOverall)

	if p.sink != nil {
		p.sink.SetLatest(snap, stats)
	}
	if p.broadcast != nil {
		p.broadcast.Broadcast(snap)
	}

	if p.store != nil {
		nearestHex := ""
		if nearestOverall != nil {
			nearestHex = nearestOverall.Hex
		}
		rec := store.CycleRecord{
			Runs:                stats.Runs,
			SuccessfulPublishes: stats.SuccessfulPublishes,
			Errors:              stats.Errors,
			AircraftCount:       len(planes),
			NearestHex:          nearestHex,
		}
		if err := p.store.Record(rec); err != nil {
			p.log.Warn("failed to record cycle stats", logger.Error(err))
		}
	}

	p.log.Info("cycle complete",
		logger.Int("aircraft_count", len(planes)),
		logger.Int("published", result.Successful),
		logger.Int("publish_errors", result.Failed),
	)

	return nil
}

// fetchAll polls every configured provider concurrently and collects
// whatever observations come back; a single provider's failure never
// blocks the others.
func (p *Pipeline) fetchAll(ctx context.Context) []provider.Observation {
	var wg sync.WaitGroup
	results := make([][]provider.Observation, len(p.providers))

	for i, client := range p.providers {
		wg.Add(1)
		go func(i int, c provider.Client) {
			defer wg.Done()
			obs, err := c.Fetch(ctx)
			if err != nil {
				p.log.Warn("provider fetch failed", logger.String("provider", string(c.ID())), logger.Error(err))
				return
			}
			results[i] = obs
		}(i, client)
	}
	wg.Wait()

	var all []provider.Observation
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (p *Pipeline) buildStats(aircraftCount int, nearestOverall *snapshot.Plane) snapshot.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	nearestHex := ""
	if nearestOverall != nil {
		nearestHex = nearestOverall.Hex
	}

	return snapshot.Stats{
		Runs:                p.runs,
		SuccessfulPublishes: p.successes,
		Errors:              p.errors,
		StartTime:           p.startTime.UTC().Format(time.RFC3339),
		LastUpdate:          time.Now().UTC().Format(time.RFC3339),
		AircraftCount:       aircraftCount,
		NearestAircraft:     nearestHex,
	}
}
