package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hangarwatch/aerofuse/internal/provider"
	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

type fakeClient struct {
	id  provider.ID
	obs []provider.Observation
	err error
}

func (f *fakeClient) ID() provider.ID { return f.id }
func (f *fakeClient) Fetch(ctx context.Context) ([]provider.Observation, error) {
	return f.obs, f.err
}

func testPipeline(t *testing.T, providers []provider.Client) *Pipeline {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return &Pipeline{providers: providers, log: log.Named("test"), startTime: time.Now()}
}

func TestFetchAllCombinesAllProviderResults(t *testing.T) {
	p := testPipeline(t, []provider.Client{
		&fakeClient{id: provider.ProviderA, obs: []provider.Observation{{Provider: provider.ProviderA, Hex: "AAA"}}},
		&fakeClient{id: provider.ProviderB, obs: []provider.Observation{{Provider: provider.ProviderB, Hex: "BBB"}}},
	})

	obs := p.fetchAll(context.Background())
	if len(obs) != 2 {
		t.Fatalf("expected 2 combined observations, got %d", len(obs))
	}
}

func TestFetchAllToleratesOneProviderFailing(t *testing.T) {
	p := testPipeline(t, []provider.Client{
		&fakeClient{id: provider.ProviderA, err: fmt.Errorf("boom")},
		&fakeClient{id: provider.ProviderC, obs: []provider.Observation{{Provider: provider.ProviderC, Hex: "CCC"}}},
	})

	obs := p.fetchAll(context.Background())
	if len(obs) != 1 || obs[0].Hex != "CCC" {
		t.Fatalf("expected only provider C's observation to survive, got %+v", obs)
	}
}

func TestBuildStatsTracksRunsAndNearest(t *testing.T) {
	p := testPipeline(t, nil)
	p.runs = 3
	p.successes = 2
	p.errors = 1

	nearest := &snapshot.Plane{Hex: "DEADBE"}
	stats := p.buildStats(5, nearest)

	if stats.Runs != 3 || stats.SuccessfulPublishes != 2 || stats.Errors != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.AircraftCount != 5 {
		t.Fatalf("expected aircraft_count 5, got %d", stats.AircraftCount)
	}
	if stats.NearestAircraft != "DEADBE" {
		t.Fatalf("expected nearest aircraft hex, got %q", stats.NearestAircraft)
	}
}

func TestBuildStatsHandlesNoNearestAircraft(t *testing.T) {
	p := testPipeline(t, nil)
	stats := p.buildStats(0, nil)
	if stats.NearestAircraft != "" {
		t.Fatalf("expected empty nearest aircraft, got %q", stats.NearestAircraft)
	}
}
