package store

import (
	"path/filepath"
	"testing"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "stats.db")
	s, err := Open(dbPath, log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record(CycleRecord{Runs: 1, SuccessfulPublishes: 1, Errors: 0, AircraftCount: 4, NearestHex: "a1b2c3"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(CycleRecord{Runs: 2, SuccessfulPublishes: 2, Errors: 1, AircraftCount: 6, NearestHex: "d4e5f6"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recs, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	// newest first
	if recs[0].Runs != 2 || recs[0].NearestHex != "d4e5f6" {
		t.Fatalf("unexpected newest record: %+v", recs[0])
	}
	if recs[1].Runs != 1 || recs[1].NearestHex != "a1b2c3" {
		t.Fatalf("unexpected oldest record: %+v", recs[1])
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.Record(CycleRecord{Runs: int64(i), AircraftCount: i}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Runs != 4 {
		t.Fatalf("expected newest run 4 first, got %d", recs[0].Runs)
	}
}

func TestRecentOnEmptyStoreReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	recs, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}
