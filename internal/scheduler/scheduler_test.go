package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func TestJitteredIntervalWithinBounds(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	s := New(10, 20, func(ctx context.Context) error { return nil }, log)

	for i := 0; i < 50; i++ {
		d := s.jitteredInterval()
		if d < 10*time.Second || d >= 20*time.Second {
			t.Fatalf("interval out of [10s,20s): %v", d)
		}
	}
}

func TestJitteredIntervalDegenerateBounds(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	s := New(15, 15, func(ctx context.Context) error { return nil }, log)
	if d := s.jitteredInterval(); d != 15*time.Second {
		t.Fatalf("expected exactly min when min==max, got %v", d)
	}
}

func TestStartRunsCyclesUntilStop(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	var runs int32

	s := New(0, 1, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, log)

	ctx := context.Background()
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt32(&runs) == 0 {
		t.Fatal("expected at least one cycle to have run")
	}
}
