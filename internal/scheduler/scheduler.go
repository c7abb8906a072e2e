// Package scheduler runs the aircraft-fusion pipeline on a jittered
// interval, one cycle at a time.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// CycleFunc runs exactly one pipeline cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler supervises a single-threaded loop: run one cycle, sleep the
// remainder of a randomized interval, repeat. At most one cycle is ever
// in flight.
type Scheduler struct {
	minInterval time.Duration
	maxInterval time.Duration
	runCycle    CycleFunc
	log         *logger.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Scheduler. minSeconds/maxSeconds bound the
// uniformly-distributed jitter applied between cycles.
func New(minSeconds, maxSeconds int, runCycle CycleFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		minInterval: time.Duration(minSeconds) * time.Second,
		maxInterval: time.Duration(maxSeconds) * time.Second,
		runCycle:    runCycle,
		log:         log.Named("scheduler"),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the supervisory loop in the background. It returns
// immediately; call Stop to request a clean shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop requests the loop finish its current cycle and exit, then waits
// for it to do so.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		cycleStart := time.Now()
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("cycle failed", logger.Error(err))
		}
		cycleDuration := time.Since(cycleStart)

		interval := s.jitteredInterval()
		sleepFor := interval - cycleDuration
		if sleepFor <= 0 {
			s.log.Warn("cycle exceeded interval, starting next cycle immediately",
				logger.Float64("cycle_seconds", cycleDuration.Seconds()),
				logger.Float64("interval_seconds", interval.Seconds()),
			)
			continue
		}

		select {
		case <-time.After(sleepFor):
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// jitteredInterval picks a uniformly-distributed interval in
// [minInterval, maxInterval), or exactly minInterval when maxInterval
// is not greater than minInterval.
func (s *Scheduler) jitteredInterval() time.Duration {
	if s.maxInterval <= s.minInterval {
		return s.minInterval
	}
	span := s.maxInterval - s.minInterval
	return s.minInterval + time.Duration(rand.Int63n(int64(span)))
}
