package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// Store health values reported by StoreStatus.
const (
	StatusUnknown = "unknown"
	StatusUp      = "up"
	StatusDown    = "down"
)

const probeTimeout = 5 * time.Second

// Pinger is satisfied by the observation stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter receives each probe result, e.g. a metrics gauge.
type HealthReporter interface {
	StoreHealth(up bool)
}

// Scheduler periodically probes the observation store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pinger    Pinger
	reporter  HealthReporter
	logger    *slog.Logger
	interval  time.Duration

	status atomic.Value
}

// New creates a new Scheduler. reporter may be nil.
func New(pinger Pinger, interval time.Duration, reporter HealthReporter, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pinger:    pinger,
		reporter:  reporter,
		logger:    logger,
		interval:  interval,
	}
	s.status.Store(StatusUnknown)
	return s
}

// Start schedules the probe job and starts the underlying scheduler.
// The first probe runs immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		s.Probe(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future probes.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Probe pings the store once and records the outcome.
func (s *Scheduler) Probe(ctx context.Context) bool {
	err := s.pinger.Ping(ctx)
	up := err == nil

	previous := s.StoreStatus()
	if up {
		s.status.Store(StatusUp)
	} else {
		s.status.Store(StatusDown)
	}

	if s.reporter != nil {
		s.reporter.StoreHealth(up)
	}

	switch {
	case !up:
		s.logger.Warn("scheduler: store probe failed", "error", err)
	case previous != StatusUp:
		s.logger.Info("scheduler: store reachable")
	}
	return up
}

// StoreStatus returns the result of the last probe.
func (s *Scheduler) StoreStatus() string {
	return s.status.Load().(string)
}
