package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/redis"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

var (
	// ErrSchedulerAlreadyRunning is returned when trying to start an already running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	// DefaultScanInterval is the default interval between scan runs
	DefaultScanInterval = 1 * time.Hour

	// DefaultLockTTL is the default TTL for the scan lock
	DefaultLockTTL = 10 * time.Minute

	// ScanLockKey serializes scan runs across service instances
	ScanLockKey = "review:scan"
)

// ReviewRunner is the service surface the scheduler drives.
type ReviewRunner interface {
	RunScan(ctx context.Context) (*models.ScanSummary, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

// Config holds configuration for the scheduler
type Config struct {
	// ScanInterval is how often to run the scan + overdue sweep
	ScanInterval time.Duration

	// LockTTL is how long to hold the scan lock
	LockTTL time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		ScanInterval: DefaultScanInterval,
		LockTTL:      DefaultLockTTL,
	}
}

// Scheduler periodically runs the eligibility scan and the overdue sweep.
// A redis lock keeps overlapping runs from multiple instances apart; a
// contended tick is skipped, not queued.
type Scheduler struct {
	runner ReviewRunner
	locker *redis.Locker
	config Config
	logger ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(runner ReviewRunner, locker *redis.Locker, config Config, logger ectologger.Logger) *Scheduler {
	// Apply defaults
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultScanInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		runner:   runner,
		locker:   locker,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "Scheduler.Start")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Starting scheduler: scan_interval=%s", s.config.ScanInterval)

	go s.pollLoop(ctx)

	s.logger.WithContext(ctx).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// pollLoop runs scan cycles until stopped
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Scheduler poll loop stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle runs one scan + sweep under the shared lock
func (s *Scheduler) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.runCycle")
	defer span.End()

	start := time.Now()

	err := s.locker.WithLock(ctx, ScanLockKey, s.config.LockTTL, func() error {
		summary, err := s.runner.RunScan(ctx)
		if err != nil {
			return err
		}

		expired, err := s.runner.ExpireOverdue(ctx)
		if err != nil {
			return err
		}

		s.logger.WithContext(ctx).Infof("Scan cycle completed: scanned=%d created=%d skipped=%d failures=%d expired=%d duration=%s",
			summary.Scanned, summary.Created, summary.Skipped, len(summary.Failures), expired, time.Since(start))
		return nil
	})

	if errors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).Debug("Scan lock held elsewhere, skipping cycle")
		return
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Scan cycle failed")
	}
}
