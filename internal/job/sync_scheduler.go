// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
	"provider-sync-service/pkg/locker"
)

// Synchronizer runs every scheduled provider run.
// Implementations: service.ProviderManager
type Synchronizer interface {
	SynchronizeAll(ctx context.Context) []*domain.RunReport
}

// SyncScheduler runs SynchronizeAll periodically. A distributed lock makes
// sure a single instance runs it per interval.
type SyncScheduler struct {
	synchronizer Synchronizer
	interval     time.Duration
	timeout      time.Duration
	logger       *zap.Logger
	locker       locker.DistributedLocker
	lockKey      string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SyncConfig holds sync scheduler configuration.
type SyncConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	OnStartup bool
	// LockKey defaults to DefaultLockKey.
	LockKey string
}

// DefaultLockKey is the scheduler cooldown lock.
const DefaultLockKey = "provider-sync:scheduler:lock"

// NewSyncScheduler creates a new SyncScheduler.
func NewSyncScheduler(
	synchronizer Synchronizer,
	cfg SyncConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *SyncScheduler {
	lockKey := cfg.LockKey
	if lockKey == "" {
		lockKey = DefaultLockKey
	}

	return &SyncScheduler{
		synchronizer: synchronizer,
		interval:     cfg.Interval,
		timeout:      cfg.Timeout,
		logger:       logger,
		locker:       locker,
		lockKey:      lockKey,
	}
}

// Start begins the background sync job.
func (s *SyncScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting sync scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop cancels the running pass, if any, and waits for the loop to exit.
func (s *SyncScheduler) Stop() {
	s.logger.Info("stopping sync scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

func (s *SyncScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executeSync()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeSync()
		}
	}
}

// executeSync runs one pass under the cooldown lock.
//
// The lock TTL is the interval: after a clean pass the lock is kept so no other
// instance runs again before the next tick. When any run failed, the lock is
// released right away so another instance may retry.
func (s *SyncScheduler) executeSync() {
	acquired, err := s.locker.Acquire(s.ctx, s.lockKey, s.interval)
	if err != nil {
		s.logger.Error("failed to acquire distributed lock", zap.Error(err))

		return
	}
	if !acquired {
		s.logger.Debug("another instance is running sync, skipping execution")

		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	reports := s.synchronizer.SynchronizeAll(ctx)

	var total domain.Counters
	failed := 0
	for _, r := range reports {
		if !r.Succeeded() {
			failed++
			continue
		}
		total.Checked += r.Counters.Checked
		total.Created += r.Counters.Created
		total.Updated += r.Counters.Updated
		total.Errored += r.Counters.Errored
	}

	if failed > 0 {
		if err := s.locker.Release(context.WithoutCancel(s.ctx), s.lockKey); err != nil {
			s.logger.Error("failed to release lock after sync error", zap.Error(err))
		}
		s.logger.Info("sync completed with errors, lock released for retry",
			zap.Int("runs", len(reports)),
			zap.Int("runs_failed", failed),
			zap.Stringer("counters", total),
		)

		return
	}

	s.logger.Info("sync completed successfully, lock held for cooldown",
		zap.Int("runs", len(reports)),
		zap.Stringer("counters", total),
		zap.Duration("cooldown", s.interval),
	)
}
