package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"

	"github.com/tair/course-settlement/internal/settlement/metrics"
	"github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/pkg/logger"
)

const sweepLockName = "settlement:sweep"

// ErrLocked is returned when another instance holds the sweep lock
var ErrLocked = errors.New("sweep already running elsewhere")

// Sweeper promotes ledger rows whose hold has expired
type Sweeper interface {
	Handle(ctx context.Context, cmd command.SweepEligibilityCommand) (*command.SweepResult, error)
}

// Locker guards a job against concurrent runs across instances
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// RedsyncLocker is a Locker backed by a Redis mutex
type RedsyncLocker struct {
	mutex *redsync.Mutex
}

// NewRedsyncLocker creates a lock that expires after ttl and is attempted
// once per run.
func NewRedsyncLocker(rs *redsync.Redsync, ttl time.Duration) *RedsyncLocker {
	return &RedsyncLocker{
		mutex: rs.NewMutex(sweepLockName, redsync.WithExpiry(ttl), redsync.WithTries(1)),
	}
}

// Lock acquires the mutex or returns ErrLocked
func (l *RedsyncLocker) Lock(ctx context.Context) (func(), error) {
	if err := l.mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return func() {
		if ok, err := l.mutex.UnlockContext(context.Background()); err != nil || !ok {
			logger.Logger.Warn().Err(err).Bool("released", ok).Msg("Failed to release sweep lock")
		}
	}, nil
}

// Scheduler runs the eligibility sweep on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	sweeper   Sweeper
	locker    Locker
	batchSize int
	timeout   time.Duration
}

// New registers the sweep under spec, a six-field cron expression with
// seconds. locker may be nil for single-instance deployments.
func New(spec string, sweeper Sweeper, locker Locker, batchSize int, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sweeper:   sweeper,
		locker:    locker,
		batchSize: batchSize,
		timeout:   timeout,
	}

	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrLocked) {
			logger.Error(ctx).Err(err).Msg("Eligibility sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs one sweep under the lock
func (s *Scheduler) RunOnce(ctx context.Context) (*command.SweepResult, error) {
	log := logger.Component(ctx, "settlement-cron")

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx)
		if err != nil {
			if errors.Is(err, ErrLocked) {
				metrics.SweepRuns.WithLabelValues("skipped").Inc()
				log.Info().Msg("Sweep lock held by another instance, skipping")
			}
			return nil, err
		}
		defer unlock()
	}

	return s.sweeper.Handle(ctx, command.SweepEligibilityCommand{BatchSize: s.batchSize})
}

// Start starts the cron scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits up to wait for a running sweep
func (s *Scheduler) Stop(wait time.Duration) {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		logger.Logger.Info().Msg("Cron jobs stopped gracefully")
	case <-time.After(wait):
		logger.Logger.Warn().Msg("Cron jobs forced to stop after timeout")
	}
}
