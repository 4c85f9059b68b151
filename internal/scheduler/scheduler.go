// Package scheduler triggers sweeps on a cron schedule. A database lease keeps
// replicas of the service from sweeping at the same time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

const lockName = "sweep"

// Sweeper runs one sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

// Locker hands out named leases.
type Locker interface {
	AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}

type Scheduler struct {
	logger *logger.Logger
	cron   *cron.Cron

	sweeper    Sweeper
	locks      Locker
	instanceID string
	timeout    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses schedule (standard 5-field cron or a descriptor such as
// "@every 5m") and registers the sweep job. Each run is bounded by timeout.
func NewScheduler(schedule string, sweeper Sweeper, locks Locker, instanceID string, timeout time.Duration, logger *logger.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		logger:     logger,
		sweeper:    sweeper,
		locks:      locks,
		instanceID: instanceID,
		timeout:    timeout,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started", "instance", s.instanceID)
	s.cron.Start()
}

// Stop stops triggering and waits for a running sweep up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out, cancelling running sweep")
		s.cancel()
	}
	s.cancel()
}

func (s *Scheduler) run() {
	if _, _, err := s.RunOnce(s.ctx); err != nil {
		s.logger.Error("Scheduled sweep failed", "error", err)
	}
}

// RunOnce sweeps if this instance gets the lease. It reports false when
// another instance holds it.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.SweepResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// started addresses may run past the deadline, the lease covers that
	acquired, err := s.locks.AcquireLock(ctx, lockName, s.instanceID, 2*s.timeout)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		s.logger.Debug("Sweep lease held by another instance, skipping")
		return nil, false, nil
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), lockName, s.instanceID); err != nil {
			s.logger.Error("Failed to release sweep lease", "error", err)
		}
	}()

	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return nil, true, err
	}
	return res, true, nil
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
