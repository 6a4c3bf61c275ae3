package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/influmarkt/influmarkt/internal/clock"
	obsmetrics "github.com/influmarkt/influmarkt/internal/observability/metrics"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

const runLockKey = "influmarkt:scheduler:run"

type Params struct {
	fx.In

	Log      *zap.Logger
	OrderSvc orderdomain.Service
	Clock    clock.Clock
	Locker   *Locker `optional:"true"`
	Config   Config  `optional:"true"`
}

// Scheduler drives the three deadline sweeps on a fixed cadence. Each run
// is independently safe to repeat: the sweeps themselves are idempotent.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	orderSvc orderdomain.Service
	locker   *Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.OrderSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		orderSvc: p.OrderSvc,
		locker:   p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) (int, error),
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	processed, err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if processed > 0 {
		schedMetrics.AddOrdersProcessed(name, processed)
		log.Info("job processed orders", zap.Int("processed", processed))
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft failure: the next tick picks up where this
	// run left off.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	release, owner, err := s.acquireRunLock(parent)
	if err != nil {
		s.log.Warn("scheduler lock unavailable", zap.Error(err))
		return nil
	}
	if !owner {
		s.log.Debug("another instance holds the run lock, skipping")
		return nil
	}
	defer release()

	now := s.clock.Now()

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"delivery_reminder", s.isJobEnabled("delivery_reminder"), func(ctx context.Context) error {
			return s.runJob(ctx, "delivery_reminder", s.cfg.JobTimeout, func(ctx context.Context) (int, error) {
				return s.orderSvc.SweepDeliveryReminders(ctx, now, s.cfg.BatchSize)
			})
		}},
		{"delivery_overdue", s.isJobEnabled("delivery_overdue"), func(ctx context.Context) error {
			return s.runJob(ctx, "delivery_overdue", s.cfg.JobTimeout, func(ctx context.Context) (int, error) {
				return s.orderSvc.SweepOverdue(ctx, now, s.cfg.BatchSize)
			})
		}},
		{"confirmation_expired", s.isJobEnabled("confirmation_expired"), func(ctx context.Context) error {
			return s.runJob(ctx, "confirmation_expired", s.cfg.JobTimeout, func(ctx context.Context) (int, error) {
				return s.orderSvc.SweepConfirmExpired(ctx, now, s.cfg.BatchSize)
			})
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// acquireRunLock takes the cross-replica run lock when a Locker is
// configured. Without one every run is an owner.
func (s *Scheduler) acquireRunLock(ctx context.Context) (release func(), owner bool, err error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, runLockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if releaseErr := s.locker.Release(ctx, runLockKey, token); releaseErr != nil {
			s.log.Warn("failed to release run lock", zap.Error(releaseErr))
		}
	}, true, nil
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
