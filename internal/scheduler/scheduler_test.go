package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influmarkt/influmarkt/internal/clock"
	obsmetrics "github.com/influmarkt/influmarkt/internal/observability/metrics"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sweepCounter implements only the sweep side of the order service.
type sweepCounter struct {
	orderdomain.Service

	reminders int
	overdue   int
	expired   int

	remindersErr error
}

func (c *sweepCounter) SweepDeliveryReminders(ctx context.Context, now time.Time, batch int) (int, error) {
	c.reminders++
	return 1, c.remindersErr
}

func (c *sweepCounter) SweepOverdue(ctx context.Context, now time.Time, batch int) (int, error) {
	c.overdue++
	return 0, nil
}

func (c *sweepCounter) SweepConfirmExpired(ctx context.Context, now time.Time, batch int) (int, error) {
	c.expired++
	return 0, nil
}

// swapPrometheusRegistry points the default registry at a fresh one so the
// metrics singleton can re-register without colliding across tests.
func swapPrometheusRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()

	registry := prometheus.NewRegistry()
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	})
	return registry
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.Metric {
			if labelsMatch(metric, labels) {
				require.NotNil(t, metric.Counter, name)
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

func newScheduler(t *testing.T, svc orderdomain.Service, cfg Config) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	registry := swapPrometheusRegistry(t)

	sched, err := New(Params{
		Log:      zap.NewNop(),
		OrderSvc: svc,
		Clock:    clock.NewFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)),
		Config:   cfg,
	})
	require.NoError(t, err)
	return sched, registry
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRunsEveryJob(t *testing.T) {
	svc := &sweepCounter{}
	sched, registry := newScheduler(t, svc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, svc.reminders)
	assert.Equal(t, 1, svc.overdue)
	assert.Equal(t, 1, svc.expired)

	labels := map[string]string{"service": "influmarkt", "env": "unknown", "job": "delivery_reminder"}
	assert.Equal(t, 1.0, counterValue(t, registry, "influmarkt_scheduler_job_runs_total", labels))
	assert.Equal(t, 1.0, counterValue(t, registry, "influmarkt_scheduler_orders_processed_total", labels))
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	svc := &sweepCounter{}
	sched, _ := newScheduler(t, svc, Config{EnabledJobs: []string{"delivery_overdue"}})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 0, svc.reminders)
	assert.Equal(t, 1, svc.overdue)
	assert.Equal(t, 0, svc.expired)
}

func TestRunOnceCollectsJobErrors(t *testing.T) {
	svc := &sweepCounter{remindersErr: errors.New("db_unavailable")}
	sched, registry := newScheduler(t, svc, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery_reminder")

	// The failing job never blocks the others.
	assert.Equal(t, 1, svc.overdue)
	assert.Equal(t, 1, svc.expired)

	labels := map[string]string{
		"service": "influmarkt",
		"env":     "unknown",
		"job":     "delivery_reminder",
		"reason":  obsmetrics.JobReasonUnknown,
	}
	assert.Equal(t, 1.0, counterValue(t, registry, "influmarkt_scheduler_job_errors_total", labels))
}

func TestRunOnceTreatsTimeoutAsSoftFailure(t *testing.T) {
	svc := &sweepCounter{remindersErr: context.DeadlineExceeded}
	sched, registry := newScheduler(t, svc, Config{})

	assert.NoError(t, sched.RunOnce(context.Background()))

	labels := map[string]string{"service": "influmarkt", "env": "unknown", "job": "delivery_reminder"}
	assert.Equal(t, 1.0, counterValue(t, registry, "influmarkt_scheduler_job_timeouts_total", labels))
}

func TestIsJobEnabledIsCaseInsensitive(t *testing.T) {
	svc := &sweepCounter{}
	sched, _ := newScheduler(t, svc, Config{EnabledJobs: []string{"Delivery_Reminder"}})

	assert.True(t, sched.isJobEnabled("delivery_reminder"))
	assert.False(t, sched.isJobEnabled("delivery_overdue"))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)

	custom := Config{BatchSize: 10, RunInterval: 5 * time.Second}.withDefaults()
	assert.Equal(t, 10, custom.BatchSize)
	assert.Equal(t, 5*time.Second, custom.RunInterval)
}
