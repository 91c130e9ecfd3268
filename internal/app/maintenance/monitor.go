package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/novaocc/cora/pkg/logger"
	"github.com/novaocc/cora/pkg/metrics"
)

const defaultGaugeSpec = "@every 1m"

// RegistryCounter reports the current size of the subscription registry.
type RegistryCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Monitor keeps the subscription gauge in sync with the registry on a
// schedule. Fan-out cycles do not mutate the gauge themselves because
// cleanup may remove rows concurrently.
type Monitor struct {
	counter  RegistryCounter
	cron     *cron.Cron
	schedule string
	log      *zap.Logger
}

// Option customises the Monitor.
type Option func(*Monitor)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(m *Monitor) {
		if c != nil {
			m.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the gauge refresh.
func WithSchedule(spec string) Option {
	return func(m *Monitor) {
		if spec != "" {
			m.schedule = spec
		}
	}
}

// NewMonitor constructs a Monitor. A nil counter disables the job.
func NewMonitor(counter RegistryCounter, opts ...Option) *Monitor {
	monitor := &Monitor{
		counter:  counter,
		schedule: defaultGaugeSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(monitor)
	}

	if monitor.cron == nil {
		monitor.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return monitor
}

// Start registers the refresh job with the cron scheduler and launches it.
func (m *Monitor) Start() error {
	if m.counter == nil {
		return nil
	}

	if _, err := m.cron.AddFunc(m.schedule, func() {
		if err := m.RunOnce(context.Background()); err != nil {
			m.log.Warn("subscription gauge refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	m.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (m *Monitor) Stop() context.Context {
	if m.cron == nil {
		return context.Background()
	}
	return m.cron.Stop()
}

// RunOnce refreshes the gauge immediately. Used at startup and in tests.
func (m *Monitor) RunOnce(ctx context.Context) error {
	if m.counter == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	count, err := m.counter.Count(ctx)
	if err != nil {
		return err
	}

	metrics.PushSubscriptions.Set(float64(count))
	return nil
}
