package push

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/novaocc/cora/internal/models"
	"github.com/novaocc/cora/pkg/logger"
)

// SubscriptionSource is the system-scoped read over the whole registry. It is
// a separate capability from the owner-scoped registry operations and is only
// handed to the fan-out path, never to per-user request handling.
type SubscriptionSource interface {
	ListAll(ctx context.Context) ([]models.PushSubscription, error)
}

// Notifier ties the composer, delivery engine and cleanup together into the
// fan-out entry point used by domain events.
type Notifier struct {
	composer *Composer
	engine   *Engine
	source   SubscriptionSource
	cleaner  *Cleaner
	log      *zap.Logger
}

// NewNotifier constructs the fan-out pipeline.
func NewNotifier(composer *Composer, engine *Engine, source SubscriptionSource, cleaner *Cleaner) (*Notifier, error) {
	if composer == nil {
		return nil, errors.New("push: composer is required")
	}
	if engine == nil {
		return nil, errors.New("push: engine is required")
	}
	if source == nil {
		return nil, errors.New("push: subscription source is required")
	}

	return &Notifier{
		composer: composer,
		engine:   engine,
		source:   source,
		cleaner:  cleaner,
		log:      logger.WithModule("push"),
	}, nil
}

// Notify composes a message for the event and delivers it to every
// registered subscription. Per-recipient failures are reflected in the
// summary only; the returned error covers composition, the registry read and
// missing delivery configuration.
func (n *Notifier) Notify(ctx context.Context, event Event) (FanoutSummary, error) {
	msg, err := n.composer.Compose(event)
	if err != nil {
		return FanoutSummary{}, err
	}

	subs, err := n.source.ListAll(ctx)
	if err != nil {
		return FanoutSummary{}, fmt.Errorf("push: load subscriptions: %w", err)
	}

	summary, outcomes, err := n.engine.Deliver(ctx, msg, subs)
	if err != nil {
		return FanoutSummary{}, err
	}

	if err := n.cleaner.Sweep(ctx, outcomes); err != nil {
		n.log.Warn("subscription cleanup incomplete", zap.Error(err))
	}

	n.log.Info("fan-out cycle complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("transient", summary.TransientFailures),
		zap.Int("permanent", summary.PermanentFailures),
	)

	return summary, nil
}

// NotifyNewReport fans out the standard new-report notification.
func (n *Notifier) NotifyNewReport(ctx context.Context, title string) (FanoutSummary, error) {
	return n.Notify(ctx, Event{Body: "New report: " + title})
}
