package push

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/novaocc/cora/pkg/logger"
)

// SubscriptionRemover deletes a single subscription by id. A delete of an
// already absent row must be a no-op so that racing cleanup cycles stay safe.
type SubscriptionRemover interface {
	RemoveByID(ctx context.Context, id string) error
}

// Cleaner removes subscriptions whose endpoints the push service reported as
// permanently gone. It runs inside the same fan-out cycle that detected the
// failure; deletion problems are logged, never retried, and never change the
// already-computed summary.
type Cleaner struct {
	remover SubscriptionRemover
	log     *zap.Logger
}

// NewCleaner constructs a Cleaner around the registry's delete capability.
func NewCleaner(remover SubscriptionRemover) *Cleaner {
	return &Cleaner{
		remover: remover,
		log:     logger.WithModule("push.cleanup"),
	}
}

// Sweep deletes the registry entry behind every permanent-failure outcome.
func (c *Cleaner) Sweep(ctx context.Context, outcomes []Outcome) error {
	if c == nil || c.remover == nil {
		return nil
	}

	var errs error
	for _, outcome := range outcomes {
		if outcome.Class != PermanentFailure {
			continue
		}

		if err := c.remover.RemoveByID(ctx, outcome.SubscriptionID); err != nil {
			c.log.Warn("failed to remove dead subscription",
				zap.String("subscription_id", outcome.SubscriptionID),
				zap.Int("status", outcome.StatusCode),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("remove subscription %s: %w", outcome.SubscriptionID, err))
			continue
		}

		c.log.Info("removed dead subscription",
			zap.String("subscription_id", outcome.SubscriptionID),
			zap.Int("status", outcome.StatusCode),
		)
	}

	return errs
}
