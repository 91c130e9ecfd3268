package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/novaocc/cora/internal/app"
	"github.com/novaocc/cora/internal/models"
	apperrors "github.com/novaocc/cora/pkg/errors"
	"github.com/novaocc/cora/pkg/logger"
	"github.com/novaocc/cora/pkg/metrics"
)

// Engine delivers one composed message to a set of subscriptions.
//
// Each attempt encrypts the payload with the recipient's p256dh/auth pair and
// signs the request with the process-wide VAPID identity, so deliveries are
// self-contained and order-independent. webpush-go mints a fresh short-lived
// VAPID token per request, which keeps long cycles within the token expiry
// rules of the push services.
type Engine struct {
	cfg    app.PushConfig
	client *http.Client
	log    *zap.Logger
}

// NewEngine constructs a delivery engine from push configuration.
func NewEngine(cfg app.PushConfig) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Engine{
		cfg:    cfg,
		client: &http.Client{},
		log:    logger.WithModule("push.engine"),
	}
}

// Deliver fans the message out to every subscription and classifies each
// attempt. An empty subscription list yields a zero summary without error.
// Missing signing keys abort the whole call before any network attempt; no
// per-recipient failure ever does.
func (e *Engine) Deliver(ctx context.Context, msg Message, subs []models.PushSubscription) (FanoutSummary, []Outcome, error) {
	if !e.cfg.Configured() {
		return FanoutSummary{}, nil, apperrors.ErrPushNotConfigured
	}

	payload, err := msg.Payload()
	if err != nil {
		return FanoutSummary{}, nil, fmt.Errorf("push: encode payload: %w", err)
	}

	metrics.PushCycles.Inc()

	if len(subs) == 0 {
		return FanoutSummary{}, nil, nil
	}

	if e.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CycleTimeout)
		defer cancel()
	}

	workers := e.cfg.Workers
	if workers > len(subs) {
		workers = len(subs)
	}

	jobs := make(chan models.PushSubscription)
	results := make(chan Outcome, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				results <- e.attempt(ctx, payload, sub)
			}
		}()
	}

	for _, sub := range subs {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(subs))
	for outcome := range results {
		metrics.PushDeliveries.WithLabelValues(outcome.Class.String()).Inc()
		if outcome.Class != Success {
			e.log.Warn("delivery failed",
				zap.String("subscription_id", outcome.SubscriptionID),
				zap.String("class", outcome.Class.String()),
				zap.Int("status", outcome.StatusCode),
				zap.Error(outcome.Err),
			)
		}
		outcomes = append(outcomes, outcome)
	}

	return summarize(outcomes), outcomes, nil
}

// attempt performs a single bounded delivery. Encryption or transport errors
// classify as transient; only an explicit push service status can be
// permanent.
func (e *Engine) attempt(ctx context.Context, payload []byte, sub models.PushSubscription) Outcome {
	outcome := Outcome{
		SubscriptionID: sub.ID,
		Endpoint:       sub.Endpoint,
	}

	attemptCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	resp, err := webpush.SendNotificationWithContext(attemptCtx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      e.client,
		Subscriber:      e.cfg.Subscriber,
		VAPIDPublicKey:  e.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: e.cfg.VAPIDPrivateKey,
		TTL:             e.cfg.TTL,
	})
	if err != nil {
		outcome.Class = TransientFailure
		outcome.Err = err
		return outcome
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	outcome.StatusCode = resp.StatusCode
	outcome.Class = classifyStatus(resp.StatusCode)
	return outcome
}
