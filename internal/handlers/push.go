package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novaocc/cora/internal/app"
	"github.com/novaocc/cora/internal/push"
	"github.com/novaocc/cora/internal/services"
	appErrors "github.com/novaocc/cora/pkg/errors"
	"github.com/novaocc/cora/pkg/response"
)

// PushHandler exposes the subscription registry and a delivery smoke test.
type PushHandler struct {
	registry *services.SubscriptionService
	notifier *push.Notifier
	cfg      app.PushConfig
}

// NewPushHandler constructs a PushHandler.
func NewPushHandler(registry *services.SubscriptionService, notifier *push.Notifier, cfg app.PushConfig) *PushHandler {
	return &PushHandler{registry: registry, notifier: notifier, cfg: cfg}
}

type subscriptionKeysRequest struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

type subscribeRequest struct {
	Endpoint string                  `json:"endpoint" validate:"required,url"`
	Keys     subscriptionKeysRequest `json:"keys" validate:"required"`
}

// Subscribe registers the caller's browser subscription. Re-registering an
// existing endpoint refreshes its keys.
func (h *PushHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req subscribeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	sub, err := h.registry.Upsert(c.Request.Context(), userID, services.UpsertSubscriptionInput{
		Endpoint: req.Endpoint,
		Keys: services.SubscriptionKeys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":       sub.ID,
		"endpoint": sub.Endpoint,
	})
}

// Unsubscribe removes every subscription registered by the caller.
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	removed, err := h.registry.RemoveByOwner(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}

// PublicKey returns the VAPID application server key browsers need when
// calling pushManager.subscribe. Public by design so the service worker can
// fetch it before login completes.
func (h *PushHandler) PublicKey(c *gin.Context) {
	if !h.cfg.Configured() {
		response.Error(c, appErrors.ErrPushNotConfigured)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"public_key": h.cfg.VAPIDPublicKey})
}

type testNotifyRequest struct {
	Title string `json:"title" validate:"max=120"`
	Body  string `json:"body" validate:"required,max=500"`
	URL   string `json:"url" validate:"omitempty,url"`
}

// TestNotify fans out an operator-supplied message to every registered
// subscription and returns the cycle summary.
func (h *PushHandler) TestNotify(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req testNotifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	summary, err := h.notifier.Notify(c.Request.Context(), push.Event{
		Title:     req.Title,
		Body:      req.Body,
		TargetURL: req.URL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
