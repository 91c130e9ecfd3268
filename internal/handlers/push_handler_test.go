package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/novaocc/cora/internal/app"
	"github.com/novaocc/cora/internal/models"
	"github.com/novaocc/cora/internal/services"
)

func newPushRouter(env *testEnv, userID string) *gin.Engine {
	handler := NewPushHandler(env.registry, env.notifier, env.pushCfg)

	router := gin.New()
	router.GET("/api/push/public-key", handler.PublicKey)

	authed := router.Group("/api/push")
	if userID != "" {
		authed.Use(asUser(userID))
	}
	authed.POST("/subscription", handler.Subscribe)
	authed.DELETE("/subscription", handler.Unsubscribe)
	authed.POST("/test", handler.TestNotify)

	return router
}

func TestSubscribeRegistersEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := newPushRouter(env, "user-1")

	keys := browserKeys(t)
	rec, body := doJSON(t, router, http.MethodPost, "/api/push/subscription", gin.H{
		"endpoint": "https://push.example.com/send/abc",
		"keys":     gin.H{"p256dh": keys.P256dh, "auth": keys.Auth},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, body.Success)

	var data struct {
		ID       string `json:"id"`
		Endpoint string `json:"endpoint"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(t, data.ID)
	require.Equal(t, "https://push.example.com/send/abc", data.Endpoint)

	var stored models.PushSubscription
	require.NoError(t, env.db.First(&stored, "endpoint = ?", data.Endpoint).Error)
	require.Equal(t, "user-1", stored.OwnerID)
}

func TestSubscribeRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	router := newPushRouter(env, "user-1")

	cases := []struct {
		name    string
		payload gin.H
	}{
		{"missing endpoint", gin.H{"keys": gin.H{"p256dh": "k", "auth": "a"}}},
		{"endpoint not a URL", gin.H{"endpoint": "not-a-url", "keys": gin.H{"p256dh": "k", "auth": "a"}}},
		{"missing keys", gin.H{"endpoint": "https://push.example.com/send/abc"}},
		{"missing auth key", gin.H{"endpoint": "https://push.example.com/send/abc", "keys": gin.H{"p256dh": "k"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := doJSON(t, router, http.MethodPost, "/api/push/subscription", tc.payload)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.False(t, body.Success)
			require.NotNil(t, body.Error)
		})
	}

	count, err := env.broker.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSubscribeRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	router := newPushRouter(env, "")

	keys := browserKeys(t)
	rec, body := doJSON(t, router, http.MethodPost, "/api/push/subscription", gin.H{
		"endpoint": "https://push.example.com/send/abc",
		"keys":     gin.H{"p256dh": keys.P256dh, "auth": keys.Auth},
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, body.Success)
}

func TestUnsubscribeRemovesOnlyCallerRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, endpoint := range []string{"https://push.example.com/send/a", "https://push.example.com/send/b"} {
		_, err := env.registry.Upsert(ctx, "user-1", services.UpsertSubscriptionInput{
			Endpoint: endpoint,
			Keys:     browserKeys(t),
		})
		require.NoError(t, err)
	}
	_, err := env.registry.Upsert(ctx, "user-2", services.UpsertSubscriptionInput{
		Endpoint: "https://push.example.com/send/c",
		Keys:     browserKeys(t),
	})
	require.NoError(t, err)

	router := newPushRouter(env, "user-1")
	rec, body := doJSON(t, router, http.MethodDelete, "/api/push/subscription", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)

	var data struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.EqualValues(t, 2, data.Removed)

	count, err := env.broker.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestPublicKeyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := newPushRouter(env, "")

	rec, body := doJSON(t, router, http.MethodGet, "/api/push/public-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)

	var data struct {
		PublicKey string `json:"public_key"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, env.pushCfg.VAPIDPublicKey, data.PublicKey)
}

func TestPublicKeyWithoutSigningIdentity(t *testing.T) {
	env := newTestEnv(t)
	handler := NewPushHandler(env.registry, env.notifier, app.PushConfig{})

	router := gin.New()
	router.GET("/api/push/public-key", handler.PublicKey)

	rec, body := doJSON(t, router, http.MethodGet, "/api/push/public-key", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.False(t, body.Success)
	require.Equal(t, "PUSH_NOT_CONFIGURED", body.Error.Code)
}

func TestTestNotifyFansOut(t *testing.T) {
	env := newTestEnv(t)

	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer endpoint.Close()

	_, err := env.registry.Upsert(context.Background(), "user-1", services.UpsertSubscriptionInput{
		Endpoint: endpoint.URL + "/send/abc",
		Keys:     browserKeys(t),
	})
	require.NoError(t, err)

	router := newPushRouter(env, "user-1")
	rec, body := doJSON(t, router, http.MethodPost, "/api/push/test", gin.H{
		"title": "Ops check",
		"body":  "Delivery path verification",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)

	var summary struct {
		Attempted int `json:"attempted"`
		Succeeded int `json:"succeeded"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 1, summary.Attempted)
	require.Equal(t, 1, summary.Succeeded)
}

func TestTestNotifyRequiresBody(t *testing.T) {
	env := newTestEnv(t)
	router := newPushRouter(env, "user-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/push/test", gin.H{"title": "no body"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, body.Success)
}
