package handlers

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/novaocc/cora/internal/app"
	"github.com/novaocc/cora/internal/database/testutil"
	"github.com/novaocc/cora/internal/middleware"
	"github.com/novaocc/cora/internal/push"
	"github.com/novaocc/cora/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db       *gorm.DB
	registry *services.SubscriptionService
	broker   *services.SubscriptionBroker
	notifier *push.Notifier
	pushCfg  app.PushConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	registry, err := services.NewSubscriptionService(db)
	require.NoError(t, err)
	broker, err := services.NewSubscriptionBroker(db)
	require.NoError(t, err)

	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	pushCfg := app.PushConfig{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		Subscriber:      "mailto:test@example.com",
		TTL:             60,
		Timeout:         500 * time.Millisecond,
		CycleTimeout:    5 * time.Second,
		Workers:         4,
	}

	notifier, err := push.NewNotifier(
		push.NewComposer(app.AssetsConfig{PublicURL: "https://cora.example.com"}),
		push.NewEngine(pushCfg),
		broker,
		push.NewCleaner(registry),
	)
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		registry: registry,
		broker:   broker,
		notifier: notifier,
		pushCfg:  pushCfg,
	}
}

// asUser mimics the auth middleware by injecting an authenticated identity.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, userID)
		c.Next()
	}
}

func browserKeys(t *testing.T) services.SubscriptionKeys {
	t.Helper()

	private, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return services.SubscriptionKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(private.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}
