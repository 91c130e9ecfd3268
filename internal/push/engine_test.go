package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/require"

	"github.com/novaocc/cora/internal/app"
	"github.com/novaocc/cora/internal/models"
)

func testPushConfig(t *testing.T) app.PushConfig {
	t.Helper()

	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	return app.PushConfig{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		Subscriber:      "mailto:test@example.com",
		TTL:             60,
		Timeout:         500 * time.Millisecond,
		CycleTimeout:    5 * time.Second,
		Workers:         4,
	}
}

func testSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()

	private, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return models.PushSubscription{
		BaseModel: models.BaseModel{ID: "sub-" + endpoint[len(endpoint)-1:]},
		OwnerID:   "owner-1",
		Endpoint:  endpoint,
		P256dh:    base64.RawURLEncoding.EncodeToString(private.PublicKey().Bytes()),
		Auth:      base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestDeliverEmptyListIsNoop(t *testing.T) {
	engine := NewEngine(testPushConfig(t))

	summary, outcomes, err := engine.Deliver(context.Background(), Message{Title: "t", Body: "b"}, nil)
	require.NoError(t, err)
	require.Empty(t, outcomes)
	require.Equal(t, FanoutSummary{}, summary)
}

func TestDeliverRefusesWithoutSigningKeys(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	engine := NewEngine(app.PushConfig{Workers: 2, Timeout: time.Second})

	_, _, err := engine.Deliver(context.Background(), Message{Title: "t", Body: "b"},
		[]models.PushSubscription{testSubscription(t, server.URL+"/1")})
	require.Error(t, err)
	require.EqualValues(t, 0, requests.Load(), "no network attempt may happen without signing keys")
}

func TestDeliverClassifiesMixedOutcomes(t *testing.T) {
	var delivered atomic.Int32
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		delivered.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer okServer.Close()

	goneServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer goneServer.Close()

	slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusCreated)
	}))
	defer slowServer.Close()

	cfg := testPushConfig(t)
	cfg.Timeout = 200 * time.Millisecond
	engine := NewEngine(cfg)

	subs := []models.PushSubscription{
		testSubscription(t, okServer.URL+"/1"),
		testSubscription(t, goneServer.URL+"/2"),
		testSubscription(t, slowServer.URL+"/3"),
	}

	summary, outcomes, err := engine.Deliver(context.Background(), Message{Title: "t", Body: "b"}, subs)
	require.NoError(t, err)

	require.Equal(t, FanoutSummary{
		Attempted:         3,
		Succeeded:         1,
		TransientFailures: 1,
		PermanentFailures: 1,
	}, summary)
	require.Len(t, outcomes, 3)
	require.EqualValues(t, 1, delivered.Load())

	classes := map[string]OutcomeClass{}
	for _, outcome := range outcomes {
		classes[outcome.SubscriptionID] = outcome.Class
	}
	require.Equal(t, Success, classes[subs[0].ID])
	require.Equal(t, PermanentFailure, classes[subs[1].ID])
	require.Equal(t, TransientFailure, classes[subs[2].ID])
}

func TestDeliverAttemptsEveryRecipient(t *testing.T) {
	var requests atomic.Int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	engine := NewEngine(testPushConfig(t))

	subs := []models.PushSubscription{
		testSubscription(t, failing.URL+"/1"),
		testSubscription(t, failing.URL+"/2"),
		testSubscription(t, failing.URL+"/3"),
	}

	summary, _, err := engine.Deliver(context.Background(), Message{Title: "t", Body: "b"}, subs)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Attempted, "a failing recipient must not abort the fan-out")
	require.Equal(t, 3, summary.TransientFailures)
	require.EqualValues(t, 3, requests.Load())
}
