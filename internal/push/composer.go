package push

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/novaocc/cora/internal/app"
	apperrors "github.com/novaocc/cora/pkg/errors"
)

// DefaultTitle is used when an event does not carry its own title.
const DefaultTitle = "Cora Notification"

const (
	iconPath  = "/assets/icons/apple-touch-icon.png"
	badgePath = "/assets/icons/badge-96x96.png"

	// localBaseURL is the development fallback origin.
	localBaseURL = "http://localhost:3000"
)

// Event describes the domain event a notification is composed from.
type Event struct {
	Title     string
	Body      string
	TargetURL string
}

// Message is the composed notification. It is ephemeral: built fresh for each
// fan-out cycle and never persisted.
type Message struct {
	Title     string
	Body      string
	Icon      string
	Badge     string
	TargetURL string
	CreatedAt time.Time
}

// Payload serialises the message into the JSON shape the service worker
// expects: {"title","body","icon","badge","data":{"url"}}.
func (m Message) Payload() ([]byte, error) {
	return json.Marshal(struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Icon  string `json:"icon"`
		Badge string `json:"badge"`
		Data  struct {
			URL string `json:"url"`
		} `json:"data"`
	}{
		Title: m.Title,
		Body:  m.Body,
		Icon:  m.Icon,
		Badge: m.Badge,
		Data: struct {
			URL string `json:"url"`
		}{URL: m.TargetURL},
	})
}

// Composer builds outbound notification messages for domain events.
type Composer struct {
	assets app.AssetsConfig
	now    func() time.Time
}

// NewComposer constructs a Composer using the supplied asset configuration.
func NewComposer(assets app.AssetsConfig) *Composer {
	return &Composer{assets: assets, now: time.Now}
}

// Compose builds the notification message for an event. It has no side
// effects and only fails when the event carries no body.
func (c *Composer) Compose(event Event) (Message, error) {
	body := strings.TrimSpace(event.Body)
	if body == "" {
		return Message{}, apperrors.NewBadRequest("notification body is required")
	}

	title := strings.TrimSpace(event.Title)
	if title == "" {
		title = DefaultTitle
	}

	target := strings.TrimSpace(event.TargetURL)
	if target == "" {
		target = "/"
	}

	base := c.BaseURL()

	return Message{
		Title:     title,
		Body:      body,
		Icon:      base + iconPath,
		Badge:     base + badgePath,
		TargetURL: target,
		CreatedAt: c.now().UTC(),
	}, nil
}

// BaseURL resolves the absolute origin used for notification assets.
//
// The icon and badge are fetched by push relays and possibly offline devices,
// neither of which can resolve a relative path, so the result is always an
// absolute URL: configured public URL first, then the platform deployment
// URL, then the local development fallback.
func (c *Composer) BaseURL() string {
	if public := strings.TrimSpace(c.assets.PublicURL); public != "" {
		if !strings.HasPrefix(public, "http") {
			public = "https://" + public
		}
		return strings.TrimSuffix(public, "/")
	}

	if deployment := strings.TrimSpace(c.assets.DeploymentURL); deployment != "" {
		deployment = strings.TrimPrefix(strings.TrimPrefix(deployment, "https://"), "http://")
		return "https://" + strings.TrimSuffix(deployment, "/")
	}

	return localBaseURL
}
