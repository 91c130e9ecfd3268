package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/novaocc/cora/internal/app"
	iauth "github.com/novaocc/cora/internal/auth"
	"github.com/novaocc/cora/internal/handlers"
	"github.com/novaocc/cora/internal/middleware"
	"github.com/novaocc/cora/internal/push"
	"github.com/novaocc/cora/internal/services"
	appErrors "github.com/novaocc/cora/pkg/errors"
	"github.com/novaocc/cora/pkg/response"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	registry, err := services.NewSubscriptionService(db)
	if err != nil {
		return nil, err
	}

	// The broker is the only cross-owner read over the registry. It is wired
	// straight into the fan-out pipeline and never into request handlers.
	broker, err := services.NewSubscriptionBroker(db)
	if err != nil {
		return nil, err
	}

	notifier, err := push.NewNotifier(
		push.NewComposer(cfg.Assets),
		push.NewEngine(cfg.Push),
		broker,
		push.NewCleaner(registry),
	)
	if err != nil {
		return nil, err
	}

	reports, err := services.NewReportService(db, notifier)
	if err != nil {
		return nil, err
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	registerPushRoutes(r, api, requireAuth, handlers.NewPushHandler(registry, notifier, cfg.Push))
	registerReportRoutes(api, requireAuth, handlers.NewReportHandler(reports))

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.ErrNotFound)
	})

	return r, nil
}
