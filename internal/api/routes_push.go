package api

import (
	"github.com/gin-gonic/gin"

	"github.com/novaocc/cora/internal/handlers"
)

// registerPushRoutes mounts the push subscription endpoints. The public key
// route stays outside the auth group so the service worker can read it before
// a session exists.
func registerPushRoutes(r *gin.Engine, api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.PushHandler) {
	r.GET("/api/push/public-key", handler.PublicKey)

	pushGroup := api.Group("/push")
	pushGroup.Use(requireAuth)
	{
		pushGroup.POST("/subscription", handler.Subscribe)
		pushGroup.DELETE("/subscription", handler.Unsubscribe)
		pushGroup.POST("/test", handler.TestNotify)
	}
}
