package api

import (
	"github.com/gin-gonic/gin"

	"github.com/novaocc/cora/internal/handlers"
)

func registerReportRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.ReportHandler) {
	reports := api.Group("/reports")
	reports.Use(requireAuth)
	{
		reports.POST("", handler.Create)
		reports.GET("", handler.List)
	}
}
