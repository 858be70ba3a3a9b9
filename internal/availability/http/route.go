package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	group := g.Group("/vehicles")

	// === Public Routes ===
	{
		group.GET("/available", h.ListAvailable)
		group.GET("/:id/availability", h.Check)
		group.GET("/:id/calendar", h.Calendar)
	}
}
