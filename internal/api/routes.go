package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	v1 := r.Group("/api")
	{
		// Health check (handle both GET and HEAD)
		v1.GET("/health", h.HealthCheck)
		v1.HEAD("/health", h.HealthCheck)

		// Products
		v1.GET("/products", h.GetProducts)
		v1.GET("/products/:name/history", h.GetProductHistory)
		v1.GET("/products/:name/trend", h.GetProductTrend)
		v1.GET("/products/:name/alerts", h.GetProductAlerts)
		v1.PATCH("/products/:name/threshold", h.UpdateThreshold)
		v1.POST("/links", h.AddLinks)

		v1.GET("/alerts", h.GetAlerts)
		v1.GET("/deals", h.GetDeals)
		v1.GET("/report", h.GetReport)

		// Admin operations (no authentication - keep the listener private)
		v1.POST("/admin/cycle", h.TriggerCycle)
		v1.POST("/admin/report", h.TriggerReport)
	}
}
