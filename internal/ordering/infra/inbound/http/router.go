package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterOrderRoutes(r *gin.Engine, handler *OrderHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	orders := r.Group("/orders")
	{
		orders.POST("/", handler.CreateOrder)
		orders.GET("/:id", handler.GetOrder)
		orders.PUT("/:id/pay", handler.PayOrder)
		orders.PUT("/:id/ship", handler.ShipOrder)
		orders.PUT("/:id/cancel", handler.CancelOrder)
	}
}
