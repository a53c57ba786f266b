package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(RequestID(), AccessLog())

	api := router.Group("/api/v1")
	{
		api.POST("/portfolios", handler.CreatePortfolio)
		api.GET("/portfolios", handler.ListPortfolios)
		api.GET("/portfolios/:id", handler.GetPortfolio)
		api.PUT("/portfolios/:id", handler.UpdatePortfolio)
		api.DELETE("/portfolios/:id", handler.DeletePortfolio)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
