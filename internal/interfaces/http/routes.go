package http

import (
	"strconv"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/metrics"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(requestid.New())

	api := router.Group("/api/v1", instrument(), Identity())
	{
		api.POST("/portfolios", handler.CreatePortfolio)
		api.GET("/portfolios", handler.ListPortfolios)
		api.GET("/portfolios/:id", handler.GetPortfolio)
		api.PATCH("/portfolios/:id", handler.UpdatePortfolio)
		api.DELETE("/portfolios/:id", handler.DeletePortfolio)
		api.POST("/portfolios/:id/restore", handler.RestorePortfolio)
		api.POST("/portfolios/:id/copy", handler.CopyPortfolio)
		api.POST("/portfolios/:id/share", handler.SharePortfolio)
		api.POST("/portfolios/:id/unshare", handler.UnsharePortfolio)
		api.GET("/portfolios/:id/share_info", handler.ShareInfo)
		api.GET("/portfolios/:id/portfolio_items", handler.ListItems)

		api.POST("/portfolio_items", handler.AddItem)
		api.GET("/portfolio_items/:id", handler.GetItem)
		api.PATCH("/portfolio_items/:id", handler.PatchItem)
		api.DELETE("/portfolio_items/:id", handler.DeleteItem)
		api.POST("/portfolio_items/:id/restore", handler.RestoreItem)
		api.GET("/portfolio_items/:id/icon", handler.ItemIcon)
		api.GET("/portfolio_items/:id/service_plans", handler.ItemServicePlans)
		api.GET("/portfolio_items/:id/provider_control_parameters", handler.ItemControlParameters)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status())).Inc()
	}
}
