package handlers

import (
	"net/http"
	"time"

	"auction-engine/internal/api/middleware"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the auction API under /api/v1.
func RegisterRoutes(e *echo.Echo, auth *middleware.Auth, auctions *AuctionHandler, notifications *NotificationHandler) {
	api := e.Group("/api/v1")

	api.GET("/auctions/:id", auctions.GetAuction, auth.Optional())

	secured := api.Group("", auth.Required())
	secured.POST("/auctions", auctions.CreateAuction)
	secured.PUT("/auctions/:id", auctions.UpdateAuction)
	secured.POST("/auctions/:id/bids", auctions.PlaceBid)
	secured.GET("/notifications", notifications.List)
	secured.PATCH("/notifications", notifications.MarkRead)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}
