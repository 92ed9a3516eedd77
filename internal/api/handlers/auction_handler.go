package handlers

import (
	"net/http"

	"auction-engine/internal/api/middleware"
	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuctionHandler struct {
	auctionManager *services.AuctionManager
	bidService     *services.BidService
	log            logger.Logger
}

type UpdateAuctionRequest struct {
	Status string `json:"status"`
}

type PlaceBidRequest struct {
	Amount *float64 `json:"amount"`
}

func NewAuctionHandler(auctionManager *services.AuctionManager, bidService *services.BidService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctionManager: auctionManager,
		bidService:     bidService,
		log:            log,
	}
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	actor := middleware.ActorFrom(c)

	var req services.CreateAuctionInput
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "InvalidAuction"})
	}

	auction, err := h.auctionManager.CreateAuction(c.Request().Context(), actor.UserID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"auction": auction})
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")
	viewer := middleware.ActorFrom(c)

	view, err := h.auctionManager.GetAuctionView(c.Request().Context(), auctionID, viewer.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"auction": view})
}

// UpdateAuction only supports ending an auction early.
func (h *AuctionHandler) UpdateAuction(c echo.Context) error {
	auctionID := c.Param("id")

	var req UpdateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "InvalidAuction"})
	}
	if req.Status != domain.AuctionEnded.String() {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Only status 'ended' is supported", Code: "InvalidAuction"})
	}

	auction, err := h.auctionManager.EndAuction(c.Request().Context(), auctionID, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"auction": auction})
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	auctionID := c.Param("id")
	actor := middleware.ActorFrom(c)

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil || req.Amount == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Bid amount is required", Code: string(domain.ReasonInvalidAmount)})
	}

	accepted, err := h.bidService.PlaceBid(c.Request().Context(), auctionID, actor.UserID, *req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, accepted)
}
