package handlers

import (
	"net/http"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type ErrorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	MinimumBid *float64 `json:"minimumBid,omitempty"`
	CurrentBid *float64 `json:"currentBid,omitempty"`
}

var errorStatuses = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "NotFound"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{domain.ErrSelfBidForbidden, http.StatusForbidden, "SelfBidForbidden"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "InvalidAmount"},
	{domain.ErrBidTooLow, http.StatusBadRequest, "BidTooLow"},
	{domain.ErrAuctionNotActive, http.StatusBadRequest, "AuctionNotActive"},
	{domain.ErrInvalidAuction, http.StatusBadRequest, "InvalidAuction"},
	{domain.ErrTransient, http.StatusServiceUnavailable, "Transient"},
}

// respondError maps domain errors to the public error payload.
func respondError(c echo.Context, log logger.Logger, err error) error {
	var rejection *domain.BidRejection
	if errors.As(err, &rejection) {
		response := ErrorResponse{Error: rejection.Message, Code: string(rejection.Reason)}
		if rejection.Reason == domain.ReasonBidTooLow {
			minimum, current := rejection.MinimumBid, rejection.CurrentBid
			response.MinimumBid = &minimum
			response.CurrentBid = &current
		}
		return c.JSON(statusFor(err), response)
	}

	for _, mapping := range errorStatuses {
		if errors.Is(err, mapping.target) {
			message := err.Error()
			if mapping.status == http.StatusServiceUnavailable {
				message = "Service temporarily unavailable, please retry"
			}
			return c.JSON(mapping.status, ErrorResponse{Error: message, Code: mapping.code})
		}
	}

	log.Error("Unhandled request error", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: "Internal"})
}

func statusFor(err error) int {
	for _, mapping := range errorStatuses {
		if errors.Is(err, mapping.target) {
			return mapping.status
		}
	}
	return http.StatusInternalServerError
}
