package handlers

import (
	"net/http"

	"auction-engine/internal/api/middleware"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           logger.Logger
}

type MarkReadRequest struct {
	ID string `json:"id"`
}

func NewNotificationHandler(notifications *services.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	list, err := h.notifications.ListForUser(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notifications": list})
}

// MarkRead marks one notification read when an id is given, otherwise all of them.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor := middleware.ActorFrom(c)

	var req MarkReadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "InvalidRequest"})
		}
	}

	if req.ID != "" {
		if err := h.notifications.MarkRead(c.Request().Context(), actor.UserID, req.ID); err != nil {
			return respondError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"updated": 1})
	}

	updated, err := h.notifications.MarkAllRead(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"updated": updated})
}
