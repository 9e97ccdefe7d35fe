package handler

import (
	"net/http"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/middleware"
	"github.com/defterly/defter-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationResponse represents one notification in API responses
type NotificationResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	CurrencyID int64  `json:"currencyId"`
	DueDate    string `json:"dueDate"`
	RefID      int64  `json:"refId"`
}

func toNotificationResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Kind:       string(n.Kind),
		Title:      n.Title,
		Amount:     n.Amount.StringFixed(2),
		CurrencyID: n.CurrencyID,
		DueDate:    n.DueDate.Format("2006-01-02"),
		RefID:      n.RefID,
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	notifications, err := h.notificationService.ListNotifications(userID, time.Now())
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list notifications")
		return NewInternalError(c, "Failed to list notifications")
	}

	out := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = toNotificationResponse(n)
	}
	return c.JSON(http.StatusOK, out)
}
