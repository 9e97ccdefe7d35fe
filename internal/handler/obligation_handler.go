package handler

import (
	"net/http"
	"time"

	"github.com/defterly/defter-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ObligationHandler handles the batch obligation processing endpoint
type ObligationHandler struct {
	scheduleService *service.ScheduleService
}

// NewObligationHandler creates a new ObligationHandler
func NewObligationHandler(scheduleService *service.ScheduleService) *ObligationHandler {
	return &ObligationHandler{scheduleService: scheduleService}
}

// ProcessObligationsRequest represents the cron processing request body
type ProcessObligationsRequest struct {
	UserID int64  `json:"userId"`
	AsOf   string `json:"asOf,omitempty"`
}

// ProcessObligations handles POST /api/v1/obligations/process. Guarded
// by the cron token middleware; the tenant comes from the body, not an
// identity header.
func (h *ObligationHandler) ProcessObligations(c echo.Context) error {
	var req ProcessObligationsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.UserID <= 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "userId", Message: "Must be a positive tenant id"},
		})
	}

	asOf := time.Now()
	if req.AsOf != "" {
		parsed, verr := parseDate(req.AsOf, "asOf")
		if verr != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{*verr})
		}
		asOf = parsed
	}

	result, err := h.scheduleService.ProcessObligations(c.Request().Context(), req.UserID, asOf)
	if err != nil {
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to process obligations")
		return NewInternalError(c, "Failed to process obligations")
	}

	log.Info().
		Int64("user_id", req.UserID).
		Int("processed", result.ProcessedCount).
		Int("skipped", result.SkippedCount).
		Int("errors", len(result.Errors)).
		Msg("Obligation batch processed")

	status := http.StatusOK
	if len(result.Remaining) > 0 {
		// Deadline hit partway through; committed work stays committed
		status = http.StatusAccepted
	}
	return c.JSON(status, result)
}
