package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/middleware"
	"github.com/defterly/defter-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DebtHandler handles manual receivable/payable HTTP requests
type DebtHandler struct {
	debtService *service.DebtService
}

// NewDebtHandler creates a new DebtHandler
func NewDebtHandler(debtService *service.DebtService) *DebtHandler {
	return &DebtHandler{debtService: debtService}
}

// CreateDebtRequest represents the create debt request body
type CreateDebtRequest struct {
	Type       string `json:"type"`
	ClientID   *int64 `json:"clientId,omitempty"`
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	CurrencyID int64  `json:"currencyId"`
	DueDate    string `json:"dueDate"`
}

// ReduceDebtRequest represents the reduce debt request body
type ReduceDebtRequest struct {
	Amount string `json:"amount"`
}

// DebtResponse represents a debt in API responses
type DebtResponse struct {
	ID              int64  `json:"id"`
	Type            string `json:"type"`
	ClientID        *int64 `json:"clientId,omitempty"`
	Title           string `json:"title"`
	Amount          string `json:"amount"`
	PaidAmount      string `json:"paidAmount"`
	CurrencyID      int64  `json:"currencyId"`
	DueDate         string `json:"dueDate"`
	Status          string `json:"status"`
	LinkedInvoiceID *int64 `json:"linkedInvoiceId,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toDebtResponse(d *domain.Debt) DebtResponse {
	return DebtResponse{
		ID:              d.ID,
		Type:            string(d.Type),
		ClientID:        d.ClientID,
		Title:           d.Title,
		Amount:          d.Amount.StringFixed(2),
		PaidAmount:      d.PaidAmount.StringFixed(2),
		CurrencyID:      d.CurrencyID,
		DueDate:         d.DueDate.Format("2006-01-02"),
		Status:          string(d.Status),
		LinkedInvoiceID: d.LinkedInvoiceID,
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateDebt handles POST /api/v1/debts
func (h *DebtHandler) CreateDebt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	var req CreateDebtRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	dueDate, verr := parseDate(req.DueDate, "dueDate")
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	debt, err := h.debtService.CreateDebt(userID, service.CreateDebtInput{
		Type:       domain.DebtType(req.Type),
		ClientID:   req.ClientID,
		Title:      req.Title,
		Amount:     amount,
		CurrencyID: req.CurrencyID,
		DueDate:    dueDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTitleRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "title", Message: "Title is required"},
			})
		case errors.Is(err, domain.ErrTitleTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "title", Message: "Title must be 255 characters or less"},
			})
		case errors.Is(err, domain.ErrInvalidDebtType):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "type", Message: "Must be 'receivable' or 'payable'"},
			})
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Must be greater than zero"},
			})
		case errors.Is(err, domain.ErrClientNotFound):
			return NewNotFoundError(c, "Client not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to create debt")
		return NewInternalError(c, "Failed to create debt")
	}

	return c.JSON(http.StatusCreated, toDebtResponse(debt))
}

// GetDebt handles GET /api/v1/debts/:id
func (h *DebtHandler) GetDebt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid debt ID", nil)
	}

	debt, err := h.debtService.GetDebt(userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrDebtNotFound) {
			return NewNotFoundError(c, "Debt not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("debt_id", id).Msg("Failed to get debt")
		return NewInternalError(c, "Failed to get debt")
	}
	return c.JSON(http.StatusOK, toDebtResponse(debt))
}

// ReduceDebt handles POST /api/v1/debts/:id/payments
func (h *DebtHandler) ReduceDebt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid debt ID", nil)
	}

	var req ReduceDebtRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	debt, err := h.debtService.ReduceDebt(userID, id, amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Must be greater than zero and the debt still open"},
			})
		case errors.Is(err, domain.ErrDebtNotFound):
			return NewNotFoundError(c, "Debt not found")
		case errors.Is(err, domain.ErrOverpayment):
			return NewConflictError(c, "Payment exceeds the outstanding amount")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("debt_id", id).Msg("Failed to reduce debt")
		return NewInternalError(c, "Failed to reduce debt")
	}

	return c.JSON(http.StatusOK, toDebtResponse(debt))
}

// CancelDebt handles POST /api/v1/debts/:id/cancel
func (h *DebtHandler) CancelDebt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid debt ID", nil)
	}

	if err := h.debtService.CancelDebt(userID, id); err != nil {
		if errors.Is(err, domain.ErrDebtNotFound) {
			return NewNotFoundError(c, "Debt not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("debt_id", id).Msg("Failed to cancel debt")
		return NewInternalError(c, "Failed to cancel debt")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteDebt handles DELETE /api/v1/debts/:id
func (h *DebtHandler) DeleteDebt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid debt ID", nil)
	}

	if err := h.debtService.DeleteDebt(userID, id); err != nil {
		if errors.Is(err, domain.ErrDebtNotFound) {
			return NewNotFoundError(c, "Debt not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("debt_id", id).Msg("Failed to delete debt")
		return NewInternalError(c, "Failed to delete debt")
	}
	return c.NoContent(http.StatusNoContent)
}
