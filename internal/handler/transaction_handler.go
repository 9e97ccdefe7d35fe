package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/middleware"
	"github.com/defterly/defter-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	reconcileService *service.ReconcileService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(reconcileService *service.ReconcileService) *TransactionHandler {
	return &TransactionHandler{reconcileService: reconcileService}
}

// ReconcileResponse represents the reconcile attempt outcome
type ReconcileResponse struct {
	Matched bool             `json:"matched"`
	Reason  string           `json:"reason,omitempty"`
	Invoice *InvoiceResponse `json:"invoice,omitempty"`
}

// Reconcile handles POST /api/v1/transactions/:id/reconcile
func (h *TransactionHandler) Reconcile(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	result, err := h.reconcileService.ApplyPaymentFromTransaction(userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("transaction_id", id).Msg("Failed to reconcile transaction")
		return NewInternalError(c, "Failed to reconcile transaction")
	}

	resp := ReconcileResponse{Matched: result.Matched, Reason: result.Reason}
	if result.Invoice != nil {
		inv := toInvoiceResponse(result.Invoice)
		resp.Invoice = &inv
	}
	return c.JSON(http.StatusOK, resp)
}
