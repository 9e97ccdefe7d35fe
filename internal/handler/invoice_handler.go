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

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService   *service.InvoiceService
	reconcileService *service.ReconcileService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *service.InvoiceService, reconcileService *service.ReconcileService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:   invoiceService,
		reconcileService: reconcileService,
	}
}

// InvoiceItemRequest represents one line item in the request body
type InvoiceItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	VATRate     string `json:"vatRate"`
}

// IssueInvoiceRequest represents the issue invoice request body
type IssueInvoiceRequest struct {
	ClientID         int64                `json:"clientId"`
	CurrencyID       int64                `json:"currencyId"`
	Number           string               `json:"number"`
	IssueDate        string               `json:"issueDate"`
	DueDate          string               `json:"dueDate"`
	Items            []InvoiceItemRequest `json:"items"`
	TevkifatRateCode string               `json:"tevkifatRateCode,omitempty"`
	Status           string               `json:"status,omitempty"`
	IsRecurring      bool                 `json:"isRecurring,omitempty"`
	RecurringPeriod  string               `json:"recurringPeriod,omitempty"`
	Occurrences      int32                `json:"recurringOccurrences,omitempty"`
}

// ApplyPaymentRequest represents the apply payment request body
type ApplyPaymentRequest struct {
	Amount      string `json:"amount"`
	PaymentDate string `json:"paymentDate,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                   int64                `json:"id"`
	ClientID             int64                `json:"clientId"`
	CurrencyID           int64                `json:"currencyId"`
	Number               string               `json:"number"`
	IssueDate            string               `json:"issueDate"`
	DueDate              string               `json:"dueDate"`
	Items                []domain.InvoiceItem `json:"items"`
	Subtotal             string               `json:"subtotal"`
	VATAmount            string               `json:"vatAmount"`
	TevkifatApplied      bool                 `json:"tevkifatApplied"`
	TevkifatRateCode     string               `json:"tevkifatRateCode,omitempty"`
	TevkifatAmount       string               `json:"tevkifatAmount"`
	Total                string               `json:"total"`
	NetAmountAfterTevkifat string             `json:"netAmountAfterTevkifat"`
	PaidAmount           string               `json:"paidAmount"`
	RemainingAmount      string               `json:"remainingAmount"`
	Status               string               `json:"status"`
	PaidAt               *string              `json:"paidAt,omitempty"`
	IsRecurring          bool                 `json:"isRecurring"`
	RecurringPeriod      string               `json:"recurringPeriod,omitempty"`
	OccurrencesRemaining int32                `json:"recurringOccurrencesRemaining"`
	ParentInvoiceID      *int64               `json:"parentInvoiceId,omitempty"`
	CreatedAt            string               `json:"createdAt"`
	UpdatedAt            string               `json:"updatedAt"`
}

func toInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                   inv.ID,
		ClientID:             inv.ClientID,
		CurrencyID:           inv.CurrencyID,
		Number:               inv.Number,
		IssueDate:            inv.IssueDate.Format("2006-01-02"),
		DueDate:              inv.DueDate.Format("2006-01-02"),
		Items:                inv.Items,
		Subtotal:             inv.Subtotal.StringFixed(2),
		VATAmount:            inv.VATAmount.StringFixed(2),
		TevkifatApplied:      inv.TevkifatApplied,
		TevkifatRateCode:     inv.TevkifatRateCode,
		TevkifatAmount:       inv.TevkifatAmount.StringFixed(2),
		Total:                inv.Total.StringFixed(2),
		NetAmountAfterTevkifat: inv.NetTotal.StringFixed(2),
		PaidAmount:           inv.PaidAmount.StringFixed(2),
		RemainingAmount:      inv.RemainingAmount.StringFixed(2),
		Status:               string(inv.Status),
		IsRecurring:          inv.IsRecurring,
		RecurringPeriod:      string(inv.RecurringPeriod),
		OccurrencesRemaining: inv.OccurrencesRemaining,
		ParentInvoiceID:      inv.ParentInvoiceID,
		CreatedAt:            inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            inv.UpdatedAt.Format(time.RFC3339),
	}
	if inv.PaidAt != nil {
		s := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}

func parseDate(value, field string) (time.Time, *ValidationError) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: "Must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// IssueInvoice handles POST /api/v1/invoices
func (h *InvoiceHandler) IssueInvoice(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	var req IssueInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	issueDate, verr := parseDate(req.IssueDate, "issueDate")
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}
	dueDate, verr := parseDate(req.DueDate, "dueDate")
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	if req.Status != "" && !domain.InvoiceStatus(req.Status).Valid() {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "status", Message: "Unknown invoice status"},
		})
	}

	items := make([]domain.InvoiceItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "items.quantity", Message: "Must be a valid decimal number"},
			})
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "items.unitPrice", Message: "Must be a valid decimal number"},
			})
		}
		vatRate, err := decimal.NewFromString(it.VATRate)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "items.vatRate", Message: "Must be a valid decimal number"},
			})
		}
		items = append(items, domain.InvoiceItem{
			Description: it.Description,
			Quantity:    qty,
			UnitPrice:   price,
			VATRate:     vatRate,
		})
	}

	invoice, err := h.invoiceService.IssueInvoice(userID, service.IssueInvoiceInput{
		ClientID:         req.ClientID,
		CurrencyID:       req.CurrencyID,
		Number:           req.Number,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		Items:            items,
		TevkifatRateCode: req.TevkifatRateCode,
		Status:           domain.InvoiceStatus(req.Status),
		IsRecurring:      req.IsRecurring,
		RecurringPeriod:  domain.RecurrencePeriod(req.RecurringPeriod),
		Occurrences:      req.Occurrences,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTitleRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "number", Message: "Invoice number is required"},
			})
		case errors.Is(err, domain.ErrTitleTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "number", Message: "Invoice number must be 255 characters or less"},
			})
		case errors.Is(err, domain.ErrInvalidStatus):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "status", Message: "Invoices can only be issued as draft, sent, or paid"},
			})
		case errors.Is(err, domain.ErrInvalidLineItem):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "items", Message: "Each line needs a positive quantity and a non-negative unit price"},
			})
		case errors.Is(err, domain.ErrUnknownTevkifatRate):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "tevkifatRateCode", Message: "Unknown tevkifat rate code"},
			})
		case errors.Is(err, domain.ErrInvalidPeriod):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "recurringPeriod", Message: "Recurring invoices repeat monthly, quarterly, or yearly"},
			})
		case errors.Is(err, domain.ErrOccurrencesExhausted):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "recurringOccurrences", Message: "Recurring invoices need at least one occurrence"},
			})
		case errors.Is(err, domain.ErrClientNotFound):
			return NewNotFoundError(c, "Client not found")
		case errors.Is(err, domain.ErrCurrencyNotFound):
			return NewNotFoundError(c, "Currency not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to issue invoice")
		return NewInternalError(c, "Failed to issue invoice")
	}

	log.Info().Int64("user_id", userID).Int64("invoice_id", invoice.ID).Str("number", invoice.Number).Msg("Invoice issued")

	return c.JSON(http.StatusCreated, toInvoiceResponse(invoice))
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid invoice ID", nil)
	}

	invoice, err := h.invoiceService.GetInvoice(userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return NewNotFoundError(c, "Invoice not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("invoice_id", id).Msg("Failed to get invoice")
		return NewInternalError(c, "Failed to get invoice")
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(invoice))
}

// DeleteInvoice handles DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) DeleteInvoice(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid invoice ID", nil)
	}

	if err := h.invoiceService.DeleteInvoice(userID, id); err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return NewNotFoundError(c, "Invoice not found")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("invoice_id", id).Msg("Failed to delete invoice")
		return NewInternalError(c, "Failed to delete invoice")
	}

	log.Info().Int64("user_id", userID).Int64("invoice_id", id).Msg("Invoice deleted")

	return c.NoContent(http.StatusNoContent)
}

// ApplyPayment handles POST /api/v1/invoices/:id/payments
func (h *InvoiceHandler) ApplyPayment(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Tenant required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid invoice ID", nil)
	}

	var req ApplyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		parsed, verr := parseDate(req.PaymentDate, "paymentDate")
		if verr != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{*verr})
		}
		paymentDate = parsed
	}

	invoice, _, err := h.reconcileService.ApplyPayment(userID, id, amount, paymentDate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Must be greater than zero"},
			})
		case errors.Is(err, domain.ErrInvoiceNotFound):
			return NewNotFoundError(c, "Invoice not found")
		case errors.Is(err, domain.ErrInvoiceAlreadyPaid):
			return NewConflictError(c, "Invoice is already fully paid")
		case errors.Is(err, domain.ErrOverpayment):
			return NewConflictError(c, "Payment exceeds the remaining amount")
		case errors.Is(err, domain.ErrConcurrencyConflict):
			return NewConflictError(c, "Invoice was modified concurrently, retry the payment")
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("invoice_id", id).Msg("Failed to apply payment")
		return NewInternalError(c, "Failed to apply payment")
	}

	log.Info().
		Int64("user_id", userID).
		Int64("invoice_id", id).
		Str("amount", amount.String()).
		Str("status", string(invoice.Status)).
		Msg("Payment applied")

	return c.JSON(http.StatusOK, toInvoiceResponse(invoice))
}
