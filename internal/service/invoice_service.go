package service

import (
	"strings"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the scale money amounts are rounded to when emitted.
const moneyPlaces = 2

// InvoiceTotals is the computed tax breakdown for a set of line items.
type InvoiceTotals struct {
	Subtotal       decimal.Decimal
	VATAmount      decimal.Decimal
	TevkifatAmount decimal.Decimal
	Total          decimal.Decimal
	NetTotal       decimal.Decimal
}

// CalculateInvoiceTotals computes subtotal, VAT, withholding, and net
// payable for ordered line items. Intermediate math stays unrounded;
// each emitted amount is rounded half-up to two decimals at the end.
// tevkifatCode empty means no withholding applies.
func CalculateInvoiceTotals(items []domain.InvoiceItem, tevkifatCode string) (*InvoiceTotals, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidLineItem
	}

	subtotal := decimal.Zero
	vat := decimal.Zero
	hundred := decimal.NewFromInt(100)

	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, domain.ErrInvalidLineItem
		}
		if item.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidLineItem
		}
		line := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(line)
		vat = vat.Add(line.Mul(item.VATRate).Div(hundred))
	}

	total := subtotal.Add(vat)

	tevkifat := decimal.Zero
	if tevkifatCode != "" {
		fraction, err := domain.LookupTevkifatRate(tevkifatCode)
		if err != nil {
			return nil, err
		}
		tevkifat = fraction.Apply(vat)
	}

	// Round emitted amounts; net is derived from the rounded total and
	// withholding so the invariant total - tevkifat = net holds exactly.
	totals := &InvoiceTotals{
		Subtotal:       subtotal.Round(moneyPlaces),
		VATAmount:      vat.Round(moneyPlaces),
		TevkifatAmount: tevkifat.Round(moneyPlaces),
		Total:          total.Round(moneyPlaces),
	}
	totals.NetTotal = totals.Total.Sub(totals.TevkifatAmount)
	return totals, nil
}

// InvoiceService handles invoice issuance and deletion
type InvoiceService struct {
	invoiceRepo    domain.InvoiceRepository
	clientRepo     domain.ClientRepository
	currencyRepo   domain.CurrencyRepository
	eventPublisher websocket.EventPublisher
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo domain.InvoiceRepository,
	clientRepo domain.ClientRepository,
	currencyRepo domain.CurrencyRepository,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		currencyRepo: currencyRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *InvoiceService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *InvoiceService) publishEvent(userID int64, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, event)
	}
}

// IssueInvoiceInput holds the input for issuing an invoice
type IssueInvoiceInput struct {
	ClientID         int64
	CurrencyID       int64
	Number           string
	IssueDate        time.Time
	DueDate          time.Time
	Items            []domain.InvoiceItem
	TevkifatRateCode string
	Status           domain.InvoiceStatus
	IsRecurring      bool
	RecurringPeriod  domain.RecurrencePeriod
	Occurrences      int32
}

// IssueInvoice validates the input, computes the tax breakdown, and
// persists the invoice together with its receivable debt and pending
// balance in one transaction. The receivable is created exactly once,
// here, never on update.
func (s *InvoiceService) IssueInvoice(userID int64, input IssueInvoiceInput) (*domain.Invoice, error) {
	number := strings.TrimSpace(input.Number)
	if number == "" {
		return nil, domain.ErrTitleRequired
	}
	if len(number) > domain.MaxTitleLength {
		return nil, domain.ErrTitleTooLong
	}

	status := input.Status
	if status == "" {
		status = domain.InvoiceStatusSent
	}
	if !status.Issuable() {
		return nil, domain.ErrInvalidStatus
	}

	if input.IsRecurring {
		if !input.RecurringPeriod.InvoicePeriodValid() {
			return nil, domain.ErrInvalidPeriod
		}
		if input.Occurrences <= 0 {
			return nil, domain.ErrOccurrencesExhausted
		}
	}

	if _, err := s.clientRepo.GetByID(userID, input.ClientID); err != nil {
		return nil, domain.ErrClientNotFound
	}
	if _, err := s.currencyRepo.GetByID(input.CurrencyID); err != nil {
		return nil, domain.ErrCurrencyNotFound
	}

	totals, err := CalculateInvoiceTotals(input.Items, input.TevkifatRateCode)
	if err != nil {
		return nil, err
	}

	paidAmount := decimal.Zero
	remaining := totals.NetTotal
	var paidAt *time.Time
	if status == domain.InvoiceStatusPaid {
		// A cash sale arrives already settled; nothing left to collect.
		paidAmount = totals.NetTotal
		remaining = decimal.Zero
		t := input.IssueDate
		paidAt = &t
	}

	inv := &domain.Invoice{
		UserID:               userID,
		ClientID:             input.ClientID,
		CurrencyID:           input.CurrencyID,
		Number:               number,
		IssueDate:            input.IssueDate,
		DueDate:              input.DueDate,
		Items:                input.Items,
		Subtotal:             totals.Subtotal,
		VATAmount:            totals.VATAmount,
		TevkifatApplied:      input.TevkifatRateCode != "",
		TevkifatRateCode:     input.TevkifatRateCode,
		TevkifatAmount:       totals.TevkifatAmount,
		Total:                totals.Total,
		NetTotal:             totals.NetTotal,
		PaidAmount:           paidAmount,
		RemainingAmount:      remaining,
		Status:               status,
		PaidAt:               paidAt,
		IsRecurring:          input.IsRecurring,
		RecurringPeriod:      input.RecurringPeriod,
		OccurrencesRemaining: input.Occurrences,
	}

	debt, pending := domain.NewReceivableForInvoice(inv)
	created, err := s.invoiceRepo.CreateWithReceivable(inv, debt, pending)
	if err != nil {
		return nil, err
	}

	s.publishEvent(userID, websocket.InvoiceCreated(created))
	return created, nil
}

// GetInvoice retrieves an invoice by ID
func (s *InvoiceService) GetInvoice(userID, id int64) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByID(userID, id)
}

// DeleteInvoice removes an invoice. Its pending balance is deleted and
// its linked debt cancelled (kept for audit), in one transaction.
func (s *InvoiceService) DeleteInvoice(userID, id int64) error {
	if err := s.invoiceRepo.Delete(userID, id); err != nil {
		return err
	}
	s.publishEvent(userID, websocket.InvoiceDeleted(map[string]int64{"id": id}))
	return nil
}
