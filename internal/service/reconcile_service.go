package service

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OverpaymentPolicy decides what happens when a payment exceeds the
// invoice's remaining amount by more than the tolerance.
type OverpaymentPolicy string

const (
	OverpaymentReject OverpaymentPolicy = "reject"
	OverpaymentClamp  OverpaymentPolicy = "clamp"
)

// overpaymentTolerance absorbs rounding slack between what the payer
// sent and what the invoice says is outstanding.
var overpaymentTolerance = decimal.NewFromFloat(0.01)

// invoiceNumberPattern matches an invoice number token inside a bank
// transfer description, e.g. "Havale INV-2025-0042 Acme".
var invoiceNumberPattern = regexp.MustCompile(`\bINV-[A-Za-z0-9-]+\b`)

// MatchResult reports the outcome of reconciling one incoming
// transaction against open invoices. An unmatched transaction is a
// normal outcome, not an error.
type MatchResult struct {
	Matched bool            `json:"matched"`
	Reason  string          `json:"reason,omitempty"`
	Invoice *domain.Invoice `json:"invoice,omitempty"`
}

// ReconcileService applies payments to invoices and keeps the linked
// receivable rows and the client balance in step.
type ReconcileService struct {
	invoiceRepo     domain.InvoiceRepository
	transactionRepo domain.TransactionRepository
	eventPublisher  websocket.EventPublisher
	policy          OverpaymentPolicy
	logger          zerolog.Logger
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	invoiceRepo domain.InvoiceRepository,
	transactionRepo domain.TransactionRepository,
	policy OverpaymentPolicy,
	logger zerolog.Logger,
) *ReconcileService {
	if policy != OverpaymentClamp {
		policy = OverpaymentReject
	}
	return &ReconcileService{
		invoiceRepo:     invoiceRepo,
		transactionRepo: transactionRepo,
		policy:          policy,
		logger:          logger.With().Str("component", "reconcile_service").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReconcileService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// ApplyPayment records a payment against an invoice. Every side effect
// commits in one transaction: the invoice's payment fields, a new
// income ledger row, the receivable reduction, and the client balance
// increment. On any validation failure nothing changes.
func (s *ReconcileService) ApplyPayment(userID, invoiceID int64, amount decimal.Decimal, paymentDate time.Time) (*domain.Invoice, *domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.ErrInvalidAmount
	}

	inv, err := s.invoiceRepo.GetByID(userID, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	applied, err := s.appliableAmount(inv, amount)
	if err != nil {
		return nil, nil, err
	}

	params := s.paymentParams(inv, applied, paymentDate)
	invID := inv.ID
	params.Payment = &domain.Transaction{
		UserID:          userID,
		Type:            domain.TransactionTypeIncome,
		Description:     fmt.Sprintf("Payment for invoice %s", inv.Number),
		Amount:          applied,
		CurrencyID:      inv.CurrencyID,
		ClientID:        &inv.ClientID,
		InvoiceID:       &invID,
		TransactionDate: paymentDate,
	}

	updated, payment, err := s.invoiceRepo.ApplyPayment(params)
	if err != nil {
		return nil, nil, err
	}

	s.publishPayment(userID, updated, payment)
	return updated, payment, nil
}

// ApplyPaymentFromTransaction reconciles an existing income ledger row
// against an invoice: first by its explicit invoice link, then by an
// invoice number token in its description. A transaction that matches
// nothing, or whose amount does not cover the outstanding balance, is
// reported as unmatched rather than failing.
func (s *ReconcileService) ApplyPaymentFromTransaction(userID, transactionID int64) (*MatchResult, error) {
	tx, err := s.transactionRepo.GetByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != domain.TransactionTypeIncome {
		return &MatchResult{Reason: "not an income transaction"}, nil
	}

	inv, reason, err := s.matchInvoice(userID, tx)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &MatchResult{Reason: reason}, nil
	}

	if inv.Status == domain.InvoiceStatusPaid || inv.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		return &MatchResult{Reason: "invoice already paid", Invoice: inv}, nil
	}
	// A description match must settle the invoice in full; partial
	// matches are too ambiguous to apply automatically.
	if tx.Amount.LessThan(inv.RemainingAmount) {
		return &MatchResult{Reason: "amount does not cover outstanding balance", Invoice: inv}, nil
	}

	applied := inv.RemainingAmount
	params := s.paymentParams(inv, applied, tx.TransactionDate)
	txID := tx.ID
	params.LinkTransactionID = &txID

	updated, payment, err := s.invoiceRepo.ApplyPayment(params)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("transaction_id", tx.ID).
		Int64("invoice_id", updated.ID).
		Str("amount", applied.String()).
		Msg("Reconciled transaction against invoice")

	s.publishPayment(userID, updated, payment)
	return &MatchResult{Matched: true, Invoice: updated}, nil
}

// appliableAmount validates the payment against the invoice state and
// returns how much of it actually applies.
func (s *ReconcileService) appliableAmount(inv *domain.Invoice, amount decimal.Decimal) (decimal.Decimal, error) {
	if inv.Status == domain.InvoiceStatusPaid || inv.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvoiceAlreadyPaid
	}
	if amount.GreaterThan(inv.RemainingAmount.Add(overpaymentTolerance)) {
		if s.policy == OverpaymentReject {
			return decimal.Zero, domain.ErrOverpayment
		}
		s.logger.Warn().
			Int64("invoice_id", inv.ID).
			Str("amount", amount.String()).
			Str("remaining", inv.RemainingAmount.String()).
			Msg("Clamping overpayment to remaining amount")
		return inv.RemainingAmount, nil
	}
	if amount.GreaterThan(inv.RemainingAmount) {
		// Within tolerance: absorb the rounding slack.
		return inv.RemainingAmount, nil
	}
	return amount, nil
}

// paymentParams computes the post-payment invoice state.
func (s *ReconcileService) paymentParams(inv *domain.Invoice, applied decimal.Decimal, paymentDate time.Time) domain.ApplyPaymentParams {
	newPaid := inv.PaidAmount.Add(applied)
	newRemaining := inv.RemainingAmount.Sub(applied)

	status := inv.Status
	var paidAt *time.Time
	if newRemaining.IsZero() {
		status = domain.InvoiceStatusPaid
		t := paymentDate
		paidAt = &t
	}

	return domain.ApplyPaymentParams{
		UserID:             inv.UserID,
		InvoiceID:          inv.ID,
		ClientID:           inv.ClientID,
		NewPaidAmount:      newPaid,
		NewRemainingAmount: newRemaining,
		NewStatus:          status,
		PaidAt:             paidAt,
		AppliedAmount:      applied,
	}
}

// matchInvoice resolves the invoice a transaction pays for, by explicit
// link first, then by description.
func (s *ReconcileService) matchInvoice(userID int64, tx *domain.Transaction) (*domain.Invoice, string, error) {
	if tx.InvoiceID != nil {
		inv, err := s.invoiceRepo.GetByID(userID, *tx.InvoiceID)
		if err != nil {
			if errors.Is(err, domain.ErrInvoiceNotFound) {
				return nil, "linked invoice no longer exists", nil
			}
			return nil, "", err
		}
		return inv, "", nil
	}

	token := invoiceNumberPattern.FindString(tx.Description)
	if token == "" {
		return nil, "no invoice reference in description", nil
	}
	inv, err := s.invoiceRepo.GetByNumber(userID, token)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return nil, fmt.Sprintf("no invoice matches %s", token), nil
		}
		return nil, "", err
	}
	return inv, "", nil
}

func (s *ReconcileService) publishPayment(userID int64, inv *domain.Invoice, payment *domain.Transaction) {
	if s.eventPublisher == nil {
		return
	}
	if inv.Status == domain.InvoiceStatusPaid {
		s.eventPublisher.Publish(userID, websocket.InvoicePaid(inv))
		return
	}
	s.eventPublisher.Publish(userID, websocket.PaymentApplied(map[string]interface{}{
		"invoice": inv,
		"payment": payment,
	}))
}
