package service

import (
	"context"
	"fmt"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/util"
	"github.com/defterly/defter-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AdvanceOccurrence returns the next occurrence date for a recurrence
// period. Month and year arithmetic clamps day-of-month overflow to the
// last day of the target month.
func AdvanceOccurrence(t time.Time, period domain.RecurrencePeriod) time.Time {
	switch period {
	case domain.PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case domain.PeriodMonthly:
		return util.AddMonthsClamped(t, 1)
	case domain.PeriodQuarterly:
		return util.AddMonthsClamped(t, 3)
	case domain.PeriodYearly:
		return util.AddMonthsClamped(t, 12)
	}
	return t
}

// ObligationKind identifies which recurring source an obligation is.
type ObligationKind string

const (
	ObligationRegularPayment ObligationKind = "regular_payment"
	ObligationTransaction    ObligationKind = "transaction"
	ObligationInvoice        ObligationKind = "invoice"
)

// ObligationRef identifies one obligation in batch results.
type ObligationRef struct {
	Kind ObligationKind `json:"kind"`
	ID   int64          `json:"id"`
}

// ObligationError records a single obligation's failure without
// aborting the batch.
type ObligationError struct {
	Kind    ObligationKind `json:"kind"`
	ID      int64          `json:"id"`
	Message string         `json:"message"`
}

// ProcessResult summarizes one batch run.
type ProcessResult struct {
	ProcessedCount          int               `json:"processedCount"`
	CreatedTransactionCount int               `json:"createdTransactionCount"`
	CreatedInvoiceCount     int               `json:"createdInvoiceCount"`
	SkippedCount            int               `json:"skippedCount"`
	Errors                  []ObligationError `json:"errors,omitempty"`
	// Remaining lists obligations left unprocessed when the deadline
	// hit. Already-committed occurrences stay committed.
	Remaining []ObligationRef `json:"remaining,omitempty"`
}

// ScheduleService advances recurring definitions and spawns concrete
// occurrences for everything due at a given instant.
type ScheduleService struct {
	regularPaymentRepo domain.RegularPaymentRepository
	transactionRepo    domain.TransactionRepository
	invoiceRepo        domain.InvoiceRepository
	eventPublisher     websocket.EventPublisher
	logger             zerolog.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	regularPaymentRepo domain.RegularPaymentRepository,
	transactionRepo domain.TransactionRepository,
	invoiceRepo domain.InvoiceRepository,
	logger zerolog.Logger,
) *ScheduleService {
	return &ScheduleService{
		regularPaymentRepo: regularPaymentRepo,
		transactionRepo:    transactionRepo,
		invoiceRepo:        invoiceRepo,
		logger:             logger.With().Str("component", "schedule_service").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ScheduleService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// ProcessObligations processes every obligation due at asOf for one
// tenant. Each occurrence commits independently; one failure is
// recorded and the batch moves on. Honors the context deadline by
// returning the unprocessed remainder instead of rolling back.
// Re-invoking with the same asOf spawns nothing new.
func (s *ScheduleService) ProcessObligations(ctx context.Context, userID int64, asOf time.Time) (*ProcessResult, error) {
	result := &ProcessResult{
		Errors:    make([]ObligationError, 0),
		Remaining: make([]ObligationRef, 0),
	}

	payments, err := s.regularPaymentRepo.ListDue(userID, asOf)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactionRepo.ListDueRecurring(userID, asOf)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.ListDueRecurring(userID, asOf)
	if err != nil {
		return nil, err
	}

	type pending struct {
		ref     ObligationRef
		process func() error
	}
	queue := make([]pending, 0, len(payments)+len(transactions)+len(invoices))

	for _, rp := range payments {
		rp := rp
		queue = append(queue, pending{
			ref:     ObligationRef{Kind: ObligationRegularPayment, ID: rp.ID},
			process: func() error { return s.processRegularPayment(userID, rp, result) },
		})
	}
	for _, tx := range transactions {
		tx := tx
		queue = append(queue, pending{
			ref:     ObligationRef{Kind: ObligationTransaction, ID: tx.ID},
			process: func() error { return s.processRecurringTransaction(userID, tx, result) },
		})
	}
	for _, inv := range invoices {
		inv := inv
		queue = append(queue, pending{
			ref:     ObligationRef{Kind: ObligationInvoice, ID: inv.ID},
			process: func() error { return s.processRecurringInvoice(userID, inv, result) },
		})
	}

	for i, item := range queue {
		select {
		case <-ctx.Done():
			for _, rest := range queue[i:] {
				result.Remaining = append(result.Remaining, rest.ref)
			}
			s.logger.Warn().
				Int64("user_id", userID).
				Int("remaining", len(result.Remaining)).
				Msg("Deadline reached, returning partial batch result")
			return result, nil
		default:
		}

		if err := item.process(); err != nil {
			s.logger.Error().
				Err(err).
				Str("kind", string(item.ref.Kind)).
				Int64("obligation_id", item.ref.ID).
				Msg("Failed to process obligation")
			result.Errors = append(result.Errors, ObligationError{
				Kind:    item.ref.Kind,
				ID:      item.ref.ID,
				Message: err.Error(),
			})
		}
	}

	if s.eventPublisher != nil && result.ProcessedCount > 0 {
		s.eventPublisher.Publish(userID, websocket.ObligationsProcessed(result))
		// A sweep that emitted anything changes the due list.
		s.eventPublisher.Publish(userID, websocket.NotificationsRefreshed(map[string]interface{}{
			"processedCount": result.ProcessedCount,
		}))
	}

	return result, nil
}

// processRegularPayment emits the expense for the current due date and
// advances the payment to its next occurrence.
func (s *ScheduleService) processRegularPayment(userID int64, rp *domain.RegularPayment, result *ProcessResult) error {
	exists, err := s.transactionRepo.ExistsForRegularPayment(userID, rp.ID, rp.DueDate)
	if err != nil {
		return err
	}
	if exists {
		result.SkippedCount++
		return nil
	}

	if !rp.Frequency.Valid() {
		return domain.ErrInvalidPeriod
	}

	rpID := rp.ID
	expense := &domain.Transaction{
		UserID:           userID,
		Type:             domain.TransactionTypeExpense,
		Description:      rp.Title,
		Amount:           rp.Amount,
		CurrencyID:       rp.CurrencyID,
		EmployeeID:       rp.EmployeeID,
		RegularPaymentID: &rpID,
		// Dated at the occurrence's due date, not at processing time
		TransactionDate: rp.DueDate,
	}

	next := AdvanceOccurrence(rp.DueDate, rp.Frequency)
	if _, err := s.transactionRepo.CreateForRegularPayment(expense, rp.ID, next); err != nil {
		return err
	}

	result.ProcessedCount++
	result.CreatedTransactionCount++
	return nil
}

// processRecurringTransaction spawns the child occurrence and advances
// the parent's next occurrence pointer.
func (s *ScheduleService) processRecurringTransaction(userID int64, parent *domain.Transaction, result *ProcessResult) error {
	if parent.NextRecurringDate == nil || parent.RecurringPeriod == nil {
		return domain.ErrInvalidPeriod
	}
	occurrence := *parent.NextRecurringDate

	exists, err := s.transactionRepo.ChildExists(userID, parent.ID, occurrence)
	if err != nil {
		return err
	}
	if exists {
		result.SkippedCount++
		return nil
	}

	parentID := parent.ID
	child := &domain.Transaction{
		UserID:              userID,
		Type:                parent.Type,
		Description:         parent.Description,
		Amount:              parent.Amount,
		CurrencyID:          parent.CurrencyID,
		CategoryID:          parent.CategoryID,
		ClientID:            parent.ClientID,
		EmployeeID:          parent.EmployeeID,
		TransactionDate:     occurrence,
		IsRecurring:         false,
		ParentTransactionID: &parentID,
	}

	next := AdvanceOccurrence(occurrence, *parent.RecurringPeriod)
	if _, err := s.transactionRepo.CreateChildAndAdvance(child, parent.ID, next); err != nil {
		return err
	}

	result.ProcessedCount++
	result.CreatedTransactionCount++
	return nil
}

// processRecurringInvoice spawns a child invoice one period ahead with
// fresh payment state and its own receivable, then decrements the
// parent's remaining occurrences.
func (s *ScheduleService) processRecurringInvoice(userID int64, parent *domain.Invoice, result *ProcessResult) error {
	if parent.OccurrencesRemaining <= 0 {
		result.SkippedCount++
		return nil
	}
	if !parent.RecurringPeriod.InvoicePeriodValid() {
		return domain.ErrInvalidPeriod
	}

	childIssue := AdvanceOccurrence(parent.IssueDate, parent.RecurringPeriod)
	childDue := AdvanceOccurrence(parent.DueDate, parent.RecurringPeriod)

	exists, err := s.invoiceRepo.ChildExists(userID, parent.ID, childIssue)
	if err != nil {
		return err
	}
	if exists {
		result.SkippedCount++
		return nil
	}

	parentID := parent.ID
	child := &domain.Invoice{
		UserID:           userID,
		ClientID:         parent.ClientID,
		CurrencyID:       parent.CurrencyID,
		Number:           fmt.Sprintf("%s-%s", parent.Number, childIssue.Format("200601")),
		IssueDate:        childIssue,
		DueDate:          childDue,
		Items:            parent.Items,
		Subtotal:         parent.Subtotal,
		VATAmount:        parent.VATAmount,
		TevkifatApplied:  parent.TevkifatApplied,
		TevkifatRateCode: parent.TevkifatRateCode,
		TevkifatAmount:   parent.TevkifatAmount,
		Total:            parent.Total,
		NetTotal:         parent.NetTotal,
		PaidAmount:       decimal.Zero,
		RemainingAmount:  parent.NetTotal,
		Status:           domain.InvoiceStatusSent,
		ParentInvoiceID:  &parentID,
	}

	debt, pendingBalance := domain.NewReceivableForInvoice(child)
	if _, err := s.invoiceRepo.SpawnChild(child, debt, pendingBalance); err != nil {
		return err
	}

	result.ProcessedCount++
	result.CreatedInvoiceCount++
	return nil
}
