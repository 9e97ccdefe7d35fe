package service

import (
	"strings"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DebtService handles manually tracked receivables and payables.
// Invoice-linked debts are created by invoice issuance and retired by
// the reconciler; this service only touches free-standing entries.
type DebtService struct {
	debtRepo    domain.DebtRepository
	pendingRepo domain.PendingBalanceRepository
	clientRepo  domain.ClientRepository
	logger      zerolog.Logger
}

// NewDebtService creates a new DebtService
func NewDebtService(debtRepo domain.DebtRepository, pendingRepo domain.PendingBalanceRepository, clientRepo domain.ClientRepository, logger zerolog.Logger) *DebtService {
	return &DebtService{
		debtRepo:    debtRepo,
		pendingRepo: pendingRepo,
		clientRepo:  clientRepo,
		logger:      logger.With().Str("component", "debt_service").Logger(),
	}
}

// CreateDebtInput carries the fields for a manual debt entry.
type CreateDebtInput struct {
	Type       domain.DebtType
	ClientID   *int64
	Title      string
	Amount     decimal.Decimal
	CurrencyID int64
	DueDate    time.Time
}

// CreateDebt records a manual receivable or payable.
func (s *DebtService) CreateDebt(userID int64, input CreateDebtInput) (*domain.Debt, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}
	if len(title) > domain.MaxTitleLength {
		return nil, domain.ErrTitleTooLong
	}
	if input.Type != domain.DebtTypeReceivable && input.Type != domain.DebtTypePayable {
		return nil, domain.ErrInvalidDebtType
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.ClientID != nil {
		if _, err := s.clientRepo.GetByID(userID, *input.ClientID); err != nil {
			return nil, err
		}
	}

	debt := &domain.Debt{
		UserID:     userID,
		Type:       input.Type,
		ClientID:   input.ClientID,
		Title:      title,
		Amount:     input.Amount,
		PaidAmount: decimal.Zero,
		CurrencyID: input.CurrencyID,
		DueDate:    input.DueDate,
		Status:     domain.DebtStatusPending,
	}
	return s.debtRepo.Create(debt)
}

// GetDebt returns one debt entry.
func (s *DebtService) GetDebt(userID, id int64) (*domain.Debt, error) {
	return s.debtRepo.GetByID(userID, id)
}

// ReduceDebt applies a partial or full payment against a manual debt.
func (s *DebtService) ReduceDebt(userID, id int64, amount decimal.Decimal) (*domain.Debt, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	debt, err := s.debtRepo.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if debt.Status == domain.DebtStatusPaid || debt.Status == domain.DebtStatusCancelled {
		return nil, domain.ErrInvalidAmount
	}
	outstanding := debt.Amount.Sub(debt.PaidAmount)
	if amount.GreaterThan(outstanding) {
		return nil, domain.ErrOverpayment
	}

	reduced, err := s.debtRepo.Reduce(userID, id, amount)
	if err != nil {
		return nil, err
	}

	// Invoice-linked debts carry a parallel pending balance projection
	// that has to shrink with them.
	if debt.LinkedInvoiceID != nil {
		if err := s.pendingRepo.Reduce(userID, *debt.LinkedInvoiceID, amount); err != nil {
			s.logger.Error().Err(err).
				Int64("debt_id", id).
				Int64("invoice_id", *debt.LinkedInvoiceID).
				Msg("Failed to reduce pending balance for linked debt")
		}
	}
	return reduced, nil
}

// CancelDebt marks a debt cancelled without deleting its history.
func (s *DebtService) CancelDebt(userID, id int64) error {
	debt, err := s.debtRepo.GetByID(userID, id)
	if err != nil {
		return err
	}
	if debt.LinkedInvoiceID != nil {
		s.logger.Warn().
			Int64("debt_id", id).
			Int64("invoice_id", *debt.LinkedInvoiceID).
			Msg("Cancelling invoice-linked debt directly")
	}
	return s.debtRepo.Cancel(userID, id)
}

// DeleteDebt removes a manual debt entry entirely.
func (s *DebtService) DeleteDebt(userID, id int64) error {
	if _, err := s.debtRepo.GetByID(userID, id); err != nil {
		return err
	}
	return s.debtRepo.Delete(userID, id)
}
