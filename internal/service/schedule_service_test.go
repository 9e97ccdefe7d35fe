package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvanceOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		period domain.RecurrencePeriod
		want   time.Time
	}{
		{"weekly", date(2026, 3, 10), domain.PeriodWeekly, date(2026, 3, 17)},
		{"monthly", date(2026, 3, 15), domain.PeriodMonthly, date(2026, 4, 15)},
		{"monthly clamps to leap February", date(2024, 1, 31), domain.PeriodMonthly, date(2024, 2, 29)},
		{"monthly clamps to short February", date(2023, 1, 31), domain.PeriodMonthly, date(2023, 2, 28)},
		{"quarterly clamps across year boundary", date(2025, 11, 30), domain.PeriodQuarterly, date(2026, 2, 28)},
		{"yearly", date(2026, 6, 1), domain.PeriodYearly, date(2027, 6, 1)},
		{"yearly clamps leap day", date(2024, 2, 29), domain.PeriodYearly, date(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceOccurrence(tt.from, tt.period)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func setupScheduleService() (*ScheduleService, *testutil.MockRegularPaymentRepository, *testutil.MockTransactionRepository, *testutil.MockInvoiceRepository) {
	rpRepo := testutil.NewMockRegularPaymentRepository()
	txRepo := testutil.NewMockTransactionRepository()
	txRepo.RegularPaymentRepo = rpRepo
	invRepo := testutil.NewMockInvoiceRepository()
	invRepo.DebtRepo = testutil.NewMockDebtRepository()
	invRepo.PendingRepo = testutil.NewMockPendingBalanceRepository()

	service := NewScheduleService(rpRepo, txRepo, invRepo, zerolog.Nop())
	return service, rpRepo, txRepo, invRepo
}

func TestProcessObligations_RegularPaymentEmitsExpense(t *testing.T) {
	service, rpRepo, txRepo, _ := setupScheduleService()

	due := date(2026, 9, 1)
	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID:     1,
		Title:      "Office rent",
		Amount:     decimal.NewFromInt(5000),
		CurrencyID: 1,
		DueDate:    due,
		Frequency:  domain.PeriodMonthly,
		IsActive:   true,
	})

	result, err := service.ProcessObligations(context.Background(), 1, date(2026, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.CreatedTransactionCount)
	assert.Empty(t, result.Errors)

	require.Len(t, txRepo.Transactions, 1)
	for _, tx := range txRepo.Transactions {
		assert.Equal(t, domain.TransactionTypeExpense, tx.Type)
		assert.Equal(t, "Office rent", tx.Description)
		// Dated at the occurrence, not at processing time
		assert.True(t, tx.TransactionDate.Equal(due))
		require.NotNil(t, tx.RegularPaymentID)
	}

	rp, err := rpRepo.GetByID(1, 1)
	require.NoError(t, err)
	assert.True(t, rp.DueDate.Equal(date(2026, 10, 1)), "due date advanced to %s", rp.DueDate)
}

func TestProcessObligations_SecondRunCreatesNothing(t *testing.T) {
	service, rpRepo, txRepo, invRepo := setupScheduleService()

	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Rent", Amount: decimal.NewFromInt(100), CurrencyID: 1,
		DueDate: date(2026, 9, 1), Frequency: domain.PeriodMonthly, IsActive: true,
	})
	period := domain.PeriodMonthly
	next := date(2026, 9, 1)
	txRepo.AddTransaction(&domain.Transaction{
		UserID: 1, Type: domain.TransactionTypeExpense, Description: "Subscription",
		Amount: decimal.NewFromInt(50), CurrencyID: 1, TransactionDate: date(2026, 8, 1),
		IsRecurring: true, RecurringPeriod: &period, NextRecurringDate: &next,
	})
	invRepo.AddInvoice(&domain.Invoice{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "INV-R1",
		IssueDate: date(2026, 8, 1), DueDate: date(2026, 9, 1),
		NetTotal: decimal.NewFromInt(1000), RemainingAmount: decimal.NewFromInt(1000),
		Status: domain.InvoiceStatusSent, IsRecurring: true,
		RecurringPeriod: domain.PeriodMonthly, OccurrencesRemaining: 3,
	})

	asOf := date(2026, 9, 1)
	first, err := service.ProcessObligations(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, first.ProcessedCount)
	assert.Empty(t, first.Errors)

	txCount := len(txRepo.Transactions)
	invCount := len(invRepo.Invoices)

	second, err := service.ProcessObligations(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Len(t, txRepo.Transactions, txCount)
	assert.Len(t, invRepo.Invoices, invCount)
}

func TestProcessObligations_RecurringTransactionSpawnsChild(t *testing.T) {
	service, _, txRepo, _ := setupScheduleService()

	period := domain.PeriodWeekly
	next := date(2026, 9, 1)
	txRepo.AddTransaction(&domain.Transaction{
		UserID: 1, Type: domain.TransactionTypeIncome, Description: "Retainer",
		Amount: decimal.NewFromInt(300), CurrencyID: 1, TransactionDate: date(2026, 8, 25),
		IsRecurring: true, RecurringPeriod: &period, NextRecurringDate: &next,
	})

	result, err := service.ProcessObligations(context.Background(), 1, date(2026, 9, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)

	parent, err := txRepo.GetByID(1, 1)
	require.NoError(t, err)
	require.NotNil(t, parent.NextRecurringDate)
	assert.True(t, parent.NextRecurringDate.Equal(date(2026, 9, 8)))

	require.Len(t, txRepo.Transactions, 2)
	child, err := txRepo.GetByID(1, 2)
	require.NoError(t, err)
	assert.False(t, child.IsRecurring)
	require.NotNil(t, child.ParentTransactionID)
	assert.Equal(t, int64(1), *child.ParentTransactionID)
	assert.True(t, child.TransactionDate.Equal(date(2026, 9, 1)))
	assert.True(t, child.Amount.Equal(parent.Amount))
}

func TestProcessObligations_RecurringInvoiceSpawnsChildWithReceivable(t *testing.T) {
	service, _, _, invRepo := setupScheduleService()

	invRepo.AddInvoice(&domain.Invoice{
		UserID: 1, ClientID: 7, CurrencyID: 1, Number: "INV-2026-0042",
		IssueDate: date(2026, 8, 1), DueDate: date(2026, 9, 1),
		Subtotal: decimal.NewFromInt(1000), VATAmount: decimal.NewFromInt(180),
		Total: decimal.NewFromInt(1180), NetTotal: decimal.NewFromInt(1180),
		PaidAmount: decimal.NewFromInt(1180), RemainingAmount: decimal.Zero,
		Status: domain.InvoiceStatusPaid, IsRecurring: true,
		RecurringPeriod: domain.PeriodMonthly, OccurrencesRemaining: 2,
	})

	result, err := service.ProcessObligations(context.Background(), 1, date(2026, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.CreatedInvoiceCount)

	parent, err := invRepo.GetByID(1, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), parent.OccurrencesRemaining)
	assert.True(t, parent.DueDate.Equal(date(2026, 10, 1)))

	child, err := invRepo.GetByID(1, 2)
	require.NoError(t, err)
	require.NotNil(t, child.ParentInvoiceID)
	assert.Equal(t, int64(1), *child.ParentInvoiceID)
	assert.True(t, child.IssueDate.Equal(date(2026, 9, 1)))
	assert.True(t, child.DueDate.Equal(date(2026, 10, 1)))
	// Fresh payment state regardless of the parent's
	assert.True(t, child.PaidAmount.IsZero())
	assert.True(t, child.RemainingAmount.Equal(child.NetTotal))
	assert.Equal(t, domain.InvoiceStatusSent, child.Status)
	assert.False(t, child.IsRecurring)

	debt, err := invRepo.DebtRepo.GetByInvoiceID(1, child.ID)
	require.NoError(t, err)
	assert.True(t, debt.Amount.Equal(child.NetTotal))
	pending, err := invRepo.PendingRepo.GetByInvoiceID(1, child.ID)
	require.NoError(t, err)
	assert.True(t, pending.Amount.Equal(child.NetTotal))
}

func TestProcessObligations_OneFailureDoesNotAbortBatch(t *testing.T) {
	service, _, txRepo, _ := setupScheduleService()

	period := domain.PeriodMonthly
	firstNext := date(2026, 9, 1)
	secondNext := date(2026, 9, 2)
	txRepo.AddTransaction(&domain.Transaction{
		UserID: 1, Type: domain.TransactionTypeExpense, Description: "Fails",
		Amount: decimal.NewFromInt(10), CurrencyID: 1, TransactionDate: date(2026, 8, 1),
		IsRecurring: true, RecurringPeriod: &period, NextRecurringDate: &firstNext,
	})
	txRepo.AddTransaction(&domain.Transaction{
		UserID: 1, Type: domain.TransactionTypeExpense, Description: "Succeeds",
		Amount: decimal.NewFromInt(20), CurrencyID: 1, TransactionDate: date(2026, 8, 2),
		IsRecurring: true, RecurringPeriod: &period, NextRecurringDate: &secondNext,
	})

	boom := errors.New("storage unavailable")
	txRepo.CreateChildAndAdvanceFn = func(child *domain.Transaction, parentID int64, next time.Time) (*domain.Transaction, error) {
		if parentID == 1 {
			return nil, boom
		}
		child.ID = txRepo.NextID
		txRepo.NextID++
		txRepo.Transactions[child.ID] = child
		n := next
		txRepo.Transactions[parentID].NextRecurringDate = &n
		return child, nil
	}

	result, err := service.ProcessObligations(context.Background(), 1, date(2026, 9, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ObligationTransaction, result.Errors[0].Kind)
	assert.Equal(t, int64(1), result.Errors[0].ID)
	assert.Contains(t, result.Errors[0].Message, "storage unavailable")
}

func TestProcessObligations_DeadlineReturnsRemainder(t *testing.T) {
	service, rpRepo, txRepo, _ := setupScheduleService()

	for i := 0; i < 3; i++ {
		rpRepo.AddRegularPayment(&domain.RegularPayment{
			UserID: 1, Title: "Rent", Amount: decimal.NewFromInt(100), CurrencyID: 1,
			DueDate: date(2026, 9, 1), Frequency: domain.PeriodMonthly, IsActive: true,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.ProcessObligations(ctx, 1, date(2026, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount)
	assert.Len(t, result.Remaining, 3)
	assert.Empty(t, txRepo.Transactions)
}

func TestProcessObligations_ExhaustedInvoiceSkipped(t *testing.T) {
	service, _, _, invRepo := setupScheduleService()

	// Listed by a racing sweep before the decrement landed
	inv := &domain.Invoice{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "INV-X",
		IssueDate: date(2026, 8, 1), DueDate: date(2026, 9, 1),
		NetTotal: decimal.NewFromInt(100), Status: domain.InvoiceStatusSent,
		IsRecurring: true, RecurringPeriod: domain.PeriodMonthly, OccurrencesRemaining: 1,
	}
	invRepo.AddInvoice(inv)
	inv.OccurrencesRemaining = 0

	result, err := service.ProcessObligations(context.Background(), 1, date(2026, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount)
	assert.Len(t, invRepo.Invoices, 1)
}
