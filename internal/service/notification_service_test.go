package service

import (
	"testing"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotificationService() (*NotificationService, *testutil.MockDebtRepository, *testutil.MockRegularPaymentRepository, *testutil.MockQuoteRepository) {
	debtRepo := testutil.NewMockDebtRepository()
	rpRepo := testutil.NewMockRegularPaymentRepository()
	quoteRepo := testutil.NewMockQuoteRepository()
	service := NewNotificationService(debtRepo, rpRepo, quoteRepo, 7, zerolog.Nop())
	return service, debtRepo, rpRepo, quoteRepo
}

func TestListNotifications_DebtKinds(t *testing.T) {
	service, debtRepo, _, _ := setupNotificationService()
	now := date(2026, 9, 1)

	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypeReceivable, Title: "Invoice INV-1",
		Amount: decimal.NewFromInt(1000), PaidAmount: decimal.NewFromInt(400),
		CurrencyID: 1, DueDate: date(2026, 9, 5), Status: domain.DebtStatusPending,
	})
	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypeReceivable, Title: "Invoice INV-2",
		Amount: decimal.NewFromInt(200), PaidAmount: decimal.Zero,
		CurrencyID: 1, DueDate: date(2026, 8, 20), Status: domain.DebtStatusPending,
	})
	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypePayable, Title: "Supplier",
		Amount: decimal.NewFromInt(300), PaidAmount: decimal.Zero,
		CurrencyID: 1, DueDate: date(2026, 9, 3), Status: domain.DebtStatusPending,
	})
	// Outside the lookahead window
	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypePayable, Title: "Far away",
		Amount: decimal.NewFromInt(50), PaidAmount: decimal.Zero,
		CurrencyID: 1, DueDate: date(2026, 10, 15), Status: domain.DebtStatusPending,
	})
	// Already paid
	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypeReceivable, Title: "Settled",
		Amount: decimal.NewFromInt(80), PaidAmount: decimal.NewFromInt(80),
		CurrencyID: 1, DueDate: date(2026, 9, 2), Status: domain.DebtStatusPaid,
	})

	list, err := service.ListNotifications(1, now)
	require.NoError(t, err)
	require.Len(t, list, 3)

	byID := make(map[string]domain.Notification)
	for _, n := range list {
		byID[n.ID] = n
	}

	due := byID["debt-due-1"]
	assert.Equal(t, domain.NotificationReceivableDue, due.Kind)
	assert.True(t, due.Amount.Equal(decimal.NewFromInt(600)), "outstanding, not original: %s", due.Amount)

	assert.Equal(t, domain.NotificationReceivableOverdue, byID["debt-overdue-2"].Kind)
	assert.Equal(t, domain.NotificationPayableDue, byID["debt-due-3"].Kind)
}

func TestListNotifications_RegularPayments(t *testing.T) {
	service, _, rpRepo, _ := setupNotificationService()
	now := date(2026, 9, 1)

	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Rent", Amount: decimal.NewFromInt(5000), CurrencyID: 1,
		DueDate: date(2026, 9, 5), Frequency: domain.PeriodMonthly, IsActive: true,
	})
	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Insurance", Amount: decimal.NewFromInt(900), CurrencyID: 1,
		DueDate: date(2026, 9, 20), Frequency: domain.PeriodMonthly, IsActive: true,
	})
	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Inactive", Amount: decimal.NewFromInt(100), CurrencyID: 1,
		DueDate: date(2026, 9, 2), Frequency: domain.PeriodMonthly, IsActive: false,
	})

	list, err := service.ListNotifications(1, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "rp-due-1", list[0].ID)
	assert.Equal(t, domain.NotificationRegularPaymentDue, list[0].Kind)
	assert.Equal(t, "Rent", list[0].Title)
}

func TestListNotifications_Quotes(t *testing.T) {
	service, _, _, quoteRepo := setupNotificationService()
	now := date(2026, 9, 1)

	expiring := date(2026, 9, 4)
	farOut := date(2026, 12, 1)
	quoteRepo.AddQuote(&domain.Quote{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "Q-1",
		NetTotal: decimal.NewFromInt(2000), Status: domain.QuoteStatusSent,
		ValidUntil: &expiring, UpdatedAt: now,
	})
	quoteRepo.AddQuote(&domain.Quote{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "Q-2",
		NetTotal: decimal.NewFromInt(800), Status: domain.QuoteStatusSent,
		ValidUntil: &farOut, UpdatedAt: date(2026, 8, 10),
	})
	quoteRepo.AddQuote(&domain.Quote{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "Q-3",
		NetTotal: decimal.NewFromInt(400), Status: domain.QuoteStatusAccepted,
		UpdatedAt: date(2026, 7, 1),
	})

	list, err := service.ListNotifications(1, now)
	require.NoError(t, err)
	require.Len(t, list, 2)

	kinds := map[string]domain.NotificationKind{}
	for _, n := range list {
		kinds[n.ID] = n.Kind
	}
	assert.Equal(t, domain.NotificationQuoteExpiring, kinds["quote-expiring-1"])
	assert.Equal(t, domain.NotificationQuoteStale, kinds["quote-stale-2"])
}

func TestListNotifications_ExpiredQuoteIsStaleNotExpiring(t *testing.T) {
	service, _, _, quoteRepo := setupNotificationService()
	now := date(2026, 9, 1)

	longPast := date(2026, 6, 1)
	quoteRepo.AddQuote(&domain.Quote{
		UserID: 1, ClientID: 1, CurrencyID: 1, Number: "Q-1",
		NetTotal: decimal.NewFromInt(1500), Status: domain.QuoteStatusSent,
		ValidUntil: &longPast, UpdatedAt: date(2026, 8, 30),
	})

	list, err := service.ListNotifications(1, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "quote-stale-1", list[0].ID)
	assert.Equal(t, domain.NotificationQuoteStale, list[0].Kind)
}

func TestListNotifications_DeterministicAndSorted(t *testing.T) {
	service, debtRepo, rpRepo, _ := setupNotificationService()
	now := date(2026, 9, 1)

	debtRepo.AddDebt(&domain.Debt{
		UserID: 1, Type: domain.DebtTypeReceivable, Title: "Later",
		Amount: decimal.NewFromInt(100), CurrencyID: 1,
		DueDate: date(2026, 9, 6), Status: domain.DebtStatusPending,
	})
	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Earlier", Amount: decimal.NewFromInt(50), CurrencyID: 1,
		DueDate: date(2026, 9, 2), Frequency: domain.PeriodWeekly, IsActive: true,
	})

	first, err := service.ListNotifications(1, now)
	require.NoError(t, err)
	second, err := service.ListNotifications(1, now)
	require.NoError(t, err)

	require.Equal(t, first, second, "same state yields the same list")
	require.Len(t, first, 2)
	assert.Equal(t, "rp-due-1", first[0].ID)
	assert.Equal(t, "debt-due-1", first[1].ID)
	assert.True(t, first[0].DueDate.Before(first[1].DueDate))
}

func TestListNotifications_EmptyState(t *testing.T) {
	service, _, _, _ := setupNotificationService()
	list, err := service.ListNotifications(1, time.Now())
	require.NoError(t, err)
	assert.Empty(t, list)
}
