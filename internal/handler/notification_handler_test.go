package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/service"
	"github.com/defterly/defter-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupNotificationHandler() (*NotificationHandler, *testutil.MockDebtRepository, *testutil.MockRegularPaymentRepository) {
	debtRepo := testutil.NewMockDebtRepository()
	regularPaymentRepo := testutil.NewMockRegularPaymentRepository()
	quoteRepo := testutil.NewMockQuoteRepository()

	notificationService := service.NewNotificationService(debtRepo, regularPaymentRepo, quoteRepo, 7, zerolog.Nop())
	return NewNotificationHandler(notificationService), debtRepo, regularPaymentRepo
}

func TestListNotifications_ReturnsUpcomingObligations(t *testing.T) {
	e := echo.New()
	handler, debtRepo, regularPaymentRepo := setupNotificationHandler()

	debtRepo.AddDebt(&domain.Debt{
		UserID:     1,
		Type:       domain.DebtTypeReceivable,
		Title:      "Invoice INV-2026-0003",
		Amount:     decimal.NewFromInt(1000),
		PaidAmount: decimal.NewFromInt(400),
		CurrencyID: 1,
		DueDate:    time.Now().AddDate(0, 0, 3),
		Status:     domain.DebtStatusPending,
	})
	regularPaymentRepo.AddRegularPayment(&domain.RegularPayment{
		UserID:     1,
		Title:      "Office rent",
		Amount:     decimal.NewFromInt(5000),
		CurrencyID: 1,
		DueDate:    time.Now().AddDate(0, 0, 2),
		Frequency:  domain.PeriodMonthly,
		Status:     domain.RegularPaymentStatusPending,
		IsActive:   true,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupTenantContext(c, 1)

	if err := handler.ListNotifications(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response []NotificationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(response))
	}

	// Sorted by due date: rent in 2 days before the debt in 3 days
	if response[0].ID != "rp-due-1" {
		t.Errorf("Expected first notification 'rp-due-1', got %s", response[0].ID)
	}
	if response[1].ID != "debt-due-1" {
		t.Errorf("Expected second notification 'debt-due-1', got %s", response[1].ID)
	}
	// Debt amount is the outstanding remainder, not the face value
	if response[1].Amount != "600.00" {
		t.Errorf("Expected outstanding '600.00', got %s", response[1].Amount)
	}
}

func TestListNotifications_Empty(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupNotificationHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupTenantContext(c, 1)

	if err := handler.ListNotifications(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response []NotificationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 0 {
		t.Errorf("Expected no notifications, got %d", len(response))
	}
}
