package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/service"
	"github.com/defterly/defter-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupObligationHandler() (*ObligationHandler, *testutil.MockRegularPaymentRepository, *testutil.MockTransactionRepository) {
	regularPaymentRepo := testutil.NewMockRegularPaymentRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	invoiceRepo := testutil.NewMockInvoiceRepository()

	transactionRepo.RegularPaymentRepo = regularPaymentRepo

	scheduleService := service.NewScheduleService(regularPaymentRepo, transactionRepo, invoiceRepo, zerolog.Nop())
	return NewObligationHandler(scheduleService), regularPaymentRepo, transactionRepo
}

func TestProcessObligations_EmitsDuePayment(t *testing.T) {
	e := echo.New()
	handler, regularPaymentRepo, transactionRepo := setupObligationHandler()

	regularPaymentRepo.AddRegularPayment(&domain.RegularPayment{
		UserID:     1,
		Title:      "Office rent",
		Amount:     decimal.NewFromInt(5000),
		CurrencyID: 1,
		DueDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Frequency:  domain.PeriodMonthly,
		Status:     domain.RegularPaymentStatusPending,
		IsActive:   true,
	})

	reqBody := `{"userId": 1, "asOf": "2026-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations/process", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ProcessObligations(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result service.ProcessResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Errorf("Expected 1 processed, got %d", result.ProcessedCount)
	}
	if result.CreatedTransactionCount != 1 {
		t.Errorf("Expected 1 created transaction, got %d", result.CreatedTransactionCount)
	}
	if len(transactionRepo.Transactions) != 1 {
		t.Errorf("Expected 1 ledger row, got %d", len(transactionRepo.Transactions))
	}
}

func TestProcessObligations_SecondRunIsIdempotent(t *testing.T) {
	e := echo.New()
	handler, regularPaymentRepo, transactionRepo := setupObligationHandler()

	regularPaymentRepo.AddRegularPayment(&domain.RegularPayment{
		UserID:     1,
		Title:      "Office rent",
		Amount:     decimal.NewFromInt(5000),
		CurrencyID: 1,
		DueDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Frequency:  domain.PeriodMonthly,
		Status:     domain.RegularPaymentStatusPending,
		IsActive:   true,
	})

	for i := 0; i < 2; i++ {
		reqBody := `{"userId": 1, "asOf": "2026-03-01"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations/process", strings.NewReader(reqBody))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ProcessObligations(c); err != nil {
			t.Fatalf("Run %d: expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("Run %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	if len(transactionRepo.Transactions) != 1 {
		t.Errorf("Expected 1 ledger row after two runs, got %d", len(transactionRepo.Transactions))
	}
}

func TestProcessObligations_InvalidUserID(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupObligationHandler()

	reqBody := `{"userId": 0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations/process", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ProcessObligations(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestProcessObligations_InvalidAsOf(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupObligationHandler()

	reqBody := `{"userId": 1, "asOf": "yesterday"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations/process", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ProcessObligations(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
