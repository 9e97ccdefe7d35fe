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

func setupTransactionHandler() (*TransactionHandler, *testutil.MockInvoiceRepository, *testutil.MockTransactionRepository) {
	invoiceRepo := testutil.NewMockInvoiceRepository()
	debtRepo := testutil.NewMockDebtRepository()
	pendingRepo := testutil.NewMockPendingBalanceRepository()
	clientRepo := testutil.NewMockClientRepository()
	transactionRepo := testutil.NewMockTransactionRepository()

	invoiceRepo.DebtRepo = debtRepo
	invoiceRepo.PendingRepo = pendingRepo
	invoiceRepo.ClientRepo = clientRepo
	invoiceRepo.TransactionRepo = transactionRepo

	clientRepo.AddClient(&domain.Client{ID: 1, UserID: 1, Name: "Acme", CurrencyID: 1, Balance: decimal.Zero})

	reconcileService := service.NewReconcileService(invoiceRepo, transactionRepo, service.OverpaymentReject, zerolog.Nop())
	return NewTransactionHandler(reconcileService), invoiceRepo, transactionRepo
}

func addOutstandingInvoice(invoiceRepo *testutil.MockInvoiceRepository, number string, net decimal.Decimal) *domain.Invoice {
	clientID := int64(1)
	inv := &domain.Invoice{
		UserID:          1,
		ClientID:        clientID,
		CurrencyID:      1,
		Number:          number,
		IssueDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:         time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:        net,
		Total:           net,
		NetTotal:        net,
		PaidAmount:      decimal.Zero,
		RemainingAmount: net,
		Status:          domain.InvoiceStatusSent,
	}
	invoiceRepo.AddInvoice(inv)
	invoiceRepo.DebtRepo.AddDebt(&domain.Debt{
		UserID:          1,
		Type:            domain.DebtTypeReceivable,
		ClientID:        &clientID,
		Title:           "Invoice " + number,
		Amount:          net,
		PaidAmount:      decimal.Zero,
		CurrencyID:      1,
		DueDate:         inv.DueDate,
		Status:          domain.DebtStatusPending,
		LinkedInvoiceID: &inv.ID,
	})
	return inv
}

func TestReconcile_DescriptionMatch(t *testing.T) {
	e := echo.New()
	handler, invoiceRepo, transactionRepo := setupTransactionHandler()

	inv := addOutstandingInvoice(invoiceRepo, "INV-2026-0008", decimal.NewFromInt(1054))
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          1,
		Type:            domain.TransactionTypeIncome,
		Description:     "Havale INV-2026-0008 Acme Ltd",
		Amount:          decimal.NewFromInt(1054),
		CurrencyID:      1,
		TransactionDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/1/reconcile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupTenantContext(c, 1)

	if err := handler.Reconcile(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response ReconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Matched {
		t.Fatalf("Expected a match, got reason %q", response.Reason)
	}
	if response.Invoice == nil {
		t.Fatal("Expected matched invoice in response")
	}
	if response.Invoice.ID != inv.ID {
		t.Errorf("Expected invoice %d, got %d", inv.ID, response.Invoice.ID)
	}
	if response.Invoice.Status != string(domain.InvoiceStatusPaid) {
		t.Errorf("Expected status 'paid', got %s", response.Invoice.Status)
	}
}

func TestReconcile_NoReferenceInDescription(t *testing.T) {
	e := echo.New()
	handler, _, transactionRepo := setupTransactionHandler()

	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          1,
		Type:            domain.TransactionTypeIncome,
		Description:     "Monthly retainer",
		Amount:          decimal.NewFromInt(500),
		CurrencyID:      1,
		TransactionDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/1/reconcile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupTenantContext(c, 1)

	if err := handler.Reconcile(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response ReconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Matched {
		t.Error("Expected no match")
	}
	if response.Reason == "" {
		t.Error("Expected an unmatched reason")
	}
}

func TestReconcile_TransactionNotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := setupTransactionHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/42/reconcile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	setupTenantContext(c, 1)

	if err := handler.Reconcile(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
