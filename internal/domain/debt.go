package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DebtType string

const (
	DebtTypeReceivable DebtType = "receivable"
	DebtTypePayable    DebtType = "payable"
)

type DebtStatus string

const (
	DebtStatusPending   DebtStatus = "pending"
	DebtStatusPaid      DebtStatus = "paid"
	DebtStatusOverdue   DebtStatus = "overdue"
	DebtStatusCancelled DebtStatus = "cancelled"
)

// Debt is a receivable or payable. Receivables linked to invoices are
// created exactly once at issuance and retired by the reconciler.
type Debt struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	Type            DebtType        `json:"type"`
	ClientID        *int64          `json:"clientId,omitempty"`
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	CurrencyID      int64           `json:"currencyId"`
	DueDate         time.Time       `json:"dueDate"`
	Status          DebtStatus      `json:"status"`
	LinkedInvoiceID *int64          `json:"linkedInvoiceId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// PendingBalance is a denormalized unpaid-invoice projection kept for
// fast outstanding-total queries.
type PendingBalance struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	ClientID  int64           `json:"clientId"`
	InvoiceID int64           `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"dueDate"`
	Status    string          `json:"status"` // pending or paid
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewReceivableForInvoice builds the receivable and pending-balance rows
// for a freshly issued invoice. Returns nils when the invoice carries
// nothing to collect.
func NewReceivableForInvoice(inv *Invoice) (*Debt, *PendingBalance) {
	if inv.Status == InvoiceStatusPaid || !inv.NetTotal.IsPositive() {
		return nil, nil
	}
	clientID := inv.ClientID
	debt := &Debt{
		UserID:     inv.UserID,
		Type:       DebtTypeReceivable,
		ClientID:   &clientID,
		Title:      "Invoice " + inv.Number,
		Amount:     inv.NetTotal,
		PaidAmount: decimal.Zero,
		CurrencyID: inv.CurrencyID,
		DueDate:    inv.DueDate,
		Status:     DebtStatusPending,
	}
	pending := &PendingBalance{
		UserID:   inv.UserID,
		ClientID: inv.ClientID,
		Amount:   inv.NetTotal,
		DueDate:  inv.DueDate,
		Status:   "pending",
	}
	return debt, pending
}

type DebtRepository interface {
	Create(d *Debt) (*Debt, error)
	GetByID(userID, id int64) (*Debt, error)
	GetByInvoiceID(userID, invoiceID int64) (*Debt, error)
	// ListOutstandingDueBefore returns pending debts due on or before
	// the given instant, for the notification scan.
	ListOutstandingDueBefore(userID int64, before time.Time) ([]*Debt, error)
	// Reduce adds to the paid amount and flips status to paid once the
	// cumulative applied amount covers the original amount.
	Reduce(userID, id int64, amount decimal.Decimal) (*Debt, error)
	Cancel(userID, id int64) error
	Delete(userID, id int64) error
}

type PendingBalanceRepository interface {
	Create(pb *PendingBalance) (*PendingBalance, error)
	GetByInvoiceID(userID, invoiceID int64) (*PendingBalance, error)
	Reduce(userID, invoiceID int64, amount decimal.Decimal) error
	DeleteByInvoiceID(userID, invoiceID int64) error
}
