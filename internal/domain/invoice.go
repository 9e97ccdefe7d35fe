package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Issuable reports whether a new invoice may be created in status s.
// Paid means a cash sale recorded after the fact; overdue and cancelled
// only arise later in the lifecycle.
func (s InvoiceStatus) Issuable() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

// InvoiceItem is one line of an invoice or quote.
type InvoiceItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
}

// Invoice carries its computed tax breakdown and payment state.
// Invariant: RemainingAmount = NetTotal - PaidAmount, never negative;
// Status is paid exactly when RemainingAmount is zero.
type Invoice struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"userId"`
	ClientID   int64         `json:"clientId"`
	CurrencyID int64         `json:"currencyId"`
	Number     string        `json:"number"`
	IssueDate  time.Time     `json:"issueDate"`
	DueDate    time.Time     `json:"dueDate"`
	Items      []InvoiceItem `json:"items"`

	Subtotal         decimal.Decimal `json:"subtotal"`
	VATAmount        decimal.Decimal `json:"vatAmount"`
	TevkifatApplied  bool            `json:"tevkifatApplied"`
	TevkifatRateCode string          `json:"tevkifatRateCode,omitempty"`
	TevkifatAmount   decimal.Decimal `json:"tevkifatAmount"`
	Total            decimal.Decimal `json:"total"`
	// NetTotal is the amount payable after withholding.
	NetTotal decimal.Decimal `json:"netAmountAfterTevkifat"`

	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          InvoiceStatus   `json:"status"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`

	IsRecurring          bool             `json:"isRecurring"`
	RecurringPeriod      RecurrencePeriod `json:"recurringPeriod,omitempty"`
	OccurrencesRemaining int32            `json:"recurringOccurrencesRemaining"`
	ParentInvoiceID      *int64           `json:"parentInvoiceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ApplyPaymentParams carries all writes for one payment application.
// The repository commits them in a single transaction.
type ApplyPaymentParams struct {
	UserID    int64
	InvoiceID int64
	ClientID  int64

	NewPaidAmount      decimal.Decimal
	NewRemainingAmount decimal.Decimal
	NewStatus          InvoiceStatus
	PaidAt             *time.Time

	// Payment is the income ledger row appended for this application.
	// Nil when LinkTransactionID is set.
	Payment *Transaction
	// LinkTransactionID points at an existing ledger row to link to the
	// invoice instead of appending a new one.
	LinkTransactionID *int64
	// AppliedAmount reduces the linked debt/pending balance and
	// increments the client balance.
	AppliedAmount decimal.Decimal
}

type InvoiceRepository interface {
	// CreateWithReceivable persists the invoice and, when debt/pending
	// are non-nil, its linked receivable rows in one transaction.
	CreateWithReceivable(inv *Invoice, debt *Debt, pending *PendingBalance) (*Invoice, error)
	// SpawnChild creates a recurring child plus its receivable rows,
	// advances the parent's issue/due dates to the child's, and
	// decrements the parent's remaining occurrences, atomically.
	SpawnChild(child *Invoice, debt *Debt, pending *PendingBalance) (*Invoice, error)
	GetByID(userID, id int64) (*Invoice, error)
	GetByNumber(userID int64, number string) (*Invoice, error)
	// ListDueRecurring returns recurring invoices whose due date has
	// arrived and which still have occurrences remaining.
	ListDueRecurring(userID int64, asOf time.Time) ([]*Invoice, error)
	// ChildExists reports whether a child with the given parent and
	// issue date was already spawned (idempotency guard).
	ChildExists(userID, parentID int64, issueDate time.Time) (bool, error)
	// ApplyPayment commits every write of a payment application in one
	// transaction, including the atomic client balance increment.
	ApplyPayment(params ApplyPaymentParams) (*Invoice, *Transaction, error)
	// Delete removes the invoice and its pending balance and cancels
	// the linked debt, in one transaction.
	Delete(userID, id int64) error
}
