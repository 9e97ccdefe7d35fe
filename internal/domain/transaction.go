package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is an append-only ledger row. Past rows are never mutated;
// the only writable fields on a recurring parent are its recurrence
// pointers, which the scheduler advances after spawning a child.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CurrencyID  int64           `json:"currencyId"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	ClientID    *int64          `json:"clientId,omitempty"`
	EmployeeID  *int64          `json:"employeeId,omitempty"`
	// InvoiceID links payment rows to the invoice they settle.
	InvoiceID *int64 `json:"invoiceId,omitempty"`
	// RegularPaymentID marks rows emitted for a regular payment occurrence.
	RegularPaymentID *int64 `json:"regularPaymentId,omitempty"`

	TransactionDate time.Time `json:"transactionDate"`

	IsRecurring         bool              `json:"isRecurring"`
	RecurringPeriod     *RecurrencePeriod `json:"recurringPeriod,omitempty"`
	NextRecurringDate   *time.Time        `json:"nextRecurringDate,omitempty"`
	ParentTransactionID *int64            `json:"parentTransactionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TransactionRepository interface {
	Create(t *Transaction) (*Transaction, error)
	GetByID(userID, id int64) (*Transaction, error)
	// ListDueRecurring returns recurring parents whose next occurrence
	// date has arrived.
	ListDueRecurring(userID int64, asOf time.Time) ([]*Transaction, error)
	// ChildExists reports whether a child for this parent and occurrence
	// date was already spawned (idempotency guard).
	ChildExists(userID, parentID int64, occurrenceDate time.Time) (bool, error)
	// ExistsForRegularPayment reports whether an expense row for this
	// regular payment occurrence was already emitted.
	ExistsForRegularPayment(userID, regularPaymentID int64, occurrenceDate time.Time) (bool, error)
	// CreateChildAndAdvance inserts the child row and advances the
	// parent's next occurrence pointer in one transaction.
	CreateChildAndAdvance(child *Transaction, parentID int64, next time.Time) (*Transaction, error)
	// CreateForRegularPayment inserts the expense row and advances the
	// regular payment's due date in one transaction.
	CreateForRegularPayment(t *Transaction, regularPaymentID int64, next time.Time) (*Transaction, error)
}
