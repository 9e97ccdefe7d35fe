package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegularPaymentStatus string

const (
	RegularPaymentStatusPending RegularPaymentStatus = "pending"
	RegularPaymentStatusPaid    RegularPaymentStatus = "paid"
)

// RegularPayment is a forever-recurring scheduled outgoing payment
// (rent, salary, subscription). DueDate always points at the next
// unprocessed occurrence; the scheduler advances it after emitting the
// expense for the current one.
type RegularPayment struct {
	ID         int64                `json:"id"`
	UserID     int64                `json:"userId"`
	Title      string               `json:"title"`
	Amount     decimal.Decimal      `json:"amount"`
	CurrencyID int64                `json:"currencyId"`
	DueDate    time.Time            `json:"dueDate"`
	Frequency  RecurrencePeriod     `json:"frequency"`
	Category   string               `json:"category"`
	Status     RegularPaymentStatus `json:"status"`
	EmployeeID *int64               `json:"employeeId,omitempty"`
	IsActive   bool                 `json:"isActive"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

type RegularPaymentRepository interface {
	Create(rp *RegularPayment) (*RegularPayment, error)
	GetByID(userID, id int64) (*RegularPayment, error)
	// ListDue returns active payments whose due date has arrived.
	ListDue(userID int64, asOf time.Time) ([]*RegularPayment, error)
	// ListDueBetween returns active payments due inside a window,
	// for the notification scan.
	ListDueBetween(userID int64, from, to time.Time) ([]*RegularPayment, error)
	// AdvanceDueDate moves the payment to its next occurrence.
	AdvanceDueDate(userID, id int64, next time.Time) error
	Update(rp *RegularPayment) (*RegularPayment, error)
	Delete(userID, id int64) error
}
