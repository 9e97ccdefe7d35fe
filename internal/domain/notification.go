package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	NotificationReceivableDue     NotificationKind = "receivable_due"
	NotificationReceivableOverdue NotificationKind = "receivable_overdue"
	NotificationPayableDue        NotificationKind = "payable_due"
	NotificationPayableOverdue    NotificationKind = "payable_overdue"
	NotificationRegularPaymentDue NotificationKind = "regular_payment_due"
	NotificationQuoteExpiring     NotificationKind = "quote_expiring"
	NotificationQuoteStale        NotificationKind = "quote_stale"
)

// Notification is one due-soon/overdue event for the UI badge list.
// IDs are derived from the kind and source row so re-running the scan
// with the same inputs yields the same ids.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Title      string           `json:"title"`
	Amount     decimal.Decimal  `json:"amount"`
	CurrencyID int64            `json:"currencyId"`
	DueDate    time.Time        `json:"dueDate"`
	RefID      int64            `json:"refId"`
}
