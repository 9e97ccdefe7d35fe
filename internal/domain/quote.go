package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

// Quote shares the invoice tax math; only sent quotes matter to the
// notification scan (nearing expiry or stale with no response).
type Quote struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"userId"`
	ClientID         int64           `json:"clientId"`
	CurrencyID       int64           `json:"currencyId"`
	Number           string          `json:"number"`
	Items            []InvoiceItem   `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	VATAmount        decimal.Decimal `json:"vatAmount"`
	TevkifatApplied  bool            `json:"tevkifatApplied"`
	TevkifatRateCode string          `json:"tevkifatRateCode,omitempty"`
	TevkifatAmount   decimal.Decimal `json:"tevkifatAmount"`
	Total            decimal.Decimal `json:"total"`
	NetTotal         decimal.Decimal `json:"netAmountAfterTevkifat"`
	Status           QuoteStatus     `json:"status"`
	ValidUntil       *time.Time      `json:"validUntil,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type QuoteRepository interface {
	GetByID(userID, id int64) (*Quote, error)
	ListByStatus(userID int64, status QuoteStatus) ([]*Quote, error)
}
