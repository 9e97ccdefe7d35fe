package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a customer of the tenant. Balance is a denormalized running
// total maintained by delta on every payment/invoice event; it is never
// recomputed from a full scan as the source of truth.
type Client struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Name       string          `json:"name"`
	CurrencyID int64           `json:"currencyId"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type ClientRepository interface {
	GetByID(userID, id int64) (*Client, error)
	// IncrementBalance applies a delta with a single storage-side update
	// so concurrent payments on the same client never lose updates.
	IncrementBalance(userID, id int64, delta decimal.Decimal) error
}

// TenantRepository lists the tenant ids the background worker iterates.
type TenantRepository interface {
	ListUserIDs() ([]int64, error)
}
