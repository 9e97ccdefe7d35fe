package domain

// Currency is immutable reference data seeded outside the engine.
type Currency struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	IsActive bool   `json:"isActive"`
}

type CurrencyRepository interface {
	GetByID(id int64) (*Currency, error)
	List(activeOnly bool) ([]*Currency, error)
}
