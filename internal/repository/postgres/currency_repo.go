package postgres

import (
	"context"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CurrencyRepository implements domain.CurrencyRepository using PostgreSQL
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository creates a new CurrencyRepository
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// GetByID retrieves a currency by its ID
func (r *CurrencyRepository) GetByID(id int64) (*domain.Currency, error) {
	ctx := context.Background()

	var c domain.Currency
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, symbol, is_active FROM currencies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Code, &c.Symbol, &c.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCurrencyNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List retrieves all currencies, optionally only active ones
func (r *CurrencyRepository) List(activeOnly bool) ([]*domain.Currency, error) {
	ctx := context.Background()

	query := `SELECT id, code, symbol, is_active FROM currencies ORDER BY code`
	if activeOnly {
		query = `SELECT id, code, symbol, is_active FROM currencies WHERE is_active ORDER BY code`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	currencies := make([]*domain.Currency, 0)
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Symbol, &c.IsActive); err != nil {
			return nil, err
		}
		currencies = append(currencies, &c)
	}
	return currencies, rows.Err()
}
