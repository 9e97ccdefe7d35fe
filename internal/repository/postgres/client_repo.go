package postgres

import (
	"context"
	"fmt"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ClientRepository implements domain.ClientRepository using PostgreSQL
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// GetByID retrieves a client by its ID within a tenant
func (r *ClientRepository) GetByID(userID, id int64) (*domain.Client, error) {
	ctx := context.Background()

	var c domain.Client
	var balance pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, currency_id, balance, created_at, updated_at
		 FROM clients WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CurrencyID, &balance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	c.Balance = pgNumericToDecimal(balance)
	return &c, nil
}

// IncrementBalance applies a delta to the client's running balance with
// a single storage-side update, so concurrent payments never lose writes.
func (r *ClientRepository) IncrementBalance(userID, id int64, delta decimal.Decimal) error {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(delta)
	if err != nil {
		return fmt.Errorf("invalid delta: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET balance = balance + $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3`,
		amount, userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}
