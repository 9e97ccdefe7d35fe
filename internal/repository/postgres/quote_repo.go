package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quoteColumns = `id, user_id, client_id, currency_id, number, items,
	subtotal, vat_amount, tevkifat_applied, tevkifat_rate_code, tevkifat_amount,
	total, net_total, status, valid_until, created_at, updated_at`

// QuoteRepository implements domain.QuoteRepository using PostgreSQL
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository creates a new QuoteRepository
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var q domain.Quote
	var items []byte
	var subtotal, vatAmount, tevkifatAmount, total, netTotal pgtype.Numeric
	var rateCode *string

	err := row.Scan(&q.ID, &q.UserID, &q.ClientID, &q.CurrencyID, &q.Number, &items,
		&subtotal, &vatAmount, &q.TevkifatApplied, &rateCode, &tevkifatAmount,
		&total, &netTotal, &q.Status, &q.ValidUntil, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &q.Items); err != nil {
			return nil, fmt.Errorf("malformed quote items: %w", err)
		}
	}
	if rateCode != nil {
		q.TevkifatRateCode = *rateCode
	}
	q.Subtotal = pgNumericToDecimal(subtotal)
	q.VATAmount = pgNumericToDecimal(vatAmount)
	q.TevkifatAmount = pgNumericToDecimal(tevkifatAmount)
	q.Total = pgNumericToDecimal(total)
	q.NetTotal = pgNumericToDecimal(netTotal)
	return &q, nil
}

// GetByID retrieves a quote by its ID within a tenant
func (r *QuoteRepository) GetByID(userID, id int64) (*domain.Quote, error) {
	ctx := context.Background()

	q, err := scanQuote(r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE user_id = $1 AND id = $2`,
		userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrQuoteNotFound
		}
		return nil, err
	}
	return q, nil
}

// ListByStatus returns quotes in the given status
func (r *QuoteRepository) ListByStatus(userID int64, status domain.QuoteStatus) ([]*domain.Quote, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes
		 WHERE user_id = $1 AND status = $2
		 ORDER BY updated_at, id`,
		userID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]*domain.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
