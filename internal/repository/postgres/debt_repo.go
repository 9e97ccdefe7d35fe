package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const debtColumns = `id, user_id, type, client_id, title, amount, paid_amount,
	currency_id, due_date, status, linked_invoice_id, created_at, updated_at`

// DebtRepository implements domain.DebtRepository using PostgreSQL
type DebtRepository struct {
	pool *pgxpool.Pool
}

// NewDebtRepository creates a new DebtRepository
func NewDebtRepository(pool *pgxpool.Pool) *DebtRepository {
	return &DebtRepository{pool: pool}
}

func scanDebt(row pgx.Row) (*domain.Debt, error) {
	var d domain.Debt
	var amount, paid pgtype.Numeric
	err := row.Scan(&d.ID, &d.UserID, &d.Type, &d.ClientID, &d.Title, &amount, &paid,
		&d.CurrencyID, &d.DueDate, &d.Status, &d.LinkedInvoiceID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Amount = pgNumericToDecimal(amount)
	d.PaidAmount = pgNumericToDecimal(paid)
	return &d, nil
}

// Create inserts a new debt
func (r *DebtRepository) Create(d *domain.Debt) (*domain.Debt, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	paid, err := decimalToPgNumeric(d.PaidAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid paid amount: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO debts (user_id, type, client_id, title, amount, paid_amount,
			currency_id, due_date, status, linked_invoice_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+debtColumns,
		d.UserID, d.Type, d.ClientID, d.Title, amount, paid,
		d.CurrencyID, d.DueDate, d.Status, d.LinkedInvoiceID,
	)
	return scanDebt(row)
}

// GetByID retrieves a debt by its ID within a tenant
func (r *DebtRepository) GetByID(userID, id int64) (*domain.Debt, error) {
	ctx := context.Background()

	d, err := scanDebt(r.pool.QueryRow(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE user_id = $1 AND id = $2`,
		userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDebtNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByInvoiceID retrieves the debt linked to an invoice
func (r *DebtRepository) GetByInvoiceID(userID, invoiceID int64) (*domain.Debt, error) {
	ctx := context.Background()

	d, err := scanDebt(r.pool.QueryRow(ctx,
		`SELECT `+debtColumns+` FROM debts
		 WHERE user_id = $1 AND linked_invoice_id = $2`,
		userID, invoiceID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDebtNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListOutstandingDueBefore returns pending debts due on or before the
// given instant
func (r *DebtRepository) ListOutstandingDueBefore(userID int64, before time.Time) ([]*domain.Debt, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+debtColumns+` FROM debts
		 WHERE user_id = $1 AND status = $2 AND due_date <= $3
		 ORDER BY due_date, id`,
		userID, domain.DebtStatusPending, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debts := make([]*domain.Debt, 0)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// Reduce adds to the paid amount and flips status to paid once the
// cumulative applied amount covers the original amount
func (r *DebtRepository) Reduce(userID, id int64, amount decimal.Decimal) (*domain.Debt, error) {
	ctx := context.Background()

	applied, err := decimalToPgNumeric(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	d, err := scanDebt(r.pool.QueryRow(ctx,
		`UPDATE debts
		 SET paid_amount = paid_amount + $1,
		     status = CASE WHEN paid_amount + $1 >= amount THEN 'paid' ELSE status END,
		     updated_at = NOW()
		 WHERE user_id = $2 AND id = $3
		 RETURNING `+debtColumns,
		applied, userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDebtNotFound
		}
		return nil, err
	}
	return d, nil
}

// Cancel marks a debt cancelled, keeping the row for audit
func (r *DebtRepository) Cancel(userID, id int64) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		`UPDATE debts SET status = $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3`,
		domain.DebtStatusCancelled, userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDebtNotFound
	}
	return nil
}

// Delete removes a debt
func (r *DebtRepository) Delete(userID, id int64) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM debts WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDebtNotFound
	}
	return nil
}
