package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const regularPaymentColumns = `id, user_id, title, amount, currency_id, due_date,
	frequency, category, status, employee_id, is_active, created_at, updated_at`

// RegularPaymentRepository implements domain.RegularPaymentRepository using PostgreSQL
type RegularPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewRegularPaymentRepository creates a new RegularPaymentRepository
func NewRegularPaymentRepository(pool *pgxpool.Pool) *RegularPaymentRepository {
	return &RegularPaymentRepository{pool: pool}
}

func scanRegularPayment(row pgx.Row) (*domain.RegularPayment, error) {
	var rp domain.RegularPayment
	var amount pgtype.Numeric
	err := row.Scan(&rp.ID, &rp.UserID, &rp.Title, &amount, &rp.CurrencyID, &rp.DueDate,
		&rp.Frequency, &rp.Category, &rp.Status, &rp.EmployeeID, &rp.IsActive,
		&rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rp.Amount = pgNumericToDecimal(amount)
	return &rp, nil
}

// Create inserts a new regular payment
func (r *RegularPaymentRepository) Create(rp *domain.RegularPayment) (*domain.RegularPayment, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(rp.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO regular_payments (user_id, title, amount, currency_id, due_date,
			frequency, category, status, employee_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+regularPaymentColumns,
		rp.UserID, rp.Title, amount, rp.CurrencyID, rp.DueDate,
		rp.Frequency, rp.Category, rp.Status, rp.EmployeeID, rp.IsActive,
	)
	return scanRegularPayment(row)
}

// GetByID retrieves a regular payment by its ID within a tenant
func (r *RegularPaymentRepository) GetByID(userID, id int64) (*domain.RegularPayment, error) {
	ctx := context.Background()

	rp, err := scanRegularPayment(r.pool.QueryRow(ctx,
		`SELECT `+regularPaymentColumns+` FROM regular_payments
		 WHERE user_id = $1 AND id = $2`,
		userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRegularPaymentNotFound
		}
		return nil, err
	}
	return rp, nil
}

// ListDue returns active payments whose due date has arrived
func (r *RegularPaymentRepository) ListDue(userID int64, asOf time.Time) ([]*domain.RegularPayment, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+regularPaymentColumns+` FROM regular_payments
		 WHERE user_id = $1 AND is_active AND due_date <= $2
		 ORDER BY due_date, id`,
		userID, asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegularPayments(rows)
}

// ListDueBetween returns active payments due inside a window
func (r *RegularPaymentRepository) ListDueBetween(userID int64, from, to time.Time) ([]*domain.RegularPayment, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+regularPaymentColumns+` FROM regular_payments
		 WHERE user_id = $1 AND is_active AND due_date >= $2 AND due_date <= $3
		 ORDER BY due_date, id`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegularPayments(rows)
}

func collectRegularPayments(rows pgx.Rows) ([]*domain.RegularPayment, error) {
	payments := make([]*domain.RegularPayment, 0)
	for rows.Next() {
		rp, err := scanRegularPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, rp)
	}
	return payments, rows.Err()
}

// AdvanceDueDate moves the payment to its next occurrence
func (r *RegularPaymentRepository) AdvanceDueDate(userID, id int64, next time.Time) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		`UPDATE regular_payments SET due_date = $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3`,
		next, userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRegularPaymentNotFound
	}
	return nil
}

// Update replaces a regular payment's editable fields
func (r *RegularPaymentRepository) Update(rp *domain.RegularPayment) (*domain.RegularPayment, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(rp.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	updated, err := scanRegularPayment(r.pool.QueryRow(ctx,
		`UPDATE regular_payments
		 SET title = $1, amount = $2, currency_id = $3, due_date = $4, frequency = $5,
		     category = $6, status = $7, employee_id = $8, is_active = $9, updated_at = NOW()
		 WHERE user_id = $10 AND id = $11
		 RETURNING `+regularPaymentColumns,
		rp.Title, amount, rp.CurrencyID, rp.DueDate, rp.Frequency,
		rp.Category, rp.Status, rp.EmployeeID, rp.IsActive, rp.UserID, rp.ID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRegularPaymentNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a regular payment
func (r *RegularPaymentRepository) Delete(userID, id int64) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM regular_payments WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRegularPaymentNotFound
	}
	return nil
}
