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

const transactionColumns = `id, user_id, type, description, amount, currency_id,
	category_id, client_id, employee_id, invoice_id, regular_payment_id,
	transaction_date, is_recurring, recurring_period, next_recurring_date,
	parent_transaction_id, created_at, updated_at`

const insertTransactionSQL = `INSERT INTO transactions (user_id, type, description,
	amount, currency_id, category_id, client_id, employee_id, invoice_id,
	regular_payment_id, transaction_date, is_recurring, recurring_period,
	next_recurring_date, parent_transaction_id)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
 RETURNING ` + transactionColumns

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount pgtype.Numeric
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Description, &amount, &t.CurrencyID,
		&t.CategoryID, &t.ClientID, &t.EmployeeID, &t.InvoiceID, &t.RegularPaymentID,
		&t.TransactionDate, &t.IsRecurring, &t.RecurringPeriod, &t.NextRecurringDate,
		&t.ParentTransactionID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	return &t, nil
}

func insertTransactionArgs(t *domain.Transaction) ([]interface{}, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	return []interface{}{
		t.UserID, t.Type, t.Description, amount, t.CurrencyID,
		t.CategoryID, t.ClientID, t.EmployeeID, t.InvoiceID, t.RegularPaymentID,
		t.TransactionDate, t.IsRecurring, t.RecurringPeriod, t.NextRecurringDate,
		t.ParentTransactionID,
	}, nil
}

// Create inserts a new transaction
func (r *TransactionRepository) Create(t *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	args, err := insertTransactionArgs(t)
	if err != nil {
		return nil, err
	}
	return scanTransaction(r.pool.QueryRow(ctx, insertTransactionSQL, args...))
}

// GetByID retrieves a transaction by its ID within a tenant
func (r *TransactionRepository) GetByID(userID, id int64) (*domain.Transaction, error) {
	ctx := context.Background()

	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = $1 AND id = $2`,
		userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListDueRecurring returns recurring parents whose next occurrence date
// has arrived
func (r *TransactionRepository) ListDueRecurring(userID int64, asOf time.Time) ([]*domain.Transaction, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = $1 AND is_recurring AND next_recurring_date IS NOT NULL
		   AND next_recurring_date <= $2
		 ORDER BY next_recurring_date, id`,
		userID, asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// ChildExists reports whether a child for this parent and occurrence
// date was already spawned
func (r *TransactionRepository) ChildExists(userID, parentID int64, occurrenceDate time.Time) (bool, error) {
	ctx := context.Background()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND parent_transaction_id = $2 AND transaction_date = $3
		 )`,
		userID, parentID, occurrenceDate,
	).Scan(&exists)
	return exists, err
}

// ExistsForRegularPayment reports whether an expense row for this
// regular payment occurrence was already emitted
func (r *TransactionRepository) ExistsForRegularPayment(userID, regularPaymentID int64, occurrenceDate time.Time) (bool, error) {
	ctx := context.Background()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND regular_payment_id = $2 AND transaction_date = $3
		 )`,
		userID, regularPaymentID, occurrenceDate,
	).Scan(&exists)
	return exists, err
}

// CreateChildAndAdvance inserts the child row and advances the parent's
// next occurrence pointer in one transaction
func (r *TransactionRepository) CreateChildAndAdvance(child *domain.Transaction, parentID int64, next time.Time) (*domain.Transaction, error) {
	ctx := context.Background()

	args, err := insertTransactionArgs(child)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := scanTransaction(tx.QueryRow(ctx, insertTransactionSQL, args...))
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET next_recurring_date = $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3 AND is_recurring`,
		next, child.UserID, parentID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTransactionNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateForRegularPayment inserts the expense row and advances the
// regular payment's due date in one transaction
func (r *TransactionRepository) CreateForRegularPayment(t *domain.Transaction, regularPaymentID int64, next time.Time) (*domain.Transaction, error) {
	ctx := context.Background()

	args, err := insertTransactionArgs(t)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := scanTransaction(tx.QueryRow(ctx, insertTransactionSQL, args...))
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE regular_payments SET due_date = $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3`,
		next, t.UserID, regularPaymentID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrRegularPaymentNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}
