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

// PendingBalanceRepository implements domain.PendingBalanceRepository using PostgreSQL
type PendingBalanceRepository struct {
	pool *pgxpool.Pool
}

// NewPendingBalanceRepository creates a new PendingBalanceRepository
func NewPendingBalanceRepository(pool *pgxpool.Pool) *PendingBalanceRepository {
	return &PendingBalanceRepository{pool: pool}
}

func scanPendingBalance(row pgx.Row) (*domain.PendingBalance, error) {
	var pb domain.PendingBalance
	var amount pgtype.Numeric
	err := row.Scan(&pb.ID, &pb.UserID, &pb.ClientID, &pb.InvoiceID, &amount,
		&pb.DueDate, &pb.Status, &pb.CreatedAt, &pb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pb.Amount = pgNumericToDecimal(amount)
	return &pb, nil
}

// Create inserts a pending balance row
func (r *PendingBalanceRepository) Create(pb *domain.PendingBalance) (*domain.PendingBalance, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(pb.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO pending_balances (user_id, client_id, invoice_id, amount, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, client_id, invoice_id, amount, due_date, status, created_at, updated_at`,
		pb.UserID, pb.ClientID, pb.InvoiceID, amount, pb.DueDate, pb.Status,
	)
	return scanPendingBalance(row)
}

// GetByInvoiceID retrieves the pending balance for an invoice
func (r *PendingBalanceRepository) GetByInvoiceID(userID, invoiceID int64) (*domain.PendingBalance, error) {
	ctx := context.Background()

	pb, err := scanPendingBalance(r.pool.QueryRow(ctx,
		`SELECT id, user_id, client_id, invoice_id, amount, due_date, status, created_at, updated_at
		 FROM pending_balances WHERE user_id = $1 AND invoice_id = $2`,
		userID, invoiceID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPendingBalanceNotFound
		}
		return nil, err
	}
	return pb, nil
}

// Reduce subtracts an applied amount, flipping status once cleared
func (r *PendingBalanceRepository) Reduce(userID, invoiceID int64, amount decimal.Decimal) error {
	ctx := context.Background()

	applied, err := decimalToPgNumeric(amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE pending_balances
		 SET amount = amount - $1,
		     status = CASE WHEN amount - $1 <= 0 THEN 'paid' ELSE status END,
		     updated_at = NOW()
		 WHERE user_id = $2 AND invoice_id = $3`,
		applied, userID, invoiceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPendingBalanceNotFound
	}
	return nil
}

// DeleteByInvoiceID removes the pending balance for an invoice
func (r *PendingBalanceRepository) DeleteByInvoiceID(userID, invoiceID int64) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pending_balances WHERE user_id = $1 AND invoice_id = $2`,
		userID, invoiceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPendingBalanceNotFound
	}
	return nil
}
