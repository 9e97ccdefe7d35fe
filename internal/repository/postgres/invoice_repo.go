package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invoiceColumns = `id, user_id, client_id, currency_id, number, issue_date, due_date,
	items, subtotal, vat_amount, tevkifat_applied, tevkifat_rate_code, tevkifat_amount,
	total, net_total, paid_amount, remaining_amount, status, paid_at,
	is_recurring, recurring_period, occurrences_remaining, parent_invoice_id,
	created_at, updated_at`

// InvoiceRepository implements domain.InvoiceRepository using PostgreSQL
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var items []byte
	var subtotal, vatAmount, tevkifatAmount, total, netTotal, paidAmount, remaining pgtype.Numeric
	var rateCode *string
	var period *string

	err := row.Scan(&inv.ID, &inv.UserID, &inv.ClientID, &inv.CurrencyID, &inv.Number,
		&inv.IssueDate, &inv.DueDate, &items, &subtotal, &vatAmount, &inv.TevkifatApplied,
		&rateCode, &tevkifatAmount, &total, &netTotal, &paidAmount, &remaining,
		&inv.Status, &inv.PaidAt, &inv.IsRecurring, &period, &inv.OccurrencesRemaining,
		&inv.ParentInvoiceID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, fmt.Errorf("malformed invoice items: %w", err)
		}
	}
	if rateCode != nil {
		inv.TevkifatRateCode = *rateCode
	}
	if period != nil {
		inv.RecurringPeriod = domain.RecurrencePeriod(*period)
	}
	inv.Subtotal = pgNumericToDecimal(subtotal)
	inv.VATAmount = pgNumericToDecimal(vatAmount)
	inv.TevkifatAmount = pgNumericToDecimal(tevkifatAmount)
	inv.Total = pgNumericToDecimal(total)
	inv.NetTotal = pgNumericToDecimal(netTotal)
	inv.PaidAmount = pgNumericToDecimal(paidAmount)
	inv.RemainingAmount = pgNumericToDecimal(remaining)
	return &inv, nil
}

// insertInvoice writes the invoice row inside tx and returns the stored row.
func insertInvoice(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) (*domain.Invoice, error) {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice items: %w", err)
	}

	nums := make([]pgtype.Numeric, 7)
	for i, d := range []interface{ String() string }{
		inv.Subtotal, inv.VATAmount, inv.TevkifatAmount, inv.Total,
		inv.NetTotal, inv.PaidAmount, inv.RemainingAmount,
	} {
		if err := nums[i].Scan(d.String()); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
	}

	var rateCode *string
	if inv.TevkifatRateCode != "" {
		rateCode = &inv.TevkifatRateCode
	}
	var period *string
	if inv.RecurringPeriod != "" {
		p := string(inv.RecurringPeriod)
		period = &p
	}

	return scanInvoice(tx.QueryRow(ctx,
		`INSERT INTO invoices (user_id, client_id, currency_id, number, issue_date, due_date,
			items, subtotal, vat_amount, tevkifat_applied, tevkifat_rate_code, tevkifat_amount,
			total, net_total, paid_amount, remaining_amount, status, paid_at,
			is_recurring, recurring_period, occurrences_remaining, parent_invoice_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		 RETURNING `+invoiceColumns,
		inv.UserID, inv.ClientID, inv.CurrencyID, inv.Number, inv.IssueDate, inv.DueDate,
		items, nums[0], nums[1], inv.TevkifatApplied, rateCode, nums[2],
		nums[3], nums[4], nums[5], nums[6], inv.Status, inv.PaidAt,
		inv.IsRecurring, period, inv.OccurrencesRemaining, inv.ParentInvoiceID,
	))
}

// insertReceivable writes the debt and pending balance rows for a newly
// inserted invoice, linking them to its id.
func insertReceivable(ctx context.Context, tx pgx.Tx, inv *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) error {
	if debt != nil {
		amount, err := decimalToPgNumeric(debt.Amount)
		if err != nil {
			return fmt.Errorf("invalid debt amount: %w", err)
		}
		paid, err := decimalToPgNumeric(debt.PaidAmount)
		if err != nil {
			return fmt.Errorf("invalid debt paid amount: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO debts (user_id, type, client_id, title, amount, paid_amount,
				currency_id, due_date, status, linked_invoice_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			debt.UserID, debt.Type, debt.ClientID, debt.Title, amount, paid,
			debt.CurrencyID, debt.DueDate, debt.Status, inv.ID,
		)
		if err != nil {
			return err
		}
	}
	if pending != nil {
		amount, err := decimalToPgNumeric(pending.Amount)
		if err != nil {
			return fmt.Errorf("invalid pending amount: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO pending_balances (user_id, client_id, invoice_id, amount, due_date, status)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			pending.UserID, pending.ClientID, inv.ID, amount, pending.DueDate, pending.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateWithReceivable persists the invoice and, when present, its
// receivable debt and pending balance in one transaction
func (r *InvoiceRepository) CreateWithReceivable(inv *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) (*domain.Invoice, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := insertInvoice(ctx, tx, inv)
	if err != nil {
		return nil, err
	}
	if err := insertReceivable(ctx, tx, created, debt, pending); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// SpawnChild creates a recurring child plus its receivable rows,
// advances the parent's dates to the child's, and decrements the
// parent's remaining occurrences, atomically
func (r *InvoiceRepository) SpawnChild(child *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) (*domain.Invoice, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := insertInvoice(ctx, tx, child)
	if err != nil {
		return nil, err
	}
	if err := insertReceivable(ctx, tx, created, debt, pending); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE invoices
		 SET issue_date = $1, due_date = $2,
		     occurrences_remaining = occurrences_remaining - 1,
		     updated_at = NOW()
		 WHERE user_id = $3 AND id = $4 AND occurrences_remaining > 0`,
		child.IssueDate, child.DueDate, child.UserID, *child.ParentInvoiceID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrOccurrencesExhausted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an invoice by its ID within a tenant
func (r *InvoiceRepository) GetByID(userID, id int64) (*domain.Invoice, error) {
	ctx := context.Background()

	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 AND id = $2`,
		userID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}

// GetByNumber retrieves an invoice by its number
func (r *InvoiceRepository) GetByNumber(userID int64, number string) (*domain.Invoice, error) {
	ctx := context.Background()

	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 AND number = $2`,
		userID, number,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}

// ListDueRecurring returns recurring invoices whose due date has arrived
// and which still have occurrences remaining
func (r *InvoiceRepository) ListDueRecurring(userID int64, asOf time.Time) ([]*domain.Invoice, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE user_id = $1 AND is_recurring AND occurrences_remaining > 0
		   AND due_date <= $2
		 ORDER BY due_date, id`,
		userID, asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ChildExists reports whether a child with the given parent and issue
// date was already spawned
func (r *InvoiceRepository) ChildExists(userID, parentID int64, issueDate time.Time) (bool, error) {
	ctx := context.Background()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE user_id = $1 AND parent_invoice_id = $2 AND issue_date = $3
		 )`,
		userID, parentID, issueDate,
	).Scan(&exists)
	return exists, err
}

// ApplyPayment commits every write of a payment application in one
// transaction: the invoice's payment fields, the income ledger row (new
// or linked), the receivable reduction, and the client balance increment
func (r *InvoiceRepository) ApplyPayment(params domain.ApplyPaymentParams) (*domain.Invoice, *domain.Transaction, error) {
	ctx := context.Background()

	newPaid, err := decimalToPgNumeric(params.NewPaidAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid paid amount: %w", err)
	}
	newRemaining, err := decimalToPgNumeric(params.NewRemainingAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid remaining amount: %w", err)
	}
	applied, err := decimalToPgNumeric(params.AppliedAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid applied amount: %w", err)
	}
	expectedPaid, err := decimalToPgNumeric(params.NewPaidAmount.Sub(params.AppliedAmount))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid expected paid amount: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	// Compare-and-set on the paid amount read by the caller, so two
	// payments racing on the same invoice cannot both apply against
	// the same remaining balance.
	updated, err := scanInvoice(tx.QueryRow(ctx,
		`UPDATE invoices
		 SET paid_amount = $1, remaining_amount = $2, status = $3, paid_at = $4,
		     updated_at = NOW()
		 WHERE user_id = $5 AND id = $6 AND paid_amount = $7
		 RETURNING `+invoiceColumns,
		newPaid, newRemaining, params.NewStatus, params.PaidAt,
		params.UserID, params.InvoiceID, expectedPaid,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			var exists bool
			if perr := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM invoices WHERE user_id = $1 AND id = $2)`,
				params.UserID, params.InvoiceID,
			).Scan(&exists); perr != nil {
				return nil, nil, perr
			}
			if exists {
				return nil, nil, domain.ErrConcurrencyConflict
			}
			return nil, nil, domain.ErrInvoiceNotFound
		}
		return nil, nil, err
	}

	var payment *domain.Transaction
	switch {
	case params.Payment != nil:
		args, aerr := insertTransactionArgs(params.Payment)
		if aerr != nil {
			return nil, nil, aerr
		}
		payment, err = scanTransaction(tx.QueryRow(ctx, insertTransactionSQL, args...))
		if err != nil {
			return nil, nil, err
		}
	case params.LinkTransactionID != nil:
		payment, err = scanTransaction(tx.QueryRow(ctx,
			`UPDATE transactions SET invoice_id = $1, updated_at = NOW()
			 WHERE user_id = $2 AND id = $3
			 RETURNING `+transactionColumns,
			params.InvoiceID, params.UserID, *params.LinkTransactionID,
		))
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, nil, domain.ErrTransactionNotFound
			}
			return nil, nil, err
		}
	}

	// Only a pending receivable tracks the payment; a cancelled one
	// keeps its history untouched.
	_, err = tx.Exec(ctx,
		`UPDATE debts
		 SET paid_amount = paid_amount + $1,
		     status = CASE WHEN paid_amount + $1 >= amount THEN 'paid' ELSE status END,
		     updated_at = NOW()
		 WHERE user_id = $2 AND linked_invoice_id = $3 AND status = 'pending'`,
		applied, params.UserID, params.InvoiceID,
	)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE pending_balances
		 SET amount = amount - $1,
		     status = CASE WHEN amount - $1 <= 0 THEN 'paid' ELSE status END,
		     updated_at = NOW()
		 WHERE user_id = $2 AND invoice_id = $3`,
		applied, params.UserID, params.InvoiceID,
	)
	if err != nil {
		return nil, nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE clients SET balance = balance + $1, updated_at = NOW()
		 WHERE user_id = $2 AND id = $3`,
		applied, params.UserID, params.ClientID,
	)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, domain.ErrClientNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return updated, payment, nil
}

// Delete removes the invoice, deletes its pending balance, and cancels
// the linked debt, in one transaction
func (r *InvoiceRepository) Delete(userID, id int64) error {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM pending_balances WHERE user_id = $1 AND invoice_id = $2`,
		userID, id,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE debts SET status = $1, updated_at = NOW()
		 WHERE user_id = $2 AND linked_invoice_id = $3`,
		domain.DebtStatusCancelled, userID, id,
	)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM invoices WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}

	return tx.Commit(ctx)
}
