package testutil

import (
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/util"
	"github.com/shopspring/decimal"
)

// MockCurrencyRepository is a mock implementation of domain.CurrencyRepository
type MockCurrencyRepository struct {
	Currencies map[int64]*domain.Currency
}

// NewMockCurrencyRepository creates a new MockCurrencyRepository
func NewMockCurrencyRepository() *MockCurrencyRepository {
	return &MockCurrencyRepository{Currencies: make(map[int64]*domain.Currency)}
}

// GetByID retrieves a currency by ID
func (m *MockCurrencyRepository) GetByID(id int64) (*domain.Currency, error) {
	if c, ok := m.Currencies[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCurrencyNotFound
}

// List returns all currencies, optionally only active ones
func (m *MockCurrencyRepository) List(activeOnly bool) ([]*domain.Currency, error) {
	out := make([]*domain.Currency, 0, len(m.Currencies))
	for _, c := range m.Currencies {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AddCurrency adds a currency to the mock repository (helper for tests)
func (m *MockCurrencyRepository) AddCurrency(c *domain.Currency) {
	m.Currencies[c.ID] = c
}

// MockClientRepository is a mock implementation of domain.ClientRepository
type MockClientRepository struct {
	Clients map[int64]*domain.Client
	NextID  int64
}

// NewMockClientRepository creates a new MockClientRepository
func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{Clients: make(map[int64]*domain.Client), NextID: 1}
}

// GetByID retrieves a client by ID
func (m *MockClientRepository) GetByID(userID, id int64) (*domain.Client, error) {
	if c, ok := m.Clients[id]; ok && c.UserID == userID {
		return c, nil
	}
	return nil, domain.ErrClientNotFound
}

// IncrementBalance applies a delta to the client's running balance
func (m *MockClientRepository) IncrementBalance(userID, id int64, delta decimal.Decimal) error {
	c, ok := m.Clients[id]
	if !ok || c.UserID != userID {
		return domain.ErrClientNotFound
	}
	c.Balance = c.Balance.Add(delta)
	return nil
}

// AddClient adds a client to the mock repository (helper for tests)
func (m *MockClientRepository) AddClient(c *domain.Client) {
	if c.ID == 0 {
		c.ID = m.NextID
		m.NextID++
	}
	m.Clients[c.ID] = c
}

// MockTenantRepository is a mock implementation of domain.TenantRepository
type MockTenantRepository struct {
	UserIDs []int64
}

// ListUserIDs returns the configured tenant ids
func (m *MockTenantRepository) ListUserIDs() ([]int64, error) {
	return m.UserIDs, nil
}

// MockDebtRepository is a mock implementation of domain.DebtRepository
type MockDebtRepository struct {
	Debts    map[int64]*domain.Debt
	NextID   int64
	CreateFn func(d *domain.Debt) (*domain.Debt, error)
	ReduceFn func(userID, id int64, amount decimal.Decimal) (*domain.Debt, error)
}

// NewMockDebtRepository creates a new MockDebtRepository
func NewMockDebtRepository() *MockDebtRepository {
	return &MockDebtRepository{Debts: make(map[int64]*domain.Debt), NextID: 1}
}

// Create inserts a debt
func (m *MockDebtRepository) Create(d *domain.Debt) (*domain.Debt, error) {
	if m.CreateFn != nil {
		return m.CreateFn(d)
	}
	d.ID = m.NextID
	m.NextID++
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.Debts[d.ID] = d
	return d, nil
}

// GetByID retrieves a debt by ID
func (m *MockDebtRepository) GetByID(userID, id int64) (*domain.Debt, error) {
	if d, ok := m.Debts[id]; ok && d.UserID == userID {
		return d, nil
	}
	return nil, domain.ErrDebtNotFound
}

// GetByInvoiceID retrieves the debt linked to an invoice
func (m *MockDebtRepository) GetByInvoiceID(userID, invoiceID int64) (*domain.Debt, error) {
	for _, d := range m.Debts {
		if d.UserID == userID && d.LinkedInvoiceID != nil && *d.LinkedInvoiceID == invoiceID {
			return d, nil
		}
	}
	return nil, domain.ErrDebtNotFound
}

// ListOutstandingDueBefore returns pending debts due on or before the given instant
func (m *MockDebtRepository) ListOutstandingDueBefore(userID int64, before time.Time) ([]*domain.Debt, error) {
	out := make([]*domain.Debt, 0)
	for _, d := range m.Debts {
		if d.UserID == userID && d.Status == domain.DebtStatusPending && !d.DueDate.After(before) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Reduce adds to the paid amount, flipping status once covered
func (m *MockDebtRepository) Reduce(userID, id int64, amount decimal.Decimal) (*domain.Debt, error) {
	if m.ReduceFn != nil {
		return m.ReduceFn(userID, id, amount)
	}
	d, err := m.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	d.PaidAmount = d.PaidAmount.Add(amount)
	if d.PaidAmount.GreaterThanOrEqual(d.Amount) {
		d.Status = domain.DebtStatusPaid
	}
	d.UpdatedAt = time.Now()
	return d, nil
}

// Cancel marks a debt cancelled
func (m *MockDebtRepository) Cancel(userID, id int64) error {
	d, err := m.GetByID(userID, id)
	if err != nil {
		return err
	}
	d.Status = domain.DebtStatusCancelled
	return nil
}

// Delete removes a debt
func (m *MockDebtRepository) Delete(userID, id int64) error {
	if _, err := m.GetByID(userID, id); err != nil {
		return err
	}
	delete(m.Debts, id)
	return nil
}

// AddDebt adds a debt to the mock repository (helper for tests)
func (m *MockDebtRepository) AddDebt(d *domain.Debt) {
	if d.ID == 0 {
		d.ID = m.NextID
		m.NextID++
	}
	m.Debts[d.ID] = d
}

// MockPendingBalanceRepository is a mock implementation of domain.PendingBalanceRepository
type MockPendingBalanceRepository struct {
	Balances map[int64]*domain.PendingBalance // keyed by invoice ID
	NextID   int64
}

// NewMockPendingBalanceRepository creates a new MockPendingBalanceRepository
func NewMockPendingBalanceRepository() *MockPendingBalanceRepository {
	return &MockPendingBalanceRepository{Balances: make(map[int64]*domain.PendingBalance), NextID: 1}
}

// Create inserts a pending balance row
func (m *MockPendingBalanceRepository) Create(pb *domain.PendingBalance) (*domain.PendingBalance, error) {
	pb.ID = m.NextID
	m.NextID++
	m.Balances[pb.InvoiceID] = pb
	return pb, nil
}

// GetByInvoiceID retrieves the pending balance for an invoice
func (m *MockPendingBalanceRepository) GetByInvoiceID(userID, invoiceID int64) (*domain.PendingBalance, error) {
	if pb, ok := m.Balances[invoiceID]; ok && pb.UserID == userID {
		return pb, nil
	}
	return nil, domain.ErrPendingBalanceNotFound
}

// Reduce subtracts an applied amount, flipping status once cleared
func (m *MockPendingBalanceRepository) Reduce(userID, invoiceID int64, amount decimal.Decimal) error {
	pb, err := m.GetByInvoiceID(userID, invoiceID)
	if err != nil {
		return err
	}
	pb.Amount = pb.Amount.Sub(amount)
	if !pb.Amount.IsPositive() {
		pb.Status = "paid"
	}
	return nil
}

// DeleteByInvoiceID removes the pending balance for an invoice
func (m *MockPendingBalanceRepository) DeleteByInvoiceID(userID, invoiceID int64) error {
	if _, err := m.GetByInvoiceID(userID, invoiceID); err != nil {
		return err
	}
	delete(m.Balances, invoiceID)
	return nil
}

// MockRegularPaymentRepository is a mock implementation of domain.RegularPaymentRepository
type MockRegularPaymentRepository struct {
	Payments map[int64]*domain.RegularPayment
	NextID   int64
}

// NewMockRegularPaymentRepository creates a new MockRegularPaymentRepository
func NewMockRegularPaymentRepository() *MockRegularPaymentRepository {
	return &MockRegularPaymentRepository{Payments: make(map[int64]*domain.RegularPayment), NextID: 1}
}

// Create inserts a regular payment
func (m *MockRegularPaymentRepository) Create(rp *domain.RegularPayment) (*domain.RegularPayment, error) {
	rp.ID = m.NextID
	m.NextID++
	m.Payments[rp.ID] = rp
	return rp, nil
}

// GetByID retrieves a regular payment by ID
func (m *MockRegularPaymentRepository) GetByID(userID, id int64) (*domain.RegularPayment, error) {
	if rp, ok := m.Payments[id]; ok && rp.UserID == userID {
		return rp, nil
	}
	return nil, domain.ErrRegularPaymentNotFound
}

// ListDue returns active payments whose due date has arrived
func (m *MockRegularPaymentRepository) ListDue(userID int64, asOf time.Time) ([]*domain.RegularPayment, error) {
	out := make([]*domain.RegularPayment, 0)
	for _, rp := range m.Payments {
		if rp.UserID == userID && rp.IsActive && !rp.DueDate.After(asOf) {
			out = append(out, rp)
		}
	}
	return out, nil
}

// ListDueBetween returns active payments due inside a window
func (m *MockRegularPaymentRepository) ListDueBetween(userID int64, from, to time.Time) ([]*domain.RegularPayment, error) {
	out := make([]*domain.RegularPayment, 0)
	for _, rp := range m.Payments {
		if rp.UserID == userID && rp.IsActive && !rp.DueDate.Before(from) && !rp.DueDate.After(to) {
			out = append(out, rp)
		}
	}
	return out, nil
}

// AdvanceDueDate moves the payment to its next occurrence
func (m *MockRegularPaymentRepository) AdvanceDueDate(userID, id int64, next time.Time) error {
	rp, err := m.GetByID(userID, id)
	if err != nil {
		return err
	}
	rp.DueDate = next
	return nil
}

// Update replaces a regular payment
func (m *MockRegularPaymentRepository) Update(rp *domain.RegularPayment) (*domain.RegularPayment, error) {
	if _, ok := m.Payments[rp.ID]; !ok {
		return nil, domain.ErrRegularPaymentNotFound
	}
	m.Payments[rp.ID] = rp
	return rp, nil
}

// Delete removes a regular payment
func (m *MockRegularPaymentRepository) Delete(userID, id int64) error {
	if _, err := m.GetByID(userID, id); err != nil {
		return err
	}
	delete(m.Payments, id)
	return nil
}

// AddRegularPayment adds a payment to the mock repository (helper for tests)
func (m *MockRegularPaymentRepository) AddRegularPayment(rp *domain.RegularPayment) {
	if rp.ID == 0 {
		rp.ID = m.NextID
		m.NextID++
	}
	m.Payments[rp.ID] = rp
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository.
// Set RegularPaymentRepo to mirror the storage-side due date advance.
type MockTransactionRepository struct {
	Transactions       map[int64]*domain.Transaction
	NextID             int64
	RegularPaymentRepo *MockRegularPaymentRepository

	CreateChildAndAdvanceFn   func(child *domain.Transaction, parentID int64, next time.Time) (*domain.Transaction, error)
	CreateForRegularPaymentFn func(t *domain.Transaction, regularPaymentID int64, next time.Time) (*domain.Transaction, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: make(map[int64]*domain.Transaction), NextID: 1}
}

// Create inserts a transaction
func (m *MockTransactionRepository) Create(t *domain.Transaction) (*domain.Transaction, error) {
	t.ID = m.NextID
	m.NextID++
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.Transactions[t.ID] = t
	return t, nil
}

// GetByID retrieves a transaction by ID
func (m *MockTransactionRepository) GetByID(userID, id int64) (*domain.Transaction, error) {
	if t, ok := m.Transactions[id]; ok && t.UserID == userID {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

// ListDueRecurring returns recurring parents whose next occurrence has arrived
func (m *MockTransactionRepository) ListDueRecurring(userID int64, asOf time.Time) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	for _, t := range m.Transactions {
		if t.UserID == userID && t.IsRecurring && t.NextRecurringDate != nil && !t.NextRecurringDate.After(asOf) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ChildExists reports whether a child was already spawned for this occurrence
func (m *MockTransactionRepository) ChildExists(userID, parentID int64, occurrenceDate time.Time) (bool, error) {
	for _, t := range m.Transactions {
		if t.UserID == userID && t.ParentTransactionID != nil && *t.ParentTransactionID == parentID &&
			util.SameDay(t.TransactionDate, occurrenceDate) {
			return true, nil
		}
	}
	return false, nil
}

// ExistsForRegularPayment reports whether this occurrence was already emitted
func (m *MockTransactionRepository) ExistsForRegularPayment(userID, regularPaymentID int64, occurrenceDate time.Time) (bool, error) {
	for _, t := range m.Transactions {
		if t.UserID == userID && t.RegularPaymentID != nil && *t.RegularPaymentID == regularPaymentID &&
			util.SameDay(t.TransactionDate, occurrenceDate) {
			return true, nil
		}
	}
	return false, nil
}

// CreateChildAndAdvance inserts the child and advances the parent pointer
func (m *MockTransactionRepository) CreateChildAndAdvance(child *domain.Transaction, parentID int64, next time.Time) (*domain.Transaction, error) {
	if m.CreateChildAndAdvanceFn != nil {
		return m.CreateChildAndAdvanceFn(child, parentID, next)
	}
	parent, ok := m.Transactions[parentID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	created, err := m.Create(child)
	if err != nil {
		return nil, err
	}
	n := next
	parent.NextRecurringDate = &n
	return created, nil
}

// CreateForRegularPayment inserts the expense and advances the payment's due date
func (m *MockTransactionRepository) CreateForRegularPayment(t *domain.Transaction, regularPaymentID int64, next time.Time) (*domain.Transaction, error) {
	if m.CreateForRegularPaymentFn != nil {
		return m.CreateForRegularPaymentFn(t, regularPaymentID, next)
	}
	created, err := m.Create(t)
	if err != nil {
		return nil, err
	}
	if m.RegularPaymentRepo != nil {
		if err := m.RegularPaymentRepo.AdvanceDueDate(t.UserID, regularPaymentID, next); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(t *domain.Transaction) {
	if t.ID == 0 {
		t.ID = m.NextID
		m.NextID++
	}
	m.Transactions[t.ID] = t
}

// MockInvoiceRepository is a mock implementation of domain.InvoiceRepository.
// Wire the optional repo fields to mirror the cross-row writes the real
// implementation commits in one transaction.
type MockInvoiceRepository struct {
	Invoices map[int64]*domain.Invoice
	NextID   int64

	DebtRepo        *MockDebtRepository
	PendingRepo     *MockPendingBalanceRepository
	ClientRepo      *MockClientRepository
	TransactionRepo *MockTransactionRepository

	ApplyPaymentFn func(params domain.ApplyPaymentParams) (*domain.Invoice, *domain.Transaction, error)
	SpawnChildFn   func(child *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) (*domain.Invoice, error)
}

// NewMockInvoiceRepository creates a new MockInvoiceRepository
func NewMockInvoiceRepository() *MockInvoiceRepository {
	return &MockInvoiceRepository{Invoices: make(map[int64]*domain.Invoice), NextID: 1}
}

// CreateWithReceivable persists the invoice and its receivable rows
func (m *MockInvoiceRepository) CreateWithReceivable(inv *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) (*domain.Invoice, error) {
	inv.ID = m.NextID
	m.NextID++
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.Invoices[inv.ID] = inv
	m.linkReceivable(inv, debt, pending)
	return inv, nil
}

// SpawnChild creates a recurring child and advances the parent
func (m *MockInvoiceRepository) SpawnChild(child *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) (*domain.Invoice, error) {
	if m.SpawnChildFn != nil {
		return m.SpawnChildFn(child, debt, pending)
	}
	parent, ok := m.Invoices[*child.ParentInvoiceID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	created, err := m.CreateWithReceivable(child, debt, pending)
	if err != nil {
		return nil, err
	}
	parent.IssueDate = child.IssueDate
	parent.DueDate = child.DueDate
	parent.OccurrencesRemaining--
	return created, nil
}

func (m *MockInvoiceRepository) linkReceivable(inv *domain.Invoice, debt *domain.Debt, pending *domain.PendingBalance) {
	if debt != nil {
		invID := inv.ID
		debt.LinkedInvoiceID = &invID
		if m.DebtRepo != nil {
			m.DebtRepo.AddDebt(debt)
		}
	}
	if pending != nil {
		pending.InvoiceID = inv.ID
		if m.PendingRepo != nil {
			pending.ID = m.PendingRepo.NextID
			m.PendingRepo.NextID++
			m.PendingRepo.Balances[pending.InvoiceID] = pending
		}
	}
}

// GetByID retrieves an invoice by ID
func (m *MockInvoiceRepository) GetByID(userID, id int64) (*domain.Invoice, error) {
	if inv, ok := m.Invoices[id]; ok && inv.UserID == userID {
		return inv, nil
	}
	return nil, domain.ErrInvoiceNotFound
}

// GetByNumber retrieves an invoice by its number
func (m *MockInvoiceRepository) GetByNumber(userID int64, number string) (*domain.Invoice, error) {
	for _, inv := range m.Invoices {
		if inv.UserID == userID && inv.Number == number {
			return inv, nil
		}
	}
	return nil, domain.ErrInvoiceNotFound
}

// ListDueRecurring returns recurring invoices due with occurrences remaining
func (m *MockInvoiceRepository) ListDueRecurring(userID int64, asOf time.Time) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0)
	for _, inv := range m.Invoices {
		if inv.UserID == userID && inv.IsRecurring && inv.OccurrencesRemaining > 0 && !inv.DueDate.After(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ChildExists reports whether a child was already spawned for this issue date
func (m *MockInvoiceRepository) ChildExists(userID, parentID int64, issueDate time.Time) (bool, error) {
	for _, inv := range m.Invoices {
		if inv.UserID == userID && inv.ParentInvoiceID != nil && *inv.ParentInvoiceID == parentID &&
			util.SameDay(inv.IssueDate, issueDate) {
			return true, nil
		}
	}
	return false, nil
}

// ApplyPayment commits every write of a payment application
func (m *MockInvoiceRepository) ApplyPayment(params domain.ApplyPaymentParams) (*domain.Invoice, *domain.Transaction, error) {
	if m.ApplyPaymentFn != nil {
		return m.ApplyPaymentFn(params)
	}
	inv, err := m.GetByID(params.UserID, params.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	// Same compare-and-set the real repository runs
	if !inv.PaidAmount.Equal(params.NewPaidAmount.Sub(params.AppliedAmount)) {
		return nil, nil, domain.ErrConcurrencyConflict
	}

	inv.PaidAmount = params.NewPaidAmount
	inv.RemainingAmount = params.NewRemainingAmount
	inv.Status = params.NewStatus
	inv.PaidAt = params.PaidAt
	inv.UpdatedAt = time.Now()

	var payment *domain.Transaction
	switch {
	case params.Payment != nil:
		payment = params.Payment
		if m.TransactionRepo != nil {
			if payment, err = m.TransactionRepo.Create(payment); err != nil {
				return nil, nil, err
			}
		}
	case params.LinkTransactionID != nil && m.TransactionRepo != nil:
		payment, err = m.TransactionRepo.GetByID(params.UserID, *params.LinkTransactionID)
		if err != nil {
			return nil, nil, err
		}
		invID := inv.ID
		payment.InvoiceID = &invID
	}

	if m.DebtRepo != nil {
		// Only a pending receivable tracks the payment, same as the
		// real repository's guarded update.
		if debt, derr := m.DebtRepo.GetByInvoiceID(params.UserID, inv.ID); derr == nil && debt.Status == domain.DebtStatusPending {
			if _, rerr := m.DebtRepo.Reduce(params.UserID, debt.ID, params.AppliedAmount); rerr != nil {
				return nil, nil, rerr
			}
		}
	}
	if m.PendingRepo != nil {
		if _, perr := m.PendingRepo.GetByInvoiceID(params.UserID, inv.ID); perr == nil {
			if rerr := m.PendingRepo.Reduce(params.UserID, inv.ID, params.AppliedAmount); rerr != nil {
				return nil, nil, rerr
			}
		}
	}
	if m.ClientRepo != nil {
		if cerr := m.ClientRepo.IncrementBalance(params.UserID, params.ClientID, params.AppliedAmount); cerr != nil {
			return nil, nil, cerr
		}
	}
	return inv, payment, nil
}

// Delete removes the invoice, deletes its pending balance, and cancels
// the linked debt
func (m *MockInvoiceRepository) Delete(userID, id int64) error {
	inv, err := m.GetByID(userID, id)
	if err != nil {
		return err
	}
	if m.PendingRepo != nil {
		_ = m.PendingRepo.DeleteByInvoiceID(userID, inv.ID)
	}
	if m.DebtRepo != nil {
		if debt, derr := m.DebtRepo.GetByInvoiceID(userID, inv.ID); derr == nil {
			_ = m.DebtRepo.Cancel(userID, debt.ID)
		}
	}
	delete(m.Invoices, id)
	return nil
}

// AddInvoice adds an invoice to the mock repository (helper for tests)
func (m *MockInvoiceRepository) AddInvoice(inv *domain.Invoice) {
	if inv.ID == 0 {
		inv.ID = m.NextID
		m.NextID++
	}
	m.Invoices[inv.ID] = inv
}

// MockQuoteRepository is a mock implementation of domain.QuoteRepository
type MockQuoteRepository struct {
	Quotes map[int64]*domain.Quote
	NextID int64
}

// NewMockQuoteRepository creates a new MockQuoteRepository
func NewMockQuoteRepository() *MockQuoteRepository {
	return &MockQuoteRepository{Quotes: make(map[int64]*domain.Quote), NextID: 1}
}

// GetByID retrieves a quote by ID
func (m *MockQuoteRepository) GetByID(userID, id int64) (*domain.Quote, error) {
	if q, ok := m.Quotes[id]; ok && q.UserID == userID {
		return q, nil
	}
	return nil, domain.ErrQuoteNotFound
}

// ListByStatus returns quotes in the given status
func (m *MockQuoteRepository) ListByStatus(userID int64, status domain.QuoteStatus) ([]*domain.Quote, error) {
	out := make([]*domain.Quote, 0)
	for _, q := range m.Quotes {
		if q.UserID == userID && q.Status == status {
			out = append(out, q)
		}
	}
	return out, nil
}

// AddQuote adds a quote to the mock repository (helper for tests)
func (m *MockQuoteRepository) AddQuote(q *domain.Quote) {
	if q.ID == 0 {
		q.ID = m.NextID
		m.NextID++
	}
	m.Quotes[q.ID] = q
}
