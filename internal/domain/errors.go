package domain

import "errors"

// Domain errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternalError          = errors.New("internal error")
	ErrClientNotFound         = errors.New("client not found")
	ErrCurrencyNotFound       = errors.New("currency not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrDebtNotFound           = errors.New("debt not found")
	ErrPendingBalanceNotFound = errors.New("pending balance not found")
	ErrRegularPaymentNotFound = errors.New("regular payment not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrQuoteNotFound          = errors.New("quote not found")

	ErrInvalidLineItem      = errors.New("invalid line item")
	ErrUnknownTevkifatRate  = errors.New("unknown tevkifat rate code")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidPeriod        = errors.New("invalid recurrence period")
	ErrInvalidStatus        = errors.New("invalid invoice status")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title exceeds maximum length")
	ErrInvalidDebtType      = errors.New("invalid debt type")
	ErrInvoiceAlreadyPaid   = errors.New("invoice is already paid")
	ErrOverpayment          = errors.New("payment exceeds remaining amount")
	ErrConcurrencyConflict  = errors.New("concurrent update conflict")
	ErrOccurrencesExhausted = errors.New("no recurring occurrences remaining")
)

// Validation constants
const (
	MaxTitleLength = 255
)
