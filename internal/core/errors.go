package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across services.
var (
	// ErrNotFound is returned when a referenced shop, supplier, product or
	// document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNumberCollision is returned when document number assignment keeps
	// colliding with concurrent writers after the retry budget is exhausted.
	// The whole request may be retried by the caller.
	ErrNumberCollision = errors.New("document number collision: retry budget exhausted")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError is raised when a consumption would exceed the
// quantity on hand, either at the cheap pre-check or at the final
// in-transaction guard.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// CreditLimitExceededError is raised by the credit gate when a prospective
// credit document would push the shop past its available credit.
type CreditLimitExceededError struct {
	ShopID          int64
	ShopName        string
	AvailableCredit decimal.Decimal
	Requested       decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded for shop %q: available credit %s, requested %s",
		e.ShopName, e.AvailableCredit.StringFixed(2), e.Requested.StringFixed(2))
}

// OverduePaymentsError is raised by the credit gate when the shop has unpaid
// receivables past their due date. It blocks any new credit document
// regardless of the requested amount.
type OverduePaymentsError struct {
	ShopID        int64
	ShopName      string
	OverdueCount  int
	OverdueAmount decimal.Decimal
}

func (e *OverduePaymentsError) Error() string {
	return fmt.Sprintf("shop %q has %d overdue payment(s) totalling %s: settle them before creating credit documents",
		e.ShopName, e.OverdueCount, e.OverdueAmount.StringFixed(2))
}
