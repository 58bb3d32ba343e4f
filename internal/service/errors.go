package service

import (
	"errors"
	"fmt"

	"invoicegen/internal/calc"
	"invoicegen/internal/reconcile"

	"gorm.io/gorm"
)

var (
	// ErrNotFound covers records that do not exist and records owned by another tenant.
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("plan limit reached")
	ErrConflict          = errors.New("conflicting concurrent update, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("invalid email or password")
)

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// QuotaExceededError names the limit that was hit. It matches ErrQuotaExceeded with errors.Is.
type QuotaExceededError struct {
	Limit  string // invoices_per_month, businesses, subscription or feature:<name>
	Max    int
	Used   int64
	Reason string
}

func (e *QuotaExceededError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", ErrQuotaExceeded, e.Reason)
	}
	return fmt.Sprintf("%s: %s allows %d, %d used; upgrade your plan to continue", ErrQuotaExceeded, e.Limit, e.Max, e.Used)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// translate maps storage and domain errors onto the service taxonomy.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var fe *calc.FieldError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	case errors.As(err, &fe):
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	case errors.Is(err, reconcile.ErrOverpayment), errors.Is(err, reconcile.ErrNonPositiveAmount), errors.Is(err, reconcile.ErrNegativePaid):
		return &ValidationError{Field: "amount", Message: err.Error()}
	case errors.Is(err, reconcile.ErrInvoiceClosed):
		return fmt.Errorf("%s: %w: %v", what, ErrInvalidTransition, err)
	}
	return err
}
