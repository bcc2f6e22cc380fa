package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrGateway            = errors.New("gateway error")
	ErrSignatureMismatch  = errors.New("invalid signature")
	ErrDuplicatePayment   = errors.New("payment already recorded")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrPaymentNotVerified = errors.New("payment not verified")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// Validationf wraps ErrValidation with a client-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
