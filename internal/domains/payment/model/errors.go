package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrMissingOrderNumber  = errors.New("order number is missing from the payment link")
	ErrOrderNotFound       = errors.New("order not found")
	ErrMissingClientSecret = errors.New("payment retry returned no client secret")
	ErrSecretReused        = errors.New("payment retry returned the previous client secret")
	ErrRetryNotAllowed     = errors.New("payment can only be retried after a failed attempt")
	ErrDetached            = errors.New("verification screen was closed")
)

// User-facing fallbacks
const (
	MsgVerifyFailed = "We couldn't verify your payment. Please try again."
	MsgRetryFailed  = "We couldn't restart your payment. Please try again."
	MsgMissingOrder = "This payment link is missing its order number."
)

const (
	ErrCodeVerifyFailed = "PAYMENT_VERIFY_FAILED"
	ErrCodeRetryFailed  = "PAYMENT_RETRY_FAILED"
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
