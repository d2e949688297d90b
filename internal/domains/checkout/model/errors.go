package model

import (
	"errors"
	"fmt"
)

// CheckoutError is the base error of the checkout domain. Message is safe to
// show the shopper.
type CheckoutError struct {
	Code    string
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Is matches on code so wrapped copies compare equal to the sentinels
func (e *CheckoutError) Is(target error) bool {
	var t *CheckoutError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// ============================================
// CHECKOUT ERROR DEFINITIONS
// ============================================

var (
	ErrNoAddress = &CheckoutError{
		Code:    "NO_ADDRESS",
		Message: "Please select or provide a delivery address",
	}

	ErrNoPaymentMethod = &CheckoutError{
		Code:    "NO_PAYMENT_METHOD",
		Message: "Please choose a payment method",
	}

	ErrInvalidPaymentMethod = &CheckoutError{
		Code:    "INVALID_PAYMENT_METHOD",
		Message: "Unsupported payment method",
	}

	ErrAlreadyCheckedOut = &CheckoutError{
		Code:    "ALREADY_CHECKED_OUT",
		Message: "An order has already been created for this checkout",
	}

	ErrCheckoutInProgress = &CheckoutError{
		Code:    "CHECKOUT_IN_PROGRESS",
		Message: "Your order is being placed",
	}

	ErrAddressCreateFailed = &CheckoutError{
		Code:    "ADDRESS_CREATE_FAILED",
		Message: "We couldn't save your address. Please try again.",
	}

	ErrOrderCreateFailed = &CheckoutError{
		Code:    "ORDER_CREATE_FAILED",
		Message: "We couldn't place your order. Please try again.",
	}

	ErrContractViolation = &CheckoutError{
		Code:    "INVALID_ORDER_RESPONSE",
		Message: "We couldn't place your order. Please try again.",
	}

	ErrOrderExists = &CheckoutError{
		Code:    "ORDER_EXISTS",
		Message: "The order has already been created",
	}

	ErrNoClientSecret = &CheckoutError{
		Code:    "NO_CLIENT_SECRET",
		Message: "There is no payment to submit for this checkout",
	}

	ErrPaymentSubmitFailed = &CheckoutError{
		Code:    "PAYMENT_SUBMIT_FAILED",
		Message: "We couldn't submit your payment. Please try again.",
	}

	ErrRetryFailed = &CheckoutError{
		Code:    "PAYMENT_RETRY_FAILED",
		Message: "We couldn't restart your payment. Please try again.",
	}

	ErrSecretReused = &CheckoutError{
		Code:    "CLIENT_SECRET_REUSED",
		Message: "We couldn't restart your payment. Please try again.",
	}

	ErrSessionClosed = &CheckoutError{
		Code:    "CHECKOUT_CLOSED",
		Message: "This checkout is complete",
	}

	ErrInvalidTransition = &CheckoutError{
		Code:    "INVALID_TRANSITION",
		Message: "That action isn't available right now",
	}

	ErrAddressChanged = &CheckoutError{
		Code:    "ADDRESS_CHANGED",
		Message: "Your address changed while the order was being placed. Please check out again.",
	}

	ErrDetached = &CheckoutError{
		Code:    "CHECKOUT_DETACHED",
		Message: "The checkout screen was closed",
	}
)

// Wrap attaches a cause to a sentinel
func Wrap(sentinel *CheckoutError, err error) *CheckoutError {
	return &CheckoutError{Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

// WithMessage returns a copy of sentinel carrying a server-provided message
func WithMessage(sentinel *CheckoutError, message string, err error) *CheckoutError {
	return &CheckoutError{Code: sentinel.Code, Message: message, Err: err}
}

// UserMessage extracts the shopper-facing message of err
func UserMessage(err error) string {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ErrOrderCreateFailed.Message
}
