package model

import (
	"errors"
	"fmt"
)

// AddressError is the base error of the address domain
type AddressError struct {
	Code    string
	Message string
	Err     error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// Is matches on code so wrapped copies still compare equal to the sentinels
func (e *AddressError) Is(target error) bool {
	var t *AddressError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrAddressNotFound = &AddressError{
		Code:    "ADDRESS_NOT_FOUND",
		Message: "Address not found",
	}

	ErrInvalidAddress = &AddressError{
		Code:    "INVALID_ADDRESS",
		Message: "Please correct the highlighted address fields",
	}

	ErrMissingAddressID = &AddressError{
		Code:    "ADDRESS_ID_MISSING",
		Message: "Address was created but the response carried no id",
	}

	ErrLoadFailed = &AddressError{
		Code:    "ADDRESS_LOAD_FAILED",
		Message: "Could not load your saved addresses",
	}
)

// Wrap attaches a cause to a sentinel
func Wrap(sentinel *AddressError, err error) *AddressError {
	return &AddressError{Code: sentinel.Code, Message: sentinel.Message, Err: err}
}
