package model

import (
	"errors"
	"fmt"
)

const (
	ErrCodeFetchFailed  = "CART_FETCH_FAILED"
	ErrCodeAddFailed    = "CART_ADD_FAILED"
	ErrCodeUpdateFailed = "CART_UPDATE_FAILED"
	ErrCodeRemoveFailed = "CART_REMOVE_FAILED"
	ErrCodeClearFailed  = "CART_CLEAR_FAILED"
)

// User-facing fallbacks when the server sends no message
const (
	MsgFetchFailed   = "Could not load your cart. Please try again."
	MsgAddFailed     = "Failed to add item to cart"
	MsgUpdateFailed  = "Failed to update quantity"
	MsgRemoveFailed  = "Failed to remove item from cart"
	MsgClearFailed   = "Failed to clear cart"
	MsgItemAdded     = "Item added to cart"
	MsgAlreadyInCart = "This item is already in your cart, updating the quantity"
	MsgCartCleared   = "Cart cleared"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartError is a failed cart operation. Message is safe to show the shopper.
type CartError struct {
	Code    string
	Message string
	Err     error
}

func (e *CartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CartError) Unwrap() error {
	return e.Err
}

func NewCartError(code, message string, err error) *CartError {
	return &CartError{Code: code, Message: message, Err: err}
}
