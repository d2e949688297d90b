package model

import (
	"errors"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"storefront/internal/shared"
)

// CreateOrderRequest is sent to the order-creation endpoint
type CreateOrderRequest struct {
	Address       shared.ID            `json:"address"`
	PaymentMethod shared.PaymentMethod `json:"payment_method"`
}

type CustomerDetails struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CreateOrderResponse is the order-creation payload. All three fields are
// required; a 2xx without them is a failed checkout.
type CreateOrderResponse struct {
	OrderNumber     string           `json:"order_number" validate:"required"`
	ClientSecret    string           `json:"client_secret" validate:"required"`
	CustomerDetails *CustomerDetails `json:"customer_details" validate:"required"`
}

// Result of a successful checkout
type Result struct {
	OrderNumber     string
	ClientSecret    string
	Method          shared.PaymentMethod
	AddressID       shared.ID
	CustomerDetails *CustomerDetails
}

// NewValidator returns the validator for the order-creation contract.
// Field errors are reported under their json names.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MissingFields lists the fields that failed validation
func MissingFields(err error) []string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field())
	}
	return out
}
