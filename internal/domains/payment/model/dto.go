package model

import "github.com/shopspring/decimal"

// VerifyResponse is the verify endpoint's payload
type VerifyResponse struct {
	OrderNumber   string           `json:"order_number"`
	Status        string           `json:"status"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Message       string           `json:"message,omitempty"`
}

type RetryRequest struct {
	OrderNumber string `json:"order_number"`
}

type RetryResponse struct {
	ClientSecret string `json:"client_secret"`
}
