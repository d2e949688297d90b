package gateway

import "context"

// =====================================================
// CARD CONFIRMATION
// =====================================================

// Outcome of a card confirmation as reported by the payment provider
type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
	OutcomeProcessing Outcome = "processing"
)

// Card is what the payment form collects. Token is the provider's
// tokenised card reference; raw card numbers never reach this code.
type Card struct {
	Token      string
	HolderName string
	Postcode   string
}

// ConfirmResult is the provider's answer to a confirmation
type ConfirmResult struct {
	Outcome Outcome
	// Message is the provider's decline reason, if any
	Message string
}

// Confirmer confirms a card payment against a client secret. It is a black
// box: the provider decides the outcome.
type Confirmer interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, card Card) (*ConfirmResult, error)
}
