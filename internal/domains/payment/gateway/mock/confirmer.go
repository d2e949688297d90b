package mock

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/domains/payment/gateway"
)

// =====================================================
// MOCK CARD CONFIRMER FOR TESTING
// =====================================================

// Tokens with a scripted outcome. Any other token succeeds.
const (
	TokenDeclined   = "tok_declined"
	TokenProcessing = "tok_processing"
	TokenSucceeded  = "tok_visa"
)

type MockConfirmer struct {
	mu          sync.Mutex
	shouldError bool
	outcomes    map[string]gateway.Outcome
	secrets     []string
}

func NewMockConfirmer() *MockConfirmer {
	return &MockConfirmer{
		outcomes: map[string]gateway.Outcome{
			TokenDeclined:   gateway.OutcomeFailed,
			TokenProcessing: gateway.OutcomeProcessing,
			TokenSucceeded:  gateway.OutcomeSucceeded,
		},
	}
}

func (m *MockConfirmer) ConfirmCardPayment(
	ctx context.Context,
	clientSecret string,
	card gateway.Card,
) (*gateway.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets = append(m.secrets, clientSecret)
	if m.shouldError {
		return nil, fmt.Errorf("mock confirmation failed")
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("mock confirmation: empty client secret")
	}

	outcome, ok := m.outcomes[card.Token]
	if !ok {
		outcome = gateway.OutcomeSucceeded
	}

	result := &gateway.ConfirmResult{Outcome: outcome}
	if outcome == gateway.OutcomeFailed {
		result.Message = "Your card was declined."
	}
	return result, nil
}

// SetError makes every confirmation fail at the transport level
func (m *MockConfirmer) SetError(shouldError bool) {
	m.mu.Lock()
	m.shouldError = shouldError
	m.mu.Unlock()
}

// SetOutcome scripts the outcome for a card token
func (m *MockConfirmer) SetOutcome(token string, outcome gateway.Outcome) {
	m.mu.Lock()
	m.outcomes[token] = outcome
	m.mu.Unlock()
}

// Secrets returns every client secret confirmed so far
func (m *MockConfirmer) Secrets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.secrets...)
}

var _ gateway.Confirmer = (*MockConfirmer)(nil)
