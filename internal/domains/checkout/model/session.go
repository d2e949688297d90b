package model

import (
	"fmt"

	address "storefront/internal/domains/address/model"
	"storefront/internal/domains/payment/gateway"
	"storefront/internal/shared"
)

type EventKind string

const (
	// EventAddressChanged carries a new PendingAddress from the selector
	EventAddressChanged EventKind = "address_changed"
	// EventAddressResolved carries the id of a new address created server-side
	EventAddressResolved EventKind = "address_resolved"
	EventMethodChosen    EventKind = "method_chosen"
	EventOrderCreated    EventKind = "order_created"
	// EventConfirmed ends a cash-on-delivery checkout
	EventConfirmed     EventKind = "confirmed"
	EventPaymentResult EventKind = "payment_result"
	// EventPaymentRetried carries a fresh client secret after a failed payment
	EventPaymentRetried EventKind = "payment_retried"
)

// Event drives Session.Apply. Only the fields of its Kind are read.
type Event struct {
	Kind EventKind

	Pending   address.PendingAddress
	AddressID shared.ID
	Method    shared.PaymentMethod
	Order     *Result
	Outcome   gateway.Outcome
	Message   string
	Secret    string
}

// Session is the explicit checkout state. It is a value: Apply returns the
// next session and never mutates the receiver.
type Session struct {
	State State

	Pending address.PendingAddress
	// AddressID is the resolved address: the selected saved one or the one
	// created from the new-address form
	AddressID shared.ID
	Method    shared.PaymentMethod

	OrderNumber     string
	ClientSecret    string
	CustomerDetails *CustomerDetails

	// PaymentMessage is the provider's message for the last card attempt
	PaymentMessage string
}

// NewSession starts with no address
func NewSession() Session {
	return Session{State: StateNoAddress, Pending: address.None()}
}

// Apply is the single transition function of the checkout flow.
func (s Session) Apply(e Event) (Session, error) {
	if s.State == "" {
		s.State = StateNoAddress
	}

	switch e.Kind {
	case EventAddressChanged:
		return s.changeAddress(e.Pending)

	case EventAddressResolved:
		if _, isNew := s.Pending.Fields(); !isNew || s.State.HasOrder() || e.AddressID.IsZero() {
			return s, s.invalid(e)
		}
		s.AddressID = e.AddressID
		return s, nil

	case EventMethodChosen:
		if !e.Method.Valid() {
			return s, ErrInvalidPaymentMethod
		}
		switch s.State {
		case StateAddressReady, StateMethodChosen:
			s.State = StateMethodChosen
			s.Method = e.Method
			return s, nil
		case StateNoAddress:
			return s, ErrNoAddress
		}
		return s, ErrOrderExists

	case EventOrderCreated:
		if s.State != StateMethodChosen || e.Order == nil {
			return s, s.invalid(e)
		}
		s.State = StateOrderCreated
		s.OrderNumber = e.Order.OrderNumber
		s.ClientSecret = e.Order.ClientSecret
		s.CustomerDetails = e.Order.CustomerDetails
		return s, nil

	case EventConfirmed:
		if s.State != StateOrderCreated || s.Method != shared.PaymentMethodCOD {
			return s, s.invalid(e)
		}
		s.State = StateConfirmed
		return s, nil

	case EventPaymentResult:
		if s.State != StateOrderCreated || s.Method != shared.PaymentMethodCard {
			return s, s.invalid(e)
		}
		switch e.Outcome {
		case gateway.OutcomeSucceeded:
			s.State = StatePaymentSucceeded
		case gateway.OutcomeFailed:
			s.State = StatePaymentFailed
		case gateway.OutcomeProcessing:
			s.State = StatePaymentProcessing
		default:
			return s, s.invalid(e)
		}
		s.PaymentMessage = e.Message
		return s, nil

	case EventPaymentRetried:
		if s.State != StatePaymentFailed || e.Secret == "" {
			return s, s.invalid(e)
		}
		if e.Secret == s.ClientSecret {
			return s, ErrSecretReused
		}
		s.State = StateOrderCreated
		s.ClientSecret = e.Secret
		s.PaymentMessage = ""
		return s, nil
	}

	return s, s.invalid(e)
}

// changeAddress discards method and order whenever the address differs.
// Re-emitting the same address is a no-op.
func (s Session) changeAddress(p address.PendingAddress) (Session, error) {
	if s.State.Terminal() {
		return s, ErrSessionClosed
	}
	if p.Equal(s.Pending) {
		return s, nil
	}

	next := NewSession()
	next.Pending = p
	if id, ok := p.AddressID(); ok {
		next.AddressID = id
	}
	if !p.IsNone() {
		next.State = StateAddressReady
	}
	return next, nil
}

func (s Session) invalid(e Event) error {
	return Wrap(ErrInvalidTransition, fmt.Errorf("%s in state %s", e.Kind, s.State))
}

// HasLiveSecret reports whether a card payment handle exists
func (s Session) HasLiveSecret() bool {
	return s.ClientSecret != "" && s.State.HasOrder()
}

// CanCheckout reports whether order creation may be attempted
func (s Session) CanCheckout() bool {
	if s.State != StateMethodChosen {
		return false
	}
	if !s.AddressID.IsZero() {
		return true
	}
	_, isNew := s.Pending.Fields()
	return isNew
}
