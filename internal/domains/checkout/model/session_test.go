package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	address "storefront/internal/domains/address/model"
	"storefront/internal/domains/payment/gateway"
	"storefront/internal/shared"
)

func apply(t *testing.T, s Session, events ...Event) Session {
	t.Helper()
	for _, e := range events {
		var err error
		s, err = s.Apply(e)
		require.NoError(t, err, "apply %s", e.Kind)
	}
	return s
}

func addressChanged(p address.PendingAddress) Event {
	return Event{Kind: EventAddressChanged, Pending: p}
}

func methodChosen(m shared.PaymentMethod) Event {
	return Event{Kind: EventMethodChosen, Method: m}
}

func orderCreated(secret string) Event {
	return Event{Kind: EventOrderCreated, Order: &Result{
		OrderNumber:     "ORD-1",
		ClientSecret:    secret,
		CustomerDetails: &CustomerDetails{Email: "a@b.co"},
	}}
}

func TestApply_HappyPathCard(t *testing.T) {
	s := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCard),
	)
	assert.Equal(t, StateMethodChosen, s.State)
	assert.True(t, s.CanCheckout())

	s = apply(t, s, orderCreated("cs_1"))
	assert.Equal(t, StateOrderCreated, s.State)
	assert.True(t, s.HasLiveSecret())
	assert.False(t, s.CanCheckout())

	s = apply(t, s, Event{Kind: EventPaymentResult, Outcome: gateway.OutcomeFailed, Message: "declined"})
	assert.Equal(t, StatePaymentFailed, s.State)
	assert.Equal(t, "declined", s.PaymentMessage)

	s = apply(t, s, Event{Kind: EventPaymentRetried, Secret: "cs_2"})
	assert.Equal(t, StateOrderCreated, s.State)
	assert.Equal(t, "cs_2", s.ClientSecret)
	assert.Empty(t, s.PaymentMessage)

	s = apply(t, s, Event{Kind: EventPaymentResult, Outcome: gateway.OutcomeSucceeded})
	assert.Equal(t, StatePaymentSucceeded, s.State)
	assert.True(t, s.State.Terminal())
}

func TestApply_CODConfirms(t *testing.T) {
	s := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCOD),
		orderCreated("cs_cod"),
		Event{Kind: EventConfirmed},
	)
	assert.Equal(t, StateConfirmed, s.State)

	_, err := s.Apply(addressChanged(address.Existing("8")))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestApply_AddressChangeInvalidates(t *testing.T) {
	chosen := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCard),
	)
	created := apply(t, chosen, orderCreated("cs_1"))
	failed := apply(t, created, Event{Kind: EventPaymentResult, Outcome: gateway.OutcomeFailed})

	for name, s := range map[string]Session{"method chosen": chosen, "order created": created, "payment failed": failed} {
		t.Run(name, func(t *testing.T) {
			next := apply(t, s, addressChanged(address.Existing("8")))

			assert.Equal(t, StateAddressReady, next.State)
			assert.Empty(t, next.Method)
			assert.Empty(t, next.OrderNumber)
			assert.Empty(t, next.ClientSecret)
			assert.Nil(t, next.CustomerDetails)
			assert.Equal(t, shared.ID("8"), next.AddressID)
		})
	}
}

func TestApply_SameAddressIsNoop(t *testing.T) {
	s := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCard),
	)
	next := apply(t, s, addressChanged(address.Existing("7")))
	assert.Equal(t, s, next)
}

func TestApply_AddressToNoneReturnsToNoAddress(t *testing.T) {
	s := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCOD),
		addressChanged(address.None()),
	)
	assert.Equal(t, StateNoAddress, s.State)
	assert.Empty(t, s.Method)
	assert.True(t, s.AddressID.IsZero())
}

func TestApply_NewAddressResolvedKeepsMethod(t *testing.T) {
	fields := address.AddressFormFields{FullName: "A", Postcode: "N1"}
	s := apply(t, NewSession(),
		addressChanged(address.New(fields)),
		methodChosen(shared.PaymentMethodCOD),
	)
	assert.True(t, s.AddressID.IsZero())
	assert.True(t, s.CanCheckout(), "new address is created at checkout")

	s = apply(t, s, Event{Kind: EventAddressResolved, AddressID: "99"})
	assert.Equal(t, shared.ID("99"), s.AddressID)
	assert.Equal(t, StateMethodChosen, s.State)
	assert.Equal(t, shared.PaymentMethodCOD, s.Method)
}

func TestApply_RejectsOutOfOrderEvents(t *testing.T) {
	_, err := NewSession().Apply(methodChosen(shared.PaymentMethodCard))
	assert.ErrorIs(t, err, ErrNoAddress)

	_, err = NewSession().Apply(orderCreated("cs"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ready := apply(t, NewSession(), addressChanged(address.Existing("1")))
	_, err = ready.Apply(methodChosen("paypal"))
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = ready.Apply(Event{Kind: EventAddressResolved, AddressID: "2"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "only a new-address form resolves")

	created := apply(t, ready, methodChosen(shared.PaymentMethodCard), orderCreated("cs_1"))
	_, err = created.Apply(methodChosen(shared.PaymentMethodCOD))
	assert.ErrorIs(t, err, ErrOrderExists)

	_, err = created.Apply(Event{Kind: EventConfirmed})
	assert.ErrorIs(t, err, ErrInvalidTransition, "card orders are not confirmed as COD")
}

func TestApply_RetryRequiresFreshSecret(t *testing.T) {
	failed := apply(t, NewSession(),
		addressChanged(address.Existing("7")),
		methodChosen(shared.PaymentMethodCard),
		orderCreated("cs_1"),
		Event{Kind: EventPaymentResult, Outcome: gateway.OutcomeFailed},
	)

	_, err := failed.Apply(Event{Kind: EventPaymentRetried, Secret: "cs_1"})
	assert.ErrorIs(t, err, ErrSecretReused)

	_, err = failed.Apply(Event{Kind: EventPaymentRetried})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_DoesNotMutateReceiver(t *testing.T) {
	s := apply(t, NewSession(), addressChanged(address.Existing("7")))
	_ = apply(t, s, methodChosen(shared.PaymentMethodCard))
	assert.Equal(t, StateAddressReady, s.State)
	assert.Empty(t, s.Method)
}

func TestCreateOrderResponse_Contract(t *testing.T) {
	v := NewValidator()
	full := CreateOrderResponse{OrderNumber: "ORD-1", ClientSecret: "cs", CustomerDetails: &CustomerDetails{}}
	require.NoError(t, v.Struct(full))

	tests := map[string]CreateOrderResponse{
		"order_number":     {ClientSecret: "cs", CustomerDetails: &CustomerDetails{}},
		"client_secret":    {OrderNumber: "ORD-1", CustomerDetails: &CustomerDetails{}},
		"customer_details": {OrderNumber: "ORD-1", ClientSecret: "cs"},
	}
	for missing, resp := range tests {
		t.Run(missing, func(t *testing.T) {
			err := v.Struct(resp)
			require.Error(t, err)
			assert.Equal(t, []string{missing}, MissingFields(err))
		})
	}
}
