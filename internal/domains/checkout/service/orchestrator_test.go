package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	address "storefront/internal/domains/address/model"
	"storefront/internal/domains/checkout/model"
	"storefront/internal/domains/payment/gateway"
	"storefront/internal/domains/payment/gateway/mock"
	payment "storefront/internal/domains/payment/model"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
)

type fakeOrders struct {
	mu    sync.Mutex
	resp  *model.CreateOrderResponse
	err   error
	calls []model.CreateOrderRequest
	// gate, when set, blocks CreateOrder until closed
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeOrders) CreateOrder(_ context.Context, req model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	return &resp, nil
}

func (f *fakeOrders) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAddresses struct {
	id    shared.ID
	err   error
	calls int
}

func (f *fakeAddresses) List(context.Context, int) (*api.Page[address.Address], error) {
	return &api.Page[address.Address]{}, nil
}

func (f *fakeAddresses) Create(_ context.Context, fields address.AddressFormFields) (*address.Address, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &address.Address{ID: f.id, AddressFormFields: fields}, nil
}

type fakePayments struct {
	secrets []string
	err     error
	calls   int
}

func (f *fakePayments) Verify(context.Context, string) (*payment.VerifyResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakePayments) Retry(context.Context, string) (*payment.RetryResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := f.secrets[0]
	f.secrets = f.secrets[1:]
	return &payment.RetryResponse{ClientSecret: s}, nil
}

type fakeCart struct{ fetches int }

func (f *fakeCart) FetchCart(context.Context) error {
	f.fetches++
	return nil
}

type harness struct {
	orders    *fakeOrders
	addresses *fakeAddresses
	payments  *fakePayments
	confirmer *mock.MockConfirmer
	cart      *fakeCart
	nav       *navigation.History
	sched     *navigation.ManualScheduler
	rec       *notify.Recorder
	o         *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		orders: &fakeOrders{resp: &model.CreateOrderResponse{
			OrderNumber:     "ORD-1001",
			ClientSecret:    "cs_first",
			CustomerDetails: &model.CustomerDetails{FullName: "Ada Lovelace", Email: "ada@example.co.uk"},
		}},
		addresses: &fakeAddresses{id: "42"},
		payments:  &fakePayments{},
		confirmer: mock.NewMockConfirmer(),
		cart:      &fakeCart{},
		nav:       &navigation.History{},
		sched:     &navigation.ManualScheduler{},
		rec:       &notify.Recorder{},
	}
	h.o = NewOrchestrator(Dependencies{
		Orders:    h.orders,
		Addresses: h.addresses,
		Payments:  h.payments,
		Confirmer: h.confirmer,
		Cart:      h.cart,
		Navigator: h.nav,
		Scheduler: h.sched,
		Notifier:  h.rec,
	}, Options{CODRedirectDelay: 5 * time.Second})
	return h
}

func validFields() address.AddressFormFields {
	return address.AddressFormFields{
		FullName: "Ada Lovelace",
		Email:    "ada@example.co.uk",
		Phone:    "+447123456789",
		Line1:    "12 Analytical Row",
		City:     "London",
		Postcode: "N1 9GU",
		Country:  "GB",
	}
}

func (h *harness) ready(t *testing.T, p address.PendingAddress, m shared.PaymentMethod) {
	t.Helper()
	require.NoError(t, h.o.SetPendingAddress(p))
	require.NoError(t, h.o.ChoosePaymentMethod(m))
}

func TestCheckout_NewAddressCOD(t *testing.T) {
	h := newHarness()
	h.ready(t, address.New(validFields()), shared.PaymentMethodCOD)
	require.True(t, h.o.CanCheckout())

	res, err := h.o.Checkout(context.Background())

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "ORD-1001", res.OrderNumber)
	assert.Equal(t, 1, h.addresses.calls)
	require.Len(t, h.orders.calls, 1)
	assert.Equal(t, model.CreateOrderRequest{Address: "42", PaymentMethod: shared.PaymentMethodCOD}, h.orders.calls[0])
	assert.Equal(t, model.StateConfirmed, h.o.Session().State)

	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, shared.RouteCODConfirmation, last.Route)
	assert.Equal(t, "ORD-1001", last.Query.Get("order"))
	assert.Equal(t, []time.Duration{5 * time.Second}, h.sched.Delays())
	assert.Equal(t, 1, h.cart.fetches)

	h.sched.Fire()
	last, _ = h.nav.Last()
	assert.Equal(t, shared.RouteHome, last.Route)
}

func TestCheckout_ExistingAddressCard(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)

	res, err := h.o.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "cs_first", res.ClientSecret)
	assert.Zero(t, h.addresses.calls)
	assert.Equal(t, model.StateOrderCreated, h.o.Session().State)

	last, _ := h.nav.Last()
	assert.Equal(t, shared.RoutePayment, last.Route)
	assert.Empty(t, h.sched.Delays())
}

func TestCheckout_ContractViolation(t *testing.T) {
	cases := map[string]model.CreateOrderResponse{
		"order_number":     {ClientSecret: "cs", CustomerDetails: &model.CustomerDetails{}},
		"client_secret":    {OrderNumber: "ORD-1", CustomerDetails: &model.CustomerDetails{}},
		"customer_details": {OrderNumber: "ORD-1", ClientSecret: "cs"},
	}
	for missing, resp := range cases {
		t.Run(missing, func(t *testing.T) {
			h := newHarness()
			resp := resp
			h.orders.resp = &resp
			h.ready(t, address.Existing("7"), shared.PaymentMethodCard)

			res, err := h.o.Checkout(context.Background())

			assert.Nil(t, res)
			assert.ErrorIs(t, err, model.ErrContractViolation)
			assert.Contains(t, err.Error(), missing)
			assert.Equal(t, model.StateMethodChosen, h.o.Session().State)
			assert.Empty(t, h.o.Session().ClientSecret)
			assert.Equal(t, []string{model.ErrContractViolation.Message}, h.rec.ByLevel(notify.LevelError))
			assert.Empty(t, h.nav.Visits())
			assert.Zero(t, h.cart.fetches)
		})
	}
}

func TestCheckout_SecondCallDoesNotCreateAnotherOrder(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()

	_, err := h.o.Checkout(ctx)
	require.NoError(t, err)

	res, err := h.o.Checkout(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrAlreadyCheckedOut)
	assert.Equal(t, 1, h.orders.Calls())
	assert.False(t, h.o.CanCheckout())
}

func TestCheckout_ConcurrentCallRejected(t *testing.T) {
	h := newHarness()
	h.orders.gate = make(chan struct{})
	h.orders.entered = make(chan struct{}, 1)
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.o.Checkout(ctx)
		done <- err
	}()
	<-h.orders.entered
	assert.True(t, h.o.IsSubmitting())
	assert.False(t, h.o.CanCheckout())

	_, err := h.o.Checkout(ctx)
	assert.ErrorIs(t, err, model.ErrCheckoutInProgress)

	close(h.orders.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.orders.Calls())
	assert.False(t, h.o.IsSubmitting())
}

func TestCheckout_NoAddress(t *testing.T) {
	h := newHarness()

	res, err := h.o.Checkout(context.Background())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrNoAddress)
	assert.Zero(t, h.orders.Calls())
	assert.Equal(t, []string{model.ErrNoAddress.Message}, h.rec.ByLevel(notify.LevelError))
}

func TestCheckout_NoPaymentMethod(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.o.SetPendingAddress(address.Existing("7")))

	_, err := h.o.Checkout(context.Background())
	assert.ErrorIs(t, err, model.ErrNoPaymentMethod)
	assert.Zero(t, h.orders.Calls())
}

func TestCheckout_AddressCreateFailureAborts(t *testing.T) {
	h := newHarness()
	h.addresses.err = &api.APIError{StatusCode: 400, Message: "Postcode not recognised"}
	h.ready(t, address.New(validFields()), shared.PaymentMethodCOD)

	res, err := h.o.Checkout(context.Background())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrAddressCreateFailed)
	assert.Zero(t, h.orders.Calls())
	assert.Equal(t, []string{"Postcode not recognised"}, h.rec.ByLevel(notify.LevelError))
	assert.Equal(t, model.ErrAddressCreateFailed.Code, h.o.Err().(*model.CheckoutError).Code)
}

func TestCheckout_CreatedAddressKeptWhenOrderFails(t *testing.T) {
	h := newHarness()
	h.orders.err = errors.New("gateway timeout")
	h.ready(t, address.New(validFields()), shared.PaymentMethodCOD)
	ctx := context.Background()

	_, err := h.o.Checkout(ctx)
	assert.ErrorIs(t, err, model.ErrOrderCreateFailed)
	assert.Equal(t, shared.ID("42"), h.o.Session().AddressID)
	assert.Equal(t, []string{model.ErrOrderCreateFailed.Message}, h.rec.ByLevel(notify.LevelError))

	h.orders.err = nil
	_, err = h.o.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.addresses.calls, "address is not created twice")
}

func TestCheckout_ServerMessageSurfaced(t *testing.T) {
	h := newHarness()
	h.orders.err = &api.APIError{StatusCode: 409, Message: "Your cart is empty"}
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)

	_, err := h.o.Checkout(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Your cart is empty", model.UserMessage(err))
}

func TestCheckout_AddressChangeDuringFlightDropsResult(t *testing.T) {
	h := newHarness()
	h.orders.gate = make(chan struct{})
	h.orders.entered = make(chan struct{}, 1)
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)

	done := make(chan error, 1)
	go func() {
		_, err := h.o.Checkout(context.Background())
		done <- err
	}()
	<-h.orders.entered
	require.NoError(t, h.o.SetPendingAddress(address.Existing("8")))
	close(h.orders.gate)

	assert.ErrorIs(t, <-done, model.ErrAddressChanged)
	s := h.o.Session()
	assert.Equal(t, model.StateAddressReady, s.State)
	assert.Empty(t, s.ClientSecret)
}

func TestSetPendingAddress_ClearsOrder(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	_, err := h.o.Checkout(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.o.SetPendingAddress(address.Existing("8")))

	s := h.o.Session()
	assert.Equal(t, model.StateAddressReady, s.State)
	assert.Empty(t, s.Method)
	assert.Empty(t, s.OrderNumber)
	assert.Empty(t, s.ClientSecret)
}

func TestSubmitCardPayment_FailThenRetry(t *testing.T) {
	h := newHarness()
	h.payments.secrets = []string{"cs_second"}
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()
	_, err := h.o.Checkout(ctx)
	require.NoError(t, err)

	outcome, err := h.o.SubmitCardPayment(ctx, gateway.Card{Token: mock.TokenDeclined})
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomeFailed, outcome)
	assert.Equal(t, model.StatePaymentFailed, h.o.Session().State)
	assert.Len(t, h.rec.ByLevel(notify.LevelError), 1)

	secret, err := h.o.RetryPayment(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cs_second", secret)
	assert.NotEqual(t, "cs_first", secret)
	assert.Equal(t, model.StateOrderCreated, h.o.Session().State)

	outcome, err = h.o.SubmitCardPayment(ctx, gateway.Card{Token: mock.TokenSucceeded})
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomeSucceeded, outcome)
	assert.Equal(t, []string{"cs_first", "cs_second"}, h.confirmer.Secrets())

	last, _ := h.nav.Last()
	assert.Equal(t, shared.RoutePaymentVerify, last.Route)
	assert.Equal(t, url.Values{"order": {"ORD-1001"}}, last.Query)
}

func TestRetryPayment_SameSecretRejected(t *testing.T) {
	h := newHarness()
	h.payments.secrets = []string{"cs_first"}
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()
	_, err := h.o.Checkout(ctx)
	require.NoError(t, err)
	_, err = h.o.SubmitCardPayment(ctx, gateway.Card{Token: mock.TokenDeclined})
	require.NoError(t, err)

	_, err = h.o.RetryPayment(ctx)
	assert.ErrorIs(t, err, model.ErrSecretReused)
	assert.Equal(t, model.StatePaymentFailed, h.o.Session().State)
}

func TestRetryPayment_FailureKeepsFailedState(t *testing.T) {
	h := newHarness()
	h.payments.err = errors.New("boom")
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()
	_, err := h.o.Checkout(ctx)
	require.NoError(t, err)
	_, err = h.o.SubmitCardPayment(ctx, gateway.Card{Token: mock.TokenDeclined})
	require.NoError(t, err)

	_, err = h.o.RetryPayment(ctx)
	assert.ErrorIs(t, err, model.ErrRetryFailed)
	assert.Equal(t, model.StatePaymentFailed, h.o.Session().State)
}

func TestRetryPayment_OnlyAfterFailure(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)

	_, err := h.o.RetryPayment(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Zero(t, h.payments.calls)
}

func TestSubmitCardPayment_TransportErrorKeepsOrder(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCard)
	ctx := context.Background()
	_, err := h.o.Checkout(ctx)
	require.NoError(t, err)

	h.confirmer.SetError(true)
	_, err = h.o.SubmitCardPayment(ctx, gateway.Card{Token: mock.TokenSucceeded})
	assert.ErrorIs(t, err, model.ErrPaymentSubmitFailed)
	assert.Equal(t, model.StateOrderCreated, h.o.Session().State)
}

func TestSubmitCardPayment_RequiresCardOrder(t *testing.T) {
	h := newHarness()
	h.ready(t, address.Existing("7"), shared.PaymentMethodCOD)
	_, err := h.o.Checkout(context.Background())
	require.NoError(t, err)

	_, err = h.o.SubmitCardPayment(context.Background(), gateway.Card{Token: mock.TokenSucceeded})
	assert.ErrorIs(t, err, model.ErrNoClientSecret)
}

func TestDetach_CancelsCountdownAndDropsResults(t *testing.T) {
	h := newHarness()
	h.orders.gate = make(chan struct{})
	h.orders.entered = make(chan struct{}, 1)
	h.ready(t, address.Existing("7"), shared.PaymentMethodCOD)

	done := make(chan error, 1)
	go func() {
		_, err := h.o.Checkout(context.Background())
		done <- err
	}()
	<-h.orders.entered
	h.o.Detach()
	close(h.orders.gate)

	assert.ErrorIs(t, <-done, model.ErrDetached)
	assert.Empty(t, h.nav.Visits())
	assert.Empty(t, h.rec.All())
	assert.Empty(t, h.sched.Delays())
}
