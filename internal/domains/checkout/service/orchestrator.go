package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	address "storefront/internal/domains/address/model"
	addressrepo "storefront/internal/domains/address/repository"
	"storefront/internal/domains/checkout/model"
	"storefront/internal/domains/checkout/repository"
	"storefront/internal/domains/payment/gateway"
	paymentrepo "storefront/internal/domains/payment/repository"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
	"storefront/pkg/logger"
)

// CartSyncer is the slice of the cart store the orchestrator needs
type CartSyncer interface {
	FetchCart(ctx context.Context) error
}

type Options struct {
	// CODRedirectDelay is the countdown on the COD confirmation screen
	// before the shopper is sent home
	CODRedirectDelay time.Duration
}

type Dependencies struct {
	Orders    repository.RepositoryInterface
	Addresses addressrepo.RepositoryInterface
	Payments  paymentrepo.RepositoryInterface
	Confirmer gateway.Confirmer
	Cart      CartSyncer // optional
	Navigator navigation.Navigator
	Scheduler navigation.Scheduler
	Notifier  notify.Notifier
}

// Orchestrator owns one checkout session from address to order to payment.
type Orchestrator struct {
	deps     Dependencies
	opts     Options
	validate *validatorv10.Validate

	mu         sync.Mutex
	session    model.Session
	generation uint64 // bumped on every address change
	submitting bool
	err        error
	detached   bool
	redirect   navigation.Timer
}

func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	if deps.Scheduler == nil {
		deps.Scheduler = navigation.RealScheduler{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		validate: model.NewValidator(),
		session:  model.NewSession(),
	}
}

// ========================================
// READ SIDE
// ========================================

func (o *Orchestrator) Session() model.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Orchestrator) IsSubmitting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitting
}

// Err is the error of the last failed action, nil after a success
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// CanCheckout reports whether the "place order" action is enabled
func (o *Orchestrator) CanCheckout() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.detached && !o.submitting && o.session.CanCheckout()
}

// ========================================
// INPUTS
// ========================================

// SetPendingAddress receives the selector's current address. A different
// address discards the chosen method and any order.
func (o *Orchestrator) SetPendingAddress(p address.PendingAddress) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	before := o.session
	next, err := o.session.Apply(model.Event{Kind: model.EventAddressChanged, Pending: p})
	if err != nil {
		return err
	}
	if !p.Equal(before.Pending) {
		o.generation++
		logger.DebugFields("checkout address changed", map[string]interface{}{
			"from":    before.State.String(),
			"to":      next.State.String(),
			"pending": p.String(),
		})
	}
	o.session = next
	return nil
}

func (o *Orchestrator) ChoosePaymentMethod(m shared.PaymentMethod) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := o.session.Apply(model.Event{Kind: model.EventMethodChosen, Method: m})
	if err != nil {
		o.err = err
		return err
	}
	o.session = next
	o.err = nil
	return nil
}

// ========================================
// CHECKOUT
// ========================================

// Checkout places the order. The result is nil exactly when the error is
// non-nil; a failure is also recorded on Err and notified.
//
// A new address is created first and kept even if order creation then
// fails. The order response must carry order number, client secret and
// customer details.
func (o *Orchestrator) Checkout(ctx context.Context) (*model.Result, error) {
	o.mu.Lock()
	switch {
	case o.detached:
		o.mu.Unlock()
		return nil, model.ErrDetached
	case o.submitting:
		o.mu.Unlock()
		return nil, model.ErrCheckoutInProgress
	case o.session.State.HasOrder() || o.session.HasLiveSecret():
		o.mu.Unlock()
		return nil, model.ErrAlreadyCheckedOut
	}

	session := o.session
	gen := o.generation
	o.submitting = true
	o.err = nil
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	if session.Method == "" && session.State == model.StateAddressReady {
		return nil, o.fail(model.ErrNoPaymentMethod)
	}

	// step 1: create a new address once
	if fields, isNew := session.Pending.Fields(); isNew && session.AddressID.IsZero() {
		created, err := o.deps.Addresses.Create(ctx, fields)
		if err != nil {
			logger.Error("create checkout address failed", err)
			return nil, o.fail(model.WithMessage(model.ErrAddressCreateFailed,
				api.MessageOr(err, model.ErrAddressCreateFailed.Message), err))
		}

		o.mu.Lock()
		if err := o.stillCurrent(gen); err != nil {
			o.mu.Unlock()
			return nil, o.fail(err)
		}
		next, err := o.session.Apply(model.Event{Kind: model.EventAddressResolved, AddressID: created.ID})
		if err != nil {
			o.mu.Unlock()
			return nil, o.fail(err)
		}
		o.session = next
		session = next
		o.mu.Unlock()

		logger.Info("checkout address created", map[string]interface{}{"address_id": created.ID.String()})
	}

	// step 2: an address must be resolvable
	if session.AddressID.IsZero() {
		return nil, o.fail(model.ErrNoAddress)
	}
	if session.State != model.StateMethodChosen {
		return nil, o.fail(model.ErrNoPaymentMethod)
	}

	// step 3
	req := model.CreateOrderRequest{Address: session.AddressID, PaymentMethod: session.Method}
	resp, err := o.deps.Orders.CreateOrder(ctx, req)
	if err != nil {
		logger.Error("create order failed", err)
		return nil, o.fail(model.WithMessage(model.ErrOrderCreateFailed,
			api.MessageOr(err, model.ErrOrderCreateFailed.Message), err))
	}

	// step 4: a partial response is a failure
	if err := o.validate.Struct(resp); err != nil {
		missing := strings.Join(model.MissingFields(err), ", ")
		logger.Warn("order response violates contract", map[string]interface{}{"missing": missing})
		return nil, o.fail(model.Wrap(model.ErrContractViolation, fmt.Errorf("missing %s", missing)))
	}

	// step 5
	result := &model.Result{
		OrderNumber:     resp.OrderNumber,
		ClientSecret:    resp.ClientSecret,
		Method:          session.Method,
		AddressID:       session.AddressID,
		CustomerDetails: resp.CustomerDetails,
	}

	o.mu.Lock()
	if err := o.stillCurrent(gen); err != nil {
		o.mu.Unlock()
		return nil, o.fail(err)
	}
	next, err := o.session.Apply(model.Event{Kind: model.EventOrderCreated, Order: result})
	if err == nil && result.Method == shared.PaymentMethodCOD {
		next, err = next.Apply(model.Event{Kind: model.EventConfirmed})
	}
	if err != nil {
		o.mu.Unlock()
		return nil, o.fail(err)
	}
	o.session = next
	o.mu.Unlock()

	logger.Info("order created", map[string]interface{}{
		"order_number":   result.OrderNumber,
		"payment_method": string(result.Method),
	})

	o.route(result)
	if o.deps.Cart != nil {
		// the server emptied the cart; failures are recorded on the store
		_ = o.deps.Cart.FetchCart(ctx)
	}
	return result, nil
}

func (o *Orchestrator) route(result *model.Result) {
	query := url.Values{"order": {result.OrderNumber}}

	switch result.Method {
	case shared.PaymentMethodCOD:
		o.deps.Notifier.Notify(notify.LevelSuccess, "Order placed! You'll pay on delivery.")
		o.deps.Navigator.Navigate(shared.RouteCODConfirmation, query)

		o.mu.Lock()
		o.redirect = o.deps.Scheduler.AfterFunc(o.opts.CODRedirectDelay, o.redirectHome)
		o.mu.Unlock()

	case shared.PaymentMethodCard:
		o.deps.Navigator.Navigate(shared.RoutePayment, query)
	}
}

func (o *Orchestrator) redirectHome() {
	o.mu.Lock()
	detached := o.detached
	o.mu.Unlock()
	if !detached {
		o.deps.Navigator.Navigate(shared.RouteHome, nil)
	}
}

// ========================================
// CARD PAYMENT
// ========================================

// SubmitCardPayment confirms the card against the order's client secret.
// A transport failure leaves the order ready for another attempt.
func (o *Orchestrator) SubmitCardPayment(ctx context.Context, card gateway.Card) (gateway.Outcome, error) {
	o.mu.Lock()
	switch {
	case o.detached:
		o.mu.Unlock()
		return "", model.ErrDetached
	case o.submitting:
		o.mu.Unlock()
		return "", model.ErrCheckoutInProgress
	case o.session.State != model.StateOrderCreated || o.session.Method != shared.PaymentMethodCard || o.session.ClientSecret == "":
		o.mu.Unlock()
		return "", model.ErrNoClientSecret
	}
	secret := o.session.ClientSecret
	order := o.session.OrderNumber
	o.submitting = true
	o.err = nil
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	res, err := o.deps.Confirmer.ConfirmCardPayment(ctx, secret, card)
	if err != nil {
		logger.Error("card confirmation failed", err)
		return "", o.fail(model.Wrap(model.ErrPaymentSubmitFailed, err))
	}

	o.mu.Lock()
	if o.detached {
		o.mu.Unlock()
		return "", model.ErrDetached
	}
	next, err := o.session.Apply(model.Event{Kind: model.EventPaymentResult, Outcome: res.Outcome, Message: res.Message})
	if err != nil {
		o.mu.Unlock()
		return "", o.fail(err)
	}
	o.session = next
	o.mu.Unlock()

	logger.Info("card payment submitted", map[string]interface{}{
		"order_number": order,
		"outcome":      string(res.Outcome),
	})

	switch res.Outcome {
	case gateway.OutcomeFailed:
		msg := res.Message
		if msg == "" {
			msg = "Your payment was declined."
		}
		o.deps.Notifier.Notify(notify.LevelError, msg+" You can retry the payment.")
	default:
		o.deps.Navigator.Navigate(shared.RoutePaymentVerify, url.Values{"order": {order}})
	}
	return res.Outcome, nil
}

// RetryPayment obtains a new client secret after a failed card payment.
// A failure keeps the session in PaymentFailed.
func (o *Orchestrator) RetryPayment(ctx context.Context) (string, error) {
	o.mu.Lock()
	switch {
	case o.detached:
		o.mu.Unlock()
		return "", model.ErrDetached
	case o.submitting:
		o.mu.Unlock()
		return "", model.ErrCheckoutInProgress
	case o.session.State != model.StatePaymentFailed:
		o.mu.Unlock()
		return "", model.Wrap(model.ErrInvalidTransition, fmt.Errorf("retry in state %s", o.session.State))
	}
	order := o.session.OrderNumber
	o.submitting = true
	o.err = nil
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	resp, err := o.deps.Payments.Retry(ctx, order)
	if err != nil {
		logger.Error("payment retry failed", err)
		return "", o.fail(model.WithMessage(model.ErrRetryFailed,
			api.MessageOr(err, model.ErrRetryFailed.Message), err))
	}

	o.mu.Lock()
	if o.detached {
		o.mu.Unlock()
		return "", model.ErrDetached
	}
	next, err := o.session.Apply(model.Event{Kind: model.EventPaymentRetried, Secret: resp.ClientSecret})
	if err != nil {
		o.mu.Unlock()
		return "", o.fail(err)
	}
	o.session = next
	o.mu.Unlock()

	logger.Info("payment retry issued", map[string]interface{}{"order_number": order})
	return resp.ClientSecret, nil
}

// Detach drops results that arrive after the checkout screen is gone and
// cancels the COD countdown.
func (o *Orchestrator) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detached = true
	if o.redirect != nil {
		o.redirect.Stop()
	}
}

// ========================================
// HELPERS
// ========================================

// stillCurrent is called with mu held after an await
func (o *Orchestrator) stillCurrent(gen uint64) error {
	if o.detached {
		return model.ErrDetached
	}
	if o.generation != gen {
		return model.ErrAddressChanged
	}
	return nil
}

func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	detached := o.detached
	if !detached {
		o.err = err
	}
	o.mu.Unlock()

	if !detached {
		o.deps.Notifier.Notify(notify.LevelError, model.UserMessage(err))
	}
	return err
}
