package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"storefront/internal/domains/payment/model"
	"storefront/internal/domains/payment/repository"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
	"storefront/pkg/logger"
)

type VerifierOptions struct {
	// AutoRedirect sends the shopper home after a confirmed success
	AutoRedirect  bool
	RedirectDelay time.Duration
}

// State is what the verification screen renders
type State struct {
	OrderNumber string
	Status      model.Status
	// ServerStatus is the raw status string from the last verification
	ServerStatus string
	Details      *model.VerifyResponse
	Verifying    bool
	Retrying     bool
	// Message is the user-facing error of the last attempt, if any
	Message string
	// RedirectScheduled is set while the success countdown runs
	RedirectScheduled bool
}

// Verifier reconciles the shopper's return from the payment provider with
// the server's view of the order.
type Verifier struct {
	repo     repository.RepositoryInterface
	nav      navigation.Navigator
	sched    navigation.Scheduler
	notifier notify.Notifier
	opts     VerifierOptions

	mu       sync.Mutex
	state    State
	secrets  map[string]struct{}
	redirect navigation.Timer
	detached bool
}

func NewVerifier(
	repo repository.RepositoryInterface,
	nav navigation.Navigator,
	sched navigation.Scheduler,
	notifier notify.Notifier,
	opts VerifierOptions,
) *Verifier {
	if sched == nil {
		sched = navigation.RealScheduler{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Verifier{
		repo:     repo,
		nav:      nav,
		sched:    sched,
		notifier: notifier,
		opts:     opts,
		state:    State{Status: model.StatusUnknown},
		secrets:  map[string]struct{}{},
	}
}

// RememberSecret records a client secret already used for this order, so a
// retry never hands it out again.
func (v *Verifier) RememberSecret(secret string) {
	if secret == "" {
		return
	}
	v.mu.Lock()
	v.secrets[secret] = struct{}{}
	v.mu.Unlock()
}

// LoadFromURL verifies the order named by the "order" query parameter of
// the return URL.
func (v *Verifier) LoadFromURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return v.missingOrder()
	}
	return v.Load(ctx, u.Query().Get("order"))
}

// Load verifies orderNumber. A missing order number is an error state
// without any request.
func (v *Verifier) Load(ctx context.Context, orderNumber string) error {
	if orderNumber == "" {
		return v.missingOrder()
	}

	v.mu.Lock()
	v.state.OrderNumber = orderNumber
	v.mu.Unlock()
	return v.verify(ctx)
}

// Refresh re-verifies the current order. Processing is never polled; the
// shopper refreshes deliberately.
func (v *Verifier) Refresh(ctx context.Context) error {
	v.mu.Lock()
	order := v.state.OrderNumber
	v.mu.Unlock()
	if order == "" {
		return v.missingOrder()
	}
	return v.verify(ctx)
}

func (v *Verifier) missingOrder() error {
	v.mu.Lock()
	v.state.Status = model.StatusUnknown
	v.state.Message = model.MsgMissingOrder
	v.mu.Unlock()
	return model.ErrMissingOrderNumber
}

func (v *Verifier) verify(ctx context.Context) error {
	v.mu.Lock()
	if v.detached {
		v.mu.Unlock()
		return model.ErrDetached
	}
	order := v.state.OrderNumber
	v.state.Verifying = true
	v.state.Message = ""
	v.mu.Unlock()

	resp, err := v.repo.Verify(ctx, order)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Verifying = false
	if v.detached {
		return model.ErrDetached
	}

	if err != nil {
		if api.IsNotFound(err) {
			logger.Warn("payment verification: order not found", map[string]interface{}{"order_number": order})
			v.nav.Navigate(shared.RouteHome, nil)
			return fmt.Errorf("%w: %s", model.ErrOrderNotFound, order)
		}

		logger.Error("payment verification failed", err)
		v.state.Message = api.MessageOr(err, model.MsgVerifyFailed)
		v.notifier.Notify(notify.LevelError, v.state.Message)
		return model.NewPaymentError(model.ErrCodeVerifyFailed, v.state.Message, err)
	}

	v.state.ServerStatus = resp.Status
	v.state.Status = model.MapStatus(resp.Status)
	v.state.Details = resp
	logger.DebugFields("payment verified", map[string]interface{}{
		"order_number":  order,
		"server_status": resp.Status,
		"status":        string(v.state.Status),
	})

	if v.state.Status == model.StatusSucceeded && v.opts.AutoRedirect && v.redirect == nil {
		v.state.RedirectScheduled = true
		v.redirect = v.sched.AfterFunc(v.opts.RedirectDelay, v.redirectHome)
	}
	return nil
}

func (v *Verifier) redirectHome() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.detached {
		return
	}
	v.state.RedirectScheduled = false
	v.nav.Navigate(shared.RouteHome, nil)
}

// Retry requests a brand-new payment handle for the order and sends the
// shopper back into payment entry marked as a retry. A failed retry keeps
// the current status.
func (v *Verifier) Retry(ctx context.Context) (string, error) {
	v.mu.Lock()
	if v.detached {
		v.mu.Unlock()
		return "", model.ErrDetached
	}
	order := v.state.OrderNumber
	if order == "" {
		v.mu.Unlock()
		return "", model.ErrMissingOrderNumber
	}
	if !v.state.Status.CanRetry() {
		v.mu.Unlock()
		return "", model.ErrRetryNotAllowed
	}
	v.state.Retrying = true
	v.state.Message = ""
	v.mu.Unlock()

	resp, err := v.repo.Retry(ctx, order)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Retrying = false
	if v.detached {
		return "", model.ErrDetached
	}

	if err == nil {
		if _, seen := v.secrets[resp.ClientSecret]; seen {
			err = model.ErrSecretReused
		}
	}
	if err != nil {
		logger.Error("payment retry failed", err)
		fallback := model.MsgRetryFailed
		if errors.Is(err, model.ErrMissingClientSecret) || errors.Is(err, model.ErrSecretReused) {
			err = model.NewPaymentError(model.ErrCodeRetryFailed, fallback, err)
		}
		v.state.Message = api.MessageOr(err, fallback)
		v.notifier.Notify(notify.LevelError, v.state.Message)
		return "", err
	}

	v.secrets[resp.ClientSecret] = struct{}{}
	v.nav.Navigate(shared.RoutePayment, url.Values{
		"order": {order},
		"retry": {"true"},
	})
	return resp.ClientSecret, nil
}

func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Detach drops results that arrive after the screen is gone and cancels a
// pending redirect.
func (v *Verifier) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detached = true
	if v.redirect != nil {
		v.redirect.Stop()
	}
	v.state.RedirectScheduled = false
}
