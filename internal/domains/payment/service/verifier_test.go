package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domains/payment/model"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
)

type fakeRepo struct {
	status    string
	verifyErr error
	secrets   []string
	retryErr  error
	verified  []string
	retried   []string

	// onVerify runs before Verify returns
	onVerify func()
}

func (f *fakeRepo) Verify(_ context.Context, order string) (*model.VerifyResponse, error) {
	f.verified = append(f.verified, order)
	if f.onVerify != nil {
		f.onVerify()
	}
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &model.VerifyResponse{OrderNumber: order, Status: f.status}, nil
}

func (f *fakeRepo) Retry(_ context.Context, order string) (*model.RetryResponse, error) {
	f.retried = append(f.retried, order)
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	secret := f.secrets[0]
	f.secrets = f.secrets[1:]
	return &model.RetryResponse{ClientSecret: secret}, nil
}

type harness struct {
	repo  *fakeRepo
	nav   *navigation.History
	sched *navigation.ManualScheduler
	rec   *notify.Recorder
	v     *Verifier
}

func newHarness(repo *fakeRepo, opts VerifierOptions) *harness {
	h := &harness{
		repo:  repo,
		nav:   &navigation.History{},
		sched: &navigation.ManualScheduler{},
		rec:   &notify.Recorder{},
	}
	h.v = NewVerifier(repo, h.nav, h.sched, h.rec, opts)
	return h
}

func TestLoadFromURL_MissingOrder(t *testing.T) {
	h := newHarness(&fakeRepo{}, VerifierOptions{})

	err := h.v.LoadFromURL(context.Background(), "https://shop.example.com/payment/verify")
	assert.ErrorIs(t, err, model.ErrMissingOrderNumber)
	assert.Empty(t, h.repo.verified, "no request without an order number")
	assert.Equal(t, model.MsgMissingOrder, h.v.State().Message)
}

func TestLoadFromURL_NotFoundRedirectsHomeSilently(t *testing.T) {
	repo := &fakeRepo{verifyErr: &api.APIError{StatusCode: 404, Message: "Order not found"}}
	h := newHarness(repo, VerifierOptions{})

	err := h.v.LoadFromURL(context.Background(), "https://shop.example.com/payment/verify?order=ORD-404")

	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	assert.Equal(t, []string{"ORD-404"}, repo.verified)
	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, shared.RouteHome, last.Route)
	assert.Empty(t, h.rec.All(), "no verification-failed toast")
	assert.Empty(t, h.v.State().Message)
}

func TestLoad_GenericFailureIsRetryEligible(t *testing.T) {
	repo := &fakeRepo{verifyErr: errors.New("connection reset")}
	h := newHarness(repo, VerifierOptions{})
	ctx := context.Background()

	require.Error(t, h.v.Load(ctx, "ORD-1"))
	assert.Equal(t, model.MsgVerifyFailed, h.v.State().Message)
	assert.Equal(t, []string{model.MsgVerifyFailed}, h.rec.ByLevel(notify.LevelError))
	assert.Empty(t, h.nav.Visits())

	repo.verifyErr = nil
	repo.status = "Pending"
	require.NoError(t, h.v.Refresh(ctx))
	st := h.v.State()
	assert.Equal(t, model.StatusProcessing, st.Status)
	assert.Empty(t, st.Message)
	assert.False(t, st.Verifying)
}

func TestLoad_SuccessAutoRedirect(t *testing.T) {
	h := newHarness(&fakeRepo{status: "Success"}, VerifierOptions{AutoRedirect: true, RedirectDelay: 3 * time.Second})

	require.NoError(t, h.v.Load(context.Background(), "ORD-7"))

	st := h.v.State()
	assert.Equal(t, model.StatusSucceeded, st.Status)
	assert.True(t, st.RedirectScheduled)
	assert.Equal(t, []time.Duration{3 * time.Second}, h.sched.Delays())
	assert.Empty(t, h.nav.Visits(), "no navigation before the delay")

	assert.Equal(t, 1, h.sched.Fire())
	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, shared.RouteHome, last.Route)
	assert.False(t, h.v.State().RedirectScheduled)
}

func TestLoad_SuccessWithoutAutoRedirect(t *testing.T) {
	h := newHarness(&fakeRepo{status: "Success"}, VerifierOptions{})

	require.NoError(t, h.v.Load(context.Background(), "ORD-7"))
	assert.Equal(t, model.StatusSucceeded, h.v.State().Status)
	assert.Empty(t, h.sched.Delays())
}

func TestLoad_UnknownStatusIsNotAnError(t *testing.T) {
	h := newHarness(&fakeRepo{status: ""}, VerifierOptions{})

	require.NoError(t, h.v.Load(context.Background(), "ORD-7"))
	assert.Equal(t, model.StatusUnknown, h.v.State().Status)
	assert.Empty(t, h.rec.All())
}

func TestRetry_NewSecretAndNavigates(t *testing.T) {
	repo := &fakeRepo{status: "Failed", secrets: []string{"cs_second"}}
	h := newHarness(repo, VerifierOptions{})
	h.v.RememberSecret("cs_first")
	ctx := context.Background()
	require.NoError(t, h.v.Load(ctx, "ORD-9"))
	require.Equal(t, model.StatusRequiresPaymentMethod, h.v.State().Status)

	secret, err := h.v.Retry(ctx)

	require.NoError(t, err)
	assert.Equal(t, "cs_second", secret)
	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, shared.RoutePayment, last.Route)
	assert.Equal(t, url.Values{"order": {"ORD-9"}, "retry": {"true"}}, last.Query)
	assert.Equal(t, "/payment?order=ORD-9&retry=true", last.URL())
}

func TestRetry_RejectsReusedSecret(t *testing.T) {
	repo := &fakeRepo{status: "Failed", secrets: []string{"cs_first"}}
	h := newHarness(repo, VerifierOptions{})
	h.v.RememberSecret("cs_first")
	ctx := context.Background()
	require.NoError(t, h.v.Load(ctx, "ORD-9"))

	_, err := h.v.Retry(ctx)

	assert.ErrorIs(t, err, model.ErrSecretReused)
	assert.Empty(t, h.nav.Visits())
	assert.Equal(t, model.StatusRequiresPaymentMethod, h.v.State().Status)
}

func TestRetry_FailureKeepsStatus(t *testing.T) {
	repo := &fakeRepo{status: "Failed", retryErr: &api.APIError{StatusCode: 409, Message: "Order already paid"}}
	h := newHarness(repo, VerifierOptions{})
	ctx := context.Background()
	require.NoError(t, h.v.Load(ctx, "ORD-9"))

	_, err := h.v.Retry(ctx)

	require.Error(t, err)
	st := h.v.State()
	assert.Equal(t, model.StatusRequiresPaymentMethod, st.Status)
	assert.Equal(t, "Order already paid", st.Message)
	assert.False(t, st.Retrying)
	assert.Equal(t, []string{"Order already paid"}, h.rec.ByLevel(notify.LevelError))

	// the shopper may try again
	repo.retryErr = nil
	repo.secrets = []string{"cs_2"}
	secret, err := h.v.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cs_2", secret)
}

func TestRetry_NotAllowedUnlessFailed(t *testing.T) {
	h := newHarness(&fakeRepo{status: "Processing"}, VerifierOptions{})
	ctx := context.Background()
	require.NoError(t, h.v.Load(ctx, "ORD-9"))

	_, err := h.v.Retry(ctx)
	assert.ErrorIs(t, err, model.ErrRetryNotAllowed)
	assert.Empty(t, h.repo.retried)
}

func TestDetach_DropsLateResultAndCancelsRedirect(t *testing.T) {
	repo := &fakeRepo{status: "Success"}
	h := newHarness(repo, VerifierOptions{AutoRedirect: true, RedirectDelay: time.Second})
	repo.onVerify = h.v.Detach

	err := h.v.Load(context.Background(), "ORD-7")

	assert.ErrorIs(t, err, model.ErrDetached)
	assert.Equal(t, model.StatusUnknown, h.v.State().Status)
	assert.Empty(t, h.sched.Delays())
}

func TestDetach_StopsScheduledRedirect(t *testing.T) {
	h := newHarness(&fakeRepo{status: "Success"}, VerifierOptions{AutoRedirect: true, RedirectDelay: time.Second})
	require.NoError(t, h.v.Load(context.Background(), "ORD-7"))

	h.v.Detach()

	assert.Zero(t, h.sched.Fire())
	assert.Empty(t, h.nav.Visits())
}
