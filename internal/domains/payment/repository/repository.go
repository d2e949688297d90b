package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/domains/payment/model"
	"storefront/internal/infrastructure/api"
)

const (
	pathVerify = "/payments/verify/%s/"
	pathRetry  = "/payments/retry/"
)

// RepositoryInterface defines remote access to payment state
type RepositoryInterface interface {
	// Verify returns the server-confirmed status of the order's payment
	Verify(ctx context.Context, orderNumber string) (*model.VerifyResponse, error)

	// Retry issues a new payment handle for the same order
	Retry(ctx context.Context, orderNumber string) (*model.RetryResponse, error)
}

type httpRepository struct {
	api api.Requester
}

func NewHTTPRepository(requester api.Requester) RepositoryInterface {
	return &httpRepository{api: requester}
}

func (r *httpRepository) Verify(ctx context.Context, orderNumber string) (*model.VerifyResponse, error) {
	var out model.VerifyResponse
	path := fmt.Sprintf(pathVerify, url.PathEscape(orderNumber))
	if err := r.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *httpRepository) Retry(ctx context.Context, orderNumber string) (*model.RetryResponse, error) {
	var out model.RetryResponse
	req := model.RetryRequest{OrderNumber: orderNumber}
	if err := r.api.Do(ctx, http.MethodPost, pathRetry, req, &out); err != nil {
		return nil, err
	}
	if out.ClientSecret == "" {
		return nil, model.ErrMissingClientSecret
	}
	return &out, nil
}
