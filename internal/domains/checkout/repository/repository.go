package repository

import (
	"context"
	"net/http"

	"storefront/internal/domains/checkout/model"
	"storefront/internal/infrastructure/api"
)

const pathCheckout = "/orders/checkout/"

// RepositoryInterface defines remote order creation
type RepositoryInterface interface {
	// CreateOrder creates an order from the current cart. The response is
	// returned as decoded; callers check the contract.
	CreateOrder(ctx context.Context, req model.CreateOrderRequest) (*model.CreateOrderResponse, error)
}

type httpRepository struct {
	api api.Requester
}

func NewHTTPRepository(requester api.Requester) RepositoryInterface {
	return &httpRepository{api: requester}
}

func (r *httpRepository) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	var out model.CreateOrderResponse
	if err := r.api.Do(ctx, http.MethodPost, pathCheckout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
