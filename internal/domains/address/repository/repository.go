package repository

import (
	"context"
	"fmt"
	"net/http"

	"storefront/internal/domains/address/model"
	"storefront/internal/infrastructure/api"
)

const pathAddresses = "/addresses/"

// RepositoryInterface defines remote access to the shopper's saved addresses
type RepositoryInterface interface {
	// List returns one page (1-based) of saved addresses
	List(ctx context.Context, page int) (*api.Page[model.Address], error)

	// Create saves a new address and returns it with its id
	Create(ctx context.Context, fields model.AddressFormFields) (*model.Address, error)
}

type httpRepository struct {
	api api.Requester
}

func NewHTTPRepository(requester api.Requester) RepositoryInterface {
	return &httpRepository{api: requester}
}

func (r *httpRepository) List(ctx context.Context, page int) (*api.Page[model.Address], error) {
	if page < 1 {
		page = 1
	}
	var out api.Page[model.Address]
	path := fmt.Sprintf("%s?page=%d", pathAddresses, page)
	if err := r.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *httpRepository) Create(ctx context.Context, fields model.AddressFormFields) (*model.Address, error) {
	var out model.Address
	if err := r.api.Do(ctx, http.MethodPost, pathAddresses, fields.Normalize(), &out); err != nil {
		return nil, err
	}
	if out.ID.IsZero() {
		return nil, model.ErrMissingAddressID
	}
	return &out, nil
}
