package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/domains/cart/model"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
)

const (
	pathCart      = "/cart/"
	pathCartItems = "/cart/items/"
	pathCartClear = "/cart/clear/"
)

type httpRepository struct {
	api api.Requester
}

func NewHTTPRepository(requester api.Requester) RepositoryInterface {
	return &httpRepository{api: requester}
}

func (r *httpRepository) GetCart(ctx context.Context) (*model.Cart, error) {
	var cart model.Cart
	if err := r.api.Do(ctx, http.MethodGet, pathCart, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *httpRepository) AddItem(ctx context.Context, req model.AddToCartRequest) error {
	return r.api.Do(ctx, http.MethodPost, pathCartItems, req, nil)
}

func (r *httpRepository) UpdateItemQuantity(ctx context.Context, itemID shared.ID, quantity int) error {
	body := model.UpdateCartItemRequest{Quantity: quantity}
	return r.api.Do(ctx, http.MethodPatch, itemPath(itemID), body, nil)
}

func (r *httpRepository) RemoveItem(ctx context.Context, itemID shared.ID) error {
	return r.api.Do(ctx, http.MethodDelete, itemPath(itemID), nil, nil)
}

func (r *httpRepository) ClearCart(ctx context.Context) error {
	return r.api.Do(ctx, http.MethodDelete, pathCartClear, nil, nil)
}

func itemPath(itemID shared.ID) string {
	return fmt.Sprintf("%s%s/", pathCartItems, url.PathEscape(itemID.String()))
}
