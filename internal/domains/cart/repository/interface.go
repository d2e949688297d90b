package repository

import (
	"context"

	"storefront/internal/domains/cart/model"
	"storefront/internal/shared"
)

// RepositoryInterface defines remote access to the shopper's cart
type RepositoryInterface interface {
	// GetCart returns the active cart for the current session or guest
	GetCart(ctx context.Context) (*model.Cart, error)

	// AddItem asks the server to add or merge a product line
	AddItem(ctx context.Context, req model.AddToCartRequest) error

	// UpdateItemQuantity sets the quantity of an existing line (quantity >= 1)
	UpdateItemQuantity(ctx context.Context, itemID shared.ID, quantity int) error

	RemoveItem(ctx context.Context, itemID shared.ID) error

	// ClearCart deletes every line
	ClearCart(ctx context.Context) error
}

// SnapshotStore persists the last known good cart on the client
type SnapshotStore interface {
	Save(ctx context.Context, snap model.Snapshot) error
	// Load returns nil when nothing is stored
	Load(ctx context.Context) (*model.Snapshot, error)
}
