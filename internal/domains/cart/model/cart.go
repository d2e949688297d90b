package model

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/shared"
)

// CartItem is one line of the cart as priced by the server.
// LineTotal is never computed locally.
type CartItem struct {
	ID          shared.ID       `json:"id"`
	ProductID   shared.ID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"total_price"`
}

// Cart is the server's cart-of-record
type Cart struct {
	ID         shared.ID       `json:"id"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
}

// Clone returns a deep copy safe to hand out to readers
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// FindByProduct returns the line holding productID
func (c Cart) FindByProduct(productID shared.ID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// FindByID returns the line with the given item id
func (c Cart) FindByID(itemID shared.ID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return CartItem{}, false
}

// Snapshot is the persisted form of the last known good cart
type Snapshot struct {
	Cart      Cart      `json:"cart"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ========================================
// REQUESTS
// ========================================

type AddToCartRequest struct {
	ProductID shared.ID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
