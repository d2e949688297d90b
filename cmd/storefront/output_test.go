package main

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	cartModel "storefront/internal/domains/cart/model"
	"storefront/internal/shared"
)

func TestPrintCart_Empty(t *testing.T) {
	var buf bytes.Buffer
	printCart(&buf, cartModel.Cart{})
	assert.Equal(t, "Your cart is empty\n", buf.String())
}

func TestPrintCart_ServerTotals(t *testing.T) {
	var buf bytes.Buffer
	printCart(&buf, cartModel.Cart{
		Items: []cartModel.CartItem{{
			ID:          "7",
			ProductID:   "p1",
			ProductName: "Ceramic Mug",
			Price:       decimal.RequireFromString("8.5"),
			Quantity:    2,
			LineTotal:   decimal.RequireFromString("17"),
		}},
		Total: decimal.RequireFromString("17"),
	})

	out := buf.String()
	assert.Contains(t, out, "Ceramic Mug")
	assert.Contains(t, out, "8.50")
	assert.Contains(t, out, "17.00")
}

func TestPrintNavigator(t *testing.T) {
	var buf bytes.Buffer
	nav := &printNavigator{out: &buf}

	nav.Navigate(shared.RoutePayment, url.Values{"order": {"ORD-1001"}})
	nav.Navigate(shared.RouteHome, nil)

	assert.Equal(t, "-> /payment?order=ORD-1001\n-> /\n", buf.String())
}
