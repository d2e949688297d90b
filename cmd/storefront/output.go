package main

import (
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	cartModel "storefront/internal/domains/cart/model"
	"storefront/internal/shared"
	"storefront/internal/shared/navigation"
)

// printNavigator reports navigations instead of switching screens
type printNavigator struct {
	out io.Writer
}

func (p *printNavigator) Navigate(route shared.Route, query url.Values) {
	fmt.Fprintf(p.out, "-> %s\n", navigation.Visit{Route: route, Query: query}.URL())
}

func printCart(out io.Writer, c cartModel.Cart) {
	if len(c.Items) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tPRODUCT\tNAME\tPRICE\tQTY\tTOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			it.ID, it.ProductID, it.ProductName, it.Price.StringFixed(2), it.Quantity, it.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t\t\t\t%s\n", c.Total.StringFixed(2))
	_ = w.Flush()
}
