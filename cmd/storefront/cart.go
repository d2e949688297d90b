package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storefront/internal/shared"
)

func cartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Fetch and print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.c.Cart.Restore(ctx); err != nil {
				return err
			}
			// a failed fetch keeps the snapshot visible
			fetchErr := a.c.Cart.FetchCart(ctx)
			printCart(cmd.OutOrStdout(), a.c.Cart.Snapshot())
			return fetchErr
		},
	}

	add := &cobra.Command{
		Use:   "add PRODUCT_ID [QUANTITY]",
		Short: "Add a product",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("quantity must be a number: %w", err)
				}
				quantity = n
			}
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.AddItem(cmd.Context(), shared.ID(args[0]), quantity)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set ITEM_ID QUANTITY",
		Short: "Set a line's quantity; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.UpdateQuantity(cmd.Context(), shared.ID(args[0]), n)
			})
		},
	}

	inc := &cobra.Command{
		Use:   "inc ITEM_ID",
		Short: "Increase a line by one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.IncreaseQuantity(cmd.Context(), shared.ID(args[0]))
			})
		},
	}

	dec := &cobra.Command{
		Use:   "dec ITEM_ID",
		Short: "Decrease a line by one; below one removes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.DecreaseQuantity(cmd.Context(), shared.ID(args[0]))
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm ITEM_ID",
		Aliases: []string{"remove"},
		Short:   "Remove a line",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.RemoveItem(cmd.Context(), shared.ID(args[0]))
			})
		},
	}

	clearCart := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.mutateCart(cmd, func() error {
				return a.c.Cart.ClearCart(cmd.Context())
			})
		},
	}

	cmd.AddCommand(show, add, set, inc, dec, rm, clearCart)
	return cmd
}

// mutateCart loads the current cart, applies fn and prints the result.
// Line ids come from the server, so the cart is fetched first.
func (a *app) mutateCart(cmd *cobra.Command, fn func() error) error {
	if err := a.init(cmd); err != nil {
		return err
	}
	if err := a.c.Cart.FetchCart(cmd.Context()); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	printCart(cmd.OutOrStdout(), a.c.Cart.Snapshot())
	return nil
}
