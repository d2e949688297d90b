package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	addressModel "storefront/internal/domains/address/model"
	"storefront/internal/domains/payment/gateway"
	"storefront/internal/domains/payment/gateway/mock"
	paymentModel "storefront/internal/domains/payment/model"
	"storefront/internal/shared"
)

func addressesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "List saved addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			page := a.c.NewCheckoutPage()
			defer page.Close()

			if err := page.Addresses.LoadSaved(cmd.Context()); err != nil {
				return err
			}
			saved := page.Addresses.SavedAddresses()
			if len(saved) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved addresses")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLINE 1\tCITY\tPOSTCODE\tDEFAULT")
			for _, addr := range saved {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					addr.ID, addr.FullName, addr.Line1, addr.City, addr.Postcode, addr.IsDefault)
			}
			return w.Flush()
		},
	}
}

type checkoutFlags struct {
	addressID string
	fields    addressModel.AddressFormFields
	method    string
	cardToken string
	holder    string
}

func checkoutCmd(a *app) *cobra.Command {
	var f checkoutFlags

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the current cart",
		Long: `Place an order using a saved address (--address-id) or a new one
(--full-name, --email, ...). Card orders are confirmed with --card-token
and then verified against the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			return a.checkout(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.addressID, "address-id", "", "saved address to deliver to")
	cmd.Flags().StringVar(&f.fields.FullName, "full-name", "", "new address: full name")
	cmd.Flags().StringVar(&f.fields.Email, "email", "", "new address: email")
	cmd.Flags().StringVar(&f.fields.Phone, "phone", "", "new address: UK phone number")
	cmd.Flags().StringVar(&f.fields.Line1, "line1", "", "new address: first line")
	cmd.Flags().StringVar(&f.fields.Line2, "line2", "", "new address: second line")
	cmd.Flags().StringVar(&f.fields.City, "city", "", "new address: city")
	cmd.Flags().StringVar(&f.fields.Postcode, "postcode", "", "new address: postcode")
	cmd.Flags().StringVar(&f.fields.Country, "country", "GB", "new address: country")
	cmd.Flags().StringVar(&f.method, "method", string(shared.PaymentMethodCOD), "payment method (cod, card)")
	cmd.Flags().StringVar(&f.cardToken, "card-token", mock.TokenSucceeded, "card token for card orders")
	cmd.Flags().StringVar(&f.holder, "card-holder", "", "name on the card")
	return cmd
}

func (a *app) checkout(cmd *cobra.Command, f checkoutFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	page := a.c.NewCheckoutPage()
	defer page.Close()

	// ----------------------------------------
	// ADDRESS
	// ----------------------------------------
	if err := page.Addresses.LoadSaved(ctx); err != nil {
		return err
	}
	if f.addressID != "" {
		if err := page.Addresses.SelectExisting(shared.ID(f.addressID)); err != nil {
			return err
		}
	} else {
		page.Addresses.UseNewForm()
		if err := page.Addresses.UpdateForm(f.fields); err != nil {
			for field, msg := range page.Addresses.FormErrors() {
				fmt.Fprintf(out, "  %s: %s\n", field, msg)
			}
			return err
		}
	}

	// ----------------------------------------
	// ORDER
	// ----------------------------------------
	if err := page.Checkout.ChoosePaymentMethod(shared.PaymentMethod(f.method)); err != nil {
		return err
	}
	result, err := page.Checkout.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s placed (%s)\n", result.OrderNumber, result.Method)
	if result.Method != shared.PaymentMethodCard {
		return nil
	}

	// ----------------------------------------
	// CARD PAYMENT
	// ----------------------------------------
	outcome, err := page.Checkout.SubmitCardPayment(ctx, gateway.Card{Token: f.cardToken, HolderName: f.holder})
	if err != nil {
		return err
	}
	if outcome == gateway.OutcomeFailed {
		fmt.Fprintf(out, "Payment failed. Run `%s retry %s` to try again.\n", appName, result.OrderNumber)
		return nil
	}
	return a.verify(cmd, result.OrderNumber, result.ClientSecret)
}

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ORDER_NUMBER",
		Short: "Check the payment status of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			return a.verify(cmd, args[0], "")
		},
	}
}

func (a *app) verify(cmd *cobra.Command, orderNumber, usedSecret string) error {
	v := a.c.NewVerifier()
	defer v.Detach()
	v.RememberSecret(usedSecret)

	if err := v.Load(cmd.Context(), orderNumber); err != nil {
		return ignoreNotFound(err)
	}

	state := v.State()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order %s: %s", state.OrderNumber, state.Status)
	if d := state.Details; d != nil && d.Amount != nil {
		fmt.Fprintf(out, " (%s %s)", d.Amount.StringFixed(2), d.Currency)
	}
	fmt.Fprintln(out)
	if state.Status.CanRetry() {
		fmt.Fprintf(out, "Run `%s retry %s` to pay again.\n", appName, state.OrderNumber)
	}
	return nil
}

func retryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ORDER_NUMBER",
		Short: "Request a new payment attempt for a failed order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}

			v := a.c.NewVerifier()
			defer v.Detach()
			if err := v.Load(cmd.Context(), args[0]); err != nil {
				return ignoreNotFound(err)
			}
			secret, err := v.Retry(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "New payment attempt ready (%s)\n", secret)
			return nil
		},
	}
}

// ignoreNotFound treats an unknown order as handled: the verifier has
// already sent the shopper home.
func ignoreNotFound(err error) error {
	if errors.Is(err, paymentModel.ErrOrderNotFound) {
		return nil
	}
	return err
}
