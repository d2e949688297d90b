// Command storefront drives the storefront client from a terminal: cart,
// checkout, payment verification and sign-in against a storefront API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/domains/payment/gateway/mock"
	"storefront/internal/shared/navigation"
	"storefront/internal/shared/notify"
	"storefront/pkg/container"
	"storefront/pkg/logger"
)

const appName = "storefront"

// app is shared by every subcommand. It is built lazily so that commands
// like fakeapi never need a reachable API.
type app struct {
	c         *container.Container
	notes     *notify.Recorder
	nav       *printNavigator
	scheduler *navigation.ManualScheduler
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Storefront cart and checkout client",
		Long: `storefront talks to a storefront REST API as a shopper would.

Auth tokens, the guest id and the cart snapshot are kept in the configured
storage. Use STORAGE_DRIVER=redis to keep them between invocations.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		cartCmd(a),
		addressesCmd(a),
		checkoutCmd(a),
		verifyCmd(a),
		retryCmd(a),
		loginCmd(a),
		logoutCmd(a),
		fakeAPICmd(),
	)
	return cmd
}

// init builds the container on first use
func (a *app) init(cmd *cobra.Command) error {
	if a.c != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	a.notes = &notify.Recorder{}
	a.nav = &printNavigator{out: cmd.OutOrStdout()}
	a.scheduler = &navigation.ManualScheduler{}

	c, err := container.NewContainer(cfg, container.Options{
		Navigator: a.nav,
		Scheduler: a.scheduler,
		Notifier:  a.notes,
		Confirmer: mock.NewMockConfirmer(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	a.c = c

	cobra.OnFinalize(func() {
		a.flush(cmd)
		a.c.Cleanup()
	})
	return nil
}

// flush prints the notifications and countdowns left by a command
func (a *app) flush(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	for _, n := range a.notes.Drain() {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}
	for _, d := range a.scheduler.Delays() {
		fmt.Fprintf(out, "redirecting home in %s\n", d)
	}
}
