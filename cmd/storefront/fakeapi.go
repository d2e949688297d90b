package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/testutil/fakeapi"
	"storefront/pkg/logger"
)

// demo catalogue served by the fake API
var demoProducts = []struct{ id, name, price string }{
	{"1", "Ceramic Mug", "8.50"},
	{"2", "Linen Tea Towel", "4.25"},
	{"3", "Walnut Chopping Board", "32.00"},
}

func fakeAPICmd() *cobra.Command {
	var (
		addr     string
		prefix   string
		secret   string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "fakeapi",
		Short: "Serve an in-memory storefront API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init("development", "debug")

			fake := fakeapi.New(secret)
			for _, p := range demoProducts {
				fake.AddProduct(p.id, p.name, p.price)
			}
			fake.AddUser("1", email, password)

			var handler http.Handler = fake.Handler()
			if prefix != "" {
				handler = http.StripPrefix(prefix, handler)
			}
			return serve(cmd.Context(), addr, handler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().StringVar(&prefix, "prefix", "/api", "path prefix matching API_BASE_URL")
	cmd.Flags().StringVar(&secret, "secret", "dev-secret", "token signing secret")
	cmd.Flags().StringVar(&email, "user-email", "demo@example.co.uk", "email of the demo account")
	cmd.Flags().StringVar(&password, "user-password", "demo-pass", "password of the demo account")
	return cmd
}

// serve runs the server until ctx is cancelled, then shuts down gracefully
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fake api listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down fake api", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
