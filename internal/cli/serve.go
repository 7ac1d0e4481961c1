package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/internal/bootstrap"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "populate an empty store with a sample tree")
	return cmd
}

func serve(ctx context.Context, opts *options, seed bool) error {
	provider, err := opts.load(ctx)
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(provider.GetEnvironment(), os.Stderr)
	if provider.GetEnvironment() != config.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := bootstrap.New(ctx, provider, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if seed {
		if _, err := app.Service.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	if app.Limiter != nil {
		go app.Limiter.RunSweeper(ctx, 5*time.Minute)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Server.Port),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "storage", app.Server.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
