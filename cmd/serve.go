package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the JSON API and, when enabled, the background chart prefetcher.
The process shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: withApp(runServeCommand),
	}
}

func runServeCommand(cmd *cobra.Command, appInstance App, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := appInstance.GetConfig()
	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)),
		Handler:           appInstance.GetServer().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve(ctx, appInstance, srv)
}

// serve runs srv until ctx ends or the listener fails, then drains it.
func serve(ctx context.Context, appInstance App, srv *http.Server) error {
	logger := appInstance.GetLogger()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefetcher := appInstance.GetPrefetcher()
	prefetcher.Start()
	defer prefetcher.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
