// Package cmd defines and implements the CLI commands for the melonapi executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/api"
	"github.com/JakeFAU/melon-chart-api/internal/app"
	"github.com/JakeFAU/melon-chart-api/internal/catalog"
	"github.com/JakeFAU/melon-chart-api/internal/config"
	"github.com/JakeFAU/melon-chart-api/internal/prefetch"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the slice of the application the commands use. Tests inject a fake.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetCatalog() *catalog.Service
	GetPrefetcher() *prefetch.Scheduler
	GetServer() *api.Server
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgFile string) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewApp(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "melonapi",
		Short: "Serve and query the Melon music catalog.",
		Long: `melonapi scrapes chart, song and album pages from melon.com, caches the
results for a short time and serves them as JSON over HTTP. The lookup
subcommands print a single record without starting the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (built-in defaults and MELON_* env vars when unset)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChartCmd())
	cmd.AddCommand(newSongCmd())
	cmd.AddCommand(newAlbumCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "melonapi: %v\n", err)
		os.Exit(1)
	}
}

// withApp resolves the App for run and closes it when run returns, error or
// not. cobra skips PersistentPostRun after a failed RunE.
func withApp(
	run func(cmd *cobra.Command, appInstance App, args []string) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		appInstance, err := resolveApp(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()
		return run(cmd, appInstance, args)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
