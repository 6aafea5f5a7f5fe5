package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

func newChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "chart <top100|hot100|day|week|month>",
		Short:     "Print a chart as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: chartArgs(),
		RunE: withApp(func(cmd *cobra.Command, appInstance App, args []string) error {
			return runLookup(cmd, appInstance, "chart", func(ctx context.Context, a App) (any, error) {
				return a.GetCatalog().FetchChart(ctx, args[0])
			})
		}),
	}
}

func newSongCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "song <songId>",
		Short: "Print a song's details as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, appInstance App, args []string) error {
			return runLookup(cmd, appInstance, "song", func(ctx context.Context, a App) (any, error) {
				return a.GetCatalog().FetchSong(ctx, args[0])
			})
		}),
	}
}

func newAlbumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "album <albumId>",
		Short: "Print an album's details as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, appInstance App, args []string) error {
			return runLookup(cmd, appInstance, "album", func(ctx context.Context, a App) (any, error) {
				return a.GetCatalog().FetchAlbum(ctx, args[0])
			})
		}),
	}
}

func chartArgs() []string {
	types := melon.ChartTypes()
	out := make([]string, len(types))
	for i, ct := range types {
		out[i] = string(ct)
	}
	return out
}

func runLookup(
	cmd *cobra.Command,
	appInstance App,
	entity string,
	lookup func(context.Context, App) (any, error),
) error {
	record, err := lookup(cmd.Context(), appInstance)
	if err != nil {
		appInstance.GetLogger().Debug("lookup failed",
			zap.String("entity", entity),
			zap.String("kind", melon.KindOf(err).String()),
			zap.Error(err),
		)
		return fmt.Errorf("fetch %s: %w", entity, err)
	}
	return writeIndented(cmd.OutOrStdout(), record)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
