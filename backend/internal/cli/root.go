// Package cli implements ledctl, the offline companion to the server: a demo run of
// the control loop, history seeding and analytics reports against the configured store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"smart-led-controller/backend/internal/config"
	"smart-led-controller/backend/internal/store"
	"smart-led-controller/backend/pkg/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"
	Verbose    bool

	openStore func(ctx context.Context, l *slog.Logger, cfg *config.Config) (store.Store, error)
	now       func() time.Time
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{openStore: openConfiguredStore, now: time.Now})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ledctl",
		Short:         "Smart LED controller tooling",
		Long:          "Run the lighting control loop offline, seed reading history and report analytics.",
		Version:       utils.GetBuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (defaults to $CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging on stderr")

	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: utils.SlogReplacer,
	}))
}

// withStore loads the configuration, opens its store and hands both to fn.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(l *slog.Logger, cfg *config.Config, st store.Store) error) error {
	l := o.logger(cmd.ErrOrStderr())

	cfg, err := config.New(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer utils.LogOnError(l, cfg.Close, "failed to close config")

	st, err := o.openStore(cmd.Context(), l, cfg)
	if err != nil {
		return err
	}
	defer utils.LogOnError(l, st.Close, "failed to close store")

	return fn(l, cfg, st)
}

func openConfiguredStore(ctx context.Context, l *slog.Logger, cfg *config.Config) (store.Store, error) {
	st, err := store.OpenWithRetry(ctx, l, cfg.Dialect, cfg.Database, cfg.DBConnectRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Dialect, err)
	}
	return st, nil
}
