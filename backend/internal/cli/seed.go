package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"smart-led-controller/backend/internal/config"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/internal/store"
)

type SeedResult struct {
	Seeded int `json:"seeded"`
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Backfill a day of readings into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(l *slog.Logger, cfg *config.Config, st store.Store) error {
				n, err := services.SeedHistory(cmd.Context(), l, st, control.NewGenerator(nil), rootOpts.now(), cfg.Location)
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(SeedResult{Seeded: n}, func() {
					if n == 0 {
						out.printf("store already has readings, nothing seeded\n")
						return
					}
					out.printf("seeded %d readings\n", n)
				})
			})
		},
	}
}
