package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"smart-led-controller/backend/internal/analytics"
	"smart-led-controller/backend/internal/config"
	"smart-led-controller/backend/internal/store"
)

var weekdays = [...]string{"", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print analytics over the configured store",
	}

	cmd.AddCommand(newHourlyReport(rootOpts))
	cmd.AddCommand(newSavingsReport(rootOpts))
	cmd.AddCommand(newHeatmapReport(rootOpts))
	cmd.AddCommand(newStabilityReport(rootOpts))
	cmd.AddCommand(newStatsReport(rootOpts))

	return cmd
}

func (o *RootOptions) withAnalytics(cmd *cobra.Command, fn func(e *analytics.Engine) error) error {
	return o.withStore(cmd, func(_ *slog.Logger, cfg *config.Config, st store.Store) error {
		return fn(analytics.New(st, cfg.Location, analytics.WithClock(o.now)))
	})
}

func newHourlyReport(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "hourly",
		Short: "Per-hour averages for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withAnalytics(cmd, func(e *analytics.Engine) error {
				day := e.Today()
				if date != "" {
					d, err := time.ParseInLocation(time.DateOnly, date, day.Location())
					if err != nil {
						return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
					}
					day = d
				}

				buckets, err := e.HourlyRollup(cmd.Context(), day)
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(buckets, func() {
					out.printf("%-5s  %8s  %7s  %7s  %7s  %10s\n", "HOUR", "READINGS", "AVG OCC", "AVG LUX", "AVG PWM", "ENERGY (W)")
					for _, b := range buckets {
						out.printf("%02d:00  %8d  %7.2f  %7.2f  %7.2f  %10.2f\n",
							b.Hour, b.Count, b.AvgOccupancy, b.AvgLux, b.AvgPWM, b.TotalEnergy)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to report (YYYY-MM-DD, default today)")
	return cmd
}

func newSavingsReport(rootOpts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Energy used versus an always-on baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withAnalytics(cmd, func(e *analytics.Engine) error {
				s, err := e.EnergySavingsDays(cmd.Context(), days)
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(s, func() {
					out.printf("readings:      %d\n", s.Readings)
					out.printf("smart energy:  %.2f W\n", s.SmartEnergy)
					out.printf("static energy: %.2f W\n", s.StaticEnergy)
					out.printf("saved:         %.1f%%\n", s.SavingsPercent)
					out.printf("average PWM:   %.2f\n", s.AvgPWM)
				})
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", analytics.DefaultDays, "trailing days to cover")
	return cmd
}

func newHeatmapReport(rootOpts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Average occupancy by weekday and hour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withAnalytics(cmd, func(e *analytics.Engine) error {
				cells, err := e.OccupancyHeatmap(cmd.Context(), days)
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(cells, func() {
					out.printf("%-3s  %-5s  %7s  %8s\n", "DAY", "HOUR", "AVG OCC", "READINGS")
					for _, c := range cells {
						out.printf("%-3s  %02d:00  %7.2f  %8d\n", weekdays[c.DayOfWeek], c.Hour, c.AvgOccupancy, c.Count)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", analytics.DefaultDays, "trailing days to cover")
	return cmd
}

func newStabilityReport(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stability",
		Short: "Ambient versus LED light for the newest readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withAnalytics(cmd, func(e *analytics.Engine) error {
				points, err := e.StabilitySample(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(points, func() {
					out.printf("%-19s  %7s  %7s  %7s\n", "TIME", "AMBIENT", "LED", "TOTAL")
					for _, p := range points {
						out.printf("%-19s  %7.0f  %7.2f  %7.2f\n", p.Timestamp.Format(time.DateTime), p.AmbientLux, p.LEDContribution, p.TotalLux)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", analytics.DefaultStabilityLimit, "number of readings")
	return cmd
}

func newStatsReport(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Reading counts and average draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withAnalytics(cmd, func(e *analytics.Engine) error {
				st, err := e.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := rootOpts.output(cmd)
				return out.emit(st, func() {
					out.printf("total readings: %d\n", st.TotalLogs)
					out.printf("today:          %d\n", st.TodayLogs)
					out.printf("average draw:   %.2f W\n", st.AvgEnergyConsumption)
				})
			})
		},
	}
}
