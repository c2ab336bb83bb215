package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smart-led-controller/backend/internal/analytics"
	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/store"
)

type demoOptions struct {
	ticks     int
	interval  time.Duration
	simulate  bool
	sunlight  float64
	occupancy int
	manualPWM int
}

type DemoResult struct {
	Readings []reading.Reading `json:"readings"`
	Savings  analytics.Savings `json:"savings"`
}

// NewDemoCommand runs the control engine locally against an in-memory store, with the
// same control law and generator the server uses.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the control loop offline and print its readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.ticks, "ticks", "n", 10, "number of readings to produce")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pause between readings")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "use simulated sensor values")
	cmd.Flags().Float64Var(&opts.sunlight, "sunlight", 300, "simulated ambient lux")
	cmd.Flags().IntVar(&opts.occupancy, "occupancy", 0, "simulated occupancy")
	cmd.Flags().IntVar(&opts.manualPWM, "manual", -1, "run in manual mode at this duty cycle")

	return cmd
}

func runDemo(cmd *cobra.Command, rootOpts *RootOptions, opts *demoOptions) error {
	if opts.ticks < 1 {
		return fmt.Errorf("--ticks must be at least 1")
	}
	ctx := cmd.Context()
	l := rootOpts.logger(cmd.ErrOrStderr())

	engine := control.NewEngine(control.WithClock(rootOpts.now))
	if opts.simulate {
		if err := control.Apply(engine, control.SimulationMode{Enabled: true, Sunlight: opts.sunlight, Occupancy: opts.occupancy}); err != nil {
			return err
		}
	}
	if opts.manualPWM >= 0 {
		if err := control.Apply(engine, control.ManualMode{Enabled: true, PWM: opts.manualPWM}); err != nil {
			return err
		}
	}

	mem := store.NewMemoryStore(opts.ticks)
	result := DemoResult{Readings: make([]reading.Reading, 0, opts.ticks)}

	bc := broadcast.New(l, nil)
	defer bc.Close()
	if _, err := bc.Subscribe(broadcast.ObserverFunc(func(r reading.Reading) error {
		result.Readings = append(result.Readings, r)
		return mem.Append(ctx, r)
	})); err != nil {
		return err
	}

	for i := range opts.ticks {
		if i > 0 && opts.interval > 0 {
			if err := sleep(ctx, opts.interval); err != nil {
				break
			}
		}
		bc.Publish(engine.Tick())
	}

	savings, err := analytics.New(mem, time.Local).EnergySavings(ctx, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	result.Savings = savings

	out := rootOpts.output(cmd)
	return out.emit(result, func() {
		out.printf("%-19s  %-9s  %3s  %5s  %3s  %6s  %5s  %s\n", "TIME", "MODE", "OCC", "LUX", "PWM", "WATTS", "TOTAL", "STATUS")
		for _, r := range result.Readings {
			out.printf("%-19s  %-9s  %3d  %5.0f  %3d  %6.2f  %5.0f  %s\n",
				r.Timestamp.Format(time.DateTime), r.Mode, r.OccupancyCount, r.AmbientLux,
				r.LEDOutputPWM, r.EnergyConsumedWatts, r.TotalLux, r.Status)
		}
		out.printf("\n%d readings, %.2f W used vs %.2f W always-on (%.1f%% saved)\n",
			savings.Readings, savings.SmartEnergy, savings.StaticEnergy, savings.SavingsPercent)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
