// Command matfx-sim extrapolates generated tracks through a geometry,
// accounting for the energy loss and the multiple scattering in its materials.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/sbinet/matfx"
	"github.com/sbinet/matfx/sim"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		log.Fatalf("matfx-sim: %+v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fname   string
		verbose bool

		nprocs int
		nevts  int
		ievt   int64
		seed   int64
		oname  string
		fprof  string
		ftrace string
	)

	root := &cobra.Command{
		Use:          "matfx-sim",
		Short:        "Extrapolate tracks through matter",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sim.LoadConfig(fname)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("nprocs") {
				cfg.Workers = nprocs
			}
			if flags.Changed("nevts") {
				cfg.Events = nevts
			}
			if flags.Changed("ievt") {
				cfg.FirstEvent = ievt
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("output") {
				cfg.Output = oname
			}
			if flags.Changed("cpu-profile") {
				cfg.CPUProfile = fprof
			}
			if flags.Changed("ftrace") {
				cfg.Trace = ftrace
			}

			lvl := slog.LevelInfo
			if verbose || cfg.Effects.DebugLevel > 0 {
				lvl = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

			app, err := sim.New(cfg, matfx.DefaultCatalog(), logger)
			if err != nil {
				return err
			}

			sum, err := app.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"events=%d stopped=%d lost=%d loss=%g±%g GeV steps=%g\n",
				sum.Events, sum.Stopped, sum.Lost, sum.Loss, sum.LossStd, sum.Steps,
			)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&fname, "config", "c", "", "path to a YAML configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	flags.IntVar(&nprocs, "nprocs", 1, "number of concurrent workers")
	flags.IntVar(&nevts, "nevts", 100, "number of events to process")
	flags.Int64Var(&ievt, "ievt", 0, "first event of the event loop")
	flags.Int64Var(&seed, "seed", 1234, "seed of the event generator")
	flags.StringVarP(&oname, "output", "o", "matfx.out", "path to output file to store results")
	flags.StringVar(&fprof, "cpu-profile", "", "enable CPU profiling")
	flags.StringVar(&ftrace, "ftrace", "", "enable tracing")

	root.AddCommand(newMaterialsCmd(), newDumpCmd())
	return root
}

func newMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List the materials of the default catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := matfx.DefaultCatalog()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintf(w, "name\tdensity\tZ\tA\tX0\tI\n")
			for _, name := range cat.Names() {
				m, err := cat.Material(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%g\t%.3f\t%.3f\t%g\t%g\n",
					name, m.Density, m.Z, m.A, m.RadiationLength, m.MeanExcitation,
				)
			}
			return w.Flush()
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump file.out",
		Short: "Print the results stored in an output file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := matfx.ReadResults(f)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintf(w, "event\tpdg\tp0\tp\tlength\tsteps\tstopped\tlost\tsigma(q/p)\n")
			for _, r := range res {
				fmt.Fprintf(w, "%d\t%d\t%g\t%g\t%g\t%d\t%v\t%v\t%g\n",
					r.Event, r.PDG, r.Momentum0, r.Momentum, r.Length, r.Steps, r.Stopped, r.Lost, r.Sigma[6],
				)
			}
			return w.Flush()
		},
	}
}
