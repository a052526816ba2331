// Package sim runs event loops extrapolating generated tracks through a
// geometry, writing one binary matfx.Result per event.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/sbinet/matfx"
	"github.com/sbinet/matfx/effects"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Detector is the plane where tracks are collected.
var Detector = matfx.Plane{Normal: r3.Vec{Y: 1}}

type App struct {
	cfg  Config
	geo  *matfx.Geometry
	prop effects.Propagator
	gen  matfx.Generator
	log  *slog.Logger
}

// New creates an application from a validated configuration, taking its
// materials from cat.
func New(cfg Config, cat *matfx.Catalog, log *slog.Logger) (*App, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	geo, err := cfg.Geometry.geometry(cat)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:  cfg,
		geo:  geo,
		prop: cfg.propagator(),
		gen:  cfg.Generator.generator(),
		log:  log,
	}, nil
}

// Summary describes the outcome of an event loop.
type Summary struct {
	Events  int
	Stopped int     // tracks which ranged out before the detector
	Lost    int     // tracks which turned away from the detector
	Loss    float64 // mean momentum loss of the detected tracks, in GeV
	LossStd float64
	Steps   float64 // mean number of steps per track
}

// Run processes the configured events and writes their results to the
// output file.
func (app *App) Run(ctx context.Context) (sum Summary, err error) {
	if app.cfg.CPUProfile != "" {
		fprof, err := os.Create(app.cfg.CPUProfile)
		if err != nil {
			return sum, fmt.Errorf("sim: could not create pprof output file: %w", err)
		}
		defer fprof.Close()
		err = pprof.StartCPUProfile(fprof)
		if err != nil {
			return sum, fmt.Errorf("sim: could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if app.cfg.Trace != "" {
		ftrace, err := os.Create(app.cfg.Trace)
		if err != nil {
			return sum, fmt.Errorf("sim: could not create trace output file: %w", err)
		}
		defer ftrace.Close()
		err = trace.Start(ftrace)
		if err != nil {
			return sum, fmt.Errorf("sim: could not start trace: %w", err)
		}
		defer trace.Stop()
	}

	fout, err := os.Create(app.cfg.Output)
	if err != nil {
		return sum, fmt.Errorf("sim: could not create output file: %w", err)
	}
	defer fout.Close()

	app.log.Info("event loop",
		"events", app.cfg.Events, "first", app.cfg.FirstEvent,
		"workers", app.cfg.Workers, "output", app.cfg.Output,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		grp, gctx = errgroup.WithContext(ctx)
		evts      = make(chan int64)
		resc      = make(chan matfx.Result, app.cfg.Workers)
	)

	grp.Go(func() error {
		defer close(evts)
		for i := 0; i < app.cfg.Events; i++ {
			select {
			case evts <- app.cfg.FirstEvent + int64(i):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < app.cfg.Workers; i++ {
		i := i
		grp.Go(func() error {
			return app.worker(gctx, i, evts, resc)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- grp.Wait()
		close(resc)
	}()

	sum, werr := app.write(fout, resc)
	if werr != nil {
		cancel()
		for range resc {
		}
	}

	err = <-done
	switch {
	case werr != nil:
		return sum, werr
	case err != nil:
		return sum, err
	}

	err = fout.Close()
	if err != nil {
		return sum, fmt.Errorf("sim: could not close output file: %w", err)
	}

	app.log.Info("event loop done",
		"events", sum.Events, "stopped", sum.Stopped, "lost", sum.Lost,
		"loss", sum.Loss, "loss-std", sum.LossStd, "steps", sum.Steps,
	)
	return sum, nil
}

func (app *App) worker(ctx context.Context, id int, evts <-chan int64, resc chan<- matfx.Result) (err error) {
	log := app.log.With("worker", id)

	nav := app.geo.Cursor().WithLogger(log)
	eng, err := effects.New(
		app.cfg.Effects,
		effects.WithLogger(log),
		effects.WithMaterialInterface(nav),
	)
	if err != nil {
		return fmt.Errorf("sim: could not create effects engine: %w", err)
	}
	defer release(eng, log, &err)

	st := &matfx.Stepper{
		Engine:     eng,
		Propagator: app.prop,
		MaxStep:    app.cfg.MaxStep,
		MaxSteps:   app.cfg.MaxSteps,
	}
	if app.cfg.Effects.DebugLevel > 0 {
		st.Log = log
	}

	for evt := range evts {
		rng := rand.New(rand.NewSource(app.cfg.Seed + evt))
		trk, err := app.gen.Generate(evt, rng)
		if err != nil {
			return fmt.Errorf("sim: could not generate event %d: %w", evt, err)
		}

		err = st.Extrapolate(trk, Detector)
		switch {
		case errors.Is(err, matfx.ErrPlaneUnreachable):
			log.Debug("track lost", "event", evt, "err", err)
		case err != nil:
			return fmt.Errorf("sim: could not process event %d: %w", evt, err)
		}

		select {
		case resc <- trk.Result():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// release finalizes eng, reporting its error through *err unless the
// worker already failed.
func release(eng *effects.Engine, log *slog.Logger, err *error) {
	e := eng.Finalize()
	if e == nil {
		return
	}
	log.Error("could not finalize effects engine", "err", e)
	if *err == nil {
		*err = fmt.Errorf("sim: could not finalize effects engine: %w", e)
	}
}

func (app *App) write(f io.Writer, resc <-chan matfx.Result) (Summary, error) {
	var (
		sum   Summary
		w     = bufio.NewWriter(f)
		loss  []float64
		steps = 0.0
	)
	for res := range resc {
		buf, err := res.MarshalBinary()
		if err != nil {
			return sum, fmt.Errorf("sim: could not encode result of event %d: %w", res.Event, err)
		}
		_, err = w.Write(buf)
		if err != nil {
			return sum, fmt.Errorf("sim: could not write result of event %d: %w", res.Event, err)
		}

		sum.Events++
		steps += float64(res.Steps)
		switch {
		case res.Stopped:
			sum.Stopped++
			continue
		case res.Lost:
			sum.Lost++
			continue
		}
		loss = append(loss, res.Momentum0-res.Momentum)
	}

	err := w.Flush()
	if err != nil {
		return sum, fmt.Errorf("sim: could not flush output file: %w", err)
	}

	if sum.Events > 0 {
		sum.Steps = steps / float64(sum.Events)
	}
	switch len(loss) {
	case 0:
	case 1:
		sum.Loss = loss[0]
	default:
		sum.Loss, sum.LossStd = stat.MeanStdDev(loss, nil)
	}
	return sum, nil
}
