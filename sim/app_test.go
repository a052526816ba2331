package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sbinet/matfx"
	"github.com/sbinet/matfx/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, workers int) Config {
	cfg := DefaultConfig()
	cfg.Events = 6
	cfg.Workers = workers
	cfg.Output = filepath.Join(t.TempDir(), "matfx.out")
	cfg.Generator.MinMomentum = 1
	cfg.Generator.MaxMomentum = 20
	return cfg
}

func readResults(t *testing.T, fname string) []matfx.Result {
	t.Helper()
	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()

	res, err := matfx.ReadResults(f)
	require.NoError(t, err)
	sort.Slice(res, func(i, j int) bool { return res[i].Event < res[j].Event })
	return res
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, 3)
	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)

	sum, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Events, sum.Events)

	res := readResults(t, cfg.Output)
	require.Len(t, res, cfg.Events)

	stopped := 0
	for i, r := range res {
		assert.Equal(t, int64(i), r.Event)
		assert.Contains(t, []int64{-13, 13}, r.PDG)
		assert.GreaterOrEqual(t, r.Momentum0, cfg.Generator.MinMomentum)
		assert.LessOrEqual(t, r.Momentum0, cfg.Generator.MaxMomentum)
		assert.Greater(t, r.Steps, int64(0))
		if r.Stopped {
			stopped++
			assert.Equal(t, 0.0, r.Momentum)
			continue
		}
		assert.InDelta(t, 0, r.Position.Y, 1e-5, "event %d", i)
		assert.Less(t, r.Momentum, r.Momentum0, "event %d", i)
		assert.Greater(t, r.Sigma[6], 0.0, "event %d", i)
	}
	assert.Equal(t, stopped, sum.Stopped)
	if stopped < cfg.Events {
		assert.Greater(t, sum.Loss, 0.0)
	}
	assert.Greater(t, sum.Steps, 0.0)

	// events are seeded independently of the worker processing them.
	cfg1 := testConfig(t, 1)
	app, err = New(cfg1, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res, readResults(t, cfg1.Output))
}

func TestRunFirstEvent(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Events = 2
	cfg.FirstEvent = 4

	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	require.NoError(t, err)

	ref := testConfig(t, 2)
	app, err = New(ref, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, readResults(t, ref.Output)[4:], readResults(t, cfg.Output))
}

func TestRunNoEffects(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Effects.NoEffects = true

	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	sum, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Stopped)
	assert.Equal(t, 0.0, sum.Loss)

	for _, r := range readResults(t, cfg.Output) {
		assert.False(t, r.Stopped)
		assert.Equal(t, r.Momentum0, r.Momentum)
		assert.Equal(t, [7]float64{}, r.Sigma)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Events = 1000

	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = app.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOutputError(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Output = filepath.Join(t.TempDir(), "missing", "matfx.out")

	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// closer is a material interface failing to close.
type closer struct {
	effects.MaterialInterface
	err error
}

func (c closer) Close() error { return c.err }

func TestRelease(t *testing.T) {
	var (
		log  = slog.New(slog.NewTextHandler(io.Discard, nil))
		fail = errors.New("close failed")
		geo  = &matfx.Geometry{}
	)
	newEngine := func(err error) *effects.Engine {
		eng, e := effects.New(
			effects.DefaultConfig(),
			effects.WithMaterialInterface(closer{geo.Cursor(), err}),
		)
		require.NoError(t, e)
		return eng
	}

	var err error
	release(newEngine(nil), log, &err)
	assert.NoError(t, err)

	release(newEngine(fail), log, &err)
	assert.ErrorIs(t, err, fail)

	// the first error of the worker is kept.
	err = context.Canceled
	release(newEngine(fail), log, &err)
	assert.Equal(t, context.Canceled, err)
}

func TestRunLost(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Events = 8
	cfg.Field = []float64{0, 0, 4}
	cfg.Generator.MinMomentum = 0.05
	cfg.Generator.MaxMomentum = 0.06
	cfg.Geometry.World = "vacuum"
	cfg.Geometry.Volumes = nil

	app, err := New(cfg, matfx.DefaultCatalog(), nil)
	require.NoError(t, err)
	sum, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Events, sum.Events)
	assert.Equal(t, cfg.Events, sum.Lost)
	assert.Equal(t, 0, sum.Stopped)
	assert.Equal(t, 0.0, sum.Loss)

	res := readResults(t, cfg.Output)
	require.Len(t, res, cfg.Events)
	for _, r := range res {
		assert.True(t, r.Lost, "event %d", r.Event)
		assert.Greater(t, r.Position.Y, 0.0, "event %d", r.Event)
	}
}
