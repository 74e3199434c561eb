package cmd

import (
	"os"

	"github.com/conneroisu/vlist/internal/adapters"
	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/config"
	"github.com/conneroisu/vlist/internal/events"
	"github.com/conneroisu/vlist/internal/logging"
	"github.com/conneroisu/vlist/internal/mockdata"
	"github.com/conneroisu/vlist/internal/viewport"
)

// stack is the assembled engine behind the demo commands.
type stack struct {
	cfg    *config.Config
	logger logging.Logger
	bus    *events.Bus
	coll   *collection.Collection
	engine *viewport.Engine
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// newAdapter picks the dataset source: a REST upstream when
// dataset.url is set, a watched JSON file when dataset.path is set,
// otherwise a generated in-memory set.
func newAdapter(cfg *config.Config, logger logging.Logger) (adapters.Adapter, func(), error) {
	if cfg.Dataset.URL != "" {
		return adapters.NewHTTPAdapter(cfg.Dataset.URL), func() {}, nil
	}

	if cfg.Dataset.Path != "" {
		fa, err := adapters.NewFileAdapter(cfg.Dataset.Path, logger)
		if err != nil {
			return nil, nil, err
		}

		return fa, func() { _ = fa.Close() }, nil
	}

	items := mockdata.NewGenerator(cfg.Dataset.Seed).Users(cfg.Dataset.Count)

	return adapters.NewSliceAdapter(items), func() {}, nil
}

// buildStack loads config and wires adapter, collection, and engine.
// The returned cleanup releases the adapter's resources.
func buildStack(engineOpts func(*config.Config) viewport.Options) (*stack, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg)
	bus := events.NewBus()

	adapter, cleanup, err := newAdapter(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	coll, err := collection.New(adapter, collection.Options{
		Strategy:        cfg.Engine.PaginationStrategy,
		MaxConcurrent:   cfg.Engine.MaxConcurrent,
		FetchTimeout:    cfg.Engine.FetchTimeout,
		PlaceholderMask: cfg.Engine.PlaceholderMask,
	}, bus, logger)
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	engine, err := viewport.New(coll, engineOpts(cfg), bus, logger)
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	s := &stack{cfg: cfg, logger: logger, bus: bus, coll: coll, engine: engine}
	closeAll := func() {
		engine.Close()
		cleanup()
	}

	return s, closeAll, nil
}

// pixelOptions maps the engine config onto browser-style pixel units.
func pixelOptions(cfg *config.Config) viewport.Options {
	return viewport.Options{
		Orientation:       cfg.Engine.Orientation,
		EstimatedItemSize: cfg.Engine.EstimatedItemSize,
		Overscan:          cfg.Engine.Overscan,
		RangeSize:         cfg.Engine.RangeSize,
		FastThreshold:     cfg.Engine.FastThreshold,
		SlowThreshold:     cfg.Engine.SlowThreshold,
		MinThumbSize:      cfg.Engine.MinThumbSize,
		ShowErrorItems:    cfg.Engine.ShowErrorItems,
	}
}

// lineOptions maps the engine config onto terminal line units: one
// line per item, thresholds scaled accordingly.
func lineOptions(cfg *config.Config) viewport.Options {
	return viewport.Options{
		Orientation:       cfg.Engine.Orientation,
		EstimatedItemSize: 1,
		ContainerSize:     24,
		Overscan:          cfg.Engine.Overscan,
		RangeSize:         cfg.Engine.RangeSize,
		FastThreshold:     15,
		SlowThreshold:     3,
		MinThumbSize:      1,
		ShowErrorItems:    true,
	}
}
