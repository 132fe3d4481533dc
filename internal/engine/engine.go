// Package engine replays a device's event stream through a per-device state
// machine and produces its normalized daily-mean profiles.
package engine

import (
	"context"
	"iter"

	"github.com/j-veylop/devicestats/internal/classify"
	"github.com/j-veylop/devicestats/internal/models"
)

// ctxCheckInterval is how many records are processed between cancellation checks.
const ctxCheckInterval = 4096

// NameFilter restricts which app names are tracked.
type NameFilter interface {
	Contains(name string) bool
}

// Config selects what the engine tracks.
type Config struct {
	// Filter limits tracked app names. Nil accepts every name.
	Filter NameFilter
	// Categories overrides the EntryType categories of interest. When empty
	// the categories needed by Kinds are used.
	Categories []string
	Kinds      models.KindSet
	Layout     models.Layout
}

// Engine holds configuration only; every run starts from fresh device state.
type Engine struct {
	classifier *classify.Classifier
	cfg        Config
}

// New builds an engine for cfg.
func New(cfg Config) *Engine {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = cfg.Kinds.Categories()
	}
	return &Engine{
		cfg:        cfg,
		classifier: classify.New(classify.NewCategorySet(categories...)),
	}
}

// Layout returns the bucket layout the engine produces.
func (e *Engine) Layout() models.Layout {
	return e.cfg.Layout
}

// Kinds returns the tracked kinds.
func (e *Engine) Kinds() models.KindSet {
	return e.cfg.Kinds
}

// NewDevice returns fresh state for one device.
func (e *Engine) NewDevice(id string) *Device {
	return &Device{
		id:         id,
		cfg:        e.cfg,
		classifier: e.classifier,
		identity:   NewAppIdentityTable(),
		counters:   NewCounterState(),
		sms:        NewSMSCounter(),
		raw:        make(map[models.Kind]map[string]models.Profile),
	}
}

// Run replays records for one device and returns its normalized profiles.
// Only cancellation produces an error.
func (e *Engine) Run(ctx context.Context, id string, records iter.Seq[models.Record]) (*models.DeviceProfiles, error) {
	dev := e.NewDevice(id)
	n := 0
	for rec := range records {
		dev.Observe(rec)
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return dev.Finish(), nil
}
