// Package analysis drives the selection → buffer → aggregate → classify cycle.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"opintel/pkg/advisory"
	"opintel/pkg/aggregate"
	"opintel/pkg/geo"
	"opintel/pkg/geometry"
)

// DefaultRadiusKm is the width of the impact zone.
const DefaultRadiusKm = 1.0

// ErrSuperseded is returned by Select when a later selection took the slot
// before this run could commit.
var ErrSuperseded = errors.New("analysis superseded by a later selection")

// BufferService builds the impact zone of a feature.
type BufferService interface {
	Buffer(f geo.Feature, radiusKm float64) (*geometry.Buffer, error)
}

// LayerSource supplies the catalog layers in presentation order.
type LayerSource interface {
	Layers() []geo.Layer
}

// Aggregator scans layers against a buffer.
type Aggregator interface {
	Aggregate(ctx context.Context, buf aggregate.Intersecter, layers []geo.Layer) (aggregate.Totals, []aggregate.Entry, error)
}

// Classifier maps an aggregate to an advisory.
type Classifier interface {
	Classify(in advisory.Input) advisory.State
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Buffers    BufferService
	Catalog    LayerSource
	Aggregator Aggregator
	Classifier Classifier
	Presenter  Presenter
	Logger     *slog.Logger
}

// Options tune a Controller.
type Options struct {
	RadiusKm float64
	Mode     Mode
}

// Snapshot is a consistent view of the current analysis slot.
type Snapshot struct {
	State  State
	Mode   Mode
	Fire   *geo.SelectedFire
	Buffer *geometry.Buffer
	Result *Result
}

// Controller owns the current analysis. Selections may arrive from several
// goroutines; the last one to be selected is the only one that commits.
type Controller struct {
	deps     Deps
	radiusKm float64
	logger   *slog.Logger

	mu     sync.Mutex
	mode   Mode
	state  State
	gen    uint64
	fire   *geo.SelectedFire
	buffer *geometry.Buffer
	result *Result

	// emitMu keeps presenter calls in commit order.
	emitMu sync.Mutex
}

// New creates an idle controller.
func New(deps Deps, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Presenter == nil {
		deps.Presenter = Presenters(nil)
	}
	if opts.RadiusKm <= 0 {
		opts.RadiusKm = DefaultRadiusKm
	}
	return &Controller{
		deps:     deps,
		radiusKm: opts.RadiusKm,
		logger:   deps.Logger,
		mode:     opts.Mode,
		state:    StateIdle,
	}
}

// RadiusKm returns the buffer radius used for every selection.
func (c *Controller) RadiusKm() float64 {
	return c.radiusKm
}

// SetMode switches the operating mode. Leaving management mode drops the
// selection, buffer and result, and tells the presenter to clear the buffer.
func (c *Controller) SetMode(m Mode) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	old := c.mode
	c.mode = m

	var prev *geometry.Buffer
	if old == ModeManagement && m != ModeManagement {
		prev = c.buffer
		c.gen++
		c.fire = nil
		c.buffer = nil
		c.result = nil
		c.state = StateIdle
	}
	c.mu.Unlock()

	if old != m {
		c.logger.Info("Mode changed", "from", old, "to", m)
	}
	if prev != nil {
		c.deps.Presenter.BufferChanged(prev, nil)
	}
}

// Mode returns the current operating mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Snapshot returns the current analysis slot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:  c.state,
		Mode:   c.mode,
		Fire:   c.fire,
		Buffer: c.buffer,
		Result: c.result,
	}
}

// Select runs an analysis for the given fire feature. Outside management
// mode it does nothing. A geometry failure is returned as *geometry.Error and
// leaves the previous fire, buffer and result in place. A run overtaken by a
// later selection is dropped without emitting anything and returns
// ErrSuperseded.
func (c *Controller) Select(ctx context.Context, f geo.Feature, year int) error {
	c.mu.Lock()
	if c.mode != ModeManagement {
		mode := c.mode
		c.mu.Unlock()
		analysisRuns.WithLabelValues(outcomeIgnored).Inc()
		c.logger.Debug("Selection ignored", "mode", mode, "year", year)
		return nil
	}
	c.gen++
	gen := c.gen
	c.state = StateAnalyzing
	c.mu.Unlock()

	start := time.Now()
	c.logger.Debug("Analysis started", "year", year, "generation", gen)

	buf, err := c.deps.Buffers.Buffer(f, c.radiusKm)
	if err != nil {
		c.abort(gen)
		analysisRuns.WithLabelValues(outcomeGeometryError).Inc()
		c.logger.Error("Buffer failed, keeping previous analysis", "year", year, "error", err)
		return err
	}

	totals, entries, err := c.deps.Aggregator.Aggregate(ctx, buf, c.deps.Catalog.Layers())
	if err != nil {
		c.abort(gen)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			analysisRuns.WithLabelValues(outcomeCancelled).Inc()
			c.logger.Warn("Analysis cancelled", "year", year, "error", err)
		} else {
			c.logger.Error("Aggregation failed", "year", year, "error", err)
		}
		return err
	}
	featuresTested.Add(float64(totals.Tested))
	featuresSkipped.Add(float64(totals.Skipped))

	state := c.deps.Classifier.Classify(advisory.Input{
		Population: totals.Population,
		Households: totals.Households,
		Entries:    entries,
	})
	result := newResult(year, c.radiusKm, totals, entries, state)

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		analysisRuns.WithLabelValues(outcomeSuperseded).Inc()
		c.logger.Debug("Analysis superseded", "year", year, "generation", gen)
		return ErrSuperseded
	}
	prev := c.buffer
	c.fire = &geo.SelectedFire{Feature: f, Year: year}
	c.buffer = buf
	c.result = result
	c.state = StateReady
	c.mu.Unlock()

	analysisRuns.WithLabelValues(outcomeReady).Inc()
	analysisDuration.Observe(time.Since(start).Seconds())

	c.deps.Presenter.BufferChanged(prev, buf)
	c.deps.Presenter.AnalysisReady(result)
	return nil
}

// abort returns a failed run to IDLE unless a later selection owns the slot.
func (c *Controller) abort(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.state = StateIdle
	}
}
