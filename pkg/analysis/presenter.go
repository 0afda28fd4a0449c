package analysis

import (
	"log/slog"

	"opintel/pkg/geometry"
)

// Presenter receives the controller's output. Calls are serialised.
type Presenter interface {
	// BufferChanged asks the map to remove prev and draw next. next is nil
	// when the buffer was cleared.
	BufferChanged(prev, next *geometry.Buffer)
	AnalysisReady(r *Result)
}

// Presenters fans out to every presenter in order.
type Presenters []Presenter

func (ps Presenters) BufferChanged(prev, next *geometry.Buffer) {
	for _, p := range ps {
		p.BufferChanged(prev, next)
	}
}

func (ps Presenters) AnalysisReady(r *Result) {
	for _, p := range ps {
		p.AnalysisReady(r)
	}
}

// LogPresenter writes every emission to a logger.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p LogPresenter) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p LogPresenter) BufferChanged(prev, next *geometry.Buffer) {
	if next == nil {
		p.logger().Info("Buffer cleared")
		return
	}
	b := next.Bound
	p.logger().Info("Buffer changed",
		"replaced", prev != nil,
		"radius_km", next.RadiusKm,
		"bbox", []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()})
}

func (p LogPresenter) AnalysisReady(r *Result) {
	p.logger().Info("Analysis ready",
		"id", r.ID,
		"year", r.FireYear,
		"population", r.AffectedPopulation,
		"households", r.AffectedHouseholds,
		"layers", len(r.Infrastructure),
		"advisory", r.Advisory)
}
