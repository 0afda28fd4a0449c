// Package aggregate sums population and counts infrastructure inside an
// impact buffer.
package aggregate

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"opintel/pkg/geo"
	"opintel/pkg/logging"
)

// Intersecter is the spatial predicate of an impact zone.
type Intersecter interface {
	Intersects(g orb.Geometry) (bool, error)
}

// Totals holds the weighted sums of the population layer.
type Totals struct {
	Population int `json:"population"`
	Households int `json:"households"`

	// Tested is the number of features checked against the buffer.
	Tested int `json:"tested"`
	// Skipped counts features whose geometry the predicate rejected. They
	// contribute nothing to counts or sums.
	Skipped int `json:"skipped"`
}

// Entry is the exposure of one infrastructure layer.
type Entry struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Count          int                `json:"count"`
	Classification geo.Classification `json:"classification"`
}

// Aggregator scans layers against a buffer.
type Aggregator struct {
	PopulationField string
	HouseholdField  string
	Logger          *slog.Logger
}

// Aggregate tests every feature of every layer against buf exactly once.
// The weighted layer feeds Totals; every other layer with at least one hit
// yields an Entry, in the order of layers. Missing layers contribute nothing.
func (a *Aggregator) Aggregate(ctx context.Context, buf Intersecter, layers []geo.Layer) (Totals, []Entry, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var totals Totals
	var entries []Entry

	for _, l := range layers {
		if err := ctx.Err(); err != nil {
			return Totals{}, nil, err
		}
		if l.Missing {
			continue
		}

		count, skipped := 0, 0
		for i, f := range l.Features {
			totals.Tested++

			hit, err := buf.Intersects(f.Geometry)
			if err != nil {
				logging.Trace(logger, "Feature skipped", "layer", l.ID, "index", i, "error", err)
				skipped++
				continue
			}
			if !hit {
				continue
			}

			if l.Weighted {
				totals.Population += f.Attributes.Int(a.PopulationField)
				totals.Households += f.Attributes.Int(a.HouseholdField)
				continue
			}
			count++
		}

		if skipped > 0 {
			totals.Skipped += skipped
			logger.Warn("Features with invalid geometry left out of analysis",
				"layer", l.ID, "skipped", skipped, "total", len(l.Features))
		}

		if !l.Weighted && count > 0 {
			entries = append(entries, Entry{
				ID:             l.ID,
				Name:           l.Name,
				Count:          count,
				Classification: l.Classification,
			})
		}
	}

	logger.Debug("Aggregation complete",
		"tested", totals.Tested,
		"skipped", totals.Skipped,
		"population", totals.Population,
		"households", totals.Households,
		"entries", len(entries))
	return totals, entries, nil
}
