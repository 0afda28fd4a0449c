package analysis

import (
	"time"

	"github.com/google/uuid"

	"opintel/pkg/advisory"
	"opintel/pkg/aggregate"
)

// Result is the outcome of one analysis cycle. It is never modified after
// it has been handed to a presenter.
type Result struct {
	ID                 string            `json:"id"`
	FireYear           int               `json:"fire_year"`
	AffectedPopulation int               `json:"affected_population"`
	AffectedHouseholds int               `json:"affected_households"`
	Infrastructure     []aggregate.Entry `json:"infrastructure"`
	SkippedFeatures    int               `json:"skipped_features,omitempty"`
	Advisory           advisory.State    `json:"advisory"`
	AdvisoryMessage    string            `json:"advisory_message"`
	BufferRadiusKm     float64           `json:"buffer_radius_km"`
	CreatedAt          time.Time         `json:"created_at"`
}

func newResult(year int, radiusKm float64, totals aggregate.Totals, entries []aggregate.Entry, state advisory.State) *Result {
	infra := make([]aggregate.Entry, len(entries))
	copy(infra, entries)
	return &Result{
		ID:                 uuid.NewString(),
		FireYear:           year,
		AffectedPopulation: totals.Population,
		AffectedHouseholds: totals.Households,
		Infrastructure:     infra,
		SkippedFeatures:    totals.Skipped,
		Advisory:           state,
		AdvisoryMessage:    state.Message(),
		BufferRadiusKm:     radiusKm,
		CreatedAt:          time.Now().UTC(),
	}
}

// Entries returns a copy of the infrastructure risk list.
func (r *Result) Entries() []aggregate.Entry {
	out := make([]aggregate.Entry, len(r.Infrastructure))
	copy(out, r.Infrastructure)
	return out
}
