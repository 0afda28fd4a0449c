// Package advisory classifies an aggregated analysis into a single advisory.
package advisory

import (
	"sort"

	"opintel/pkg/aggregate"
)

// DefaultPopulationThreshold is the affected population above which the
// population alert fires.
const DefaultPopulationThreshold = 1000

// DefaultPowerLayer is the catalog ID of the electrical substation layer.
const DefaultPowerLayer = "substations"

// State is the outcome of a classification.
type State string

const (
	MajorPopulationAlert     State = "MAJOR_POPULATION_ALERT"
	InfrastructurePowerAlert State = "INFRASTRUCTURE_POWER_ALERT"
	LowDensityMonitor        State = "LOW_DENSITY_MONITOR"
)

var messages = map[State]string{
	MajorPopulationAlert:     "ALERTA MAYOR: Zona densamente poblada. Priorizar evacuación y protección de vidas humanas. Requerimiento alto de carros bomba.",
	InfrastructurePowerAlert: "ALERTA INFRAESTRUCTURA: Riesgo de corte de suministro eléctrico. Coordinar con empresas de energía.",
	LowDensityMonitor:        "Zona de baja densidad. Monitorizar avance del fuego y proteger puntos aislados.",
}

// Message returns the operator text shown for the state.
func (s State) Message() string {
	return messages[s]
}

// Input is what the rules look at.
type Input struct {
	Population int
	Households int
	Entries    []aggregate.Entry
}

// Rule is one row of the decision table.
type Rule struct {
	Priority int
	Name     string
	Match    func(Input) bool
	Outcome  State
}

// Classifier evaluates its rules in priority order; the first match wins.
type Classifier struct {
	rules    []Rule
	fallback State
}

// NewClassifier builds the standard table: population over threshold, then
// any exposed feature of the power layer.
func NewClassifier(populationThreshold int, powerLayerID string) *Classifier {
	return NewClassifierWithRules(LowDensityMonitor,
		Rule{
			Priority: 1,
			Name:     "population",
			Match:    func(in Input) bool { return in.Population > populationThreshold },
			Outcome:  MajorPopulationAlert,
		},
		Rule{
			Priority: 2,
			Name:     "power",
			Match: func(in Input) bool {
				for _, e := range in.Entries {
					if e.ID == powerLayerID && e.Count > 0 {
						return true
					}
				}
				return false
			},
			Outcome: InfrastructurePowerAlert,
		},
	)
}

// NewClassifierWithRules builds a classifier from an arbitrary table.
func NewClassifierWithRules(fallback State, rules ...Rule) *Classifier {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Classifier{rules: sorted, fallback: fallback}
}

// Classify returns the outcome of the first matching rule.
func (c *Classifier) Classify(in Input) State {
	for _, r := range c.rules {
		if r.Match(in) {
			return r.Outcome
		}
	}
	return c.fallback
}

// Rules returns the table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
