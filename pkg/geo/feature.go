package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Classification is the declared risk class of a layer.
type Classification string

const (
	Critical Classification = "critical"
	Warning  Classification = "warning"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	return c == Critical || c == Warning
}

// Feature is a geometry plus its attributes. Features are never mutated after load.
type Feature struct {
	Geometry   orb.Geometry
	Attributes Attributes
}

// FromGeoJSON converts a parsed GeoJSON feature.
func FromGeoJSON(f *geojson.Feature) Feature {
	if f == nil {
		return Feature{}
	}
	return Feature{
		Geometry:   f.Geometry,
		Attributes: Attributes(f.Properties),
	}
}

// GeoJSON renders the feature for the map collaborator.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	for k, v := range f.Attributes {
		gf.Properties[k] = v
	}
	return gf
}

// Layer is a named, ordered collection of features sharing a schema.
type Layer struct {
	ID             string
	Name           string
	Classification Classification
	Features       []Feature

	// Weighted marks the population layer whose attributes are summed.
	Weighted bool

	// Missing is set when the data source was absent or unreadable.
	Missing bool
}

// Validate requires a display name and exactly one classification.
func (l Layer) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("layer %q: empty display name", l.ID)
	}
	if !l.Classification.Valid() {
		return fmt.Errorf("layer %q: invalid classification %q", l.ID, l.Classification)
	}
	return nil
}

// SelectedFire is the fire-affected feature currently under analysis.
type SelectedFire struct {
	Feature Feature
	Year    int
}
