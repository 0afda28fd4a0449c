package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

func TestAttributes_Int(t *testing.T) {
	attrs := Attributes{
		"float":     float64(120.9),
		"negative":  float64(-3.7),
		"int":       42,
		"int64":     int64(7),
		"number":    json.Number("15"),
		"str":       "250",
		"str_float": " 12.5 ",
		"prefix":    "12 personas",
		"garbage":   "sin dato",
		"empty":     "",
		"nil":       nil,
		"bool":      true,
		"nan":       math.NaN(),
		"inf":       math.Inf(1),
	}

	tests := []struct {
		key  string
		want int
	}{
		{"float", 120},
		{"negative", -3},
		{"int", 42},
		{"int64", 7},
		{"number", 15},
		{"str", 250},
		{"str_float", 12},
		{"prefix", 12},
		{"garbage", 0},
		{"empty", 0},
		{"nil", 0},
		{"bool", 0},
		{"nan", 0},
		{"inf", 0},
		{"absent", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, attrs.Int(tt.key))
		})
	}
}

func TestAttributes_Int_NilMap(t *testing.T) {
	var attrs Attributes
	assert.Equal(t, 0, attrs.Int("n_per"))
}

func TestLayer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		layer   Layer
		wantErr bool
	}{
		{"ok", Layer{ID: "schools", Name: "Escuelas", Classification: Critical}, false},
		{"no name", Layer{ID: "schools", Classification: Critical}, true},
		{"bad class", Layer{ID: "schools", Name: "Escuelas", Classification: "high"}, true},
		{"no class", Layer{ID: "schools", Name: "Escuelas"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layer.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeature_GeoJSONRoundTrip(t *testing.T) {
	src := geojson.NewFeature(orb.Point{-71.5, -35.5})
	src.Properties["n_per"] = float64(10)

	f := FromGeoJSON(src)
	assert.Equal(t, 10, f.Attributes.Int("n_per"))

	out := f.GeoJSON()
	assert.Equal(t, orb.Point{-71.5, -35.5}, out.Geometry)
	assert.Equal(t, float64(10), out.Properties["n_per"])

	assert.Nil(t, FromGeoJSON(nil).Geometry)
}
