package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygons_GroupsHolesByOrientation(t *testing.T) {
	// Two clockwise outer rings, the first with a counter-clockwise hole.
	points := []shp.Point{
		{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
		{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2},
		{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 25, Y: 0}, {X: 20, Y: 0},
	}
	g := polygons([]int32{0, 5, 10}, points)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "got %T", g)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "first polygon keeps its hole")
	assert.Len(t, mp[1], 1)
}

func TestLines(t *testing.T) {
	points := []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}

	single := lines([]int32{0}, points)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, single)

	multi := lines([]int32{0, 2}, points)
	assert.Equal(t, orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}, multi)
}

func TestReadShapefile_Polygon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incendio.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.NumberField("ANIO", 4)}))

	ring := []shp.Point{{X: -71.5, Y: -35.5}, {X: -71.5, Y: -35.4}, {X: -71.4, Y: -35.4}, {X: -71.4, Y: -35.5}, {X: -71.5, Y: -35.5}}
	w.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	require.NoError(t, w.WriteAttribute(0, 0, 2023))
	w.Close()

	features, err := ReadShapefile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.IsType(t, orb.Polygon{}, features[0].Geometry)
	assert.Equal(t, 2023, features[0].Attributes.Int("ANIO"))
}
