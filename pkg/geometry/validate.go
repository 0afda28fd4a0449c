package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// checkGeometry rejects geometries that cannot produce a meaningful buffer.
func checkGeometry(g orb.Geometry) error {
	if g == nil {
		return fmt.Errorf("%w: no geometry", ErrDegenerate)
	}

	n := 0
	bad := false
	visit := func(p orb.Point) {
		n++
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			bad = true
		}
	}
	walk(g, visit)

	if bad {
		return fmt.Errorf("%w: non-finite coordinate", ErrDegenerate)
	}
	if n == 0 {
		return fmt.Errorf("%w: empty %s", ErrDegenerate, g.GeoJSONType())
	}

	switch t := g.(type) {
	case orb.Polygon:
		if len(t) == 0 || len(t[0]) < 3 {
			return fmt.Errorf("%w: polygon without an outer ring", ErrDegenerate)
		}
	case orb.MultiPolygon:
		for _, p := range t {
			if len(p) == 0 || len(p[0]) < 3 {
				return fmt.Errorf("%w: multipolygon member without an outer ring", ErrDegenerate)
			}
		}
	}
	return nil
}

func walk(g orb.Geometry, visit func(orb.Point)) {
	switch t := g.(type) {
	case orb.Point:
		visit(t)
	case orb.MultiPoint:
		for _, p := range t {
			visit(p)
		}
	case orb.LineString:
		for _, p := range t {
			visit(p)
		}
	case orb.MultiLineString:
		for _, ls := range t {
			walk(ls, visit)
		}
	case orb.Ring:
		for _, p := range t {
			visit(p)
		}
	case orb.Polygon:
		for _, r := range t {
			walk(r, visit)
		}
	case orb.MultiPolygon:
		for _, p := range t {
			walk(p, visit)
		}
	case orb.Collection:
		for _, c := range t {
			walk(c, visit)
		}
	case orb.Bound:
		visit(t.Min)
		visit(t.Max)
	}
}
