package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"opintel/pkg/geo"
)

// localFrame is an equirectangular projection centred on a reference point,
// in meters. Over the few kilometres of a fire buffer the scale error stays
// well below the tolerance of the polygonal approximation.
type localFrame struct {
	origin orb.Point
	kx, ky float64
}

func newLocalFrame(origin orb.Point) localFrame {
	return localFrame{
		origin: origin,
		kx:     geo.MetersPerDegreeLon(origin.Lat()),
		ky:     geo.MetersPerDegreeLat,
	}
}

func (f localFrame) forward(p orb.Point) orb.Point {
	return orb.Point{(p[0] - f.origin[0]) * f.kx, (p[1] - f.origin[1]) * f.ky}
}

func (f localFrame) inverse(p orb.Point) orb.Point {
	return orb.Point{p[0]/f.kx + f.origin[0], p[1]/f.ky + f.origin[1]}
}

func (f localFrame) toMeters(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), f.forward)
}

func (f localFrame) toLonLat(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), f.inverse)
}

// usable reports whether the frame can be built at this latitude.
func (f localFrame) usable() bool {
	return f.kx > 1e-6 && !math.IsNaN(f.kx)
}
