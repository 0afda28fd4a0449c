package geometry

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"

	"opintel/pkg/geo"
)

// DefaultQuadSegs is the number of segments per quarter circle used to
// approximate round joins and caps.
const DefaultQuadSegs = 8

// Service builds impact buffers around selected features.
type Service struct {
	ctx      *geos.Context
	quadSegs int
}

// NewService creates a buffer service. quadSegs <= 0 selects DefaultQuadSegs.
func NewService(quadSegs int) *Service {
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegs
	}
	return &Service{
		ctx:      geos.NewContext(),
		quadSegs: quadSegs,
	}
}

// Buffer expands the feature's geometry outward by radiusKm and returns the
// resulting polygon. It fails with *Error for degenerate input or when the
// geometry engine faults.
func (s *Service) Buffer(f geo.Feature, radiusKm float64) (buf *Buffer, err error) {
	const op = "buffer"

	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, degenerate(op, "radius %v km", radiusKm)
	}
	if err := checkGeometry(f.Geometry); err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	// GEOS reports internal faults by panicking through the bindings.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Geometry engine fault", "op", op, "panic", r)
			buf = nil
			err = &Error{Op: op, Err: fmt.Errorf("geos: %v", r)}
		}
	}()

	frame := newLocalFrame(f.Geometry.Bound().Center())
	if !frame.usable() {
		return nil, degenerate(op, "cannot project around %v", frame.origin)
	}

	src, err := s.toGEOS(frame.toMeters(f.Geometry))
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	out := src.Buffer(radiusKm*1000, s.quadSegs)
	if out == nil || out.IsEmpty() {
		return nil, &Error{Op: op, Err: fmt.Errorf("empty buffer result")}
	}

	g, err := wkb.Unmarshal(out.ToWKB())
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode buffer: %w", err)}
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, &Error{Op: op, Err: fmt.Errorf("unexpected buffer type %s", g.GeoJSONType())}
	}

	lonLat := frame.toLonLat(g)
	prepared, err := s.toGEOS(lonLat)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	return &Buffer{
		Geometry: lonLat,
		RadiusKm: radiusKm,
		Bound:    lonLat.Bound(),
		svc:      s,
		prepared: prepared.Prepare(),
	}, nil
}

func (s *Service) toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", g.GeoJSONType(), err)
	}
	gg, err := s.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("geos parse %s: %w", g.GeoJSONType(), err)
	}
	return gg, nil
}

// Buffer is the impact zone derived from a selected fire.
type Buffer struct {
	Geometry orb.Geometry
	RadiusKm float64
	Bound    orb.Bound

	svc      *Service
	prepared *geos.PrepGeom
}

// Intersects reports whether g shares any point with the buffer: touching,
// overlapping and containment all count.
func (b *Buffer) Intersects(g orb.Geometry) (ok bool, err error) {
	if g == nil {
		return false, degenerate("intersects", "nil geometry")
	}
	if !b.Bound.Intersects(g.Bound()) {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = &Error{Op: "intersects", Err: fmt.Errorf("geos: %v", r)}
		}
	}()

	other, err := b.svc.toGEOS(g)
	if err != nil {
		return false, &Error{Op: "intersects", Err: err}
	}
	return b.prepared.Intersects(other), nil
}

// GeoJSON renders the buffer with its bounding box so the map can fit the view.
func (b *Buffer) GeoJSON() *geojson.Feature {
	f := geojson.NewFeature(b.Geometry)
	f.BBox = geojson.NewBBox(b.Bound)
	f.Properties["radius_km"] = b.RadiusKm
	return f
}
