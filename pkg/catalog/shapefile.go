package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"opintel/pkg/geo"
)

// ReadShapefile loads the shapes of a .shp file with the attributes of its
// companion .dbf. Null and unsupported shapes are skipped.
func ReadShapefile(ctx context.Context, path string) ([]geo.Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	fields := reader.Fields()

	var features []geo.Feature
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, shape := reader.Shape()
		g := convertShape(shape)
		if g == nil {
			if _, isNull := shape.(*shp.Null); !isNull {
				slog.Debug("Skipping unsupported shape", "path", path, "type", fmt.Sprintf("%T", shape))
			}
			continue
		}

		attrs := make(geo.Attributes, len(fields))
		for i, f := range fields {
			attrs[f.String()] = attributeValue(f, reader.ReadAttribute(n, i))
		}
		features = append(features, geo.Feature{Geometry: g, Attributes: attrs})
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes in %s: %w", path, err)
	}
	return features, nil
}

// attributeValue keeps numeric DBF columns as numbers and everything else as text.
func attributeValue(f shp.Field, raw string) any {
	raw = strings.TrimSpace(strings.Trim(raw, "\x00"))
	switch f.Fieldtype {
	case 'N', 'F':
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

func convertShape(s shp.Shape) orb.Geometry {
	switch t := s.(type) {
	case *shp.Point:
		return orb.Point{t.X, t.Y}
	case *shp.PointZ:
		return orb.Point{t.X, t.Y}
	case *shp.PointM:
		return orb.Point{t.X, t.Y}
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, 0, len(t.Points))
		for _, p := range t.Points {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		return mp
	case *shp.PolyLine:
		return lines(t.Parts, t.Points)
	case *shp.PolyLineZ:
		return lines(t.Parts, t.Points)
	case *shp.Polygon:
		return polygons(t.Parts, t.Points)
	case *shp.PolygonZ:
		return polygons(t.Parts, t.Points)
	}
	return nil
}

func parts(starts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(starts))
	for i, start := range starts {
		end := int32(len(points))
		if i < len(starts)-1 {
			end = starts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

func lines(starts []int32, points []shp.Point) orb.Geometry {
	var mls orb.MultiLineString
	for _, p := range parts(starts, points) {
		mls = append(mls, orb.LineString(p))
	}
	if len(mls) == 1 {
		return mls[0]
	}
	return mls
}

// polygons groups rings by orientation: shapefile outer rings are clockwise
// and each counter-clockwise ring is a hole of the preceding outer ring.
func polygons(starts []int32, points []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, p := range parts(starts, points) {
		ring := orb.Ring(p)
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}
