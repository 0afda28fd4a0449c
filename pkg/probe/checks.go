package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"

	"opintel/pkg/catalog"
	"opintel/pkg/geo"
	"opintel/pkg/geometry"
)

// DataDir fails when the layer directory is not a readable directory.
func DataDir(path string) Probe {
	return Probe{
		Name:     "Data directory",
		Critical: true,
		Check: func(ctx context.Context) error {
			fi, err := os.Stat(path)
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				return fmt.Errorf("%s is not a directory", path)
			}
			return nil
		},
	}
}

// GeometryEngine buffers a point and checks that the result reaches the
// configured radius, no less and no further.
func GeometryEngine(svc *geometry.Service, radiusKm float64) Probe {
	return Probe{
		Name:     "Geometry engine",
		Critical: true,
		Check: func(ctx context.Context) error {
			centre := geo.Point{Lat: -35.5, Lon: -71.6}
			buf, err := svc.Buffer(geo.Feature{Geometry: orb.Point{centre.Lon, centre.Lat}}, radiusKm)
			if err != nil {
				return err
			}

			radiusM := radiusKm * 1000
			reach := geo.Distance(centre, geo.Point{Lat: buf.Bound.Max.Lat(), Lon: centre.Lon})
			if math.Abs(reach-radiusM) > radiusM*0.02 {
				return fmt.Errorf("buffer reaches %.0f m, want %.0f m", reach, radiusM)
			}

			for _, tc := range []struct {
				dist float64
				want bool
			}{
				{radiusM * 0.95, true},
				{radiusM * 1.05, false},
			} {
				p := geo.DestinationPoint(centre, tc.dist, 45)
				hit, err := buf.Intersects(orb.Point{p.Lon, p.Lat})
				if err != nil {
					return err
				}
				if hit != tc.want {
					return fmt.Errorf("point at %.0f m: intersects=%v", tc.dist, hit)
				}
			}
			return nil
		},
	}
}

// PopulationLayer warns when no weighted layer is loaded: totals will stay 0.
func PopulationLayer(c *catalog.Catalog) Probe {
	return Probe{
		Name: "Population layer",
		Check: func(ctx context.Context) error {
			l, ok := c.Population()
			if !ok {
				return errors.New("no weighted layer declared")
			}
			if l.Missing {
				return fmt.Errorf("layer %q has no data", l.ID)
			}
			return nil
		},
	}
}

// InfrastructureLayers warns about declared layers that loaded without data.
// Their exposure will never be reported.
func InfrastructureLayers(c *catalog.Catalog) Probe {
	return Probe{
		Name: "Infrastructure layers",
		Check: func(ctx context.Context) error {
			layers := c.Infrastructure()
			if len(layers) == 0 {
				return errors.New("no infrastructure layer declared")
			}
			var missing []string
			for _, l := range layers {
				if l.Missing {
					missing = append(missing, l.ID)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d of %d layers have no data: %s", len(missing), len(layers), strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// FireLayers warns when no fire layer can be selected from.
func FireLayers(c *catalog.Catalog) Probe {
	return Probe{
		Name: "Fire layers",
		Check: func(ctx context.Context) error {
			for _, f := range c.Fires() {
				if !f.Missing && len(f.Features) > 0 {
					return nil
				}
			}
			return errors.New("no fire layer loaded")
		},
	}
}
