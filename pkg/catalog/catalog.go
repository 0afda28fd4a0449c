package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"opintel/pkg/config"
	"opintel/pkg/geo"
)

// ErrUnknownFire is returned when a fire reference does not resolve.
var ErrUnknownFire = errors.New("unknown fire")

// loadConcurrency bounds how many sources are parsed at once.
const loadConcurrency = 4

// Source declares where a layer's features come from.
type Source struct {
	Kind  string // geojson, shapefile, sqlite
	Path  string
	Table string
}

// Declaration is one entry of the catalog as configured.
type Declaration struct {
	ID             string
	Name           string
	Classification geo.Classification
	Weighted       bool
	Source         Source
}

// FireDeclaration declares a selectable fire-affected layer.
type FireDeclaration struct {
	Year   int
	Source Source
}

// FireLayer holds the fire-affected features of one season.
type FireLayer struct {
	Year     int
	Features []geo.Feature
	Missing  bool
}

// Catalog is the fixed, ordered registry of exposure layers plus the
// selectable fire layers. It is read-only after Load.
type Catalog struct {
	layers []geo.Layer
	fires  []FireLayer
}

// FromConfig turns the configured declarations into catalog declarations,
// resolving source paths against the data directory.
func FromConfig(cfg *config.Config) ([]Declaration, []FireDeclaration) {
	src := func(s config.SourceConfig) Source {
		return Source{Kind: s.Kind, Path: cfg.ResolvePath(s.Path), Table: s.Table}
	}

	decls := make([]Declaration, 0, len(cfg.Layers))
	for _, l := range cfg.Layers {
		decls = append(decls, Declaration{
			ID:             l.ID,
			Name:           l.Name,
			Classification: geo.Classification(l.Classification),
			Weighted:       l.Weighted,
			Source:         src(l.Source),
		})
	}

	fires := make([]FireDeclaration, 0, len(cfg.Fires))
	for _, f := range cfg.Fires {
		fires = append(fires, FireDeclaration{Year: f.Year, Source: src(f.Source)})
	}
	return decls, fires
}

// New builds a catalog from already loaded layers, validating each one.
func New(layers []geo.Layer, fires []FireLayer) (*Catalog, error) {
	weighted := 0
	for _, l := range layers {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if l.Weighted {
			weighted++
		}
	}
	if weighted > 1 {
		return nil, fmt.Errorf("catalog: %d weighted layers, at most one allowed", weighted)
	}
	return &Catalog{layers: layers, fires: fires}, nil
}

// Load reads every declared source concurrently, keeping the declared order.
// A source that is absent or unreadable yields an empty layer marked Missing;
// it never aborts the others. Only cancellation and invalid declarations fail.
func Load(ctx context.Context, decls []Declaration, fireDecls []FireDeclaration, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	layers := make([]geo.Layer, len(decls))
	for i, d := range decls {
		layers[i] = geo.Layer{
			ID:             d.ID,
			Name:           d.Name,
			Classification: d.Classification,
			Weighted:       d.Weighted,
		}
		if err := layers[i].Validate(); err != nil {
			return nil, err
		}
	}
	fires := make([]FireLayer, len(fireDecls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, d := range decls {
		g.Go(func() error {
			features, err := readSource(gctx, d.Source)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logMissing(logger, "layer", d.ID, d.Source, err)
				layers[i].Missing = true
				return nil
			}
			layers[i].Features = features
			return nil
		})
	}

	for i, d := range fireDecls {
		g.Go(func() error {
			fires[i].Year = d.Year
			features, err := readSource(gctx, d.Source)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logMissing(logger, "fire", fmt.Sprint(d.Year), d.Source, err)
				fires[i].Missing = true
				return nil
			}
			fires[i].Features = features
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog load: %w", err)
	}

	c, err := New(layers, fires)
	if err != nil {
		return nil, err
	}

	loaded := 0
	for _, l := range layers {
		if !l.Missing {
			loaded++
		}
	}
	logger.Info("Catalog loaded", "layers", len(layers), "available", loaded, "fires", len(fires))
	return c, nil
}

func logMissing(logger *slog.Logger, what, id string, src Source, err error) {
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("Layer data absent, skipping", what, id, "path", src.Path)
		return
	}
	logger.Warn("Layer data unreadable, skipping", what, id, "path", src.Path, "error", err)
}

// Layers returns every layer in declared order. The slice is a copy; the
// features are shared and must not be modified.
func (c *Catalog) Layers() []geo.Layer {
	out := make([]geo.Layer, len(c.layers))
	copy(out, c.layers)
	return out
}

// Population returns the weighted layer, if one is declared.
func (c *Catalog) Population() (geo.Layer, bool) {
	for _, l := range c.layers {
		if l.Weighted {
			return l, true
		}
	}
	return geo.Layer{}, false
}

// Infrastructure returns every non-weighted layer in declared order.
func (c *Catalog) Infrastructure() []geo.Layer {
	out := make([]geo.Layer, 0, len(c.layers))
	for _, l := range c.layers {
		if !l.Weighted {
			out = append(out, l)
		}
	}
	return out
}

// Fires returns the fire layers in declared order.
func (c *Catalog) Fires() []FireLayer {
	out := make([]FireLayer, len(c.fires))
	copy(out, c.fires)
	return out
}

// FireLayer returns the fire layer of the given year.
func (c *Catalog) FireLayer(year int) (FireLayer, error) {
	for _, f := range c.fires {
		if f.Year == year {
			return f, nil
		}
	}
	return FireLayer{}, fmt.Errorf("%w: year %d", ErrUnknownFire, year)
}

// Fire returns one feature of a fire layer.
func (c *Catalog) Fire(year, index int) (geo.SelectedFire, error) {
	layer, err := c.FireLayer(year)
	if err != nil {
		return geo.SelectedFire{}, err
	}
	if index < 0 || index >= len(layer.Features) {
		return geo.SelectedFire{}, fmt.Errorf("%w: year %d has no feature %d", ErrUnknownFire, year, index)
	}
	return geo.SelectedFire{Feature: layer.Features[index], Year: year}, nil
}
