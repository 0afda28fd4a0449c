package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb/geojson"

	"opintel/pkg/db"
	"opintel/pkg/geo"
)

func readSource(ctx context.Context, src Source) ([]geo.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch src.Kind {
	case "geojson", "":
		return ReadGeoJSON(src.Path)
	case "shapefile":
		return ReadShapefile(ctx, src.Path)
	case "sqlite":
		return readSQLite(ctx, src.Path, src.Table)
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}

// ReadGeoJSON loads a FeatureCollection file. Layers exported as JavaScript
// by qgis2web ("var json_X = {...};") are accepted as well.
func ReadGeoJSON(path string) ([]geo.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(stripJSWrapper(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson %s: %w", path, err)
	}

	features := make([]geo.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		features = append(features, geo.FromGeoJSON(f))
	}
	return features, nil
}

func stripJSWrapper(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '{' {
		return trimmed
	}
	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return trimmed
	}
	return trimmed[start : end+1]
}

func readSQLite(ctx context.Context, path, table string) ([]geo.Feature, error) {
	store, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	features, skipped, err := store.ReadLayer(ctx, table)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("Skipped undecodable rows", "path", path, "table", table, "rows", skipped)
	}
	return features, nil
}
