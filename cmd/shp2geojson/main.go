package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"

	"opintel/pkg/catalog"
	"opintel/pkg/db"
)

func main() {
	inputPath := flag.String("input", "", "Path to input .shp file")
	outputPath := flag.String("output", "", "Path to output .geojson file")
	sqlitePath := flag.String("sqlite", "", "Optional layer store to write the features into")
	table := flag.String("table", "", "Table name in the layer store")
	flag.Parse()

	if *inputPath == "" || (*outputPath == "" && *sqlitePath == "") {
		flag.Usage()
		log.Fatal("Input and at least one of -output or -sqlite are required")
	}
	if *sqlitePath != "" && *table == "" {
		log.Fatal("-table is required with -sqlite")
	}

	if err := run(context.Background(), *inputPath, *outputPath, *sqlitePath, *table); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, inputPath, outputPath, sqlitePath, table string) error {
	features, err := catalog.ReadShapefile(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to read shapefile: %w", err)
	}

	if outputPath != "" {
		fc := geojson.NewFeatureCollection()
		for _, f := range features {
			fc.Append(f.GeoJSON())
		}

		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal GeoJSON: %w", err)
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Successfully converted %d features to %s\n", len(features), outputPath)
	}

	if sqlitePath != "" {
		store, err := db.Create(sqlitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.WriteLayer(ctx, table, features); err != nil {
			return fmt.Errorf("failed to write layer store: %w", err)
		}
		fmt.Printf("Stored %d features in %s (%s)\n", len(features), sqlitePath, table)
	}
	return nil
}
