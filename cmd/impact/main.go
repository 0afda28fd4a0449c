package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"opintel/pkg/advisory"
	"opintel/pkg/aggregate"
	"opintel/pkg/analysis"
	"opintel/pkg/catalog"
	"opintel/pkg/config"
	"opintel/pkg/geo"
	"opintel/pkg/geometry"
)

const noInfrastructure = "Sin infraestructura crítica detectada"

func main() {
	configPath := flag.String("config", "configs/opintel.yaml", "Path to the config file")
	year := flag.Int("year", 2026, "Fire season to select from")
	index := flag.Int("index", 0, "Index of the fire feature within its season")
	fireFile := flag.String("geojson", "", "Analyse the first feature of this GeoJSON file instead of a catalog fire")
	verbose := flag.Bool("v", false, "Log catalog loading")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), os.Stdout, logger, *configPath, *year, *index, *fireFile); err != nil {
		fmt.Fprintf(os.Stderr, "impact: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, logger *slog.Logger, configPath string, year, index int, fireFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	decls, fires := catalog.FromConfig(cfg)
	cat, err := catalog.Load(ctx, decls, fires, logger)
	if err != nil {
		return err
	}

	fire, err := pickFire(cat, year, index, fireFile)
	if err != nil {
		return err
	}

	printer := &textPresenter{out: out}
	ctrl := analysis.New(analysis.Deps{
		Buffers: geometry.NewService(cfg.Analysis.QuadSegs),
		Catalog: cat,
		Aggregator: &aggregate.Aggregator{
			PopulationField: cfg.Analysis.PopulationField,
			HouseholdField:  cfg.Analysis.HouseholdField,
			Logger:          logger,
		},
		Classifier: advisory.NewClassifier(cfg.Analysis.PopulationThreshold, cfg.Analysis.PowerLayer),
		Presenter:  printer,
		Logger:     logger,
	}, analysis.Options{
		RadiusKm: cfg.Analysis.BufferRadius.Km(),
		Mode:     analysis.ModeManagement,
	})

	if err := ctrl.Select(ctx, fire.Feature, fire.Year); err != nil {
		return err
	}
	if printer.err != nil {
		return printer.err
	}
	return nil
}

func pickFire(cat *catalog.Catalog, year, index int, fireFile string) (geo.SelectedFire, error) {
	if fireFile == "" {
		return cat.Fire(year, index)
	}
	features, err := catalog.ReadGeoJSON(fireFile)
	if err != nil {
		return geo.SelectedFire{}, err
	}
	if len(features) == 0 {
		return geo.SelectedFire{}, errors.New("no features in " + fireFile)
	}
	return geo.SelectedFire{Feature: features[0], Year: year}, nil
}

// textPresenter prints the dashboard summary.
type textPresenter struct {
	out io.Writer
	err error
}

func (p *textPresenter) BufferChanged(prev, next *geometry.Buffer) {
	if next == nil {
		return
	}
	b := next.Bound
	p.printf("Zona de impacto: %.1f km  [%.5f, %.5f, %.5f, %.5f]\n",
		next.RadiusKm, b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
}

func (p *textPresenter) AnalysisReady(r *analysis.Result) {
	p.printf("Incendio %d\n", r.FireYear)
	p.printf("Población afectada: %d\n", r.AffectedPopulation)
	p.printf("Hogares afectados: %d\n", r.AffectedHouseholds)
	p.printf("Infraestructura en riesgo:\n")
	p.printf("%s", formatEntries(r.Entries()))
	p.printf("\n%s\n", r.AdvisoryMessage)
}

func (p *textPresenter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.out, format, args...)
}

func formatEntries(entries []aggregate.Entry) string {
	if len(entries) == 0 {
		return "  " + noInfrastructure + "\n"
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %-22s %-8s %d\n", e.Name, e.Classification, e.Count)
	}
	return sb.String()
}
