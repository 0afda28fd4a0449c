package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opintel/internal/api"
	"opintel/pkg/advisory"
	"opintel/pkg/aggregate"
	"opintel/pkg/analysis"
	"opintel/pkg/catalog"
	"opintel/pkg/config"
	"opintel/pkg/geometry"
	"opintel/pkg/logging"
	"opintel/pkg/probe"
	"opintel/pkg/version"
)

var (
	configPath = flag.String("config", "configs/opintel.yaml", "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	trace      = flag.Bool("trace", false, "Log every feature tested against the buffer")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	logging.EnableTrace = *trace

	slog.Info("OpIntel Started", "version", version.Version, "mode", appCfg.Mode)

	mode, err := analysis.ParseMode(appCfg.Mode)
	if err != nil {
		return err
	}

	decls, fires := catalog.FromConfig(appCfg)
	cat, err := catalog.Load(ctx, decls, fires, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	buffers := geometry.NewService(appCfg.Analysis.QuadSegs)

	results := probe.Run(ctx, []probe.Probe{
		probe.DataDir(appCfg.DataDir),
		probe.GeometryEngine(buffers, appCfg.Analysis.BufferRadius.Km()),
		probe.PopulationLayer(cat),
		probe.InfrastructureLayers(cat),
		probe.FireLayers(cat),
	})
	if err := probe.AnalyzeResults(slog.Default(), results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	hub := api.NewHub()
	defer hub.Close()

	ctrl := analysis.New(analysis.Deps{
		Buffers: buffers,
		Catalog: cat,
		Aggregator: &aggregate.Aggregator{
			PopulationField: appCfg.Analysis.PopulationField,
			HouseholdField:  appCfg.Analysis.HouseholdField,
			Logger:          slog.Default(),
		},
		Classifier: advisory.NewClassifier(appCfg.Analysis.PopulationThreshold, appCfg.Analysis.PowerLayer),
		Presenter:  analysis.Presenters{analysis.LogPresenter{}, hub},
		Logger:     slog.Default(),
	}, analysis.Options{
		RadiusKm: appCfg.Analysis.BufferRadius.Km(),
		Mode:     mode,
	})

	srv := api.NewServer(appCfg.Server, api.NewCatalogHandler(cat), api.NewAnalysisHandler(ctrl, cat), hub)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	return runServerLifecycle(ctx, srv, quit, time.Duration(appCfg.Server.ShutdownTimeout))
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal, shutdownTimeout time.Duration) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
