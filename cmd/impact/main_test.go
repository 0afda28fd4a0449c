package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opintel/pkg/aggregate"
	"opintel/pkg/geo"
)

const testConfig = `data_dir: %DATA%
mode: gestion
log:
  server:
    path: %DATA%/server.log
  requests:
    path: %DATA%/requests.log
analysis:
  buffer_radius: 1km
  population_threshold: 1000
  power_layer: substations
  population_field: n_per
  household_field: n_hog
layers:
  - id: population
    name: Entidades 2024
    classification: warning
    weighted: true
    source: {kind: geojson, path: entidades.geojson}
  - id: schools
    name: Escuelas
    classification: critical
    source: {kind: geojson, path: escuelas.geojson}
  - id: substations
    name: Subestaciones Eléc.
    classification: critical
    source: {kind: geojson, path: subestaciones.geojson}
fires:
  - year: 2023
    source: {kind: geojson, path: incendio.js}
`

func writeData(t *testing.T, dir string) string {
	t.Helper()
	files := map[string]string{
		"entidades.geojson": `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"n_per":"300","n_hog":90},"geometry":{"type":"Point","coordinates":[-71.5995,-35.4995]}}]}`,
		"escuelas.geojson": `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[-71.5995,-35.4995]}},
			{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[-71.0,-35.0]}}]}`,
		"incendio.js": `var json_Area_incendiada2023_5 = {"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-71.6,-35.5],[-71.599,-35.5],[-71.599,-35.499],[-71.6,-35.499],[-71.6,-35.5]]]}}]};`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(dir, "opintel.yaml")
	cfg := strings.ReplaceAll(testConfig, "%DATA%", dir)
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeData(t, dir)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	if err := run(context.Background(), &out, quiet, cfgPath, 2023, 0, ""); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Incendio 2023",
		"Población afectada: 300",
		"Hogares afectados: 90",
		"Escuelas",
		"Zona de baja densidad",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Subestaciones") {
		t.Errorf("missing layer should not be listed:\n%s", got)
	}
}

func TestRun_UnknownFire(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeData(t, dir)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), io.Discard, quiet, cfgPath, 2017, 0, ""); err == nil {
		t.Error("expected error for unknown fire")
	}
}

func TestFormatEntries(t *testing.T) {
	if got := formatEntries(nil); !strings.Contains(got, noInfrastructure) {
		t.Errorf("empty list = %q", got)
	}
	got := formatEntries([]aggregate.Entry{{ID: "schools", Name: "Escuelas", Count: 3, Classification: geo.Critical}})
	if !strings.Contains(got, "Escuelas") || !strings.Contains(got, "critical") || !strings.Contains(got, "3") {
		t.Errorf("formatEntries() = %q", got)
	}
}
