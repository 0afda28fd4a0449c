package aggregate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"opintel/pkg/geo"
)

// boxBuffer intersects every geometry whose bound overlaps the box and
// records how often each geometry was tested.
type boxBuffer struct {
	box   orb.Bound
	calls map[orb.Point]int
	fail  map[orb.Point]bool
}

func newBox() *boxBuffer {
	return &boxBuffer{
		box:   orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}},
		calls: map[orb.Point]int{},
		fail:  map[orb.Point]bool{},
	}
}

func (b *boxBuffer) Intersects(g orb.Geometry) (bool, error) {
	if g == nil {
		return false, errors.New("nil geometry")
	}
	c := g.Bound().Center()
	b.calls[c]++
	if b.fail[c] {
		return false, errors.New("engine fault")
	}
	return b.box.Intersects(g.Bound()), nil
}

func inside(x float64) geo.Feature  { return geo.Feature{Geometry: orb.Point{x, 5}} }
func outside(x float64) geo.Feature { return geo.Feature{Geometry: orb.Point{x, 50}} }

func people(x float64, attrs geo.Attributes) geo.Feature {
	return geo.Feature{Geometry: orb.Point{x, 5}, Attributes: attrs}
}

func testLayers() []geo.Layer {
	return []geo.Layer{
		{ID: "population", Name: "Entidades 2024", Classification: geo.Warning, Weighted: true, Features: []geo.Feature{
			people(1, geo.Attributes{"n_per": 120.0, "n_hog": 40.0}),
			people(2, geo.Attributes{"n_per": "80", "n_hog": "25"}),
			people(3, geo.Attributes{"n_per": "sin dato", "n_hog": nil}),
			{Geometry: orb.Point{4, 50}, Attributes: geo.Attributes{"n_per": 9999.0, "n_hog": 9999.0}},
		}},
		{ID: "schools", Name: "Escuelas", Classification: geo.Critical, Features: []geo.Feature{
			inside(1.5), inside(2.5), inside(3.5), outside(4.5),
		}},
		{ID: "substations", Name: "Subestaciones Eléc.", Classification: geo.Critical, Missing: true},
		{ID: "roads", Name: "Red Vial (Tramos)", Classification: geo.Warning, Features: []geo.Feature{
			{Geometry: orb.LineString{{20, 20}, {30, 30}}},
		}},
		{ID: "water", Name: "APR (Agua)", Classification: geo.Warning, Features: []geo.Feature{
			{Geometry: orb.LineString{{-5, 5}, {5, 5}}},
		}},
	}
}

func TestAggregate(t *testing.T) {
	a := &Aggregator{PopulationField: "n_per", HouseholdField: "n_hog"}
	buf := newBox()

	totals, entries, err := a.Aggregate(context.Background(), buf, testLayers())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	wantTotals := Totals{Population: 200, Households: 65, Tested: 10}
	if diff := cmp.Diff(wantTotals, totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}

	wantEntries := []Entry{
		{ID: "schools", Name: "Escuelas", Count: 3, Classification: geo.Critical},
		{ID: "water", Name: "APR (Agua)", Count: 1, Classification: geo.Warning},
	}
	if diff := cmp.Diff(wantEntries, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	for c, n := range buf.calls {
		if n != 1 {
			t.Errorf("feature at %v tested %d times, want 1", c, n)
		}
	}
}

func TestAggregate_NoZeroEntries(t *testing.T) {
	a := &Aggregator{PopulationField: "n_per", HouseholdField: "n_hog"}
	layers := []geo.Layer{
		{ID: "schools", Name: "Escuelas", Classification: geo.Critical, Features: []geo.Feature{outside(1)}},
		{ID: "roads", Name: "Red Vial (Tramos)", Classification: geo.Warning},
	}

	_, entries, err := a.Aggregate(context.Background(), newBox(), layers)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	a := &Aggregator{PopulationField: "n_per", HouseholdField: "n_hog"}
	layers := testLayers()

	t1, e1, _ := a.Aggregate(context.Background(), newBox(), layers)
	for i := 0; i < 5; i++ {
		t2, e2, _ := a.Aggregate(context.Background(), newBox(), layers)
		if diff := cmp.Diff(t1, t2); diff != "" {
			t.Fatalf("run %d totals differ:\n%s", i, diff)
		}
		if diff := cmp.Diff(e1, e2); diff != "" {
			t.Fatalf("run %d entries differ:\n%s", i, diff)
		}
	}
}

func TestAggregate_PredicateErrorSkipsFeature(t *testing.T) {
	var logs bytes.Buffer
	a := &Aggregator{
		PopulationField: "n_per",
		HouseholdField:  "n_hog",
		Logger:          slog.New(slog.NewTextHandler(&logs, nil)),
	}
	buf := newBox()
	buf.fail[orb.Point{2.5, 5}] = true

	layers := []geo.Layer{
		{ID: "schools", Name: "Escuelas", Classification: geo.Critical, Features: []geo.Feature{
			inside(1.5), inside(2.5), {Geometry: nil}, inside(3.5),
		}},
	}

	totals, entries, err := a.Aggregate(context.Background(), buf, layers)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if totals.Tested != 4 {
		t.Errorf("Tested = %d, want 4", totals.Tested)
	}
	if totals.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", totals.Skipped)
	}
	if out := logs.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "layer=schools skipped=2") {
		t.Errorf("expected a warning for the skipped features, got:\n%s", out)
	}
	want := []Entry{{ID: "schools", Name: "Escuelas", Count: 2, Classification: geo.Critical}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_Cancelled(t *testing.T) {
	a := &Aggregator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := a.Aggregate(ctx, newBox(), testLayers())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
