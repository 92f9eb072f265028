package genome

import (
	"math"
	"testing"

	"github.com/JPLMLIA/TOGA/internal/config"
)

// TestComposeMetricsFillsInvalid is spec.md §8 scenario 5: an individual
// reporting banana=NaN, sinc=0.1 against banana range [0,400] (minimizing)
// must have its banana metric filled with the worst value, 400.
func TestComposeMetricsFillsInvalid(t *testing.T) {
	metrics := map[string]config.MetricConfig{
		"banana": {Range: []float64{0, 400}},
		"sinc":   {Range: []float64{-0.5, 0.5}},
	}
	values := map[string][]float64{
		"banana": {math.NaN()},
		"sinc":   {0.1},
	}

	out := ComposeMetrics(values, metrics, false)
	if out["banana"] != 400 {
		t.Fatalf("banana = %v, want worst value 400", out["banana"])
	}
	if out["sinc"] != 0.1 {
		t.Fatalf("sinc = %v, want 0.1", out["sinc"])
	}
}

func TestComposeMetricsMissingColumnFillsWorst(t *testing.T) {
	metrics := map[string]config.MetricConfig{
		"banana": {Range: []float64{0, 400}},
	}
	out := ComposeMetrics(map[string][]float64{}, metrics, true) // maximize
	if out["banana"] != 0 {
		t.Fatalf("banana = %v, want worst (min) value 0 when maximizing", out["banana"])
	}
}

func TestComposeMetricsMeanOfMultipleRows(t *testing.T) {
	metrics := map[string]config.MetricConfig{
		"x": {Range: []float64{0, 10}},
	}
	out := ComposeMetrics(map[string][]float64{"x": {2, 4, 6}}, metrics, false)
	if out["x"] != 4 {
		t.Fatalf("x = %v, want mean 4", out["x"])
	}
}

func TestWireRoundTrip(t *testing.T) {
	ind := Individual{
		UUID:    "abc-123",
		Gene:    map[string]interface{}{"k": 1},
		Metrics: map[string]float64{"sinc": 0.5},
		Lineage: Lineage{Mutator: "partial", GenerationNum: 0},
	}
	w := ind.ToWire()
	back := FromWire(w)
	if back.UUID != ind.UUID || back.Metrics["sinc"] != 0.5 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if g, ok := w.Genetics["gene"].(map[string]interface{}); !ok || g["k"] != 1 {
		t.Fatalf("wire genetics.gene = %v, want {k:1}", w.Genetics)
	}
}
