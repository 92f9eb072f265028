// Package genome implements the Individual/Metrics/Lineage data model (C4,
// spec.md §3), grounded on
// original_source/toga/genetic_algorithm/gene_structure/invdividual.py.
package genome

import (
	"math"

	"github.com/JPLMLIA/TOGA/internal/config"
)

// Lineage records an individual's provenance (spec.md §3).
type Lineage struct {
	Mutator       string  `json:"mutator" yaml:"mutator"`
	Parent1       *string `json:"parent1,omitempty" yaml:"parent1,omitempty"`
	Parent2       *string `json:"parent2,omitempty" yaml:"parent2,omitempty"`
	GenerationNum int     `json:"generation_num" yaml:"generation_num"`
}

// Individual is the unit of evaluation (spec.md §3).
type Individual struct {
	UUID    string                 `json:"uuid" yaml:"uuid"`
	Gene    map[string]interface{} `json:"gene" yaml:"gene"`
	Metrics map[string]float64     `json:"metrics" yaml:"metrics"`
	Lineage Lineage                `json:"lineage" yaml:"lineage"`

	// Trials is set exactly once, only on submission: "trials attempted
	// since my producer's last submission" (spec.md §3). A nil pointer
	// means it has not yet been set.
	Trials *int `json:"trials,omitempty" yaml:"trials,omitempty"`

	OutPath string `json:"-" yaml:"-"`
}

// Wire is the JSON shape exchanged over PUT /submit and embedded in
// GET /get_state (spec.md §6), matching Individual.convert_to_dict() in
// invdividual.py.
type Wire struct {
	UUID     string                 `json:"uuid"`
	Genetics map[string]interface{} `json:"genetics"`
	Metrics  map[string]float64     `json:"metrics"`
	Lineage  Lineage                `json:"lineage"`
	Trials   *int                   `json:"trials,omitempty"`
	Path     string                 `json:"path,omitempty"`
}

// ToWire converts an Individual into its over-the-wire representation.
func (ind *Individual) ToWire() Wire {
	return Wire{
		UUID:     ind.UUID,
		Genetics: map[string]interface{}{"gene": ind.Gene},
		Metrics:  ind.Metrics,
		Lineage:  ind.Lineage,
		Trials:   ind.Trials,
		Path:     ind.OutPath,
	}
}

// FromWire reconstructs an Individual from its wire representation, as used
// when the archive ingests a submitted individual or a pulled snapshot.
func FromWire(w Wire) Individual {
	var gene map[string]interface{}
	if w.Genetics != nil {
		if g, ok := w.Genetics["gene"].(map[string]interface{}); ok {
			gene = g
		}
	}
	return Individual{
		UUID:    w.UUID,
		Gene:    gene,
		Metrics: w.Metrics,
		Lineage: w.Lineage,
		Trials:  w.Trials,
		OutPath: w.Path,
	}
}

// ComposeMetrics computes the metric score map for an individual from the
// mean of each evaluator CSV column, filling missing/non-finite values with
// the worst feasible value per spec.md §4.5/§7. values is nil when the
// evaluator produced no usable output at all (missing file, per spec.md
// §6's evaluator contract).
func ComposeMetrics(values map[string][]float64, metrics map[string]config.MetricConfig, maximize bool) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for name, mc := range metrics {
		col, ok := values[name]
		if !ok || len(col) == 0 {
			out[name] = worstValue(mc, maximize)
			continue
		}
		mean := average(col)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			out[name] = worstValue(mc, maximize)
			continue
		}
		out[name] = mean
	}
	return out
}

// worstValue implements Metrics.fill_invalid_values: the worst value is
// max(range) by default, min(range) when maximizing.
func worstValue(mc config.MetricConfig, maximize bool) float64 {
	lo, hi := mc.Range[0], mc.Range[1]
	if maximize {
		return lo
	}
	return hi
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
