// Package archive implements the binned Pareto frontier (DataDict, C5 in
// SPEC_FULL.md), grounded on
// original_source/toga/optimization_state/{datadict,metrics}.py.
package archive

import (
	"sort"

	"github.com/JPLMLIA/TOGA/internal/config"
)

// Metric describes one axis of the archive (spec.md §3).
type Metric struct {
	Name       string
	FixedAxis  bool
	Range      [2]float64
	Partitions int
	Index      int
}

// MetricsFromConfig builds the ordered metric list from the
// gene_performance_metrics.yml "fitness" block, sorted by Index — the last
// one is the free axis (spec.md §3), matching Metrics.get_metrics() in
// original_source/toga/optimization_state/metrics.py.
func MetricsFromConfig(cfg map[string]config.MetricConfig) []Metric {
	out := make([]Metric, 0, len(cfg))
	for name, mc := range cfg {
		m := Metric{Name: name, FixedAxis: mc.FixedAxis, Partitions: mc.Partitions, Index: mc.Index}
		if len(mc.Range) == 2 {
			m.Range = [2]float64{mc.Range[0], mc.Range[1]}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// binEdges returns partitions evenly spaced points over Range, rounded to
// two decimals, matching numpy.linspace(min,max,num=partitions) followed by
// round(el, 2) in datadict.py's create_initial.
func binEdges(m Metric) []float64 {
	if m.Partitions <= 1 {
		return []float64{round2(m.Range[0])}
	}
	lo, hi := m.Range[0], m.Range[1]
	step := (hi - lo) / float64(m.Partitions-1)
	out := make([]float64, m.Partitions)
	for i := 0; i < m.Partitions; i++ {
		out[i] = round2(lo + step*float64(i))
	}
	return out
}

func round2(v float64) float64 {
	const f = 100
	return float64(int((v*f)+sign(v)*0.5)) / f
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
