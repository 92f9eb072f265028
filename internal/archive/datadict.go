package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/JPLMLIA/TOGA/internal/genome"
)

// DataDict is the binned Pareto archive (C5, spec.md §4.4), grounded on
// DataDict in original_source/toga/optimization_state/datadict.py. Archived
// individuals are kept as plain wire maps (map[string]interface{}), the same
// shape as the JSON the HTTP surface exchanges, so a locally-inserted
// individual and one merged in from a remote snapshot are indistinguishable
// — matching the original's plain-dict approach (see DESIGN.md).
type DataDict struct {
	mu           sync.RWMutex
	metrics      []Metric
	maximize     bool
	amountPerBin int
	dict         map[string]interface{}

	trialCount int64

	historyLog string
	historyMu  sync.Mutex
}

// New builds the initial nested-bin structure from the ordered metric list
// (last = free axis).
func New(metrics []Metric, maximize bool, amountPerBin int, historyLog string) (*DataDict, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("archive: no fitness metrics configured")
	}
	d := &DataDict{
		metrics:      metrics,
		maximize:     maximize,
		amountPerBin: amountPerBin,
		historyLog:   historyLog,
	}
	d.dict = buildNode(metrics, 0).(map[string]interface{})
	return d, nil
}

func buildNode(metrics []Metric, i int) interface{} {
	m := metrics[i]
	if i == len(metrics)-1 {
		return map[string]interface{}{m.Name: []interface{}{}}
	}
	edges := binEdges(m)
	bins := make(map[string]interface{}, len(edges))
	for _, e := range edges {
		bins[formatEdge(e)] = buildNode(metrics, i+1)
	}
	return map[string]interface{}{m.Name: bins}
}

func formatEdge(e float64) string {
	return strconv.FormatFloat(e, 'f', 2, 64)
}

func (d *DataDict) freeMetric() Metric {
	return d.metrics[len(d.metrics)-1]
}

// binPath walks the metric chain and returns the dictionary key path for an
// individual's metrics, matching get_corresponding_bin: for each fixed-axis
// metric, the bin is the greatest edge that the value is strictly greater
// than (falling to the lowest edge if the value exceeds none of them).
func (d *DataDict) binPath(metrics map[string]float64) ([]string, bool) {
	path := make([]string, 0, 2*len(d.metrics)-1)
	for i, m := range d.metrics {
		path = append(path, m.Name)
		if i == len(d.metrics)-1 {
			return path, true
		}
		val, ok := metrics[m.Name]
		if !ok {
			return nil, false
		}
		edges := binEdges(m)
		chosen := edges[0]
		for _, e := range edges {
			if val > e {
				chosen = e
			}
		}
		path = append(path, formatEdge(chosen))
	}
	return path, true
}

// getContainer navigates path[:len-1] and returns the map holding the final
// key (either a nested bins-map or, for a single-metric archive, d.dict
// itself) plus that final key.
func (d *DataDict) getContainer(path []string) (map[string]interface{}, string, error) {
	var cur interface{} = d.dict
	for _, key := range path[:len(path)-1] {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, "", fmt.Errorf("archive: path element %q is not a map", key)
		}
		next, ok := m[key]
		if !ok {
			return nil, "", fmt.Errorf("archive: missing bin %q", key)
		}
		cur = next
	}
	container, ok := cur.(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("archive: malformed archive path")
	}
	return container, path[len(path)-1], nil
}

// hasMetrics reports whether every configured metric is present, matching
// DataDict.has_metrics.
func (d *DataDict) hasMetrics(metrics map[string]float64) bool {
	for _, m := range d.metrics {
		if _, ok := metrics[m.Name]; !ok {
			return false
		}
	}
	return true
}

func wireMap(ind genome.Individual) map[string]interface{} {
	b, _ := json.Marshal(ind.ToWire())
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func itemMetrics(item interface{}) (map[string]float64, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return nil, false
	}
	raw, ok := m["metrics"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out, true
}

func itemUUID(item interface{}) string {
	if m, ok := item.(map[string]interface{}); ok {
		if u, ok := m["uuid"].(string); ok {
			return u
		}
	}
	return ""
}

// sortTruncate sorts a bin's leaf list by the free-axis metric (descending
// if maximizing) and truncates to amountPerBin, matching
// update_from_population's sort()[:amount_per_bin].
func (d *DataDict) sortTruncate(list []interface{}) []interface{} {
	free := d.freeMetric().Name
	sort.SliceStable(list, func(i, j int) bool {
		vi, _ := itemMetrics(list[i])
		vj, _ := itemMetrics(list[j])
		if d.maximize {
			return vi[free] > vj[free]
		}
		return vi[free] < vj[free]
	})
	if len(list) > d.amountPerBin {
		list = list[:d.amountPerBin]
	}
	return list
}

// InsertResult reports, per submitted individual, whether it survived the
// bin's top-K truncation.
type InsertResult struct {
	UUID     string
	Retained bool
}

// UpdateFromPopulation inserts each individual into its corresponding bin,
// matching DataDict.update_from_population. Individuals missing a
// configured metric are silently skipped (has_metrics guard).
func (d *DataDict) UpdateFromPopulation(individuals []genome.Individual) []InsertResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]InsertResult, 0, len(individuals))
	for _, ind := range individuals {
		if !d.hasMetrics(ind.Metrics) {
			continue
		}
		path, ok := d.binPath(ind.Metrics)
		if !ok {
			continue
		}
		container, lastKey, err := d.getContainer(path)
		if err != nil {
			continue
		}
		list, _ := container[lastKey].([]interface{})
		list = append(list, wireMap(ind))
		list = d.sortTruncate(list)
		container[lastKey] = list

		retained := false
		for _, item := range list {
			if itemUUID(item) == ind.UUID {
				retained = true
				break
			}
		}
		results = append(results, InsertResult{UUID: ind.UUID, Retained: retained})
		if retained {
			d.appendHistory(ind)
		}
	}
	return results
}

func (d *DataDict) appendHistory(ind genome.Individual) {
	if d.historyLog == "" {
		return
	}
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	d.trialCount++
	f, err := os.OpenFile(d.historyLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d: %v\n", d.trialCount, ind.Metrics)
}

// DeepUpdate merges a foreign archive state (e.g. pulled from GET
// /get_state) into this one, concatenating and re-truncating each leaf
// list, matching DataDict.deep_update.
func (d *DataDict) DeepUpdate(other map[string]interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deepUpdate(d.dict, other)
}

func (d *DataDict) deepUpdate(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		dstVal, ok := dst[key]
		if !ok {
			dst[key] = srcVal
			continue
		}
		switch sv := srcVal.(type) {
		case map[string]interface{}:
			if dm, ok := dstVal.(map[string]interface{}); ok {
				d.deepUpdate(dm, sv)
			} else {
				dst[key] = sv
			}
		case []interface{}:
			dlist, _ := dstVal.([]interface{})
			dlist = append(dlist, sv...)
			dst[key] = d.sortTruncate(dlist)
		default:
			dst[key] = srcVal
		}
	}
}

// GetDictionary returns the raw nested archive, matching
// DataDict.get_dictionary — used to serve GET /get_state.
func (d *DataDict) GetDictionary() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dict
}

// flattenEntry pairs a leaf key-path with its individuals, matching
// flatten_dict's visit().
type flattenEntry struct {
	Path        []string
	Individuals []interface{}
}

func flatten(node interface{}, prefix []string, out *[]flattenEntry) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(child, append(append([]string{}, prefix...), k), out)
		}
	case []interface{}:
		*out = append(*out, flattenEntry{Path: prefix, Individuals: v})
	}
}

// GetNonEmptyBins returns every leaf list with at least one individual,
// matching get_non_empty_bins.
func (d *DataDict) GetNonEmptyBins() []flattenEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var all []flattenEntry
	flatten(d.dict, nil, &all)
	out := all[:0]
	for _, e := range all {
		if len(e.Individuals) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// GetPoints returns, for every non-empty bin, its bin-path tuple and the
// best individual by the free-axis metric, matching get_points/_get_best_metric.
func (d *DataDict) GetPoints() []InsertResultPoint {
	bins := d.GetNonEmptyBins()
	free := d.freeMetric().Name
	out := make([]InsertResultPoint, 0, len(bins))
	for _, b := range bins {
		best := b.Individuals[0]
		bestVal, _ := itemMetrics(best)
		for _, cand := range b.Individuals[1:] {
			cv, _ := itemMetrics(cand)
			if (d.maximize && cv[free] > bestVal[free]) || (!d.maximize && cv[free] < bestVal[free]) {
				best, bestVal = cand, cv
			}
		}
		out = append(out, InsertResultPoint{Path: b.Path, Best: best})
	}
	return out
}

// InsertResultPoint is one entry of GetPoints.
type InsertResultPoint struct {
	Path []string
	Best interface{}
}

// Serialize flattens the whole archive into one population slice, matching
// DataDict.serialize — the snapshot writer (internal/server) uses this to
// rewrite the best/ directory.
func (d *DataDict) Serialize() []map[string]interface{} {
	bins := d.GetNonEmptyBins()
	var out []map[string]interface{}
	for _, b := range bins {
		for _, item := range b.Individuals {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// TrialCount returns the number of individuals ever appended to the history
// log (archive-local trial counter, distinct from the server's global
// submission counter in internal/server).
func (d *DataDict) TrialCount() int64 {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	return d.trialCount
}
