package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JPLMLIA/TOGA/internal/genome"
)

func twoAxis() []Metric {
	return []Metric{
		{Name: "banana", FixedAxis: true, Range: [2]float64{0, 400}, Partitions: 2, Index: 0},
		{Name: "sinc", FixedAxis: false, Range: [2]float64{-0.5, 0.5}, Partitions: 1, Index: 1},
	}
}

func individualWith(uuid string, banana, sinc float64) genome.Individual {
	return genome.Individual{
		UUID:    uuid,
		Gene:    map[string]interface{}{},
		Metrics: map[string]float64{"banana": banana, "sinc": sinc},
	}
}

// TestArchiveTopKTruncation is spec.md §8 scenario 4: amount_per_bin=2,
// maximize=false, free metric sinc. Four individuals land in the same bin
// with sinc values {0.3, 0.1, 0.9, 0.2}; the retained list must end up
// [0.1, 0.2].
func TestArchiveTopKTruncation(t *testing.T) {
	d, err := New(twoAxis(), false, 2, "")
	if err != nil {
		t.Fatal(err)
	}

	individuals := []genome.Individual{
		individualWith("a", 100, 0.3),
		individualWith("b", 100, 0.1),
		individualWith("c", 100, 0.9),
		individualWith("d", 100, 0.2),
	}
	d.UpdateFromPopulation(individuals)

	bins := d.GetNonEmptyBins()
	if len(bins) != 1 {
		t.Fatalf("expected all four individuals in one bin, got %d non-empty bins", len(bins))
	}
	list := bins[0].Individuals
	if len(list) != 2 {
		t.Fatalf("expected bin truncated to 2, got %d", len(list))
	}
	var sincs []float64
	for _, item := range list {
		m, _ := itemMetrics(item)
		sincs = append(sincs, m["sinc"])
	}
	if !(sincs[0] == 0.1 && sincs[1] == 0.2) {
		t.Fatalf("retained sinc values = %v, want [0.1 0.2]", sincs)
	}
}

// TestRetainedReporting checks that a later, better insertion into a full bin
// is reported as retained and displaces the earlier individual.
func TestRetainedReporting(t *testing.T) {
	d, err := New(twoAxis(), false, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	r1 := d.UpdateFromPopulation([]genome.Individual{individualWith("a", 100, 0.5)})
	if len(r1) != 1 || !r1[0].Retained {
		t.Fatalf("first insert should be retained: %+v", r1)
	}
	r2 := d.UpdateFromPopulation([]genome.Individual{individualWith("b", 100, 0.1)})
	if len(r2) != 1 || !r2[0].Retained {
		t.Fatalf("better insert should be retained: %+v", r2)
	}

	bins := d.GetNonEmptyBins()
	if len(bins) != 1 || len(bins[0].Individuals) != 1 {
		t.Fatalf("expected exactly one survivor, got %+v", bins)
	}
	if itemUUID(bins[0].Individuals[0]) != "b" {
		t.Fatalf("survivor should be b (lower sinc), got %q", itemUUID(bins[0].Individuals[0]))
	}
}

// TestBinPathStrictGreaterThan matches get_corresponding_bin: a value equal
// to an edge falls into the next-lower bin, not the bin the edge starts.
func TestBinPathStrictGreaterThan(t *testing.T) {
	d, err := New(twoAxis(), false, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	// Edges for banana over [0,400] with 2 partitions: {0.00, 400.00}.
	path, ok := d.binPath(map[string]float64{"banana": 400, "sinc": 0.1})
	if !ok {
		t.Fatal("expected a valid bin path")
	}
	if path[1] != "0.00" {
		t.Fatalf("value equal to the top edge should fall to the next-lower bin 0.00, got %q", path[1])
	}
}

// TestHistoryLogOnlyRecordsRetainedIndividuals matches
// update_from_population's update() helper in datadict.py, which only
// appends to updated_individuals (and so only logs) entries that survived
// post-truncation — not every individual passed in.
func TestHistoryLogOnlyRecordsRetainedIndividuals(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "history.log")
	d, err := New(twoAxis(), false, 1, logPath)
	if err != nil {
		t.Fatal(err)
	}

	// b goes in first and fills the bin; a is worse and is cut at once.
	results := d.UpdateFromPopulation([]genome.Individual{
		individualWith("b", 100, 0.1),
		individualWith("a", 100, 0.5),
	})
	retainedCount := 0
	for _, r := range results {
		if r.Retained {
			retainedCount++
		}
	}
	if retainedCount != 1 {
		t.Fatalf("expected exactly one retained individual with amount_per_bin=1, got %d", retainedCount)
	}

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one history log line (only the retained individual), got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "0.1") {
		t.Fatalf("expected the retained individual's metrics in the logged line, got %q", lines[0])
	}
}

func TestDeepUpdateMerges(t *testing.T) {
	local, err := New(twoAxis(), false, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	local.UpdateFromPopulation([]genome.Individual{individualWith("a", 100, 0.3)})

	remote, err := New(twoAxis(), false, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	remote.UpdateFromPopulation([]genome.Individual{individualWith("b", 100, 0.1)})

	local.DeepUpdate(remote.GetDictionary())

	bins := local.GetNonEmptyBins()
	if len(bins) != 1 || len(bins[0].Individuals) != 2 {
		t.Fatalf("expected merged bin with 2 individuals, got %+v", bins)
	}
}
