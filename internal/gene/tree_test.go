package gene

import (
	"testing"

	"github.com/JPLMLIA/TOGA/internal/rng"
)

// internal/mutate imports this package, so an in-package test cannot import
// it back; these minimal operators stand in for the ones its init() would
// register, for the tags the tests below draw.
func init() {
	RegisterOperator(Int, Random, func(l *LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
		return rnd.UniformInt(int(l.Range[0]), int(l.Range[1])), nil
	})
	RegisterOperator(Int, Crossover, func(_ *LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
		return values[rnd.Intn(len(values))], nil
	})
	RegisterOperator(Bool, Random, func(_ *LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
		return rnd.Bernoulli(0.5), nil
	})
}

func testSchema() Schema {
	return Schema{
		"knob": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 100}}},
		"flag": {Leaf: &LeafSpec{Type: Bool}},
		"fixed_thing": {Static: "unchanged", IsStatic: true},
	}
}

func TestStripMethodNum(t *testing.T) {
	if got := StripMethodNum("knob_methodnum_3"); got != "knob" {
		t.Fatalf("got %q, want knob", got)
	}
	if got := StripMethodNum("knob"); got != "knob" {
		t.Fatalf("got %q, want knob (no suffix to strip)", got)
	}
}

func TestNewTreeNoParentsMutatesEveryLeaf(t *testing.T) {
	rnd := rng.New(1)
	weights := map[Type]map[Tag]float64{
		Int:  {Random: 1},
		Bool: {Random: 1},
	}
	tree, err := NewTree(testSchema(), nil, "", weights, rnd)
	if err != nil {
		t.Fatal(err)
	}
	g, err := tree.Mutate()
	if err != nil {
		t.Fatal(err)
	}
	if g["fixed_thing"] != "unchanged" {
		t.Fatalf("static leaf changed: %v", g["fixed_thing"])
	}
	knob := g["knob"].(int)
	if knob < 0 || knob >= 100 {
		t.Fatalf("knob out of range: %d", knob)
	}
}

func TestNewTreeIngestsMethodnumSuffixedParentKeys(t *testing.T) {
	rnd := rng.New(2)
	weights := map[Type]map[Tag]float64{Int: {Crossover: 1}}
	parents := []map[string]interface{}{
		{"knob_methodnum_7": 42, "flag": true},
	}
	tree, err := NewTree(testSchema(), parents, "", weights, rnd)
	if err != nil {
		t.Fatal(err)
	}
	g, err := tree.Mutate()
	if err != nil {
		t.Fatal(err)
	}
	if g["knob"].(int) != 42 {
		t.Fatalf("expected crossover with single parent value to reproduce it, got %v", g["knob"])
	}
}

// TestPartialPolicyDisablesSomeLeaves checks that PolicyPartial disables
// between 1 and len(eligible) leaves (spec.md §4.4 step 3) for every seed.
func TestPartialPolicyDisablesSomeLeaves(t *testing.T) {
	schema := Schema{
		"a": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
		"b": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
		"c": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
	}
	parents := []map[string]interface{}{{"a": 1, "b": 2, "c": 3}}
	weights := map[Type]map[Tag]float64{Int: {Random: 1}}

	sawDisabled := false
	for seed := int64(0); seed < 50; seed++ {
		rnd := rng.New(seed)
		tree, err := NewTree(schema, parents, PolicyPartial, weights, rnd)
		if err != nil {
			t.Fatal(err)
		}
		disabled := 0
		for _, idx := range tree.eligibleLeaves(tree.root) {
			if !tree.nodes[idx].allowMutations {
				disabled++
			}
		}
		if disabled > 0 {
			sawDisabled = true
		}
		if disabled < 1 || disabled > 3 {
			t.Fatalf("seed %d: disabled %d leaves, want between 1 and 3", seed, disabled)
		}
	}
	if !sawDisabled {
		t.Fatal("expected at least one seed to disable a leaf")
	}
}

func TestPolicyMinDisablesAllButOne(t *testing.T) {
	schema := Schema{
		"a": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
		"b": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
		"c": {Leaf: &LeafSpec{Type: Int, Range: []float64{0, 10}}},
	}
	parents := []map[string]interface{}{{"a": 1, "b": 2, "c": 3}}
	weights := map[Type]map[Tag]float64{Int: {Random: 1}}
	rnd := rng.New(5)
	tree, err := NewTree(schema, parents, PolicyMin, weights, rnd)
	if err != nil {
		t.Fatal(err)
	}
	disabled := 0
	for _, idx := range tree.eligibleLeaves(tree.root) {
		if !tree.nodes[idx].allowMutations {
			disabled++
		}
	}
	if disabled != 2 {
		t.Fatalf("PolicyMin disabled %d of 3 leaves, want 2", disabled)
	}
}
