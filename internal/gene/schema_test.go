package gene

import "testing"

func TestParseSchemaLeafIntermediateAndStatic(t *testing.T) {
	raw := map[string]interface{}{
		"top_level_flag": "no_touch",
		"nested": map[string]interface{}{
			"count": map[string]interface{}{
				"param_type": "int",
				"range":      []interface{}{0, 10},
			},
		},
		"choice": map[string]interface{}{
			"param_type": "enum",
			"values":     []interface{}{"a", "b", "c"},
		},
	}
	schema, err := ParseSchema(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !schema["top_level_flag"].IsStatic || schema["top_level_flag"].Static != "no_touch" {
		t.Fatalf("expected top_level_flag to be a static entry, got %+v", schema["top_level_flag"])
	}
	nested := schema["nested"]
	if nested.Children == nil {
		t.Fatal("expected nested to be an intermediate schema entry")
	}
	count := nested.Children["count"]
	if count.Leaf == nil || count.Leaf.Type != Int {
		t.Fatalf("expected nested.count to be an int leaf, got %+v", count)
	}
	if count.Leaf.Range[0] != 0 || count.Leaf.Range[1] != 10 {
		t.Fatalf("range = %v, want [0 10]", count.Leaf.Range)
	}
	choice := schema["choice"]
	if choice.Leaf == nil || choice.Leaf.Type != Enum || len(choice.Leaf.Values) != 3 {
		t.Fatalf("expected a 3-value enum leaf, got %+v", choice)
	}
}

func TestLeafSpecValidateRejectsBadRange(t *testing.T) {
	l := &LeafSpec{Type: Int, Range: []float64{10, 0}}
	if err := l.Validate(); err == nil {
		t.Fatal("expected an error for lo > hi")
	}
}

func TestLeafSpecValidateRejectsUndersizedComponents(t *testing.T) {
	l := &LeafSpec{
		Type:       BinaryBlock,
		Components: map[string]int{"a": 0, "b": 0},
		SumRange:   []int{0, 5},
	}
	if err := l.Validate(); err == nil {
		t.Fatal("expected an error: only 2 components but max(sum_range)=5")
	}
}
