package gene

import "fmt"

// LeafSpec describes one leaf parameter (spec.md §3).
type LeafSpec struct {
	Type Type

	// int, float
	Range []float64

	// enum
	Values []interface{}

	// binary_block
	Components map[string]int // name -> 0|1, insertion order not significant
	SumRange   []int
}

// Validate checks the invariants spec.md §3 requires of a leaf.
func (l *LeafSpec) Validate() error {
	switch l.Type {
	case Int, Float:
		if len(l.Range) != 2 || l.Range[0] > l.Range[1] {
			return fmt.Errorf("gene: %s leaf requires range=[lo,hi] with lo<=hi", l.Type)
		}
	case Bool:
		// no extra fields
	case Enum:
		if len(l.Values) == 0 {
			return fmt.Errorf("gene: enum leaf requires a non-empty values list")
		}
	case BinaryBlock:
		if len(l.SumRange) != 2 || l.SumRange[0] > l.SumRange[1] || l.SumRange[0] < 0 {
			return fmt.Errorf("gene: binary_block leaf requires sum_range=[lo,hi], lo<=hi, lo>=0")
		}
		maxAllowed := l.SumRange[1]
		if len(l.Components) < maxAllowed {
			return fmt.Errorf("gene: binary_block leaf has %d components, fewer than max(sum_range)=%d",
				len(l.Components), maxAllowed)
		}
	default:
		return fmt.Errorf("gene: unknown param_type %q", l.Type)
	}
	return nil
}

// SchemaEntry is one entry of a Schema: either a leaf, an intermediate
// sub-schema, or a literal static value copied through unmodified.
type SchemaEntry struct {
	Leaf      *LeafSpec
	Children  Schema
	Static    interface{}
	IsStatic  bool
}

// Schema is a nested mapping from string keys to either sub-schemas or leaf
// parameter definitions (spec.md §3).
type Schema map[string]*SchemaEntry

// ParseSchema builds a Schema from a generically-decoded YAML/JSON document
// (map[string]interface{}, as produced by yaml.Unmarshal into `interface{}`).
// A map entry becomes a leaf if it carries a "param_type" key, an
// intermediate node if it is itself a map without that key, or a static
// value if it is a scalar/list literal.
func ParseSchema(raw map[string]interface{}) (Schema, error) {
	out := make(Schema, len(raw))
	for key, v := range raw {
		entry, err := parseEntry(key, v)
		if err != nil {
			return nil, err
		}
		out[key] = entry
	}
	return out, nil
}

func parseEntry(key string, v interface{}) (*SchemaEntry, error) {
	m, ok := asStringMap(v)
	if !ok {
		return &SchemaEntry{Static: v, IsStatic: true}, nil
	}
	if pt, hasPT := m["param_type"]; hasPT {
		leaf, err := parseLeaf(key, fmt.Sprint(pt), m)
		if err != nil {
			return nil, err
		}
		return &SchemaEntry{Leaf: leaf}, nil
	}
	children, err := ParseSchema(m)
	if err != nil {
		return nil, err
	}
	return &SchemaEntry{Children: children}, nil
}

func parseLeaf(key, paramType string, m map[string]interface{}) (*LeafSpec, error) {
	l := &LeafSpec{Type: Type(paramType)}
	switch l.Type {
	case Int, Float:
		r, err := asFloatSlice(m["range"])
		if err != nil {
			return nil, fmt.Errorf("gene: leaf %q: %w", key, err)
		}
		l.Range = r
	case Enum:
		vals, ok := m["values"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("gene: leaf %q: enum requires a values list", key)
		}
		l.Values = vals
	case BinaryBlock:
		comps, ok := asIntMap(m["components"])
		if !ok {
			return nil, fmt.Errorf("gene: leaf %q: binary_block requires a components map", key)
		}
		l.Components = comps
		sr, err := asIntSlice(m["sum_range"])
		if err != nil {
			return nil, fmt.Errorf("gene: leaf %q: %w", key, err)
		}
		l.SumRange = sr
	case Bool:
		// no extra fields
	default:
		return nil, fmt.Errorf("gene: leaf %q: unknown param_type %q", key, paramType)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("gene: leaf %q: %w", key, err)
	}
	return l, nil
}

func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = vv
		}
		return out, true
	default:
		return nil, false
	}
}

func asFloatSlice(v interface{}) ([]float64, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func asIntSlice(v interface{}) ([]int, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return nil, err
		}
		out = append(out, int(f))
	}
	return out, nil
}

func asIntMap(v interface{}) (map[string]int, bool) {
	m, ok := asStringMap(v)
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(m))
	for k, vv := range m {
		f, err := toFloat64(vv)
		if err != nil {
			return nil, false
		}
		out[k] = int(f)
	}
	return out, true
}

func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
