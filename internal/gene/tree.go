package gene

import (
	"fmt"

	"github.com/JPLMLIA/TOGA/internal/rng"
)

type nodeKind int

const (
	kindIntermediate nodeKind = iota
	kindLeaf
	kindStatic
)

// node is one arena slot. Children are addressed by index into Tree.nodes;
// there is no parent back-reference because nothing in this implementation
// needs to walk upward (contrast node.py's parent pointer, used only for a
// get_nested_child traversal this design replaces with direct indices
// collected during applyPartialMutationPolicy).
type node struct {
	key            string
	kind           nodeKind
	children       []int
	leaf           *LeafSpec
	static         interface{}
	values         []interface{}
	value          interface{}
	allowMutations bool
}

// Tree is the arena-based gene tree (spec.md §3, REDESIGN FLAG spec.md §9).
type Tree struct {
	nodes          []node
	root           int
	perTypeWeights map[Type]map[Tag]float64
	rnd            *rng.Source
}

// NewTree builds a tree mirroring schema, ingests values from parents, and
// applies the partial-mutation policy (spec.md §4.4 steps 1-3). Call
// Mutate to perform step 4 and obtain the new genome.
//
// perTypeWeights is the per-gene-type operator frequency map ("type_probability"
// in original_source/toga/genetic_algorithm/population.py) used to draw each
// leaf's own operator tag independently; policyTag controls only the
// partial-mutation policy (spec.md §4.4), not per-leaf operator selection.
func NewTree(schema Schema, parents []map[string]interface{}, policyTag Tag, perTypeWeights map[Type]map[Tag]float64, rnd *rng.Source) (*Tree, error) {
	t := &Tree{perTypeWeights: perTypeWeights, rnd: rnd}
	root := t.newNode("root", kindIntermediate)
	t.root = root
	if err := t.buildChildren(root, schema); err != nil {
		return nil, err
	}
	for _, parent := range parents {
		t.ingest(root, parent)
	}
	if len(parents) > 0 {
		t.applyPartialMutationPolicy(policyTag)
	}
	return t, nil
}

func (t *Tree) newNode(key string, kind nodeKind) int {
	t.nodes = append(t.nodes, node{key: key, kind: kind, allowMutations: true})
	return len(t.nodes) - 1
}

func (t *Tree) buildChildren(parentIdx int, schema Schema) error {
	for key, entry := range schema {
		switch {
		case entry.Leaf != nil:
			idx := t.newNode(key, kindLeaf)
			t.nodes[idx].leaf = entry.Leaf
			t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
		case entry.IsStatic:
			idx := t.newNode(key, kindStatic)
			t.nodes[idx].static = entry.Static
			t.nodes[idx].allowMutations = false
			t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
		case entry.Children != nil:
			idx := t.newNode(key, kindIntermediate)
			t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
			if err := t.buildChildren(idx, entry.Children); err != nil {
				return err
			}
		default:
			return fmt.Errorf("gene: schema entry %q has neither leaf, children, nor static value", key)
		}
	}
	return nil
}

// ingest walks gene (a previously-produced genome, possibly from a
// different generation) against the schema rooted at nodeIdx, appending each
// matching leaf's value to that leaf's collected values. Keys of the form
// "<name>_methodnum_<n>" are matched after stripping the suffix (spec.md §3).
func (t *Tree) ingest(nodeIdx int, gene map[string]interface{}) {
	byBase := make(map[string]int, len(t.nodes[nodeIdx].children))
	for _, c := range t.nodes[nodeIdx].children {
		byBase[t.nodes[c].key] = c
	}
	for k, v := range gene {
		base := StripMethodNum(k)
		child, ok := byBase[base]
		if !ok {
			continue
		}
		switch t.nodes[child].kind {
		case kindLeaf:
			t.nodes[child].values = append(t.nodes[child].values, v)
		case kindIntermediate:
			if sub, ok := asStringMap(v); ok {
				t.ingest(child, sub)
			}
		case kindStatic:
			// static leaves never accept parent values
		}
	}
}

// applyPartialMutationPolicy implements spec.md §4.4 step 3, grounded on
// Node.toggle_mutate_leaves in
// original_source/toga/genetic_algorithm/gene_structure/node.py.
func (t *Tree) applyPartialMutationPolicy(policyTag Tag) {
	eligible := t.eligibleLeaves(t.root)
	if len(eligible) == 0 {
		return
	}
	var disableCount int
	switch policyTag {
	case PolicyPartial:
		disableCount = 1 + t.rnd.Intn(len(eligible))
	case PolicyMin:
		disableCount = len(eligible) - 1
	default:
		return
	}
	if disableCount <= 0 {
		return
	}
	if disableCount > len(eligible) {
		disableCount = len(eligible)
	}
	for _, i := range t.rnd.ChooseUniqueUniform(len(eligible), disableCount) {
		t.nodes[eligible[i]].allowMutations = false
	}
}

// eligibleLeaves returns indices of non-static leaves with at least one
// collected parent value (node.py: "static_value is False and len(values) > 0").
func (t *Tree) eligibleLeaves(idx int) []int {
	var out []int
	n := &t.nodes[idx]
	if n.kind == kindLeaf {
		if len(n.values) > 0 {
			out = append(out, idx)
		}
		return out
	}
	for _, c := range n.children {
		out = append(out, t.eligibleLeaves(c)...)
	}
	return out
}

// Mutate performs spec.md §4.4 step 4: at each leaf either applies the typed
// operator or copies values[0], then reassembles the tree into a nested
// mapping. The returned map is the new genome (the root's own mapping,
// already unwrapped, matching genetree.py's
// `self.tree.to_dictionary.get('root')`).
func (t *Tree) Mutate() (map[string]interface{}, error) {
	v, err := t.mutateNode(t.root)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	return m, nil
}

func (t *Tree) mutateNode(idx int) (interface{}, error) {
	n := &t.nodes[idx]
	switch n.kind {
	case kindStatic:
		return n.static, nil
	case kindLeaf:
		return t.mutateLeaf(idx)
	default:
		out := make(map[string]interface{}, len(n.children))
		for _, c := range n.children {
			v, err := t.mutateNode(c)
			if err != nil {
				return nil, err
			}
			out[t.nodes[c].key] = v
		}
		return out, nil
	}
}

func (t *Tree) mutateLeaf(idx int) (interface{}, error) {
	n := &t.nodes[idx]
	if !n.allowMutations {
		if len(n.values) > 0 {
			return n.values[0], nil
		}
		return nil, nil
	}
	tag := Tag(t.rnd.WeightedChoice(weightsAsFloat(t.perTypeWeights[n.leaf.Type])))
	v, ok, err := Dispatch(n.leaf.Type, tag, n.leaf, n.values, t.rnd)
	if err != nil {
		return nil, fmt.Errorf("gene: mutating leaf %q: %w", n.key, err)
	}
	if !ok {
		// Unsupported (type, tag) combination: leave the value unmodified,
		// i.e. whatever the leaf's first collected parent value was.
		if len(n.values) > 0 {
			return n.values[0], nil
		}
		return nil, nil
	}
	return v, nil
}

func weightsAsFloat(m map[Tag]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
