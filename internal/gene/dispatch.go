package gene

import "github.com/JPLMLIA/TOGA/internal/rng"

// OperatorFunc computes one new leaf value from its declared constraints and
// the collected parent values. Implementations live in internal/mutate and
// register themselves here at package init so that internal/mutate can
// depend on internal/gene without internal/gene needing to depend back on
// internal/mutate (which would be a cycle, since the tree needs to invoke
// operators while building the genome).
type OperatorFunc func(leaf *LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error)

// dispatchTable is the sealed (Type, Tag) -> OperatorFunc table replacing
// the runtime-introspection dispatch of
// original_source/toga/genetic_algorithm/mutate/genemutate.py (spec.md §9
// REDESIGN FLAG).
var dispatchTable = map[Type]map[Tag]OperatorFunc{}

// RegisterOperator installs the operator for (t, tag). Called from
// internal/mutate's package init.
func RegisterOperator(t Type, tag Tag, fn OperatorFunc) {
	if dispatchTable[t] == nil {
		dispatchTable[t] = make(map[Tag]OperatorFunc)
	}
	dispatchTable[t][tag] = fn
}

// Dispatch invokes the registered operator for (t, tag). ok is false if no
// operator is registered for that combination — per spec.md §4.1,
// "dispatching an unsupported tag returns the unmodified current value",
// which callers implement by falling back to the leaf's first collected
// parent value.
func Dispatch(t Type, tag Tag, leaf *LeafSpec, values []interface{}, rnd *rng.Source) (value interface{}, ok bool, err error) {
	byTag, found := dispatchTable[t]
	if !found {
		return nil, false, nil
	}
	fn, found := byTag[tag]
	if !found {
		return nil, false, nil
	}
	v, err := fn(leaf, values, rnd)
	return v, true, err
}
