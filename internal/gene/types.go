// Package gene implements the typed gene schema and the gene tree (C1, C3
// in SPEC_FULL.md). The tree is stored as an arena — a flat slice of nodes
// addressed by integer index — rather than the pointer-linked,
// uuid-keyed nodes of original_source/toga/genetic_algorithm/gene_structure/node.py,
// per the REDESIGN FLAG in spec.md §9.
package gene

import "regexp"

// Type is the closed set of leaf parameter types (spec.md §3).
type Type string

const (
	Int         Type = "int"
	Float       Type = "float"
	Bool        Type = "bool"
	BinaryBlock Type = "binary_block"
	Enum        Type = "enum"
)

// Tag is the closed set of mutator tags (spec.md §4.1).
type Tag string

const (
	Crossover      Tag = "crossover"
	Random         Tag = "random"
	GaussianStep   Tag = "gaussian_step"
	GaussianRandom Tag = "gaussian_random"
	Scaled         Tag = "scaled"
	Minimum        Tag = "minimum"
	Maximum        Tag = "maximum"

	// Binary-block-specific tags (spec.md §4.1). No operator is registered
	// for any of them (internal/mutate/binaryblock.go registers only
	// crossover, random, gaussian_step, scaled, minimum and maximum for
	// binary_block), so dispatching a bb* tag returns the unmodified
	// current value, like any other unsupported tag.
	BBLeftShift  Tag = "bbleftshift"
	BBRightShift Tag = "bbrightshift"
	BBXor        Tag = "bbxor"
	BBAnd        Tag = "bband"
	BBOr         Tag = "bbor"
	BBNotOne     Tag = "bbnotone"
	BBNotSome    Tag = "bbnotsome"
	BBNotAll     Tag = "bbnotall"
	BBFlipGroup  Tag = "bbflipgroup"

	// PolicyPartial and PolicyMin are not operator tags: they are values
	// of the tree-level mutator used only by the partial-mutation policy
	// (spec.md §4.4).
	PolicyPartial Tag = "partial"
	PolicyMin     Tag = "min"
)

var methodNumSuffix = regexp.MustCompile(`_methodnum_\d+$`)

// StripMethodNum strips a "<name>_methodnum_<n>" suffix so the base name can
// be looked up in the schema (spec.md §3).
func StripMethodNum(key string) string {
	return methodNumSuffix.ReplaceAllString(key, "")
}
