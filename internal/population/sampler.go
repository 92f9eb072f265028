// Package population implements parent sampling and individual creation
// (C6, spec.md §4.6), grounded on
// original_source/toga/genetic_algorithm/population.py.
package population

import (
	"github.com/google/uuid"

	"github.com/JPLMLIA/TOGA/internal/archive"
	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/genome"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

// Sampler draws parents from the archive's current frontier and produces
// new individuals, mirroring the Population class.
type Sampler struct {
	schema               gene.Schema
	geneMutationScale    config.MutatorWeights
	activeMutatorsByType map[string]config.MutatorWeights
	archive              *archive.DataDict
	rnd                  *rng.Source
}

// New constructs a Sampler over a parsed gene schema and the running
// archive.
func New(schema gene.Schema, geneMutationScale config.MutatorWeights, activeMutatorsByType map[string]config.MutatorWeights, a *archive.DataDict, rnd *rng.Source) *Sampler {
	return &Sampler{
		schema:               schema,
		geneMutationScale:    geneMutationScale,
		activeMutatorsByType: activeMutatorsByType,
		archive:              a,
		rnd:                  rnd,
	}
}

// getRandomParents picks two bins (with replacement) from the archive's
// non-empty bins and one individual from each, matching
// Population.get_random_parents. Returns nil if the frontier is empty.
func (s *Sampler) getRandomParents() []map[string]interface{} {
	bins := s.archive.GetNonEmptyBins()
	if len(bins) == 0 {
		return nil
	}
	parents := make([]map[string]interface{}, 0, 2)
	for i := 0; i < 2; i++ {
		b := bins[s.rnd.Intn(len(bins))]
		item := b.Individuals[s.rnd.Intn(len(b.Individuals))]
		if m, ok := item.(map[string]interface{}); ok {
			parents = append(parents, m)
		}
	}
	return parents
}

// selectMutator draws the whole-tree partial-mutation policy tag, matching
// Population.select_mutator; an empty (falsy) result means "mutate every
// eligible leaf".
func (s *Sampler) selectMutator() gene.Tag {
	return gene.Tag(s.rnd.WeightedChoice(s.geneMutationScale))
}

func perTypeWeights(cfg map[string]config.MutatorWeights) map[gene.Type]map[gene.Tag]float64 {
	out := make(map[gene.Type]map[gene.Tag]float64, len(cfg))
	for typeName, weights := range cfg {
		tagWeights := make(map[gene.Tag]float64, len(weights))
		for tag, w := range weights {
			tagWeights[gene.Tag(tag)] = w
		}
		out[gene.Type(typeName)] = tagWeights
	}
	return out
}

func parentGene(wire map[string]interface{}) map[string]interface{} {
	genetics, ok := wire["genetics"].(map[string]interface{})
	if !ok {
		return nil
	}
	g, _ := genetics["gene"].(map[string]interface{})
	return g
}

func parentUUID(wire map[string]interface{}) *string {
	u, ok := wire["uuid"].(string)
	if !ok {
		return nil
	}
	return &u
}

// CreateIndividual samples parents from the archive frontier, builds and
// mutates a gene tree, and wraps the result in a fresh Individual, matching
// Population.create_individual/mutate.
func (s *Sampler) CreateIndividual() (genome.Individual, error) {
	parents := s.getRandomParents()
	policyTag := s.selectMutator()

	var geneParents []map[string]interface{}
	for _, p := range parents {
		if g := parentGene(p); g != nil {
			geneParents = append(geneParents, g)
		}
	}

	weights := perTypeWeights(s.activeMutatorsByType)
	tree, err := gene.NewTree(s.schema, geneParents, policyTag, weights, s.rnd)
	if err != nil {
		return genome.Individual{}, err
	}
	g, err := tree.Mutate()
	if err != nil {
		return genome.Individual{}, err
	}

	lineage := genome.Lineage{Mutator: string(policyTag), GenerationNum: 0}
	if len(parents) >= 2 {
		lineage.Parent1 = parentUUID(parents[0])
		lineage.Parent2 = parentUUID(parents[1])
	}

	return genome.Individual{
		UUID:    uuid.New().String(),
		Gene:    g,
		Lineage: lineage,
	}, nil
}
