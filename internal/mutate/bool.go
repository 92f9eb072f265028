package mutate

import (
	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

func init() {
	gene.RegisterOperator(gene.Bool, gene.Crossover, boolCrossover)
	gene.RegisterOperator(gene.Bool, gene.Random, boolRandom)
	gene.RegisterOperator(gene.Bool, gene.GaussianStep, boolRandom)
	gene.RegisterOperator(gene.Bool, gene.GaussianRandom, boolRandom)
	gene.RegisterOperator(gene.Bool, gene.Scaled, boolScaled)
	gene.RegisterOperator(gene.Bool, gene.Minimum, boolMinimum)
	gene.RegisterOperator(gene.Bool, gene.Maximum, boolMaximum)
}

func boolCrossover(_ *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return rnd.Bernoulli(0.5), nil
	}
	return toInt(values[rnd.Intn(len(values))]), nil
}

func boolRandom(_ *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	return rnd.Bernoulli(0.5), nil
}

// boolScaled treats percentage as freshly drawn per mutation (see DESIGN.md:
// population.py never threads a configured percentage into the gene tree,
// so this implementation samples pi ~ U[0,1] itself rather than assuming a
// fixed constant).
func boolScaled(_ *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	pct := rnd.Float64()
	return rnd.Bernoulli(pct), nil
}

func boolMinimum(_ *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) { return 0, nil }
func boolMaximum(_ *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) { return 1, nil }
