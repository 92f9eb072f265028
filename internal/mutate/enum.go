package mutate

import (
	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

func init() {
	gene.RegisterOperator(gene.Enum, gene.Crossover, enumCrossover)
	gene.RegisterOperator(gene.Enum, gene.Random, enumRandom)
	gene.RegisterOperator(gene.Enum, gene.GaussianStep, enumRandom)
	gene.RegisterOperator(gene.Enum, gene.GaussianRandom, enumRandom)
	gene.RegisterOperator(gene.Enum, gene.Scaled, enumRandom)
	gene.RegisterOperator(gene.Enum, gene.Minimum, enumMinimum)
	gene.RegisterOperator(gene.Enum, gene.Maximum, enumMaximum)
}

func enumCrossover(l *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return enumRandom(l, values, rnd)
	}
	return values[rnd.Intn(len(values))], nil
}

func enumRandom(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	return l.Values[rnd.Intn(len(l.Values))], nil
}

func enumMinimum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	return l.Values[0], nil
}

func enumMaximum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	return l.Values[len(l.Values)-1], nil
}
