package mutate

import (
	"math"

	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

func init() {
	gene.RegisterOperator(gene.Float, gene.Crossover, floatCrossover)
	gene.RegisterOperator(gene.Float, gene.Random, floatRandom)
	gene.RegisterOperator(gene.Float, gene.GaussianStep, floatGaussianStep)
	gene.RegisterOperator(gene.Float, gene.GaussianRandom, floatGaussianRandom)
	gene.RegisterOperator(gene.Float, gene.Scaled, floatScaled)
	gene.RegisterOperator(gene.Float, gene.Minimum, floatMinimum)
	gene.RegisterOperator(gene.Float, gene.Maximum, floatMaximum)
}

func floatCrossover(l *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return floatRandom(l, values, rnd)
	}
	idx := rnd.Intn(len(values))
	return toFloat(values[idx]), nil
}

func floatRandom(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	return rnd.UniformFloat(lo, hi), nil
}

func floatGaussianStep(l *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return floatRandom(l, values, rnd)
	}
	lo, hi := intRange(l)
	parent := toFloat(values[0])
	scale := math.Abs(hi-lo) / 4
	return clamp(rnd.Normal(parent, scale), lo, hi), nil
}

func floatGaussianRandom(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	return rnd.TruncatedNormal(lo, hi, 3), nil
}

func floatScaled(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	pct := rnd.Float64()
	return (hi-lo)*pct + lo, nil
}

func floatMinimum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	lo, _ := intRange(l)
	return lo, nil
}

func floatMaximum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	_, hi := intRange(l)
	return hi, nil
}
