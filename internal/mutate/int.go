// Package mutate implements the typed mutation operators of spec.md §4.2-§4.3
// and registers them into internal/gene's dispatch table at init time,
// replacing the introspection-based GeneMutate base class of
// original_source/toga/genetic_algorithm/mutate/genemutate.py with the
// sealed (Type, Tag) table described in spec.md §9.
package mutate

import (
	"math"

	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

func init() {
	gene.RegisterOperator(gene.Int, gene.Crossover, intCrossover)
	gene.RegisterOperator(gene.Int, gene.Random, intRandom)
	gene.RegisterOperator(gene.Int, gene.GaussianStep, intGaussianStep)
	gene.RegisterOperator(gene.Int, gene.GaussianRandom, intGaussianRandom)
	gene.RegisterOperator(gene.Int, gene.Scaled, intScaled)
	gene.RegisterOperator(gene.Int, gene.Minimum, intMinimum)
	gene.RegisterOperator(gene.Int, gene.Maximum, intMaximum)
}

func intRange(l *gene.LeafSpec) (lo, hi float64) {
	return l.Range[0], l.Range[1]
}

// intCrossover returns one parent value chosen uniformly, or a random value
// when there are no parents. A single parent such as -99 is returned as is;
// with several parents the pick depends on math/rand, so the doctested
// outputs of original_source/toga/genetic_algorithm/mutate/int.py are not
// reproduced (seed 0 with parents [23,45,97] yields 23 here, not 97).
func intCrossover(l *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return intRandom(l, values, rnd)
	}
	idx := rnd.Intn(len(values))
	return toInt(values[idx]), nil
}

// intRandom uses half-open [lo, hi) semantics matching numpy.random.randint
// (spec.md §8 scenario 2 / §4.2 footnote).
func intRandom(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	return rnd.UniformInt(int(lo), int(hi)), nil
}

func intGaussianStep(l *gene.LeafSpec, values []interface{}, rnd *rng.Source) (interface{}, error) {
	if len(values) == 0 {
		return intRandom(l, values, rnd)
	}
	lo, hi := intRange(l)
	parent := toFloat(values[0])
	scale := math.Abs(hi-lo) / 4
	v := clamp(rnd.Normal(parent, scale), lo, hi)
	return int(math.Round(v)), nil
}

func intGaussianRandom(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	v := rnd.TruncatedNormal(lo, hi, 3)
	return int(math.Round(v)), nil
}

func intScaled(l *gene.LeafSpec, _ []interface{}, rnd *rng.Source) (interface{}, error) {
	lo, hi := intRange(l)
	pct := rnd.Float64()
	return int(math.Floor((hi-lo)*pct + lo)), nil
}

func intMinimum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	lo, _ := intRange(l)
	return int(lo), nil
}

func intMaximum(l *gene.LeafSpec, _ []interface{}, _ *rng.Source) (interface{}, error) {
	_, hi := intRange(l)
	return int(hi), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func toInt(v interface{}) int {
	return int(toFloat(v))
}
