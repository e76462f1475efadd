package scoring

import (
	"sort"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/params"
)

// #region types

// VariantSource marks candidates synthesized by the convergence seeder.
type VariantSource string

const (
	VariantNone         VariantSource = ""
	VariantReduceAlpha  VariantSource = "reduce_alpha"
	VariantBoostEpsilon VariantSource = "boost_epsilon"
)

// Candidate is one evaluated recipe with its scalarized ranking score.
// Lower WeightedScore is better.
type Candidate struct {
	Params        params.Vector
	Objectives    objectives.Result
	WeightedScore float64
	VariantSource VariantSource
}

// #endregion types

// #region score

// Score collapses a four-objective result into one weighted scalar.
// Performance errors are normalized by ErrScale and clamped to [0,1];
// mass and uniformity are already [0,1].
func Score(res objectives.Result, w config.Weights) float64 {
	return w.AlphaErr*normErr(res.AlphaErr, w.ErrScale) +
		w.EpsilonErr*normErr(res.EpsilonErr, w.ErrScale) +
		w.MassProxy*res.MassProxy +
		w.Uniformity*res.UniformityPenalty
}

func normErr(err, scale float64) float64 {
	if scale <= 0 {
		scale = 0.1
	}
	n := err / scale
	if n > 1 {
		return 1
	}
	if n < 0 {
		return 0
	}
	return n
}

// #endregion score

// #region rank

// Rank scores every candidate and returns a new slice sorted ascending by
// weighted score. The sort is stable: ties keep insertion order.
func Rank(cands []Candidate, w config.Weights) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	for i := range out {
		out[i].WeightedScore = Score(out[i].Objectives, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeightedScore < out[j].WeightedScore
	})
	return out
}

// Top truncates a ranked list to at most n candidates.
func Top(cands []Candidate, n int) []Candidate {
	if n < 0 {
		n = 0
	}
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands
}

// #endregion rank
