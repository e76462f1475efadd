package seeding

import (
	"context"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/params"
	"github.com/maowise/go-engine/internal/scoring"
)

// #region thresholds

// Acceptance thresholds tied to the thermal-control target semantics:
// a usable coating needs alpha <= 0.20 and epsilon >= 0.80.
const (
	alphaCeil    = 0.20
	epsilonGood  = 0.82
	epsilonFloor = 0.80

	// At most this many seeds are expanded per branch, bounding the
	// synthesized re-evaluation work.
	maxSeedsPerBranch = 3

	variantsPerSeed = 3
)

// #endregion thresholds

// #region find-seeds

// Seeds classifies candidates that satisfy one performance target but
// violate the other.
type Seeds struct {
	// ReduceAlpha: emittance is already good but absorptance is too high.
	ReduceAlpha []scoring.Candidate
	// BoostEpsilon: absorptance is fine but emittance falls short.
	BoostEpsilon []scoring.Candidate
}

// FindSeeds sorts candidates into the two needs-help branches. A candidate
// that satisfies both targets, or neither, is not a seed.
func FindSeeds(cands []scoring.Candidate) Seeds {
	var s Seeds
	for _, c := range cands {
		pred := c.Objectives.Predicted
		switch {
		case pred.Epsilon >= epsilonGood && pred.Alpha > alphaCeil:
			s.ReduceAlpha = append(s.ReduceAlpha, c)
		case pred.Alpha <= alphaCeil && pred.Epsilon < epsilonFloor:
			s.BoostEpsilon = append(s.BoostEpsilon, c)
		}
	}
	return s
}

// #endregion find-seeds

// #region variants

// Per-variant perturbation tables. Index i is variant i of 3.
var (
	reduceAlphaVoltageScale = [variantsPerSeed]float64{0.98, 0.95, 0.96}
	reduceAlphaFrequency    = [variantsPerSeed]float64{750, 600, 900}

	boostEpsilonFreqDelta = [variantsPerSeed]float64{150, 200, 175}
	boostEpsilonDutyDelta = [variantsPerSeed]float64{3, 5, 4}
	boostEpsilonTimeScale = [variantsPerSeed]float64{1.10, 1.15, 1.12}
)

// MakeVariants synthesizes exactly 3 deterministic parameter perturbations
// of v for the given branch, clamped into the effective bounds.
//
// reduce_alpha shortens and cools the process: time x0.85, duty -5 points,
// a small voltage cut, a fixed moderate frequency, and bipolar pulsing.
// boost_epsilon thickens the ceramic layer: higher frequency, more duty,
// longer time.
func MakeVariants(v params.Vector, mode scoring.VariantSource, space *params.Space) []params.Vector {
	out := make([]params.Vector, 0, variantsPerSeed)
	for i := 0; i < variantsPerSeed; i++ {
		nv := v
		switch mode {
		case scoring.VariantReduceAlpha:
			nv.TimeMin = v.TimeMin * 0.85
			nv.DutyCyclePct = v.DutyCyclePct - 5
			nv.VoltageV = v.VoltageV * reduceAlphaVoltageScale[i]
			nv.FrequencyHz = reduceAlphaFrequency[i]
			nv.Waveform = params.WaveformBipolar
		case scoring.VariantBoostEpsilon:
			nv.FrequencyHz = v.FrequencyHz + boostEpsilonFreqDelta[i]
			nv.DutyCyclePct = v.DutyCyclePct + boostEpsilonDutyDelta[i]
			nv.TimeMin = v.TimeMin * boostEpsilonTimeScale[i]
		default:
			return nil
		}
		out = append(out, space.Clamp(nv))
	}
	return out
}

// #endregion variants

// #region expand

// EvaluateFunc re-evaluates one synthesized vector. Failures skip that
// variant rather than aborting the pass.
type EvaluateFunc func(ctx context.Context, v params.Vector) (objectives.Result, error)

// Expand generates variants for up to 3 seeds per branch, re-evaluates each
// through eval, and returns the surviving variants as unranked candidates
// tagged with their source branch.
func Expand(ctx context.Context, seeds Seeds, space *params.Space, eval EvaluateFunc) []scoring.Candidate {
	var out []scoring.Candidate
	branches := []struct {
		mode  scoring.VariantSource
		seeds []scoring.Candidate
	}{
		{scoring.VariantReduceAlpha, seeds.ReduceAlpha},
		{scoring.VariantBoostEpsilon, seeds.BoostEpsilon},
	}
	for _, br := range branches {
		limit := len(br.seeds)
		if limit > maxSeedsPerBranch {
			limit = maxSeedsPerBranch
		}
		for _, seed := range br.seeds[:limit] {
			for _, nv := range MakeVariants(seed.Params, br.mode, space) {
				if ctx.Err() != nil {
					return out
				}
				res, err := eval(ctx, nv)
				if err != nil {
					continue
				}
				out = append(out, scoring.Candidate{
					Params:        nv,
					Objectives:    res,
					VariantSource: br.mode,
				})
			}
		}
	}
	return out
}

// #endregion expand

// #region merge

// Merge folds synthesized variants back into the original pool, drops
// duplicates by rounded-parameter signature (first seen wins), and re-ranks
// ascending by weighted score.
func Merge(orig, variants []scoring.Candidate, w config.Weights) []scoring.Candidate {
	seen := make(map[string]bool, len(orig)+len(variants))
	merged := make([]scoring.Candidate, 0, len(orig)+len(variants))
	for _, c := range append(append([]scoring.Candidate{}, orig...), variants...) {
		sig := c.Params.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		merged = append(merged, c)
	}
	return scoring.Rank(merged, w)
}

// #endregion merge
