package objectives

import (
	"context"
	"fmt"
	"math"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/params"
)

// #region types

// Target is the thermal-optical performance pair a recommendation must
// approximate: low solar absorptance, high thermal emittance.
type Target struct {
	Alpha   float64 `json:"alpha"`
	Epsilon float64 `json:"epsilon"`
}

// Result bundles the four minimization objectives for one recipe plus the
// raw prediction and the informational exploration score.
type Result struct {
	AlphaErr          float64           `json:"alpha_err"`
	EpsilonErr        float64           `json:"epsilon_err"`
	MassProxy         float64           `json:"mass_proxy"`
	UniformityPenalty float64           `json:"uniformity_penalty"`
	Predicted         oracle.Prediction `json:"predicted"`
	Score             float64           `json:"score"`
}

// #endregion types

// #region evaluator

// Evaluator computes the four objectives for a recipe against a target.
// Pure math except for the oracle call; deterministic given identical
// inputs and identical oracle output.
type Evaluator struct {
	predictor oracle.Predictor
	mass      config.MassProxy
	uniform   config.Uniformity
}

// NewEvaluator creates an Evaluator over the given predictor and config.
func NewEvaluator(p oracle.Predictor, cfg config.Optimize) *Evaluator {
	return &Evaluator{
		predictor: p,
		mass:      cfg.MassProxy,
		uniform:   cfg.Uniformity,
	}
}

// Evaluate calls the oracle and computes all objectives. Oracle errors are
// not swallowed; the caller's batch loop decides skip-vs-abort.
func (e *Evaluator) Evaluate(ctx context.Context, v params.Vector, target Target) (Result, error) {
	pred, err := e.predictor.Predict(ctx, v)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate objectives: %w", err)
	}

	mass := e.MassProxy(v)
	uniformity := e.UniformityPenalty(v)

	res := Result{
		AlphaErr:          math.Abs(pred.Alpha - target.Alpha),
		EpsilonErr:        math.Abs(pred.Epsilon - target.Epsilon),
		MassProxy:         mass,
		UniformityPenalty: uniformity,
		Predicted:         pred,
	}
	res.Score = e.ExplorationScore(res, target, 0)
	return res, nil
}

// #endregion evaluator

// #region charge-density

// ChargeDensity returns current_density x duty_fraction x time, a proxy for
// total electrochemical charge delivered (A*min/dm2).
func ChargeDensity(v params.Vector) float64 {
	return v.CurrentDensityDm2 * (v.DutyCyclePct / 100.0) * v.TimeMin
}

// #endregion charge-density

// #region mass-proxy

// ThicknessProxy estimates coating thickness (um) as the system's linear
// charge-to-thickness coefficient times the charge density.
func (e *Evaluator) ThicknessProxy(v params.Vector) float64 {
	return e.coeff(v) * ChargeDensity(v)
}

// MassProxy returns a [0,1] mass/thickness estimate: charge density scaled
// by the system's growth coefficient, normalized over the configured charge
// window, weighted by relative coating density. Always clamped to [0,1]
// regardless of input magnitude.
func (e *Evaluator) MassProxy(v params.Vector) float64 {
	kRef := e.mass.KChargeToThickness[string(params.SystemSilicate)]
	k := e.coeff(v)

	q := ChargeDensity(v)
	if kRef > 0 {
		q *= k / kRef
	}

	lo, hi := e.mass.ChargeLimits[0], e.mass.ChargeLimits[1]
	if hi <= lo {
		return 0
	}
	z := clip01((q - lo) / (hi - lo))

	return clip01(z * e.densityRatio(v))
}

func (e *Evaluator) coeff(v params.Vector) float64 {
	if k, ok := e.mass.KChargeToThickness[systemKey(v)]; ok {
		return k
	}
	return e.mass.KChargeToThickness[string(params.SystemSilicate)]
}

// densityRatio returns rho_system / max(rho) over the configured systems.
func (e *Evaluator) densityRatio(v params.Vector) float64 {
	rho, ok := e.mass.DensityGCm3[systemKey(v)]
	if !ok {
		rho = e.mass.DensityGCm3[string(params.SystemSilicate)]
	}
	var rhoMax float64
	for _, r := range e.mass.DensityGCm3 {
		if r > rhoMax {
			rhoMax = r
		}
	}
	if rhoMax <= 0 {
		return 1
	}
	return rho / rhoMax
}

// #endregion mass-proxy

// #region uniformity

// UniformityPenalty returns a [0,1] estimate of coating non-uniformity from
// how far pulse frequency and duty cycle fall outside the system's
// recommended window. Bipolar pulsing earns a fixed bonus before the final
// clamp.
func (e *Evaluator) UniformityPenalty(v params.Vector) float64 {
	win, ok := e.uniform.Windows[systemKey(v)]
	if !ok {
		win = e.uniform.Windows[string(params.SystemSilicate)]
	}

	fp := triangular(v.FrequencyHz, win.FrequencyHz[0], win.FrequencyHz[1], e.uniform.SoftMargin)
	dp := triangular(v.DutyCyclePct, win.DutyCyclePct[0], win.DutyCyclePct[1], e.uniform.SoftMargin)

	penalty := e.uniform.FreqWeight*fp + e.uniform.DutyWeight*dp
	if v.Waveform == params.WaveformBipolar {
		penalty -= e.uniform.BipolarBonus
	}
	return clip01(penalty)
}

// triangular is zero inside [lo, hi] and grows linearly to 1 over a distance
// of margin*(hi-lo) past either edge.
func triangular(x, lo, hi, margin float64) float64 {
	if x >= lo && x <= hi {
		return 0
	}
	soft := margin * (hi - lo)
	if soft <= 0 {
		return 1
	}
	var dist float64
	if x < lo {
		dist = lo - x
	} else {
		dist = x - hi
	}
	return clip01(dist / soft)
}

// #endregion uniformity

// #region exploration-score

// Shaping constants for the informational exploration score. Independent of
// the ranking weights in the scoring package.
const (
	scoreSigmoidWidth   = 0.05
	scoreAlphaWeight    = 0.35
	scoreEpsilonWeight  = 0.35
	scoreConfWeight     = 0.10
	scoreEvidenceWeight = 0.05
	scoreMassWeight     = 0.10
	scoreUniformWeight  = 0.05
	scoreEvidenceCap    = 5
)

// ExplorationScore combines sigmoid rewards for clearing both performance
// thresholds with a confidence bonus, an evidence-count bonus, and negative
// mass/uniformity contributions. Higher is better.
func (e *Evaluator) ExplorationScore(res Result, target Target, evidenceCount int) float64 {
	alphaReward := sigmoid((target.Alpha - res.Predicted.Alpha) / scoreSigmoidWidth)
	epsilonReward := sigmoid((res.Predicted.Epsilon - target.Epsilon) / scoreSigmoidWidth)

	evidence := float64(evidenceCount) / scoreEvidenceCap
	if evidence > 1 {
		evidence = 1
	}

	return scoreAlphaWeight*alphaReward +
		scoreEpsilonWeight*epsilonReward +
		scoreConfWeight*res.Predicted.Confidence +
		scoreEvidenceWeight*evidence -
		scoreMassWeight*res.MassProxy -
		scoreUniformWeight*res.UniformityPenalty
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// #endregion exploration-score

// #region helpers

func systemKey(v params.Vector) string {
	if v.System == "" {
		return string(params.SystemSilicate)
	}
	return string(v.System)
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
