package engine

import (
	"github.com/maowise/go-engine/internal/evidence"
	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/params"
	"github.com/maowise/go-engine/internal/scoring"
)

// #region request

// Request is one recommendation call.
type Request struct {
	Target      objectives.Target     `json:"target"`
	CurrentHint string                `json:"current_hint,omitempty"`
	Constraints map[string][2]float64 `json:"constraints,omitempty"`
	NSolutions  int                   `json:"n_solutions,omitempty"`
	// Seed makes the whole call deterministic. Zero means seed 0, which is
	// still deterministic; callers wanting variety pass their own.
	Seed int64 `json:"seed,omitempty"`
}

// #endregion request

// #region solution

// Solution is one caller-visible recommended recipe. Created once at export
// time from a surviving candidate; never mutated afterward.
type Solution struct {
	ID                string                `json:"id"`
	Delta             params.Vector         `json:"delta"`
	Predicted         oracle.Prediction     `json:"predicted"`
	Rationale         string                `json:"rationale"`
	Evidence          []evidence.Citation   `json:"evidence"`
	Objectives        objectives.Result     `json:"objectives_breakdown"`
	MassProxy         float64               `json:"mass_proxy"`
	UniformityPenalty float64               `json:"uniformity_penalty"`
	ScoreTotal        float64               `json:"score_total"`
	VariantSource     scoring.VariantSource `json:"variant_source,omitempty"`
}

// #endregion solution

// #region summary

// ParetoSummary is the read-only report accompanying a solution list.
type ParetoSummary struct {
	Target        objectives.Target `json:"target"`
	BestErrorSum  *float64          `json:"best_error_sum"`
	NumCandidates int               `json:"num_candidates"`
}

// Response is the full output of Recommend.
type Response struct {
	Solutions          []Solution    `json:"solutions"`
	ParetoFrontSummary ParetoSummary `json:"pareto_front_summary"`
	// Backend names the search path that produced the pool ("nsga2" or
	// "random"), after any fallback.
	Backend string `json:"backend"`
}

// #endregion summary
