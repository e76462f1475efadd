package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/evidence"
	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/params"
	"github.com/maowise/go-engine/internal/scoring"
	"github.com/maowise/go-engine/internal/search"
	"github.com/maowise/go-engine/internal/seeding"
)

// #region engine

const (
	defaultNSolutions  = 5
	defaultConcurrency = 8
)

// Engine is the stateless recommendation pipeline. Construction loads the
// parameter space and probes the search backend once; each Recommend call is
// an independent unit of work.
type Engine struct {
	cfg         config.Config
	space       *params.Space
	evaluator   *objectives.Evaluator
	backend     search.Backend
	fallback    *search.UniformRandomSampler
	linker      *evidence.Linker
	concurrency int
}

// New builds an Engine. The bound table is the one fatal config dependency;
// everything else has built-in defaults.
func New(cfg config.Config, predictor oracle.Predictor, kb evidence.Searcher) (*Engine, error) {
	space, err := cfg.Space()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:         cfg,
		space:       space,
		evaluator:   objectives.NewEvaluator(predictor, cfg.Optimize),
		backend:     search.NewBackend(cfg.Optimize.Engine),
		fallback:    &search.UniformRandomSampler{},
		linker:      evidence.NewLinker(kb),
		concurrency: defaultConcurrency,
	}, nil
}

// Backend reports which search backend construction probed.
func (e *Engine) Backend() string { return e.backend.Name() }

// #endregion engine

// #region recommend

// Recommend runs the full pipeline: bounds, candidate search (with silent
// fallback to random sampling), batch evaluation, weighted ranking, the
// convergence-seeding pass, dedup, and evidence linking.
func (e *Engine) Recommend(ctx context.Context, req Request) (Response, error) {
	n := req.NSolutions
	if n <= 0 {
		n = defaultNSolutions
	}
	space := e.space.Narrow(toBounds(req.Constraints))
	objFn := e.objectiveFunc(req.Target)

	backendName := e.backend.Name()
	vectors, err := e.backend.Search(ctx, space, objFn, n, req.Seed)
	if err != nil || len(vectors) == 0 {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		// Primary-path failure is not an error condition for the caller.
		backendName = e.fallback.Name()
		vectors, err = e.fallback.Search(ctx, space, nil, n, req.Seed)
		if err != nil {
			return Response{}, fmt.Errorf("fallback sampling: %w", err)
		}
	}

	evaluated, err := e.evaluateBatch(ctx, vectors, req.Target)
	if err != nil {
		return Response{}, err
	}

	ranked := scoring.Rank(evaluated, e.cfg.Optimize.Weights)

	// Convergence pass: rescue one-sided failures, fold variants back in.
	seeds := seeding.FindSeeds(ranked)
	variants := seeding.Expand(ctx, seeds, space, func(ctx context.Context, v params.Vector) (objectives.Result, error) {
		return e.evaluator.Evaluate(ctx, v, req.Target)
	})
	merged := seeding.Merge(ranked, variants, e.cfg.Optimize.Weights)

	top := scoring.Top(merged, n)
	solutions := make([]Solution, 0, len(top))
	for _, c := range top {
		solutions = append(solutions, e.export(ctx, c, req.Target))
	}

	summary := ParetoSummary{
		Target:        req.Target,
		NumCandidates: len(merged),
	}
	if len(top) > 0 {
		sum := top[0].Objectives.AlphaErr + top[0].Objectives.EpsilonErr
		summary.BestErrorSum = &sum
	}

	return Response{
		Solutions:          solutions,
		ParetoFrontSummary: summary,
		Backend:            backendName,
	}, nil
}

// objectiveFunc closes over the target for the search backend.
func (e *Engine) objectiveFunc(target objectives.Target) search.ObjectiveFunc {
	return func(ctx context.Context, v params.Vector) ([]float64, error) {
		res, err := e.evaluator.Evaluate(ctx, v, target)
		if err != nil {
			return nil, err
		}
		return []float64{res.AlphaErr, res.EpsilonErr, res.MassProxy, res.UniformityPenalty}, nil
	}
}

// #endregion recommend

// #region batch-evaluate

// evaluateBatch fans candidate evaluations out across a bounded worker pool
// and recombines results by original index so downstream sorting stays
// deterministic. A candidate whose oracle call fails is skipped; the call
// aborts only when every candidate fails.
func (e *Engine) evaluateBatch(ctx context.Context, vectors []params.Vector, target objectives.Target) ([]scoring.Candidate, error) {
	results := make([]*objectives.Result, len(vectors))
	evalErrs := make([]error, len(vectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, v := range vectors {
		i, v := i, v
		g.Go(func() error {
			res, err := e.evaluator.Evaluate(gctx, v, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				evalErrs[i] = err // skip this candidate, keep going
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]scoring.Candidate, 0, len(vectors))
	var firstErr error
	for i, res := range results {
		if res == nil {
			if firstErr == nil {
				firstErr = evalErrs[i]
			}
			continue
		}
		out = append(out, scoring.Candidate{Params: vectors[i], Objectives: *res})
	}
	if len(out) == 0 && len(vectors) > 0 {
		return nil, fmt.Errorf("all %d candidate evaluations failed: %w", len(vectors), firstErr)
	}
	return out, nil
}

// #endregion batch-evaluate

// #region export

// export turns a surviving candidate into a terminal Solution, attaching
// evidence (best effort) and refreshing the exploration score with the
// evidence count.
func (e *Engine) export(ctx context.Context, c scoring.Candidate, target objectives.Target) Solution {
	cites := e.linker.Attach(ctx, c.Params)
	obj := c.Objectives
	obj.Score = e.evaluator.ExplorationScore(obj, target, len(cites))

	return Solution{
		ID:                uuid.New().String(),
		Delta:             c.Params,
		Predicted:         obj.Predicted,
		Rationale:         rationale(c.Params),
		Evidence:          cites,
		Objectives:        obj,
		MassProxy:         obj.MassProxy,
		UniformityPenalty: obj.UniformityPenalty,
		ScoreTotal:        c.WeightedScore,
		VariantSource:     c.VariantSource,
	}
}

// rationale phrases the recipe for the lab report.
func rationale(v params.Vector) string {
	return fmt.Sprintf(
		"Set voltage to %.0f V, run for %.0f min, and hold duty cycle at %.0f%% to approach the target",
		v.VoltageV, v.TimeMin, v.DutyCyclePct,
	)
}

func toBounds(constraints map[string][2]float64) map[string]params.Bound {
	out := make(map[string]params.Bound, len(constraints))
	for k, c := range constraints {
		out[k] = params.Bound{Lo: c[0], Hi: c[1]}
	}
	return out
}

// #endregion export

// #region secondary-entry-points

// MakeVariants synthesizes the 3 deterministic perturbations of v for a
// branch, clamped into the constraint-narrowed bounds.
func (e *Engine) MakeVariants(v params.Vector, mode scoring.VariantSource, constraints map[string][2]float64) []params.Vector {
	return seeding.MakeVariants(v, mode, e.space.Narrow(toBounds(constraints)))
}

// FindConvergenceSeeds classifies candidates into the two needs-help
// branches.
func (e *Engine) FindConvergenceSeeds(cands []scoring.Candidate) seeding.Seeds {
	return seeding.FindSeeds(cands)
}

// GenerateConvergenceVariants expands seeds from the given pool,
// re-evaluates the variants, and returns the merged, deduplicated, re-ranked
// candidate list.
func (e *Engine) GenerateConvergenceVariants(ctx context.Context, initial []scoring.Candidate, constraints map[string][2]float64, target objectives.Target) []scoring.Candidate {
	space := e.space.Narrow(toBounds(constraints))
	seeds := seeding.FindSeeds(initial)
	variants := seeding.Expand(ctx, seeds, space, func(ctx context.Context, v params.Vector) (objectives.Result, error) {
		return e.evaluator.Evaluate(ctx, v, target)
	})
	return seeding.Merge(initial, variants, e.cfg.Optimize.Weights)
}

// #endregion secondary-entry-points
