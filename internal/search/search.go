package search

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/params"
)

// #region types

// ObjectiveFunc evaluates one vector into its minimization objectives
// (alpha error, epsilon error, mass proxy, uniformity penalty). Errors
// propagate out of the backend and trigger the engine's fallback.
type ObjectiveFunc func(ctx context.Context, v params.Vector) ([]float64, error)

// Backend produces a pool of raw candidate vectors inside a bound box.
// Every call is a fresh search; backends hold no per-call state. The seed
// makes a call deterministic for a fixed budget. The objective function is
// per-call because it closes over the caller's target.
type Backend interface {
	Name() string
	Search(ctx context.Context, space *params.Space, obj ObjectiveFunc, nSolutions int, seed int64) ([]params.Vector, error)
}

// Pool size multipliers relative to the requested solution count.
const (
	solverKeepMultiplier    = 5
	samplerBudgetMultiplier = 10
)

// #endregion types

// #region probe

// NewBackend probes the configured backend once at construction time.
// An unusable evolutionary config degrades to the uniform sampler; run-time
// solver failures are handled by the caller, not here.
func NewBackend(cfg config.Engine) Backend {
	if cfg.Backend == "nsga2" && cfg.Population > 1 && cfg.Generations > 0 {
		return &EvolutionarySolver{
			population:  cfg.Population,
			generations: cfg.Generations,
		}
	}
	return &UniformRandomSampler{}
}

// #endregion probe

// #region sampler

// UniformRandomSampler draws vectors uniformly and independently per
// parameter from the bound box. It is the fallback backend and cannot fail.
type UniformRandomSampler struct{}

// Name implements Backend.
func (s *UniformRandomSampler) Name() string { return "random" }

// Search implements Backend. It ignores the objective function and returns
// 10x the requested solution count.
func (s *UniformRandomSampler) Search(ctx context.Context, space *params.Space, _ ObjectiveFunc, nSolutions int, seed int64) ([]params.Vector, error) {
	rng := rand.New(rand.NewSource(seed))
	n := samplerBudgetMultiplier * nSolutions
	out := make([]params.Vector, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := randomVector(rng, space)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func randomVector(rng *rand.Rand, space *params.Space) (params.Vector, error) {
	fields := params.NumericFields()
	vals := make([]float64, len(fields))
	for i, f := range fields {
		b, ok := space.Bound(f.Key)
		if !ok {
			return params.Vector{}, fmt.Errorf("random sample: no bound for %s", f.Key)
		}
		vals[i] = b.Lo + rng.Float64()*(b.Hi-b.Lo)
	}
	return params.FromValues(vals)
}

// #endregion sampler
