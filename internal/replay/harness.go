package replay

import (
	"context"
	"fmt"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/engine"
	"github.com/maowise/go-engine/internal/params"
)

// #region types

// CheckResult is the outcome of one fixture expectation.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// Result bundles the replayed response with its expectation checks.
type Result struct {
	Response engine.Response
	Checks   []CheckResult
}

// Passed reports whether every check passed.
func (r Result) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// #endregion types

// #region replay

// Replay runs the fixture's request through the full pipeline against the
// fixture oracle, entirely offline, then evaluates the expectations.
func Replay(ctx context.Context, cfg config.Config, f Fixture) (Result, error) {
	eng, err := engine.New(cfg, NewFixtureOracle(f), nil)
	if err != nil {
		return Result{}, fmt.Errorf("replay engine: %w", err)
	}

	resp, err := eng.Recommend(ctx, engine.Request{
		Target:      f.Target,
		Constraints: f.Constraints,
		NSolutions:  f.NSolutions,
		Seed:        f.Seed,
	})
	if err != nil {
		return Result{}, fmt.Errorf("replay recommend: %w", err)
	}

	res := Result{Response: resp}
	res.Checks = runChecks(cfg, f, resp)
	return res, nil
}

// runChecks evaluates each requested expectation against the response.
func runChecks(cfg config.Config, f Fixture, resp engine.Response) []CheckResult {
	var checks []CheckResult

	if f.Expect.MaxSolutions > 0 {
		ok := len(resp.Solutions) <= f.Expect.MaxSolutions
		checks = append(checks, CheckResult{
			Name:   "max_solutions",
			Passed: ok,
			Detail: fmt.Sprintf("got %d, limit %d", len(resp.Solutions), f.Expect.MaxSolutions),
		})
	}

	if f.Expect.Backend != "" {
		ok := resp.Backend == f.Expect.Backend
		checks = append(checks, CheckResult{
			Name:   "backend",
			Passed: ok,
			Detail: fmt.Sprintf("got %q, want %q", resp.Backend, f.Expect.Backend),
		})
	}

	if f.Expect.InBounds {
		checks = append(checks, boundsCheck(cfg, f, resp))
	}

	if f.Expect.SortedByScore {
		ok := true
		for i := 1; i < len(resp.Solutions); i++ {
			if resp.Solutions[i].ScoreTotal < resp.Solutions[i-1].ScoreTotal {
				ok = false
				break
			}
		}
		checks = append(checks, CheckResult{
			Name:   "sorted_by_score",
			Passed: ok,
			Detail: fmt.Sprintf("%d solutions", len(resp.Solutions)),
		})
	}

	return checks
}

func boundsCheck(cfg config.Config, f Fixture, resp engine.Response) CheckResult {
	space, err := cfg.Space()
	if err != nil {
		return CheckResult{Name: "in_bounds", Passed: false, Detail: err.Error()}
	}
	constraints := make(map[string]params.Bound, len(f.Constraints))
	for k, c := range f.Constraints {
		constraints[k] = params.Bound{Lo: c[0], Hi: c[1]}
	}
	narrowed := space.Narrow(constraints)

	for i, sol := range resp.Solutions {
		if err := narrowed.Validate(sol.Delta); err != nil {
			return CheckResult{
				Name:   "in_bounds",
				Passed: false,
				Detail: fmt.Sprintf("solution %d: %v", i, err),
			}
		}
	}
	return CheckResult{Name: "in_bounds", Passed: true, Detail: fmt.Sprintf("%d solutions", len(resp.Solutions))}
}

// #endregion replay
