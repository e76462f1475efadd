package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/maowise/go-engine/internal/params"
)

// #region solver

// Variation operator constants (standard NSGA-II settings).
const (
	crossoverProb = 0.9
	crossoverEta  = 15.0
	mutationEta   = 20.0
)

// EvolutionarySolver runs NSGA-II over the bound box: non-dominated sorting
// with crowding-distance selection over the four minimization objectives.
type EvolutionarySolver struct {
	population  int
	generations int
}

// Name implements Backend.
func (s *EvolutionarySolver) Name() string { return "nsga2" }

// individual is one population member: decision variables plus evaluated
// objectives and selection metadata.
type individual struct {
	vals     []float64
	objs     []float64
	rank     int
	crowding float64
}

// Search implements Backend. The final population, sorted by (rank,
// crowding), is truncated to 5x the requested solution count. Objective
// failures and cancellation propagate; the engine treats them as a signal
// to fall back, not as a caller-visible failure.
func (s *EvolutionarySolver) Search(ctx context.Context, space *params.Space, obj ObjectiveFunc, nSolutions int, seed int64) ([]params.Vector, error) {
	if obj == nil {
		return nil, fmt.Errorf("nsga2: nil objective function")
	}
	fields := params.NumericFields()
	lo := make([]float64, len(fields))
	hi := make([]float64, len(fields))
	for i, f := range fields {
		b, ok := space.Bound(f.Key)
		if !ok {
			return nil, fmt.Errorf("nsga2: no bound for %s", f.Key)
		}
		lo[i], hi[i] = b.Lo, b.Hi
	}

	rng := rand.New(rand.NewSource(seed))

	pop := make([]individual, s.population)
	for i := range pop {
		vals := make([]float64, len(fields))
		for j := range vals {
			vals[j] = lo[j] + rng.Float64()*(hi[j]-lo[j])
		}
		pop[i] = individual{vals: vals}
	}
	if err := evaluate(ctx, obj, pop); err != nil {
		return nil, err
	}
	assignRankAndCrowding(pop)

	for gen := 0; gen < s.generations; gen++ {
		offspring := s.makeOffspring(rng, pop, lo, hi)
		if err := evaluate(ctx, obj, offspring); err != nil {
			return nil, err
		}
		pop = environmentalSelection(append(pop, offspring...), s.population)
	}

	sortByRankCrowding(pop)
	keep := solverKeepMultiplier * nSolutions
	if keep > len(pop) {
		keep = len(pop)
	}
	out := make([]params.Vector, 0, keep)
	for _, ind := range pop[:keep] {
		v, err := params.FromValues(ind.vals)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// evaluate fills in objectives for every individual, checking cancellation
// between evaluations.
func evaluate(ctx context.Context, obj ObjectiveFunc, pop []individual) error {
	for i := range pop {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := params.FromValues(pop[i].vals)
		if err != nil {
			return err
		}
		objs, err := obj(ctx, v)
		if err != nil {
			return fmt.Errorf("nsga2 evaluate: %w", err)
		}
		pop[i].objs = objs
	}
	return nil
}

// #endregion solver

// #region variation

// makeOffspring produces one full population of children via binary
// tournament, simulated binary crossover, and polynomial mutation.
func (s *EvolutionarySolver) makeOffspring(rng *rand.Rand, pop []individual, lo, hi []float64) []individual {
	mutProb := 1.0 / float64(len(lo))
	offspring := make([]individual, 0, s.population)
	for len(offspring) < s.population {
		p1 := tournament(rng, pop)
		p2 := tournament(rng, pop)
		c1, c2 := sbxCrossover(rng, p1.vals, p2.vals, lo, hi)
		polynomialMutation(rng, c1, lo, hi, mutProb)
		polynomialMutation(rng, c2, lo, hi, mutProb)
		offspring = append(offspring, individual{vals: c1})
		if len(offspring) < s.population {
			offspring = append(offspring, individual{vals: c2})
		}
	}
	return offspring
}

// tournament picks the better of two random individuals by (rank, crowding).
func tournament(rng *rand.Rand, pop []individual) individual {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if a.rank < b.rank {
		return a
	}
	if b.rank < a.rank {
		return b
	}
	if a.crowding > b.crowding {
		return a
	}
	return b
}

// sbxCrossover performs simulated binary crossover, clamping children to the
// bound box.
func sbxCrossover(rng *rand.Rand, p1, p2, lo, hi []float64) ([]float64, []float64) {
	n := len(p1)
	c1 := make([]float64, n)
	c2 := make([]float64, n)
	copy(c1, p1)
	copy(c2, p2)
	if rng.Float64() > crossoverProb {
		return c1, c2
	}
	for i := 0; i < n; i++ {
		if rng.Float64() > 0.5 || math.Abs(p1[i]-p2[i]) < 1e-14 {
			continue
		}
		u := rng.Float64()
		var beta float64
		if u <= 0.5 {
			beta = math.Pow(2*u, 1.0/(crossoverEta+1))
		} else {
			beta = math.Pow(1.0/(2*(1-u)), 1.0/(crossoverEta+1))
		}
		c1[i] = clampTo(0.5*((1+beta)*p1[i]+(1-beta)*p2[i]), lo[i], hi[i])
		c2[i] = clampTo(0.5*((1-beta)*p1[i]+(1+beta)*p2[i]), lo[i], hi[i])
	}
	return c1, c2
}

// polynomialMutation perturbs each variable with probability prob.
func polynomialMutation(rng *rand.Rand, vals, lo, hi []float64, prob float64) {
	for i := range vals {
		if rng.Float64() > prob {
			continue
		}
		span := hi[i] - lo[i]
		if span <= 0 {
			continue
		}
		u := rng.Float64()
		var delta float64
		if u < 0.5 {
			delta = math.Pow(2*u, 1.0/(mutationEta+1)) - 1
		} else {
			delta = 1 - math.Pow(2*(1-u), 1.0/(mutationEta+1))
		}
		vals[i] = clampTo(vals[i]+delta*span, lo[i], hi[i])
	}
}

func clampTo(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// #endregion variation

// #region selection

// dominates reports whether a Pareto-dominates b: no worse on every
// objective and strictly better on at least one (all minimized).
func dominates(a, b []float64) bool {
	better := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			better = true
		}
	}
	return better
}

// assignRankAndCrowding runs fast non-dominated sorting and computes
// crowding distances front by front.
func assignRankAndCrowding(pop []individual) {
	n := len(pop)
	dominated := make([][]int, n)
	domCount := make([]int, n)
	var current []int

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dominates(pop[i].objs, pop[j].objs) {
				dominated[i] = append(dominated[i], j)
			} else if dominates(pop[j].objs, pop[i].objs) {
				domCount[i]++
			}
		}
		if domCount[i] == 0 {
			pop[i].rank = 0
			current = append(current, i)
		}
	}

	rank := 0
	for len(current) > 0 {
		crowdingDistance(pop, current)
		var next []int
		for _, i := range current {
			for _, j := range dominated[i] {
				domCount[j]--
				if domCount[j] == 0 {
					pop[j].rank = rank + 1
					next = append(next, j)
				}
			}
		}
		rank++
		current = next
	}
}

// crowdingDistance computes the crowding metric for one front.
func crowdingDistance(pop []individual, front []int) {
	for _, i := range front {
		pop[i].crowding = 0
	}
	if len(front) == 0 {
		return
	}
	nObj := len(pop[front[0]].objs)
	idx := make([]int, len(front))
	for m := 0; m < nObj; m++ {
		copy(idx, front)
		sort.SliceStable(idx, func(a, b int) bool {
			return pop[idx[a]].objs[m] < pop[idx[b]].objs[m]
		})
		pop[idx[0]].crowding = math.Inf(1)
		pop[idx[len(idx)-1]].crowding = math.Inf(1)
		span := pop[idx[len(idx)-1]].objs[m] - pop[idx[0]].objs[m]
		if span <= 0 {
			continue
		}
		for k := 1; k < len(idx)-1; k++ {
			if math.IsInf(pop[idx[k]].crowding, 1) {
				continue
			}
			pop[idx[k]].crowding += (pop[idx[k+1]].objs[m] - pop[idx[k-1]].objs[m]) / span
		}
	}
}

// environmentalSelection keeps the best n of a combined parent+offspring
// population by (rank, crowding).
func environmentalSelection(combined []individual, n int) []individual {
	assignRankAndCrowding(combined)
	sortByRankCrowding(combined)
	if len(combined) > n {
		combined = combined[:n]
	}
	out := make([]individual, len(combined))
	copy(out, combined)
	return out
}

func sortByRankCrowding(pop []individual) {
	sort.SliceStable(pop, func(i, j int) bool {
		if pop[i].rank != pop[j].rank {
			return pop[i].rank < pop[j].rank
		}
		return pop[i].crowding > pop[j].crowding
	})
}

// #endregion selection
