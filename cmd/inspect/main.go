package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/maowise/go-engine/internal/runlog"
)

// #region main
func main() {
	var (
		runID = flag.String("run", "", "show one run in full")
		limit = flag.Int("n", 20, "number of runs to list")
	)
	flag.Parse()

	dbPath := envOr("ENGINE_DB", "maowise_runs.db")
	store, err := runlog.NewStore(dbPath)
	if err != nil {
		log.Fatalf("open runlog: %v", err)
	}
	defer store.Close()

	if *runID != "" {
		showRun(store, *runID)
		return
	}
	listRuns(store, *limit)
}

// #endregion main

// #region list
func listRuns(store *runlog.Store, limit int) {
	runs, err := store.ListRuns(limit)
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	for _, r := range runs {
		best := "-"
		if r.BestErrorSum != nil {
			best = fmt.Sprintf("%.4f", *r.BestErrorSum)
		}
		fmt.Printf("%s  %s  backend=%-6s  candidates=%-4d  best_err=%s  target=%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.RunID, r.Backend, r.NumCandidates, best, r.TargetJSON)
	}
}

// #endregion list

// #region show
func showRun(store *runlog.Store, runID string) {
	rec, sols, err := store.GetRun(runID)
	if err != nil {
		log.Fatalf("get run: %v", err)
	}
	fmt.Printf("run %s (%s)\n", rec.RunID, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  target:      %s\n", rec.TargetJSON)
	if rec.ConstraintsJSON != "" {
		fmt.Printf("  constraints: %s\n", rec.ConstraintsJSON)
	}
	fmt.Printf("  backend:     %s, %d candidates\n\n", rec.Backend, rec.NumCandidates)
	for _, s := range sols {
		variant := ""
		if s.VariantSource != "" {
			variant = " [" + s.VariantSource + "]"
		}
		fmt.Printf("  #%d  score=%.4f  alpha=%.3f  epsilon=%.3f  conf=%.2f  mass=%.3f  uniform=%.3f%s\n",
			s.Rank, s.ScoreTotal, s.PredAlpha, s.PredEpsilon, s.Confidence, s.MassProxy, s.UniformityPenalty, variant)
		fmt.Printf("      %s\n", s.ParamsJSON)
	}
}

// #endregion show

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
