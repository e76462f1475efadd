package runlog

import (
	"path/filepath"
	"testing"

	"github.com/maowise/go-engine/internal/engine"
	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/params"
	"github.com/maowise/go-engine/internal/scoring"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResponse() (engine.Request, engine.Response) {
	req := engine.Request{
		Target:      objectives.Target{Alpha: 0.2, Epsilon: 0.8},
		Constraints: map[string][2]float64{params.KeyVoltage: {300, 400}},
		NSolutions:  2,
		Seed:        7,
	}
	best := 0.04
	resp := engine.Response{
		Solutions: []engine.Solution{
			{
				ID:         "sol-a",
				Delta:      params.Vector{VoltageV: 350, CurrentDensityDm2: 8, FrequencyHz: 900, DutyCyclePct: 25, TimeMin: 20},
				Predicted:  oracle.Prediction{Alpha: 0.19, Epsilon: 0.81, Confidence: 0.7},
				MassProxy:  0.3,
				ScoreTotal: 0.12,
			},
			{
				ID:            "sol-b",
				Delta:         params.Vector{VoltageV: 360, CurrentDensityDm2: 9, FrequencyHz: 750, DutyCyclePct: 22, TimeMin: 17},
				Predicted:     oracle.Prediction{Alpha: 0.21, Epsilon: 0.83, Confidence: 0.6},
				MassProxy:     0.4,
				ScoreTotal:    0.15,
				VariantSource: scoring.VariantReduceAlpha,
			},
		},
		ParetoFrontSummary: engine.ParetoSummary{
			Target:        objectives.Target{Alpha: 0.2, Epsilon: 0.8},
			BestErrorSum:  &best,
			NumCandidates: 18,
		},
		Backend: "nsga2",
	}
	return req, resp
}

func TestLogRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	req, resp := sampleResponse()

	runID, err := s.LogRun(req, resp)
	if err != nil {
		t.Fatalf("log run: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	rec, sols, err := s.GetRun(runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Backend != "nsga2" || rec.NSolutions != 2 || rec.NumCandidates != 18 {
		t.Fatalf("run record = %+v", rec)
	}
	if rec.BestErrorSum == nil || *rec.BestErrorSum != 0.04 {
		t.Fatalf("best error sum = %v", rec.BestErrorSum)
	}
	if rec.ConstraintsJSON == "" {
		t.Fatal("constraints not recorded")
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("created_at not recorded")
	}

	if len(sols) != 2 {
		t.Fatalf("got %d solutions, want 2", len(sols))
	}
	if sols[0].Rank != 0 || sols[1].Rank != 1 {
		t.Fatalf("ranks = %d, %d", sols[0].Rank, sols[1].Rank)
	}
	if sols[0].SolutionID != "sol-a" || sols[0].PredAlpha != 0.19 {
		t.Fatalf("first solution = %+v", sols[0])
	}
	if sols[0].VariantSource != "" {
		t.Fatalf("unexpected variant source %q", sols[0].VariantSource)
	}
	if sols[1].VariantSource != string(scoring.VariantReduceAlpha) {
		t.Fatalf("variant source = %q", sols[1].VariantSource)
	}
}

func TestLogRunWithoutSolutions(t *testing.T) {
	s := newTestStore(t)
	req := engine.Request{Target: objectives.Target{Alpha: 0.2, Epsilon: 0.8}, NSolutions: 3}
	resp := engine.Response{Backend: "random"}

	runID, err := s.LogRun(req, resp)
	if err != nil {
		t.Fatalf("log run: %v", err)
	}
	rec, sols, err := s.GetRun(runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.BestErrorSum != nil {
		t.Fatalf("best error sum = %v, want nil", rec.BestErrorSum)
	}
	if rec.ConstraintsJSON != "" {
		t.Fatalf("constraints = %q, want empty", rec.ConstraintsJSON)
	}
	if len(sols) != 0 {
		t.Fatalf("got %d solutions, want 0", len(sols))
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	req, resp := sampleResponse()

	first, err := s.LogRun(req, resp)
	if err != nil {
		t.Fatalf("log run: %v", err)
	}
	second, err := s.LogRun(req, resp)
	if err != nil {
		t.Fatalf("log run: %v", err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("listed %d runs, want 2", len(runs))
	}
	if runs[0].RunID != second && runs[0].RunID != first {
		t.Fatalf("unknown run id %s", runs[0].RunID)
	}
	if runs[0].CreatedAt.Before(runs[1].CreatedAt) {
		t.Fatal("runs not ordered newest first")
	}

	limited, err := s.ListRuns(1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit 1 returned %d runs", len(limited))
	}
}

func TestGetMissingRun(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.GetRun("no-such-run"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}
