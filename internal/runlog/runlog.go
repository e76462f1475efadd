package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/maowise/go-engine/internal/engine"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS recommend_runs (
	run_id           TEXT PRIMARY KEY,
	target_json      TEXT NOT NULL,
	constraints_json TEXT,
	n_solutions      INTEGER NOT NULL,
	backend          TEXT NOT NULL,
	num_candidates   INTEGER NOT NULL,
	best_error_sum   REAL,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_solutions (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	rank               INTEGER NOT NULL,
	solution_id        TEXT NOT NULL,
	params_json        TEXT NOT NULL,
	pred_alpha         REAL NOT NULL,
	pred_epsilon       REAL NOT NULL,
	confidence         REAL NOT NULL,
	mass_proxy         REAL NOT NULL,
	uniformity_penalty REAL NOT NULL,
	score_total        REAL NOT NULL,
	variant_source     TEXT,
	FOREIGN KEY (run_id) REFERENCES recommend_runs(run_id)
);
`

// #endregion schema

// #region types

// RunRecord is one logged recommendation run.
type RunRecord struct {
	RunID         string
	TargetJSON    string
	ConstraintsJSON string
	NSolutions    int
	Backend       string
	NumCandidates int
	BestErrorSum  *float64
	CreatedAt     time.Time
}

// SolutionRow is one exported solution within a run.
type SolutionRow struct {
	Rank              int
	SolutionID        string
	ParamsJSON        string
	PredAlpha         float64
	PredEpsilon       float64
	Confidence        float64
	MassProxy         float64
	UniformityPenalty float64
	ScoreTotal        float64
	VariantSource     string
}

// #endregion types

// #region store

// Store keeps recommendation provenance in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region log-run

// LogRun records a request/response pair and returns the run ID.
func (s *Store) LogRun(req engine.Request, resp engine.Response) (string, error) {
	runID := uuid.New().String()
	now := time.Now().UTC()

	targetJSON, err := json.Marshal(req.Target)
	if err != nil {
		return "", fmt.Errorf("marshal target: %w", err)
	}
	var constraintsJSON []byte
	if len(req.Constraints) > 0 {
		constraintsJSON, err = json.Marshal(req.Constraints)
		if err != nil {
			return "", fmt.Errorf("marshal constraints: %w", err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var bestErr interface{}
	if resp.ParetoFrontSummary.BestErrorSum != nil {
		bestErr = *resp.ParetoFrontSummary.BestErrorSum
	}
	_, err = tx.Exec(
		`INSERT INTO recommend_runs (run_id, target_json, constraints_json, n_solutions, backend, num_candidates, best_error_sum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, string(targetJSON), nullIfEmpty(string(constraintsJSON)), req.NSolutions,
		resp.Backend, resp.ParetoFrontSummary.NumCandidates, bestErr, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for rank, sol := range resp.Solutions {
		paramsJSON, err := json.Marshal(sol.Delta)
		if err != nil {
			return "", fmt.Errorf("marshal solution params: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO run_solutions (run_id, rank, solution_id, params_json, pred_alpha, pred_epsilon, confidence, mass_proxy, uniformity_penalty, score_total, variant_source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, rank, sol.ID, string(paramsJSON),
			sol.Predicted.Alpha, sol.Predicted.Epsilon, sol.Predicted.Confidence,
			sol.MassProxy, sol.UniformityPenalty, sol.ScoreTotal,
			nullIfEmpty(string(sol.VariantSource)),
		)
		if err != nil {
			return "", fmt.Errorf("insert solution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// #endregion log-run

// #region queries

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT run_id, target_json, constraints_json, n_solutions, backend, num_candidates, best_error_sum, created_at
		 FROM recommend_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRun returns one run with its solutions ordered by rank.
func (s *Store) GetRun(runID string) (RunRecord, []SolutionRow, error) {
	row := s.db.QueryRow(
		`SELECT run_id, target_json, constraints_json, n_solutions, backend, num_candidates, best_error_sum, created_at
		 FROM recommend_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	rows, err := s.db.Query(
		`SELECT rank, solution_id, params_json, pred_alpha, pred_epsilon, confidence, mass_proxy, uniformity_penalty, score_total, variant_source
		 FROM run_solutions WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("get solutions: %w", err)
	}
	defer rows.Close()

	var sols []SolutionRow
	for rows.Next() {
		var sr SolutionRow
		var variant sql.NullString
		if err := rows.Scan(&sr.Rank, &sr.SolutionID, &sr.ParamsJSON, &sr.PredAlpha, &sr.PredEpsilon,
			&sr.Confidence, &sr.MassProxy, &sr.UniformityPenalty, &sr.ScoreTotal, &variant); err != nil {
			return RunRecord{}, nil, fmt.Errorf("scan solution: %w", err)
		}
		sr.VariantSource = variant.String
		sols = append(sols, sr)
	}
	return rec, sols, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var constraints sql.NullString
	var bestErr sql.NullFloat64
	var createdStr string
	if err := row.Scan(&rec.RunID, &rec.TargetJSON, &constraints, &rec.NSolutions,
		&rec.Backend, &rec.NumCandidates, &bestErr, &createdStr); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.ConstraintsJSON = constraints.String
	if bestErr.Valid {
		v := bestErr.Float64
		rec.BestErrorSum = &v
	}
	t, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

// #endregion queries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
