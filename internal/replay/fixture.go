package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/maowise/go-engine/internal/objectives"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/params"
)

// #region fixture-types

// Fixture is the top-level JSON structure for an offline replay: a
// recommendation request plus recorded oracle behavior and expected
// outcomes. With a fixed seed the whole run is deterministic.
type Fixture struct {
	Description string                `json:"description"`
	Target      objectives.Target     `json:"target"`
	Constraints map[string][2]float64 `json:"constraints,omitempty"`
	NSolutions  int                   `json:"n_solutions"`
	Seed        int64                 `json:"seed"`

	// Recordings pin predictions for exact recipes; Default answers
	// everything else. A fixture without a Default fails on the first
	// unrecorded recipe, which doubles as a strictness mode.
	Recordings []Recording        `json:"recordings,omitempty"`
	Default    *oracle.Prediction `json:"default_prediction,omitempty"`

	Expect Expectations `json:"expect"`
}

// Recording pins the oracle's answer for one exact recipe.
type Recording struct {
	Params     params.Vector     `json:"params"`
	Prediction oracle.Prediction `json:"prediction"`
}

// Expectations are the assertions checked after the replay run.
type Expectations struct {
	MaxSolutions  int    `json:"max_solutions"`
	Backend       string `json:"backend,omitempty"`
	InBounds      bool   `json:"in_bounds"`
	SortedByScore bool   `json:"sorted_by_score"`
}

// #endregion fixture-types

// #region load

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// #endregion load

// #region fixture-oracle

// FixtureOracle answers Predict calls from recordings, falling back to the
// fixture's default prediction. It implements oracle.Predictor.
type FixtureOracle struct {
	recordings map[string]oracle.Prediction
	fallback   *oracle.Prediction
}

// NewFixtureOracle builds the lookup table keyed by recipe signature.
func NewFixtureOracle(f Fixture) *FixtureOracle {
	rec := make(map[string]oracle.Prediction, len(f.Recordings))
	for _, r := range f.Recordings {
		rec[r.Params.Signature()] = r.Prediction
	}
	return &FixtureOracle{recordings: rec, fallback: f.Default}
}

// Predict implements oracle.Predictor from recorded data only.
func (o *FixtureOracle) Predict(_ context.Context, v params.Vector) (oracle.Prediction, error) {
	if p, ok := o.recordings[v.Signature()]; ok {
		return p, nil
	}
	if o.fallback != nil {
		return *o.fallback, nil
	}
	return oracle.Prediction{}, fmt.Errorf("no recording for %s", v.Signature())
}

// #endregion fixture-oracle
