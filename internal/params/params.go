package params

import (
	"fmt"
	"strings"
)

// #region vector-access

// Value returns the numeric field named by key.
func (v Vector) Value(key string) (float64, error) {
	switch key {
	case KeyVoltage:
		return v.VoltageV, nil
	case KeyCurrentDensity:
		return v.CurrentDensityDm2, nil
	case KeyFrequency:
		return v.FrequencyHz, nil
	case KeyDutyCycle:
		return v.DutyCyclePct, nil
	case KeyTime:
		return v.TimeMin, nil
	}
	return 0, fmt.Errorf("unknown parameter key %q", key)
}

// WithValue returns a copy of v with the numeric field named by key replaced.
func (v Vector) WithValue(key string, val float64) (Vector, error) {
	switch key {
	case KeyVoltage:
		v.VoltageV = val
	case KeyCurrentDensity:
		v.CurrentDensityDm2 = val
	case KeyFrequency:
		v.FrequencyHz = val
	case KeyDutyCycle:
		v.DutyCyclePct = val
	case KeyTime:
		v.TimeMin = val
	default:
		return Vector{}, fmt.Errorf("unknown parameter key %q", key)
	}
	return v, nil
}

// Values flattens the numeric fields in canonical field order.
func (v Vector) Values() []float64 {
	return []float64{v.VoltageV, v.CurrentDensityDm2, v.FrequencyHz, v.DutyCyclePct, v.TimeMin}
}

// FromValues builds a Vector from values in canonical field order.
// Categorical fields are left at their zero values.
func FromValues(vals []float64) (Vector, error) {
	fields := NumericFields()
	if len(vals) != len(fields) {
		return Vector{}, fmt.Errorf("expected %d values, got %d", len(fields), len(vals))
	}
	return Vector{
		VoltageV:          vals[0],
		CurrentDensityDm2: vals[1],
		FrequencyHz:       vals[2],
		DutyCyclePct:      vals[3],
		TimeMin:           vals[4],
	}, nil
}

// #endregion vector-access

// #region signature

// Signature returns a dedup key: every numeric field rounded to 4 decimals,
// categorical fields verbatim. Two vectors with equal signatures are
// considered the same recipe.
func (v Vector) Signature() string {
	var b strings.Builder
	for _, f := range NumericFields() {
		val, _ := v.Value(f.Key)
		fmt.Fprintf(&b, "%s=%.4f|", f.Key, val)
	}
	fmt.Fprintf(&b, "waveform=%s|system=%s", v.Waveform, v.System)
	return b.String()
}

// #endregion signature

// #region space

// Space holds the effective [lo, hi] bound per numeric parameter. A Space is
// immutable after construction; Narrow returns a new one.
type Space struct {
	bounds map[string]Bound
}

// NewSpace builds a Space from a default bound table. An empty or nil table
// is an error: search cannot proceed without bounds.
func NewSpace(defaults map[string]Bound) (*Space, error) {
	if len(defaults) == 0 {
		return nil, fmt.Errorf("parameter space: empty bound table")
	}
	bounds := make(map[string]Bound, len(defaults))
	for k, b := range defaults {
		if b.Hi < b.Lo {
			return nil, fmt.Errorf("parameter space: inverted bound for %s [%g, %g]", k, b.Lo, b.Hi)
		}
		bounds[k] = b
	}
	return &Space{bounds: bounds}, nil
}

// Narrow intersects the space with caller constraints and returns the result.
// For each key present in both tables the effective bound is
// [max(lo), min(hi)]; unknown constraint keys are ignored. Constraints can
// only narrow, never widen.
func (s *Space) Narrow(constraints map[string]Bound) *Space {
	bounds := make(map[string]Bound, len(s.bounds))
	for k, b := range s.bounds {
		bounds[k] = b
	}
	for k, c := range constraints {
		def, ok := bounds[k]
		if !ok {
			continue
		}
		lo := def.Lo
		if c.Lo > lo {
			lo = c.Lo
		}
		hi := def.Hi
		if c.Hi < hi {
			hi = c.Hi
		}
		if hi < lo {
			// Disjoint constraint collapses to the nearer default edge.
			hi = lo
		}
		bounds[k] = Bound{Lo: lo, Hi: hi}
	}
	return &Space{bounds: bounds}
}

// Bound returns the effective bound for key.
func (s *Space) Bound(key string) (Bound, bool) {
	b, ok := s.bounds[key]
	return b, ok
}

// Bounds returns a copy of the full bound table.
func (s *Space) Bounds() map[string]Bound {
	out := make(map[string]Bound, len(s.bounds))
	for k, b := range s.bounds {
		out[k] = b
	}
	return out
}

// Clamp returns a copy of v with every bounded numeric field pulled into its
// effective bound.
func (s *Space) Clamp(v Vector) Vector {
	for _, f := range NumericFields() {
		b, ok := s.bounds[f.Key]
		if !ok {
			continue
		}
		val, _ := v.Value(f.Key)
		if val < b.Lo {
			val = b.Lo
		}
		if val > b.Hi {
			val = b.Hi
		}
		v, _ = v.WithValue(f.Key, val)
	}
	return v
}

// Validate reports the first numeric field of v that falls outside its
// effective bound.
func (s *Space) Validate(v Vector) error {
	for _, f := range NumericFields() {
		b, ok := s.bounds[f.Key]
		if !ok {
			continue
		}
		val, _ := v.Value(f.Key)
		if val < b.Lo || val > b.Hi {
			return fmt.Errorf("%s=%g outside bound [%g, %g]", f.Key, val, b.Lo, b.Hi)
		}
	}
	return nil
}

// #endregion space
