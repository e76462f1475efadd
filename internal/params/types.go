package params

// #region waveform

// Waveform is the pulse polarity mode of the power supply.
type Waveform string

const (
	WaveformUnipolar Waveform = "unipolar"
	WaveformBipolar  Waveform = "bipolar"
)

// #endregion waveform

// #region system

// System identifies the electrolyte system a recipe targets.
type System string

const (
	SystemSilicate  System = "silicate"
	SystemZirconate System = "zirconate"
)

// #endregion system

// #region keys

// Numeric parameter keys, matching the oracle's wire names.
const (
	KeyVoltage        = "voltage_V"
	KeyCurrentDensity = "current_density_A_dm2"
	KeyFrequency      = "frequency_Hz"
	KeyDutyCycle      = "duty_cycle_pct"
	KeyTime           = "time_min"
)

// Field describes one numeric parameter in the registry.
type Field struct {
	Key  string
	Unit string
}

// NumericFields returns the fixed, ordered set of tunable numeric parameters.
// The order is the canonical variable order for search backends.
func NumericFields() []Field {
	return []Field{
		{Key: KeyVoltage, Unit: "V"},
		{Key: KeyCurrentDensity, Unit: "A/dm2"},
		{Key: KeyFrequency, Unit: "Hz"},
		{Key: KeyDutyCycle, Unit: "%"},
		{Key: KeyTime, Unit: "min"},
	}
}

// #endregion keys

// #region vector

// Vector is one immutable process recipe: the electrical parameters plus
// optional waveform and electrolyte-system tags. JSON tags follow the
// oracle's wire format.
type Vector struct {
	VoltageV          float64  `json:"voltage_V"`
	CurrentDensityDm2 float64  `json:"current_density_A_dm2"`
	FrequencyHz       float64  `json:"frequency_Hz"`
	DutyCyclePct      float64  `json:"duty_cycle_pct"`
	TimeMin           float64  `json:"time_min"`
	Waveform          Waveform `json:"waveform,omitempty"`
	System            System   `json:"system,omitempty"`
}

// #endregion vector

// #region bound

// Bound is an inclusive [Lo, Hi] range for one numeric parameter.
type Bound struct {
	Lo float64
	Hi float64
}

// #endregion bound
