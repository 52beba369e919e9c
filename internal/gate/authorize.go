package gate

import "fmt"

// Threshold is the minimum truth_integrity a target needs to launch.
const Threshold = 0.75

// IntegrityField is the config key checked by Authorize.
const IntegrityField = "truth_integrity"

// IntegrityBelowThresholdError is returned by Authorize when the score is
// under Threshold.
type IntegrityBelowThresholdError struct {
	Value float64
}

func (e *IntegrityBelowThresholdError) Error() string {
	return fmt.Sprintf("truth integrity below threshold (%g < %g)", e.Value, Threshold)
}

// Authorize permits a launch when truth_integrity >= Threshold. A missing
// field counts as 0.
func Authorize(cfg Config) error {
	value, _, err := cfg.Float(IntegrityField)
	if err != nil {
		return &ParseError{Field: IntegrityField, Err: err}
	}
	if value < Threshold {
		return &IntegrityBelowThresholdError{Value: value}
	}
	return nil
}
