package ml

import (
	"errors"
	"fmt"
	"math"
)

var ErrModelUnavailable = errors.New("model unavailable")

// SurvivalModel is a fitted model that maps feature rows to survival
// functions. Implementations are read-only after loading and safe for
// concurrent use.
type SurvivalModel interface {
	PredictSurvivalFunction(rows [][]float64) ([]SurvivalFunction, error)
	FeatureNames() []string
	Metadata() ModelMetadata
}

type ModelMetadata struct {
	Name      string  `json:"name" yaml:"name"`
	Type      string  `json:"type" yaml:"type"`
	Cohort    string  `json:"cohort,omitempty" yaml:"cohort"`
	Patients  int     `json:"patients,omitempty" yaml:"patients"`
	CIndex    float64 `json:"c_index,omitempty" yaml:"c_index"`
	Brier     float64 `json:"brier,omitempty" yaml:"brier"`
	Reference string  `json:"reference,omitempty" yaml:"reference"`
}

// SurvivalFunction is a step function of event-free probability over time
// in days. Times and Probabilities are parallel.
type SurvivalFunction struct {
	Times         []float64 `json:"times"`
	Probabilities []float64 `json:"probabilities"`
}

// Validate checks the shape invariants: equal non-zero lengths, finite
// non-decreasing times, probabilities within [0,1] and non-increasing.
func (sf SurvivalFunction) Validate() error {
	if len(sf.Times) == 0 {
		return errors.New("survival function is empty")
	}
	if len(sf.Times) != len(sf.Probabilities) {
		return fmt.Errorf("survival function has %d times and %d probabilities", len(sf.Times), len(sf.Probabilities))
	}
	for i := range sf.Times {
		t, p := sf.Times[i], sf.Probabilities[i]
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("time %d is not finite", i)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability %d = %v outside [0,1]", i, p)
		}
		if i == 0 {
			continue
		}
		if t < sf.Times[i-1] {
			return fmt.Errorf("times decrease at index %d", i)
		}
		if p > sf.Probabilities[i-1]+monotoneTolerance {
			return fmt.Errorf("survival increases at index %d", i)
		}
	}
	return nil
}

// monotoneTolerance absorbs float noise from averaging tree leaves.
const monotoneTolerance = 1e-9

// EventProbabilities returns the cumulative event probability in percent
// for every time point.
func (sf SurvivalFunction) EventProbabilities() []float64 {
	out := make([]float64, len(sf.Probabilities))
	for i, p := range sf.Probabilities {
		out[i] = (1 - p) * 100
	}
	return out
}

func checkRows(rows [][]float64, width int) error {
	if len(rows) == 0 {
		return errors.New("no rows to predict")
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d feature %d is not finite", i, j)
			}
		}
	}
	return nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
