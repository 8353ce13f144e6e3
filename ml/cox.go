package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// CoxModel is a Cox proportional hazards model with a Breslow baseline.
// S(t|x) = S0(t) ^ exp(beta.x - offset).
type CoxModel struct {
	Names        []string         `json:"feature_names"`
	Coefficients []float64        `json:"coefficients"`
	Offset       float64          `json:"offset"`
	Baseline     SurvivalFunction `json:"baseline"`
	Meta         ModelMetadata    `json:"metadata"`
}

func (m *CoxModel) PredictSurvivalFunction(rows [][]float64) ([]SurvivalFunction, error) {
	if len(m.Coefficients) == 0 {
		return nil, errors.New("model not loaded")
	}
	if err := checkRows(rows, len(m.Coefficients)); err != nil {
		return nil, err
	}

	out := make([]SurvivalFunction, len(rows))
	for i, row := range rows {
		hazardRatio := math.Exp(m.linearPredictor(row))
		times := make([]float64, len(m.Baseline.Times))
		probs := make([]float64, len(m.Baseline.Probabilities))
		copy(times, m.Baseline.Times)
		for j, s0 := range m.Baseline.Probabilities {
			probs[j] = math.Pow(s0, hazardRatio)
		}
		out[i] = SurvivalFunction{Times: times, Probabilities: probs}
	}
	return out, nil
}

func (m *CoxModel) FeatureNames() []string {
	return append([]string(nil), m.Names...)
}

func (m *CoxModel) Metadata() ModelMetadata {
	meta := m.Meta
	meta.Type = CoxModelType
	return meta
}

func (m *CoxModel) linearPredictor(row []float64) float64 {
	sum := -m.Offset
	for i, beta := range m.Coefficients {
		sum += beta * row[i]
	}
	return sum
}

func (m *CoxModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded CoxModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode cox model: %w", err)
	}
	if err := loaded.check(); err != nil {
		return err
	}
	*m = loaded
	return nil
}

func (m *CoxModel) Save(path string) error {
	if err := m.check(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *CoxModel) check() error {
	if err := CheckFeatureNames(m.Names); err != nil {
		return err
	}
	if len(m.Coefficients) != len(m.Names) {
		return fmt.Errorf("%d coefficients for %d features", len(m.Coefficients), len(m.Names))
	}
	if !allFinite(m.Coefficients) || math.IsNaN(m.Offset) || math.IsInf(m.Offset, 0) {
		return errors.New("coefficients must be finite")
	}
	if err := m.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	return nil
}
