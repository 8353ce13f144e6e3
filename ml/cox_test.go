package ml

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCox(coefficients []float64) *CoxModel {
	return &CoxModel{
		Names:        FeatureNames(),
		Coefficients: coefficients,
		Baseline: SurvivalFunction{
			Times:         []float64{0, 365.25, 1826.25, 3652.5},
			Probabilities: []float64{1, 0.99, 0.95, 0.90},
		},
	}
}

func TestCoxZeroCoefficientsReturnBaseline(t *testing.T) {
	model := newTestCox(make([]float64, FeatureCount))
	funcs, err := model.PredictSurvivalFunction([][]float64{FeatureVector(PatientRecord{Age: 60, Sex: Male, Smoking: true})})
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, model.Baseline.Times, funcs[0].Times)
	assert.InDeltaSlice(t, model.Baseline.Probabilities, funcs[0].Probabilities, 1e-12)
}

func TestCoxHazardRatio(t *testing.T) {
	coefficients := make([]float64, FeatureCount)
	coefficients[6] = math.Log(2)
	model := newTestCox(coefficients)

	smoker := FeatureVector(PatientRecord{Age: 30, Sex: Female, Smoking: true})
	funcs, err := model.PredictSurvivalFunction([][]float64{smoker})
	require.NoError(t, err)
	assert.InDelta(t, 0.95*0.95, funcs[0].Probabilities[2], 1e-12)
	assert.NoError(t, funcs[0].Validate())
}

func TestCoxPredictionDoesNotAliasBaseline(t *testing.T) {
	model := newTestCox(make([]float64, FeatureCount))
	funcs, err := model.PredictSurvivalFunction([][]float64{make([]float64, FeatureCount)})
	require.NoError(t, err)
	funcs[0].Times[1] = -1
	funcs[0].Probabilities[1] = -1
	assert.Equal(t, 365.25, model.Baseline.Times[1])
	assert.Equal(t, 0.99, model.Baseline.Probabilities[1])
}

func TestCoxRejectsMalformedRows(t *testing.T) {
	model := newTestCox(make([]float64, FeatureCount))
	_, err := model.PredictSurvivalFunction([][]float64{{1, 2}})
	assert.Error(t, err)
	_, err = model.PredictSurvivalFunction([][]float64{{math.NaN(), 0, 0, 0, 0, 0, 0, 0, 0, 0}})
	assert.Error(t, err)
	_, err = (&CoxModel{}).PredictSurvivalFunction([][]float64{make([]float64, FeatureCount)})
	assert.Error(t, err)
}

func TestCoxSaveLoadRoundTrip(t *testing.T) {
	model := newTestCox([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0})
	model.Meta = ModelMetadata{Name: "round trip", CIndex: 0.7}
	path := filepath.Join(t.TempDir(), "cox.json")
	require.NoError(t, model.Save(path))

	loaded := &CoxModel{}
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, model.Coefficients, loaded.Coefficients)
	assert.Equal(t, "round trip", loaded.Metadata().Name)
	assert.Equal(t, CoxModelType, loaded.Metadata().Type)
}

func TestCoxCheckRejectsBadArtifacts(t *testing.T) {
	bad := newTestCox(make([]float64, 9))
	assert.Error(t, bad.check())

	bad = newTestCox(make([]float64, FeatureCount))
	bad.Coefficients[0] = math.Inf(1)
	assert.Error(t, bad.check())

	bad = newTestCox(make([]float64, FeatureCount))
	bad.Baseline.Probabilities = []float64{1, 0.9, 0.95, 0.8}
	assert.Error(t, bad.check())
}
