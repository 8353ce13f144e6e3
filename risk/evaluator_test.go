package risk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrisk/ml"
)

type stubModel struct {
	funcs []ml.SurvivalFunction
	err   error
	panic bool
	rows  [][]float64
}

func (s *stubModel) PredictSurvivalFunction(rows [][]float64) ([]ml.SurvivalFunction, error) {
	s.rows = rows
	if s.panic {
		panic("index out of range")
	}
	return s.funcs, s.err
}

func (s *stubModel) FeatureNames() []string { return ml.FeatureNames() }

func (s *stubModel) Metadata() ml.ModelMetadata { return ml.ModelMetadata{Name: "stub"} }

func knownSurvival() ml.SurvivalFunction {
	return ml.SurvivalFunction{
		Times:         []float64{0, 1826.25, 3652.5},
		Probabilities: []float64{1.0, 0.9, 0.8},
	}
}

var testRecord = ml.PatientRecord{Age: 35, Sex: ml.Female, Hypertension: true}

func TestEvaluateKnownSurvivalIsHighBoundary(t *testing.T) {
	model := &stubModel{funcs: []ml.SurvivalFunction{knownSurvival()}}
	clock := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	evaluator := NewEvaluator(model, WithClock(func() time.Time { return clock }))

	for _, record := range []ml.PatientRecord{
		testRecord,
		{Age: 90, Sex: ml.Male, Diabetes: true, Smoking: true, Joint: true},
	} {
		assessment, err := evaluator.Evaluate(context.Background(), record)
		require.NoError(t, err)
		assert.Equal(t, 10.0, assessment.RiskPercentage)
		assert.Equal(t, High, assessment.Category)
		assert.Equal(t, 1, assessment.HorizonIndex)
		assert.Equal(t, 1826.25, assessment.HorizonTime)
		assert.Equal(t, clock, assessment.EvaluatedAt)
		assert.Equal(t, record, assessment.Record)
		assert.NotEmpty(t, assessment.ID)
		assert.Equal(t, "stub", assessment.Model.Name)
	}
}

func TestEvaluatePassesSingleEncodedRow(t *testing.T) {
	model := &stubModel{funcs: []ml.SurvivalFunction{knownSurvival()}}
	assessment, err := NewEvaluator(model).Evaluate(context.Background(), testRecord)
	require.NoError(t, err)

	require.Len(t, model.rows, 1)
	assert.Equal(t, ml.FeatureVector(testRecord), model.rows[0])
	assert.Equal(t, model.rows[0], assessment.Features)
}

func TestEvaluateTieIsDeterministic(t *testing.T) {
	sf := ml.SurvivalFunction{
		Times:         []float64{0, 1726.25, 1926.25},
		Probabilities: []float64{1, 0.97, 0.91},
	}
	evaluator := NewEvaluator(&stubModel{funcs: []ml.SurvivalFunction{sf}})
	for i := 0; i < 3; i++ {
		assessment, err := evaluator.Evaluate(context.Background(), testRecord)
		require.NoError(t, err)
		assert.Equal(t, 1, assessment.HorizonIndex)
		assert.InDelta(t, 3.0, assessment.RiskPercentage, 1e-9)
		assert.Equal(t, Low, assessment.Category)
	}
}

func TestEvaluateWithoutModel(t *testing.T) {
	evaluator := NewEvaluator(nil)
	assert.False(t, evaluator.Available())

	assessment, err := evaluator.Evaluate(context.Background(), testRecord)
	assert.Nil(t, assessment)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.True(t, errors.Is(err, ml.ErrModelUnavailable))
	assert.False(t, errors.Is(err, ErrEvaluation))
}

func TestEvaluateFailuresAreScoped(t *testing.T) {
	tests := []struct {
		name   string
		model  *stubModel
		record ml.PatientRecord
		stage  string
	}{
		{"invalid age", &stubModel{funcs: []ml.SurvivalFunction{knownSurvival()}}, ml.PatientRecord{Age: 12, Sex: ml.Female}, StageValidate},
		{"inference error", &stubModel{err: errors.New("row 0 has 9 features")}, testRecord, StagePredict},
		{"inference panic", &stubModel{panic: true}, testRecord, StagePredict},
		{"no functions", &stubModel{}, testRecord, StagePredict},
		{"two functions", &stubModel{funcs: []ml.SurvivalFunction{knownSurvival(), knownSurvival()}}, testRecord, StagePredict},
		{"probability above one", &stubModel{funcs: []ml.SurvivalFunction{{Times: []float64{0, 1826.25}, Probabilities: []float64{1, 1.3}}}}, testRecord, StageLookup},
		{"increasing survival", &stubModel{funcs: []ml.SurvivalFunction{{Times: []float64{0, 1826.25}, Probabilities: []float64{0.8, 0.9}}}}, testRecord, StageLookup},
		{"empty survival", &stubModel{funcs: []ml.SurvivalFunction{{}}}, testRecord, StageLookup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment, err := NewEvaluator(tt.model).Evaluate(context.Background(), tt.record)
			assert.Nil(t, assessment)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEvaluation))
			assert.False(t, errors.Is(err, ErrModelUnavailable))

			var evalErr *EvaluationError
			require.True(t, errors.As(err, &evalErr))
			assert.Equal(t, tt.stage, evalErr.Stage)
		})
	}
}

func TestEvaluateRecoversAfterFailure(t *testing.T) {
	model := &stubModel{err: errors.New("malformed feature vector")}
	evaluator := NewEvaluator(model)

	_, err := evaluator.Evaluate(context.Background(), testRecord)
	require.Error(t, err)

	model.err = nil
	model.funcs = []ml.SurvivalFunction{knownSurvival()}
	assessment, err := evaluator.Evaluate(context.Background(), testRecord)
	require.NoError(t, err)
	assert.Equal(t, 10.0, assessment.RiskPercentage)
}

func TestEvaluateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEvaluator(&stubModel{funcs: []ml.SurvivalFunction{knownSurvival()}}).Evaluate(ctx, testRecord)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrEvaluation)
}

func TestEvaluateWithHorizon(t *testing.T) {
	evaluator := NewEvaluator(&stubModel{funcs: []ml.SurvivalFunction{knownSurvival()}}, WithHorizon(3652.5))
	assessment, err := evaluator.Evaluate(context.Background(), testRecord)
	require.NoError(t, err)
	assert.Equal(t, 2, assessment.HorizonIndex)
	assert.Equal(t, 20.0, assessment.RiskPercentage)
}

func TestEvaluateBundledModel(t *testing.T) {
	model, err := ml.LoadModel(ml.CoxModelType, filepath.Join("..", "models", "model.json"))
	require.NoError(t, err)
	evaluator := NewEvaluator(model)

	baseline, err := evaluator.Evaluate(context.Background(), ml.PatientRecord{Age: 35, Sex: ml.Female})
	require.NoError(t, err)
	assert.Equal(t, Low, baseline.Category)
	assert.Equal(t, 1826.25, baseline.HorizonTime)

	loaded, err := evaluator.Evaluate(context.Background(), ml.PatientRecord{
		Age: 70, Sex: ml.Male, Hypertension: true, Diabetes: true, Dyslipidemia: true, Smoking: true, Antiphospholipid: true,
	})
	require.NoError(t, err)
	assert.Greater(t, loaded.RiskPercentage, baseline.RiskPercentage)
	assert.Equal(t, High, loaded.Category)
}
