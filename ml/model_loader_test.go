package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelCox(t *testing.T) {
	model, err := LoadModel(CoxModelType, filepath.Join("testdata", "coxph.json"))
	require.NoError(t, err)
	assert.Equal(t, FeatureNames(), model.FeatureNames())

	meta := model.Metadata()
	assert.Equal(t, "LESLY Cohort Model", meta.Name)
	assert.Equal(t, 0.76, meta.CIndex)
	assert.Equal(t, 874, meta.Patients)

	funcs, err := model.PredictSurvivalFunction([][]float64{FeatureVector(PatientRecord{Age: 35, Sex: Female})})
	require.NoError(t, err)
	require.NoError(t, funcs[0].Validate())
}

func TestLoadModelFailures(t *testing.T) {
	tests := []struct {
		name      string
		modelType string
		path      string
	}{
		{"missing file", CoxModelType, filepath.Join("testdata", "missing.json")},
		{"corrupt file", CoxModelType, filepath.Join("testdata", "corrupt.json")},
		{"reordered features", CoxModelType, filepath.Join("testdata", "reordered.json")},
		{"wrong format", ForestModelType, filepath.Join("testdata", "coxph.json")},
		{"unknown type", "pickle", filepath.Join("testdata", "coxph.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := LoadModel(tt.modelType, tt.path)
			assert.Nil(t, model)
			assert.True(t, errors.Is(err, ErrModelUnavailable), "got %v", err)
		})
	}
}

func TestArtifactInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	info, err := ArtifactInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", info.SHA256)

	_, err = ArtifactInfo(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSurvivalFunctionValidate(t *testing.T) {
	good := SurvivalFunction{Times: []float64{0, 1, 1, 2}, Probabilities: []float64{1, 0.9, 0.9, 0.5}}
	assert.NoError(t, good.Validate())
	assert.InDeltaSlice(t, []float64{0, 10, 10, 50}, good.EventProbabilities(), 1e-9)

	bad := []SurvivalFunction{
		{},
		{Times: []float64{0, 1}, Probabilities: []float64{1}},
		{Times: []float64{1, 0}, Probabilities: []float64{1, 0.9}},
		{Times: []float64{0, 1}, Probabilities: []float64{0.9, 1}},
		{Times: []float64{0, 1}, Probabilities: []float64{1, 1.2}},
		{Times: []float64{0, 1}, Probabilities: []float64{1, -0.1}},
	}
	for i, sf := range bad {
		assert.Error(t, sf.Validate(), "case %d", i)
	}
}
