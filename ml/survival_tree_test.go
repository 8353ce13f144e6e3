package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurvivalForestPredict(t *testing.T) {
	model, err := LoadModel(ForestModelType, filepath.Join("testdata", "forest.json"))
	require.NoError(t, err)

	female := FeatureVector(PatientRecord{Age: 40, Sex: Female})
	male := FeatureVector(PatientRecord{Age: 40, Sex: Male})
	funcs, err := model.PredictSurvivalFunction([][]float64{female, male})
	require.NoError(t, err)
	require.Len(t, funcs, 2)

	assert.Equal(t, []float64{0, 1826.25, 3652.5}, funcs[0].Times)
	assert.InDeltaSlice(t, []float64{1, 0.95, 0.90}, funcs[0].Probabilities, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0.92, 0.86}, funcs[1].Probabilities, 1e-12)
	assert.NoError(t, funcs[0].Validate())
	assert.Equal(t, ForestModelType, model.Metadata().Type)
}

func TestSurvivalForestRejectsBadRows(t *testing.T) {
	model, err := LoadModel(ForestModelType, filepath.Join("testdata", "forest.json"))
	require.NoError(t, err)

	_, err = model.PredictSurvivalFunction([][]float64{{1, 2, 3}})
	assert.Error(t, err)
	_, err = model.PredictSurvivalFunction(nil)
	assert.Error(t, err)
}

func TestSurvivalTreeInvalidState(t *testing.T) {
	tree := SurvivalTree{Nodes: []TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 0, RightChild: 0},
	}}
	_, err := tree.leaf([]float64{0})
	assert.Error(t, err)

	tree = SurvivalTree{Nodes: []TreeNode{
		{FeatureIdx: 3, Threshold: 0.5, LeftChild: 1, RightChild: 1},
	}}
	_, err = tree.leaf([]float64{0})
	assert.Error(t, err)
}

func TestSurvivalForestSaveLoad(t *testing.T) {
	forest := &SurvivalForest{
		Names: FeatureNames(),
		Times: []float64{0, 1000},
		Trees: []SurvivalTree{{Nodes: []TreeNode{{IsLeaf: true, Survival: []float64{1, 0.5}}}}},
	}
	path := filepath.Join(t.TempDir(), "forest.json")
	require.NoError(t, forest.Save(path))

	loaded := &SurvivalForest{}
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, forest.Times, loaded.Times)

	forest.Trees[0].Nodes[0].Survival = []float64{0.5, 1}
	assert.Error(t, forest.Save(path))
}
