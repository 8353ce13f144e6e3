package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// SurvivalForest averages the leaf survival functions of its trees. Every
// leaf is expressed on the forest's shared time grid.
type SurvivalForest struct {
	Names []string       `json:"feature_names"`
	Times []float64      `json:"times"`
	Trees []SurvivalTree `json:"trees"`
	Meta  ModelMetadata  `json:"metadata"`
}

// SurvivalTree is a flat node array; node 0 is the root.
type SurvivalTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Survival   []float64 `json:"survival,omitempty"`
}

func (f *SurvivalForest) PredictSurvivalFunction(rows [][]float64) ([]SurvivalFunction, error) {
	if len(f.Trees) == 0 {
		return nil, errors.New("model not loaded")
	}
	if err := checkRows(rows, len(f.Names)); err != nil {
		return nil, err
	}

	out := make([]SurvivalFunction, len(rows))
	for i, row := range rows {
		probs := make([]float64, len(f.Times))
		for t := range f.Trees {
			leaf, err := f.Trees[t].leaf(row)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", t, err)
			}
			for j, p := range leaf.Survival {
				probs[j] += p
			}
		}
		for j := range probs {
			probs[j] /= float64(len(f.Trees))
		}
		times := make([]float64, len(f.Times))
		copy(times, f.Times)
		out[i] = SurvivalFunction{Times: times, Probabilities: probs}
	}
	return out, nil
}

func (f *SurvivalForest) FeatureNames() []string {
	return append([]string(nil), f.Names...)
}

func (f *SurvivalForest) Metadata() ModelMetadata {
	meta := f.Meta
	meta.Type = ForestModelType
	return meta
}

func (t *SurvivalTree) leaf(features []float64) (*TreeNode, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.New("empty tree")
	}
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := &t.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("tree contains a cycle")
}

func (f *SurvivalForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded SurvivalForest
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode survival forest: %w", err)
	}
	if err := loaded.check(); err != nil {
		return err
	}
	*f = loaded
	return nil
}

func (f *SurvivalForest) Save(path string) error {
	if err := f.check(); err != nil {
		return err
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (f *SurvivalForest) check() error {
	if err := CheckFeatureNames(f.Names); err != nil {
		return err
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if len(f.Times) == 0 || !allFinite(f.Times) {
		return errors.New("forest time grid is empty or not finite")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}
		for n, node := range tree.Nodes {
			if !node.IsLeaf {
				continue
			}
			leaf := SurvivalFunction{Times: f.Times, Probabilities: node.Survival}
			if err := leaf.Validate(); err != nil {
				return fmt.Errorf("tree %d leaf %d: %w", t, n, err)
			}
		}
	}
	return nil
}
