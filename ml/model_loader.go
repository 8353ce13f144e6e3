package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	CoxModelType    = "coxph"
	ForestModelType = "survival_forest"
)

// LoadModel deserializes the artifact at path. Every failure wraps
// ErrModelUnavailable so callers can disable the calculation path.
func LoadModel(modelType, path string) (SurvivalModel, error) {
	switch modelType {
	case CoxModelType:
		model := &CoxModel{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
		}
		return model, nil
	case ForestModelType:
		model := &SurvivalForest{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrModelUnavailable, modelType)
	}
}

type Artifact struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	SHA256   string    `json:"sha256"`
	Modified time.Time `json:"modified"`
}

func ArtifactInfo(path string) (Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Artifact{}, err
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Path:     path,
		Size:     stat.Size(),
		SHA256:   hex.EncodeToString(hash.Sum(nil)),
		Modified: stat.ModTime(),
	}, nil
}
