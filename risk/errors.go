package risk

import (
	"errors"
	"fmt"

	"cvrisk/ml"
)

// ErrModelUnavailable is returned when no model was loaded. It is the same
// sentinel the loader wraps, so errors.Is works across both packages.
var ErrModelUnavailable = ml.ErrModelUnavailable

var ErrEvaluation = errors.New("evaluation failed")

// Evaluation stages reported by EvaluationError.
const (
	StageValidate = "validate"
	StageEncode   = "encode"
	StagePredict  = "predict"
	StageLookup   = "lookup"
)

// EvaluationError scopes a failure to a single evaluation attempt.
type EvaluationError struct {
	Stage string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed at %s: %v", e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluation, e.Err}
}

func evalErr(stage string, err error) error {
	return &EvaluationError{Stage: stage, Err: err}
}
