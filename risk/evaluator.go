package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"cvrisk/ml"
)

// FiveYearHorizon is five years in days.
const FiveYearHorizon = 5 * 365.25

// Assessment is the outcome of one evaluation. It is never partially
// populated: Evaluate returns either a full Assessment or an error.
type Assessment struct {
	ID             string              `json:"id"`
	Record         ml.PatientRecord    `json:"record"`
	Features       []float64           `json:"features"`
	RiskPercentage float64             `json:"risk_percentage"`
	Category       Category            `json:"category"`
	HorizonDays    float64             `json:"horizon_days"`
	HorizonIndex   int                 `json:"horizon_index"`
	HorizonTime    float64             `json:"horizon_time"`
	Survival       ml.SurvivalFunction `json:"survival"`
	Model          ml.ModelMetadata    `json:"model"`
	EvaluatedAt    time.Time           `json:"evaluated_at"`
}

// Evaluator turns a patient record into an Assessment using a loaded
// model. It holds no mutable state and may be shared across goroutines.
type Evaluator struct {
	model   ml.SurvivalModel
	horizon float64
	now     func() time.Time
	newID   func() string
}

type Option func(*Evaluator)

func WithHorizon(days float64) Option {
	return func(e *Evaluator) {
		if days > 0 {
			e.horizon = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator accepts a nil model; Evaluate then reports
// ErrModelUnavailable without touching the record.
func NewEvaluator(model ml.SurvivalModel, opts ...Option) *Evaluator {
	e := &Evaluator{
		model:   model,
		horizon: FiveYearHorizon,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Available() bool {
	return e != nil && e.model != nil
}

func (e *Evaluator) Model() ml.SurvivalModel {
	if e == nil {
		return nil
	}
	return e.model
}

func (e *Evaluator) Horizon() float64 {
	return e.horizon
}

func (e *Evaluator) Evaluate(ctx context.Context, record ml.PatientRecord) (*Assessment, error) {
	if !e.Available() {
		return nil, ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, evalErr(StageValidate, err)
	}
	if err := record.Validate(); err != nil {
		return nil, evalErr(StageValidate, err)
	}

	features := ml.FeatureVector(record)
	if len(features) != ml.FeatureCount {
		return nil, evalErr(StageEncode, fmt.Errorf("encoded %d features, want %d", len(features), ml.FeatureCount))
	}

	sf, err := e.predict(features)
	if err != nil {
		return nil, evalErr(StagePredict, err)
	}
	if err := sf.Validate(); err != nil {
		return nil, evalErr(StageLookup, err)
	}

	idx := NearestIndex(sf.Times, e.horizon)
	riskPct := Percentage(sf.Probabilities[idx])

	return &Assessment{
		ID:             e.newID(),
		Record:         record,
		Features:       features,
		RiskPercentage: riskPct,
		Category:       Classify(riskPct),
		HorizonDays:    e.horizon,
		HorizonIndex:   idx,
		HorizonTime:    sf.Times[idx],
		Survival:       sf,
		Model:          e.model.Metadata(),
		EvaluatedAt:    e.now(),
	}, nil
}

// Percentage converts a survival probability into an event risk in
// percent. The result is rounded at 1e-9 so binary noise such as
// (1-0.9)*100 = 9.999999999999998 does not move a value across a tier
// boundary. Out-of-range inputs are not clamped.
func Percentage(survival float64) float64 {
	return math.Round((1-survival)*100*percentScale) / percentScale
}

const percentScale = 1e9

// predict runs inference for a single row and converts a panic inside the
// model into an error.
func (e *Evaluator) predict(features []float64) (sf ml.SurvivalFunction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()

	funcs, err := e.model.PredictSurvivalFunction([][]float64{features})
	if err != nil {
		return sf, err
	}
	if len(funcs) != 1 {
		return sf, fmt.Errorf("model returned %d survival functions for one row", len(funcs))
	}
	return funcs[0], nil
}
