package ml

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AgeNormalizer is the divisor applied to age at training time. Predictions
// are only valid when it matches the value the artifact was fitted with.
const AgeNormalizer = 87.8

// FeatureCount is the width of the row passed to the survival model.
const FeatureCount = 10

const (
	MinAge = 18
	MaxAge = 90
)

type Sex string

const (
	Female Sex = "female"
	Male   Sex = "male"
)

// ParseSex accepts "female"/"male" in any case, and the "F"/"M" shorthands.
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "female", "f":
		return Female, nil
	case "male", "m":
		return Male, nil
	default:
		return "", fmt.Errorf("unknown sex %q", value)
	}
}

// Label returns the capitalised form used on the form and in exports.
// A Caser is stateful, so one is built per call.
func (s Sex) Label() string {
	return cases.Title(language.English).String(string(s))
}

// PatientRecord holds the ten attributes collected for a single patient.
type PatientRecord struct {
	Age              int  `json:"age"`
	Sex              Sex  `json:"sex"`
	Hypertension     bool `json:"hypertension"`
	Diabetes         bool `json:"diabetes"`
	Dyslipidemia     bool `json:"dyslipidemia"`
	Obesity          bool `json:"obesity"`
	Smoking          bool `json:"smoking"`
	Antiphospholipid bool `json:"antiphospholipid"`
	Cutaneous        bool `json:"cutaneous"`
	Joint            bool `json:"joint"`
}

var ErrInvalidRecord = errors.New("invalid patient record")

func (r PatientRecord) Validate() error {
	if r.Age < MinAge || r.Age > MaxAge {
		return fmt.Errorf("%w: age %d outside %d-%d", ErrInvalidRecord, r.Age, MinAge, MaxAge)
	}
	if r.Sex != Female && r.Sex != Male {
		return fmt.Errorf("%w: unknown sex %q", ErrInvalidRecord, r.Sex)
	}
	return nil
}

// FeatureVector encodes a record in the order the model was fitted with.
// The model is positional, so this order must never change.
func FeatureVector(r PatientRecord) []float64 {
	return []float64{
		boolFeature(r.Sex == Male),
		float64(r.Age) / AgeNormalizer,
		boolFeature(r.Hypertension),
		boolFeature(r.Diabetes),
		boolFeature(r.Dyslipidemia),
		boolFeature(r.Obesity),
		boolFeature(r.Smoking),
		boolFeature(r.Antiphospholipid),
		boolFeature(r.Cutaneous),
		boolFeature(r.Joint),
	}
}

func FeatureNames() []string {
	return []string{
		"Male sex",
		"Age",
		"Hypertension",
		"Diabetes mellitus",
		"Dyslipidemia",
		"BMI ≥25",
		"Smoking",
		"Antiphospholipid antibodies",
		"Cutaneous signs",
		"Joint involvement",
	}
}

// CheckFeatureNames reports whether names matches FeatureNames exactly,
// position by position.
func CheckFeatureNames(names []string) error {
	expected := FeatureNames()
	if len(names) != len(expected) {
		return fmt.Errorf("expected %d features, artifact declares %d", len(expected), len(names))
	}
	for i, name := range names {
		if name != expected[i] {
			return fmt.Errorf("feature %d: expected %q, artifact declares %q", i, expected[i], name)
		}
	}
	return nil
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
