package ml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord carries the inputs as submitted by a form or command line,
// before parsing. Flags hold the eight checkbox values keyed by field name.
type RawRecord struct {
	Age   string
	Sex   string
	Flags map[string]string
}

// Flag field names, shared by the HTML form and the CLI.
const (
	FieldHypertension     = "hypertension"
	FieldDiabetes         = "diabetes"
	FieldDyslipidemia     = "dyslipidemia"
	FieldObesity          = "obesity"
	FieldSmoking          = "smoking"
	FieldAntiphospholipid = "antiphospholipid"
	FieldCutaneous        = "cutaneous"
	FieldJoint            = "joint"
)

func FlagFields() []string {
	return []string{
		FieldHypertension,
		FieldDiabetes,
		FieldDyslipidemia,
		FieldObesity,
		FieldSmoking,
		FieldAntiphospholipid,
		FieldCutaneous,
		FieldJoint,
	}
}

// Preprocess parses and validates a raw submission. A checkbox that is
// absent is false, matching how browsers submit unchecked boxes.
func Preprocess(raw RawRecord) (PatientRecord, error) {
	var record PatientRecord

	ageStr := strings.TrimSpace(raw.Age)
	if ageStr == "" {
		return record, fmt.Errorf("%w: age is required", ErrInvalidRecord)
	}
	age, err := strconv.Atoi(ageStr)
	if err != nil {
		return record, fmt.Errorf("%w: age %q is not a whole number", ErrInvalidRecord, raw.Age)
	}
	sex, err := ParseSex(raw.Sex)
	if err != nil {
		return record, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	record.Age = age
	record.Sex = sex

	flags := make(map[string]bool, len(raw.Flags))
	for name, value := range raw.Flags {
		on, err := parseFlag(value)
		if err != nil {
			return record, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}
		flags[name] = on
	}
	record.Hypertension = flags[FieldHypertension]
	record.Diabetes = flags[FieldDiabetes]
	record.Dyslipidemia = flags[FieldDyslipidemia]
	record.Obesity = flags[FieldObesity]
	record.Smoking = flags[FieldSmoking]
	record.Antiphospholipid = flags[FieldAntiphospholipid]
	record.Cutaneous = flags[FieldCutaneous]
	record.Joint = flags[FieldJoint]

	if err := record.Validate(); err != nil {
		return record, err
	}
	return record, nil
}

func parseFlag(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, errors.New("expected a yes/no value")
	}
}
