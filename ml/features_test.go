package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureVectorOrder(t *testing.T) {
	record := PatientRecord{
		Age:              44,
		Sex:              Male,
		Hypertension:     true,
		Diabetes:         false,
		Dyslipidemia:     true,
		Obesity:          false,
		Smoking:          true,
		Antiphospholipid: false,
		Cutaneous:        true,
		Joint:            false,
	}

	vector := FeatureVector(record)
	require.Len(t, vector, FeatureCount)
	assert.Equal(t, []float64{1, 44 / 87.8, 1, 0, 1, 0, 1, 0, 1, 0}, vector)
}

func TestFeatureVectorEveryAgeAndFlag(t *testing.T) {
	for age := MinAge; age <= MaxAge; age++ {
		for _, sex := range []Sex{Female, Male} {
			vector := FeatureVector(PatientRecord{Age: age, Sex: sex, Joint: age%2 == 0})
			require.Len(t, vector, FeatureCount)
			assert.Equal(t, float64(age)/AgeNormalizer, vector[1])
			for i, v := range vector {
				if i == 1 {
					continue
				}
				assert.Truef(t, v == 0 || v == 1, "feature %d = %v", i, v)
			}
			assert.Equal(t, boolFeature(sex == Male), vector[0])
			assert.Equal(t, boolFeature(age%2 == 0), vector[9])
		}
	}
}

func TestFeatureNamesMatchVectorWidth(t *testing.T) {
	assert.Len(t, FeatureNames(), FeatureCount)
	assert.NoError(t, CheckFeatureNames(FeatureNames()))

	swapped := FeatureNames()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.Error(t, CheckFeatureNames(swapped))
	assert.Error(t, CheckFeatureNames(FeatureNames()[:9]))
}

func TestPatientRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  PatientRecord
		wantErr bool
	}{
		{"youngest", PatientRecord{Age: 18, Sex: Female}, false},
		{"oldest", PatientRecord{Age: 90, Sex: Male}, false},
		{"too young", PatientRecord{Age: 17, Sex: Female}, true},
		{"too old", PatientRecord{Age: 91, Sex: Male}, true},
		{"no sex", PatientRecord{Age: 40}, true},
		{"unknown sex", PatientRecord{Age: 40, Sex: "other"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidRecord))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseSex(t *testing.T) {
	for input, want := range map[string]Sex{"female": Female, "Female": Female, "F": Female, " male ": Male, "M": Male} {
		got, err := ParseSex(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}
	_, err := ParseSex("x")
	assert.Error(t, err)
	assert.Equal(t, "Male", Male.Label())
	assert.Equal(t, "Female", Female.Label())
}

func TestPreprocess(t *testing.T) {
	record, err := Preprocess(RawRecord{
		Age: "52",
		Sex: "Male",
		Flags: map[string]string{
			FieldHypertension: "on",
			FieldSmoking:      "true",
			FieldJoint:        "",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, PatientRecord{Age: 52, Sex: Male, Hypertension: true, Smoking: true}, record)

	_, err = Preprocess(RawRecord{Age: "", Sex: "female"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = Preprocess(RawRecord{Age: "forty", Sex: "female"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = Preprocess(RawRecord{Age: "40", Sex: "?"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = Preprocess(RawRecord{Age: "95", Sex: "female"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = Preprocess(RawRecord{Age: "40", Sex: "female", Flags: map[string]string{FieldDiabetes: "maybe"}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
