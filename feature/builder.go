// Package feature derives the fixed-shape input tensor the AKI predictor
// consumes from a patient's accumulated record.
package feature

import (
	"time"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/patientstore"
)

// Tensor dimensions: one batch of Steps time steps, FeaturesPerStep
// features per step.
const (
	Steps           = 9
	FeaturesPerStep = 4
)

// Feature column indices within a step
const (
	ColInterval = 0
	ColValue    = 1
	ColAge      = 2
	ColGender   = 3
)

// Standardization constants computed from the model's training data.
// The gender column is passed through unstandardized (mean 0, std 1).
const (
	intervalMean = 19.595264259014705
	intervalStd  = 56.37914791297929
	valueMean    = 105.94255738333332
	valueStd     = 39.19610255401994
	ageMean      = 37.040219
	ageStd       = 21.681311572666875
)

// clampCeiling caps every raw feature before standardization
const clampCeiling = 100.0

const (
	dateLayout  = "2006-01-02"
	daysPerYear = 365.25 // accounts for leap years
)

// PadEncoding is the standardized value column encoding of a padded
// (absent) result. A real creatinine of 0 umol/L cannot occur, so
// predictors can use it to tell padding from data.
var PadEncoding = standardize(0, valueMean, valueStd)

// Tensor is the predictor input, shape (1, Steps, FeaturesPerStep).
// Each step row is [interval, value, age, gender], standardized.
type Tensor [1][Steps][FeaturesPerStep]float64

// Rows returns the single batch as a 9x4 matrix
func (t *Tensor) Rows() [Steps][FeaturesPerStep]float64 {
	return t[0]
}

// Build derives the predictor input from a record snapshot at the given
// wall-clock time. It is pure and deterministic given both.
//
// A nil tensor with a nil error means inference should be skipped: the
// patient has no demographics yet, has fewer than two results, or has
// already been paged or has a page pending (duplicate-page suppression).
func Build(rec *patientstore.Record, now time.Time) (*Tensor, error) {
	if rec.Demographics == nil {
		return nil, nil
	}
	if len(rec.TestHistory) < 2 {
		return nil, nil
	}
	if rec.Paged || rec.PendingAlert != nil {
		return nil, nil
	}

	born, err := time.Parse(dateLayout, rec.Demographics.DOB)
	if err != nil {
		return nil, errors.WrapInvalid(err, "FeatureBuilder", "Build", "date of birth")
	}
	age := now.Sub(born).Hours() / 24 / daysPerYear
	gender := float64(rec.Demographics.Gender)

	history := rec.TestHistory
	if len(history) > Steps {
		history = history[len(history)-Steps:]
	}

	var t Tensor
	// Left-zero-pad: shorter histories occupy the trailing steps.
	offset := Steps - len(history)
	for i, result := range history {
		row := &t[0][offset+i]
		row[ColInterval] = standardize(clamp(result.IntervalDays), intervalMean, intervalStd)
		row[ColValue] = standardize(clamp(result.Value), valueMean, valueStd)
		row[ColAge] = standardize(clamp(age), ageMean, ageStd)
		row[ColGender] = gender
	}
	for i := 0; i < offset; i++ {
		row := &t[0][i]
		row[ColInterval] = standardize(0, intervalMean, intervalStd)
		row[ColValue] = standardize(0, valueMean, valueStd)
		row[ColAge] = standardize(clamp(age), ageMean, ageStd)
		row[ColGender] = gender
	}

	return &t, nil
}

// clamp caps a raw feature at the training ceiling
func clamp(v float64) float64 {
	if v > clampCeiling {
		return clampCeiling
	}
	return v
}

// standardize applies z-score normalization with training-set statistics
func standardize(v, mean, std float64) float64 {
	return (v - mean) / std
}
