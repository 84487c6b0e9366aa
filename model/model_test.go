package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyfu-xl/SEML/feature"
	"github.com/andyfu-xl/SEML/patientstore"
)

func tensorFor(t *testing.T, values []float64) *feature.Tensor {
	t.Helper()
	rec := &patientstore.Record{
		MRN:          "1",
		Demographics: &patientstore.Demographics{Name: "T", DOB: "1980-01-01", Gender: 0},
	}
	for i, v := range values {
		interval := 1.0
		if i == 0 {
			interval = 0
		}
		rec.TestHistory = append(rec.TestHistory, patientstore.TestResult{
			IntervalDays: interval,
			Value:        v,
		})
	}
	tensor, err := feature.Build(rec, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, tensor)
	return tensor
}

func TestDeltaPredictor_StableHistoryIsNegative(t *testing.T) {
	p := NewDeltaPredictor()
	positive, err := p.Predict(tensorFor(t, []float64{92, 94, 91, 93}))
	require.NoError(t, err)
	assert.False(t, positive)
}

func TestDeltaPredictor_HighAbsoluteLevelIsPositive(t *testing.T) {
	p := NewDeltaPredictor()
	// 185 umol/L clamps to the 100 ceiling, which standardizes above the
	// level threshold.
	positive, err := p.Predict(tensorFor(t, []float64{90, 185}))
	require.NoError(t, err)
	assert.True(t, positive)
}

func TestDeltaPredictor_SharpRiseIsPositive(t *testing.T) {
	p := NewDeltaPredictor()
	// 95 umol/L is below the level threshold, but the jump from a ~61
	// baseline clears the rise threshold.
	positive, err := p.Predict(tensorFor(t, []float64{60, 62, 61, 95}))
	require.NoError(t, err)
	assert.True(t, positive)
}

func TestPredictorFunc(t *testing.T) {
	var got *feature.Tensor
	p := PredictorFunc(func(tensor *feature.Tensor) (bool, error) {
		got = tensor
		return true, nil
	})

	tensor := tensorFor(t, []float64{90, 91})
	positive, err := p.Predict(tensor)
	require.NoError(t, err)
	assert.True(t, positive)
	assert.Same(t, tensor, got)
}
