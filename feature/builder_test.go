package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyfu-xl/SEML/patientstore"
)

var testNow = time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC)

func testRecord(results int) *patientstore.Record {
	rec := &patientstore.Record{
		MRN: "478237423",
		Demographics: &patientstore.Demographics{
			Name:   "ELIZABETH HOLMES",
			DOB:    "1984-02-03",
			Gender: 1,
		},
	}
	for i := 0; i < results; i++ {
		interval := 1.0
		if i == 0 {
			interval = 0
		}
		rec.TestHistory = append(rec.TestHistory, patientstore.TestResult{
			IntervalDays: interval,
			Value:        90.0 + float64(i),
		})
	}
	return rec
}

func TestBuild_SkipConditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*patientstore.Record)
	}{
		{"no demographics", func(r *patientstore.Record) { r.Demographics = nil }},
		{"fewer than two results", func(r *patientstore.Record) { r.TestHistory = r.TestHistory[:1] }},
		{"already paged", func(r *patientstore.Record) { r.Paged = true }},
		{"alert pending", func(r *patientstore.Record) {
			at := testNow
			r.PendingAlert = &at
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord(3)
			tt.mutate(rec)
			tensor, err := Build(rec, testNow)
			require.NoError(t, err)
			assert.Nil(t, tensor, "inference must be skipped")
		})
	}
}

func TestBuild_Shape(t *testing.T) {
	tensor, err := Build(testRecord(3), testNow)
	require.NoError(t, err)
	require.NotNil(t, tensor)

	rows := tensor.Rows()
	assert.Len(t, rows, Steps)
	assert.Len(t, rows[0], FeaturesPerStep)
}

func TestBuild_Standardization(t *testing.T) {
	tensor, err := Build(testRecord(2), testNow)
	require.NoError(t, err)
	require.NotNil(t, tensor)

	rows := tensor.Rows()
	last := rows[Steps-1]

	// Patient is exactly 40 years old at testNow (1984-02-03 -> 2024-02-03,
	// with leap-day drift under the 365.25 divisor).
	wantAge := testNow.Sub(time.Date(1984, 2, 3, 0, 0, 0, 0, time.UTC)).Hours() / 24 / 365.25
	assert.InDelta(t, (1.0-19.595264259014705)/56.37914791297929, last[ColInterval], 1e-9)
	assert.InDelta(t, (91.0-105.94255738333332)/39.19610255401994, last[ColValue], 1e-9)
	assert.InDelta(t, (wantAge-37.040219)/21.681311572666875, last[ColAge], 1e-9)
	assert.Equal(t, 1.0, last[ColGender], "gender column is not standardized")
}

func TestBuild_LeftZeroPadding(t *testing.T) {
	tensor, err := Build(testRecord(2), testNow)
	require.NoError(t, err)
	require.NotNil(t, tensor)

	rows := tensor.Rows()
	// The first 7 steps are padding: zero interval and zero value,
	// standardized like any other feature.
	padValue := (0.0 - 105.94255738333332) / 39.19610255401994
	for i := 0; i < Steps-2; i++ {
		assert.InDelta(t, padValue, rows[i][ColValue], 1e-9, "step %d", i)
	}
	// The real results occupy the trailing steps.
	assert.InDelta(t, (90.0-105.94255738333332)/39.19610255401994, rows[Steps-2][ColValue], 1e-9)
	assert.InDelta(t, (91.0-105.94255738333332)/39.19610255401994, rows[Steps-1][ColValue], 1e-9)
}

func TestBuild_UsesLastNineResults(t *testing.T) {
	rec := testRecord(12)
	tensor, err := Build(rec, testNow)
	require.NoError(t, err)
	require.NotNil(t, tensor)

	rows := tensor.Rows()
	// Results 3..11 (values 93..101) fill the window; value 101 is last.
	assert.InDelta(t, (101.0-105.94255738333332)/39.19610255401994, rows[Steps-1][ColValue], 1e-9)
	assert.InDelta(t, (93.0-105.94255738333332)/39.19610255401994, rows[0][ColValue], 1e-9)
}

func TestBuild_ClampsFeaturesAtCeiling(t *testing.T) {
	rec := testRecord(2)
	rec.TestHistory[1] = patientstore.TestResult{IntervalDays: 400, Value: 612.5}

	tensor, err := Build(rec, testNow)
	require.NoError(t, err)
	require.NotNil(t, tensor)

	last := tensor.Rows()[Steps-1]
	assert.InDelta(t, (100.0-19.595264259014705)/56.37914791297929, last[ColInterval], 1e-9)
	assert.InDelta(t, (100.0-105.94255738333332)/39.19610255401994, last[ColValue], 1e-9)
}

func TestBuild_BadDOB(t *testing.T) {
	rec := testRecord(2)
	rec.Demographics.DOB = "03/02/1984"

	_, err := Build(rec, testNow)
	require.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	rec := testRecord(4)
	a, err := Build(rec, testNow)
	require.NoError(t, err)
	b, err := Build(rec, testNow)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
