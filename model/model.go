// Package model defines the predictor port the pipeline calls and a
// rule-based reference implementation.
//
// The production AKI model is an LSTM served out of process; it is
// consumed here purely as a function from feature tensor to boolean.
// Anything satisfying Predictor can be wired into the engine.
package model

import (
	"github.com/andyfu-xl/SEML/feature"
)

// Predictor decides whether a feature tensor indicates acute kidney
// injury risk. Implementations must be pure: same tensor, same answer.
type Predictor interface {
	Predict(t *feature.Tensor) (bool, error)
}

// PredictorFunc adapts a function to the Predictor interface
type PredictorFunc func(t *feature.Tensor) (bool, error)

// Predict calls f
func (f PredictorFunc) Predict(t *feature.Tensor) (bool, error) {
	return f(t)
}

// DeltaPredictor is a rule-based stand-in for the LSTM, used when no
// external model is wired. It flags risk when the newest standardized
// creatinine value reaches ZThreshold, or when the newest value rises by
// more than RiseThreshold above the mean of the populated window.
//
// Thresholds are expressed in standardized units of the clamped feature
// space: raw values cap at 100 umol/L before standardization, so the
// value column tops out near -0.15 and the defaults sit just below that
// ceiling.
type DeltaPredictor struct {
	// ZThreshold is the standardized creatinine level flagged regardless
	// of trend (default -0.2, roughly raw 98 umol/L)
	ZThreshold float64
	// RiseThreshold is the flagged rise of the newest value over the
	// window mean (default 0.4, roughly a raw rise of 16 umol/L)
	RiseThreshold float64
}

// NewDeltaPredictor returns the predictor with default thresholds
func NewDeltaPredictor() *DeltaPredictor {
	return &DeltaPredictor{
		ZThreshold:    -0.2,
		RiseThreshold: 0.4,
	}
}

// Predict implements Predictor
func (p *DeltaPredictor) Predict(t *feature.Tensor) (bool, error) {
	rows := t.Rows()
	newest := rows[feature.Steps-1][feature.ColValue]

	if newest >= p.ZThreshold {
		return true, nil
	}

	// Padding steps carry the encoding of an absent result; exclude them
	// from the window mean.
	sum, n := 0.0, 0
	for _, row := range rows {
		v := row[feature.ColValue]
		if v == feature.PadEncoding {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return false, nil
	}

	return newest-(sum/float64(n)) > p.RiseThreshold, nil
}
