package extraction

import (
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

// DefaultConfidenceThreshold is the gate threshold used when none is configured
const DefaultConfidenceThreshold = 0.35

// Gate rejects OCR results whose aggregate confidence is too low to be
// worth extracting from. It runs ahead of both extraction strategies.
type Gate struct {
	threshold float64
}

// NewGate creates a Gate with the given threshold. A zero or negative
// threshold falls back to the default.
func NewGate(threshold float64) Gate {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return Gate{threshold: threshold}
}

// Threshold returns the configured threshold
func (g Gate) Threshold() float64 {
	return g.threshold
}

// Check fails with a LowConfidenceError when the result's average
// confidence is below the threshold.
func (g Gate) Check(result *ocr.Result) error {
	if result.AverageConfidence < g.threshold {
		return &LowConfidenceError{
			Observed:  result.AverageConfidence,
			Threshold: g.threshold,
		}
	}
	return nil
}
