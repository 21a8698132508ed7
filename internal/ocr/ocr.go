package ocr

import (
	"context"
	"math"
	"strings"
)

// Point is an (x, y) coordinate in the pixel space of the source image.
type Point [2]float64

// Quad is the bounding polygon of a detected token: four ordered points
// (top-left, top-right, bottom-right, bottom-left). Rotated or skewed text
// produces a general quadrilateral, not an axis-aligned rectangle; the
// ordering is fixed regardless of orientation.
type Quad [4]Point

// Token is one detected text region with its own confidence and position.
// Tokens are immutable once produced.
type Token struct {
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	BoundingBox Quad    `json:"bounding_box"`
}

// Result is the normalized output of an OCR engine for a single image.
// Token order is detection order, not reading order.
type Result struct {
	FullText          string  `json:"full_text"`
	AverageConfidence float64 `json:"average_confidence"`
	Tokens            []Token `json:"tokens"`
}

// Engine defines the interface for OCR engines
type Engine interface {
	// Recognize runs OCR on a PNG image and returns the detected tokens
	Recognize(ctx context.Context, image []byte) (*Result, error)
	// Close releases engine resources
	Close() error
}

// NewResult builds a Result from detected tokens: full text is the
// newline-joined token texts in detection order, and the average confidence
// is rounded to 3 decimals.
func NewResult(tokens []Token) *Result {
	texts := make([]string, 0, len(tokens))
	var sum float64
	for _, t := range tokens {
		texts = append(texts, t.Text)
		sum += t.Confidence
	}

	var avg float64
	if len(tokens) > 0 {
		avg = math.Round(sum/float64(len(tokens))*1000) / 1000
	}

	return &Result{
		FullText:          strings.Join(texts, "\n"),
		AverageConfidence: avg,
		Tokens:            tokens,
	}
}
