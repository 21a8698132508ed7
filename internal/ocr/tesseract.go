package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Engine interface using a local Tesseract
// installation. It needs no network access but only reports axis-aligned
// word boxes, which are mapped onto the four-point polygon shape.
type Tesseract struct {
	language string
}

// NewTesseract creates a new Tesseract engine instance
func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}

	return &Tesseract{language: language}, nil
}

// Recognize runs Tesseract on the image and returns word-level tokens.
// A fresh client is created per call: gosseract clients are not safe for
// concurrent use.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("running tesseract: %w", err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		minX, minY := float64(b.Box.Min.X), float64(b.Box.Min.Y)
		maxX, maxY := float64(b.Box.Max.X), float64(b.Box.Max.Y)
		tokens = append(tokens, Token{
			Text:       word,
			Confidence: b.Confidence / 100, // tesseract reports 0-100
			BoundingBox: Quad{
				Point{minX, minY},
				Point{maxX, minY},
				Point{maxX, maxY},
				Point{minX, maxY},
			},
		})
	}

	return NewResult(tokens), nil
}

// Close closes the Tesseract engine (clients are per-call)
func (t *Tesseract) Close() error {
	return nil
}
