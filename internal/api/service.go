package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/completion"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/extraction"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

// Config is the immutable pipeline configuration, read once at startup and
// shared across requests.
type Config struct {
	// ConfidenceThreshold gates OCR results before extraction
	ConfidenceThreshold float64
	// AllowLowConfidence lets the pattern endpoint proceed with degraded
	// results instead of rejecting below-threshold OCR
	AllowLowConfidence bool
	// CategorizeItems enables AI categorization on the pattern path
	CategorizeItems bool
}

// Service runs the receipt extraction pipeline: OCR, confidence gate, one
// of the two extraction strategies. Requests are processed independently;
// the service holds no per-request state.
type Service struct {
	engine      ocr.Engine
	gate        extraction.Gate
	categorizer *extraction.Categorizer
	fullParser  *extraction.FullParser
	config      Config
}

// NewService creates a new Service. The completer may be nil when no AI
// provider is configured; categorization then degrades to Uncategorized
// and the full-parse endpoint reports the feature as unavailable.
func NewService(engine ocr.Engine, completer completion.Completer, config Config) *Service {
	s := &Service{
		engine: engine,
		gate:   extraction.NewGate(config.ConfidenceThreshold),
		config: config,
	}
	if completer != nil {
		s.categorizer = extraction.NewCategorizer(completer)
		s.fullParser = extraction.NewFullParser(completer)
	}
	return s
}

// AIEnabled reports whether the full-parse strategy is available
func (s *Service) AIEnabled() bool {
	return s.fullParser != nil
}

// recognize converts the upload to PNG and runs OCR on it
func (s *Service) recognize(ctx context.Context, fileData []byte, contentType string) (*ocr.Result, error) {
	image, err := ocr.PrepareImage(fileData, contentType)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Recognize(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("running OCR: %w", err)
	}
	return result, nil
}

// ProcessPattern runs the deterministic extraction strategy. Below-threshold
// OCR is rejected unless degraded mode is configured; categorization
// failures are absorbed and never fail the request.
func (s *Service) ProcessPattern(ctx context.Context, fileData []byte, contentType string) (*extraction.ParsedReceipt, *ocr.Result, error) {
	result, err := s.recognize(ctx, fileData, contentType)
	if err != nil {
		return nil, nil, err
	}

	if err := s.gate.Check(result); err != nil {
		if !s.config.AllowLowConfidence {
			return nil, nil, err
		}
		slog.Warn("Proceeding with low-confidence OCR", "confidence", result.AverageConfidence, "threshold", s.gate.Threshold())
	}

	receipt := extraction.ExtractWithPatterns(result.FullText, result.AverageConfidence)

	if s.config.CategorizeItems && s.categorizer != nil {
		receipt.Items = s.categorizer.Categorize(ctx, receipt.Items)
	}

	return receipt, result, nil
}

// ProcessAI runs the AI full-parse strategy. The gate is always enforced.
func (s *Service) ProcessAI(ctx context.Context, fileData []byte, contentType string) (*extraction.ParsedReceipt, *ocr.Result, error) {
	if s.fullParser == nil {
		return nil, nil, fmt.Errorf("AI parsing is not configured")
	}

	result, err := s.recognize(ctx, fileData, contentType)
	if err != nil {
		return nil, nil, err
	}

	if err := s.gate.Check(result); err != nil {
		return nil, nil, err
	}

	receipt, err := s.fullParser.Parse(ctx, result.FullText, result.AverageConfidence)
	if err != nil {
		return nil, nil, err
	}

	return receipt, result, nil
}
