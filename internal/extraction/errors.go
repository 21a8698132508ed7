package extraction

import "fmt"

// LowConfidenceError reports OCR output whose aggregate confidence fell
// below the configured threshold. Recoverable by retaking the photo; never
// retried automatically.
type LowConfidenceError struct {
	Observed  float64
	Threshold float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("OCR confidence %.3f is below threshold %.2f", e.Observed, e.Threshold)
}

// UnreadableError means the AI collaborator judged the text not to be a
// receipt at all. Terminal for the request.
type UnreadableError struct{}

func (e *UnreadableError) Error() string {
	return "text is not readable as a receipt"
}

// AiFailureError covers transport and parse failures of the AI collaborator.
// Categorization absorbs it silently; the full-parse path surfaces it.
type AiFailureError struct {
	Detail string
}

func (e *AiFailureError) Error() string {
	return fmt.Sprintf("AI extraction failed: %s", e.Detail)
}
