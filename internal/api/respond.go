package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/extraction"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

// patternResponse is the body of the pattern extraction endpoint
type patternResponse struct {
	Message    string                   `json:"message"`
	RawText    string                   `json:"raw_text"`
	Store      *string                  `json:"store"`
	Date       *string                  `json:"date"`
	Total      *float64                 `json:"total"`
	Tax        *float64                 `json:"tax"`
	Items      []extraction.ReceiptItem `json:"items"`
	Confidence float64                  `json:"confidence"`
	OCRData    []ocr.Token              `json:"ocr_data"`
}

// aiResponse is the body of the AI full-parse endpoint
type aiResponse struct {
	Store         *string                  `json:"store"`
	Date          *string                  `json:"date"`
	Total         *float64                 `json:"total"`
	Tax           *float64                 `json:"tax"`
	Items         []extraction.ReceiptItem `json:"items"`
	RawText       string                   `json:"raw_text"`
	OCRConfidence float64                  `json:"ocr_confidence"`
	Confidence    float64                  `json:"confidence"`
	OCRData       []ocr.Token              `json:"ocr_data"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// normalizeItems guarantees the response never carries a nil item list or
// an unset category, regardless of which strategy produced the receipt.
func normalizeItems(items []extraction.ReceiptItem) []extraction.ReceiptItem {
	if items == nil {
		return []extraction.ReceiptItem{}
	}
	for i := range items {
		if items[i].Category == "" {
			items[i].Category = extraction.CategoryUncategorized
		}
	}
	return items
}

// newPatternResponse merges the parsed receipt with the OCR evidence
func newPatternResponse(receipt *extraction.ParsedReceipt, result *ocr.Result) patternResponse {
	return patternResponse{
		Message:    "Receipt processed successfully",
		RawText:    result.FullText,
		Store:      receipt.Store,
		Date:       receipt.Date,
		Total:      receipt.Total,
		Tax:        receipt.Tax,
		Items:      normalizeItems(receipt.Items),
		Confidence: receipt.Confidence,
		OCRData:    result.Tokens,
	}
}

// newAIResponse merges the parsed receipt with the OCR evidence
func newAIResponse(receipt *extraction.ParsedReceipt, result *ocr.Result) aiResponse {
	return aiResponse{
		Store:         receipt.Store,
		Date:          receipt.Date,
		Total:         receipt.Total,
		Tax:           receipt.Tax,
		Items:         normalizeItems(receipt.Items),
		RawText:       result.FullText,
		OCRConfidence: result.AverageConfidence,
		Confidence:    receipt.Confidence,
		OCRData:       result.Tokens,
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
