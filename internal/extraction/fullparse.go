package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/completion"
)

const fullParseSystemPrompt = `You are a receipt parsing engine. You read raw OCR text from ` +
	`receipts and respond with valid JSON only, no markdown and no commentary.`

const fullParsePromptTemplate = `Extract structured data from this receipt OCR text.

Return JSON with exactly these keys:
{
  "unreadable": false,
  "store": "store name or null",
  "date": "YYYY-MM-DD or null",
  "total": 0.00,
  "tax": 0.00,
  "confidence": 0.0,
  "items": [
    {"description": "item name", "quantity": 1, "unit_price": 0.00, "total": 0.00, "category": "Groceries"}
  ]
}

Rules:
- Use null for any field you cannot read with confidence. Never invent values.
- Valid categories: %s.
- "confidence" is your own 0-1 estimate of how reliably the text was parsed.
- If the text is not recognizable as a receipt at all, set "unreadable" to true.

OCR text:
%s`

// full-parse decoding: near-zero temperature, larger output bound than
// categorization since a complete structured receipt comes back
const (
	fullParseTemperature = 0.1
	fullParseMaxTokens   = 2048
)

// FullParser delegates the entire extraction to the AI completer and
// validates and repairs the structured result.
type FullParser struct {
	completer completion.Completer
}

// NewFullParser creates a new FullParser instance
func NewFullParser(completer completion.Completer) *FullParser {
	return &FullParser{completer: completer}
}

// aiItem is one item as the model reports it. Amounts come back in several
// notations, so they go through flexAmount.
type aiItem struct {
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	UnitPrice   flexAmount `json:"unit_price"`
	Total       flexAmount `json:"total"`
	Category    string     `json:"category"`
}

type aiReceipt struct {
	Unreadable bool       `json:"unreadable"`
	Store      *string    `json:"store"`
	Date       *string    `json:"date"`
	Total      flexAmount `json:"total"`
	Tax        flexAmount `json:"tax"`
	Confidence *float64   `json:"confidence"`
	Items      []aiItem   `json:"items"`
}

// Parse sends the OCR text to the completer and turns the response into a
// ParsedReceipt. It fails with UnreadableError when the model flags the
// text as not being a receipt, and with AiFailureError on any transport or
// decode problem. Item categories outside the valid set are repaired to
// Uncategorized rather than failing the parse.
func (p *FullParser) Parse(ctx context.Context, fullText string, ocrConfidence float64) (*ParsedReceipt, error) {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, string(c))
	}
	prompt := fmt.Sprintf(fullParsePromptTemplate, strings.Join(names, ", "), fullText)

	response, err := p.completer.Complete(ctx, fullParseSystemPrompt, prompt, fullParseTemperature, fullParseMaxTokens)
	if err != nil {
		return nil, &AiFailureError{Detail: err.Error()}
	}

	return parseFullParseResponse(response, ocrConfidence)
}

// parseFullParseResponse validates the raw model response and assembles the
// receipt. Split out of Parse so the decode rules are testable without a
// completer.
func parseFullParseResponse(response string, ocrConfidence float64) (*ParsedReceipt, error) {
	text := stripCodeFence(response)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &AiFailureError{Detail: "no JSON object found in response"}
	}
	text = text[start : end+1]

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &AiFailureError{Detail: fmt.Sprintf("unmarshaling response: %v", err)}
	}
	for _, key := range []string{"store", "date", "total", "tax", "items"} {
		if _, ok := raw[key]; !ok {
			return nil, &AiFailureError{Detail: fmt.Sprintf("response is missing required key %q", key)}
		}
	}

	var parsed aiReceipt
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, &AiFailureError{Detail: fmt.Sprintf("unmarshaling response: %v", err)}
	}

	if parsed.Unreadable {
		return nil, &UnreadableError{}
	}

	receipt := &ParsedReceipt{
		Store:      emptyToNil(parsed.Store),
		Date:       emptyToNil(parsed.Date),
		Total:      nonNegative(parsed.Total.value),
		Tax:        nonNegative(parsed.Tax.value),
		Items:      make([]ReceiptItem, 0, len(parsed.Items)),
		Confidence: ocrConfidence,
	}
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		receipt.Confidence = *parsed.Confidence
	}

	for i, item := range parsed.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}

		// Amount repair: a negative amount is treated like a null one, so
		// the derivation below fills in whatever remains readable.
		itemTotal := nonNegative(item.Total.value)
		itemUnitPrice := nonNegative(item.UnitPrice.value)

		var unitPrice, total float64
		switch {
		case itemTotal != nil && itemUnitPrice != nil:
			total = *itemTotal
			unitPrice = *itemUnitPrice
		case itemTotal != nil:
			// Only the line total is known: quantity stays as reported and
			// the unit price is derived from it.
			total = *itemTotal
			unitPrice = round2(total / float64(quantity))
		case itemUnitPrice != nil:
			unitPrice = *itemUnitPrice
			total = round2(unitPrice * float64(quantity))
		}

		// Item-level repair: a foreign category never discards the item.
		category, _ := ParseCategory(item.Category)

		receipt.Items = append(receipt.Items, ReceiptItem{
			ID:          fmt.Sprintf("item-%d", i+1),
			Description: strings.TrimSpace(item.Description),
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       total,
			Category:    category,
		})
	}

	return receipt, nil
}

// flexAmount unmarshals price fields that arrive as numbers or as strings
// in "$1.99", "1.99" or "1,99" notation. A nil value means the field was
// null or absent.
type flexAmount struct {
	value *float64
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := NormalizePrice(str)
		if err != nil {
			return err
		}
		a.value = &v
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v = round2(v)
	a.value = &v
	return nil
}

// NormalizePrice converts a textual price to a two-decimal numeric amount.
// Accepted notations: "$1.99", "1.99" and "1,99" (comma as the decimal
// separator). Commas alongside a dot are treated as thousands separators.
func NormalizePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", s, err)
	}
	return round2(v), nil
}

// stripCodeFence removes markdown code fencing that models wrap around
// JSON responses.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// nonNegative drops negative amounts. The instruction contract has the
// model use null for anything it cannot read, so a negative amount gets
// the same treatment as a null one.
func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
