package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/completion"
)

const categorizeSystemPrompt = `You are a financial assistant that categorizes receipt items. ` +
	`You respond with a JSON array of category strings and nothing else.`

// categorization decoding: near-zero temperature for deterministic output,
// small output bound since only a category list comes back
const (
	categorizeTemperature = 0.1
	categorizeMaxTokens   = 256
)

// Categorizer asks the AI completer to assign a category to each item of a
// batch. Failure is all-or-nothing: any transport error, length mismatch or
// out-of-set value makes the whole batch fall back to Uncategorized. It is
// never fatal to the enclosing request.
type Categorizer struct {
	completer completion.Completer
}

// NewCategorizer creates a new Categorizer instance
func NewCategorizer(completer completion.Completer) *Categorizer {
	return &Categorizer{completer: completer}
}

// Categorize returns the items in input order with the category field
// populated. An empty input is returned unchanged without any external call.
func (c *Categorizer) Categorize(ctx context.Context, items []ReceiptItem) []ReceiptItem {
	if len(items) == 0 {
		return items
	}

	prompt := buildCategorizePrompt(items)
	response, err := c.completer.Complete(ctx, categorizeSystemPrompt, prompt, categorizeTemperature, categorizeMaxTokens)
	if err != nil {
		slog.Warn("Categorization call failed, falling back to Uncategorized", "items", len(items), "error", err)
		return uncategorized(items)
	}

	categories, err := parseCategoryList(response, len(items))
	if err != nil {
		slog.Warn("Categorization response rejected, falling back to Uncategorized", "items", len(items), "error", err)
		return uncategorized(items)
	}

	out := make([]ReceiptItem, len(items))
	for i, item := range items {
		item.Category = categories[i]
		out[i] = item
	}
	return out
}

// buildCategorizePrompt formats the item descriptions as a numbered list
func buildCategorizePrompt(items []ReceiptItem) string {
	var b strings.Builder
	b.WriteString("Assign one category to each receipt item below. Valid categories: ")
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, string(c))
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\n\nItems:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Description)
	}
	b.WriteString("\nReturn a JSON array with exactly one category string per item, in the same order.")
	return b.String()
}

// parseCategoryList decodes the response and validates it against the
// closed category set and the expected length. No partial credit: one bad
// value rejects the whole list.
func parseCategoryList(response string, want int) ([]Category, error) {
	text := stripCodeFence(response)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var values []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &values); err != nil {
		return nil, fmt.Errorf("unmarshaling categories: %w", err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("expected %d categories, got %d", want, len(values))
	}

	categories := make([]Category, len(values))
	for i, v := range values {
		category, ok := ParseCategory(v)
		if !ok {
			return nil, fmt.Errorf("category %q is not in the valid set", v)
		}
		categories[i] = category
	}
	return categories, nil
}

func uncategorized(items []ReceiptItem) []ReceiptItem {
	out := make([]ReceiptItem, len(items))
	for i, item := range items {
		item.Category = CategoryUncategorized
		out[i] = item
	}
	return out
}
