// Package extraction turns raw OCR output into validated structured receipt
// data. Two strategies exist side by side: deterministic pattern matching
// over the text lines, and a full parse delegated to an AI completer. Both
// produce the same ParsedReceipt shape.
package extraction

import "strings"

// Category classifies a receipt item into one of the fixed budget buckets.
type Category string

const (
	CategoryGroceries     Category = "Groceries"
	CategoryDining        Category = "Dining"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategoryUtilities     Category = "Utilities"
	CategoryUncategorized Category = "Uncategorized"
)

// Categories is the closed set of valid item categories
var Categories = []Category{
	CategoryGroceries,
	CategoryDining,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategoryUtilities,
	CategoryUncategorized,
}

// ParseCategory matches a value from the AI collaborator against the closed
// category set. The boolean reports whether the value was in the set; any
// foreign value must be coerced to Uncategorized by the caller.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return CategoryUncategorized, false
}

// ReceiptItem is a single purchased item. Quantity defaults to 1 when no
// quantity pattern was detected, in which case the unit price equals the
// line total.
type ReceiptItem struct {
	ID          string   `json:"id,omitempty"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	Total       float64  `json:"total"`
	Category    Category `json:"category"`
}

// ParsedReceipt is the structured result of one extraction strategy.
// Nil fields mean the value could not be read from the receipt.
type ParsedReceipt struct {
	Store      *string       `json:"store"`
	Date       *string       `json:"date"`
	Total      *float64      `json:"total"`
	Tax        *float64      `json:"tax"`
	Items      []ReceiptItem `json:"items"`
	Confidence float64       `json:"confidence"`
}
