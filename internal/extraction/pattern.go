package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	dateRe     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	priceRe    = regexp.MustCompile(`\d+\.\d{2}`)
	quantityRe = regexp.MustCompile(`(?i)^(\d+)\s*x\s*(.*)$`)
	itemRe     = regexp.MustCompile(`^(.+?)\s*\$?\s*(\d+\.\d{2})$`)
)

// ExtractWithPatterns runs the deterministic line-by-line extraction over
// the OCR text. Each line is classified at most once, in fixed precedence:
// store, date, total/tax vocabulary, item patterns. Categories are left
// Uncategorized for the categorization adapter to fill in.
//
// The engine computes no confidence of its own; it carries the OCR average
// confidence supplied by the caller.
func ExtractWithPatterns(fullText string, ocrConfidence float64) *ParsedReceipt {
	receipt := &ParsedReceipt{
		Items:      []ReceiptItem{},
		Confidence: ocrConfidence,
	}

	storeFound := false
	for _, rawLine := range strings.Split(fullText, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		// Store: the first non-empty line, kept verbatim.
		if !storeFound {
			storeFound = true
			store := line
			receipt.Store = &store
			continue
		}

		// Date: first line matching D{1,2}[/-]D{1,2}[/-]D{2,4}. The matched
		// substring is returned as-is, no month/day normalization.
		if receipt.Date == nil {
			if m := dateRe.FindString(line); m != "" {
				receipt.Date = &m
				continue
			}
		}

		// Total/tax vocabulary spends the line even when the field is
		// already filled, so keyword lines never leak into the item list.
		// First match per field wins; a "Subtotal" line that appears before
		// the "Total" line takes the slot (documented first-match policy).
		lower := strings.ToLower(line)
		if strings.Contains(lower, "total") || strings.Contains(lower, "tax") {
			if amount, ok := lastPrice(line); ok {
				if strings.Contains(lower, "tax") && receipt.Tax == nil {
					receipt.Tax = &amount
				} else if strings.Contains(lower, "total") && receipt.Total == nil {
					receipt.Total = &amount
				}
			}
			continue
		}

		if item, ok := parseItemLine(line); ok {
			receipt.Items = append(receipt.Items, item)
		}
	}

	return receipt
}

// parseItemLine tries the quantity pattern first, then the plain
// description-price pattern. Lines matching neither are discarded.
func parseItemLine(line string) (ReceiptItem, bool) {
	if m := quantityRe.FindStringSubmatch(line); m != nil {
		quantity, err := strconv.Atoi(m[1])
		if err != nil || quantity < 1 {
			return ReceiptItem{}, false
		}
		rest := m[2]
		loc := priceRe.FindAllStringIndex(rest, -1)
		if len(loc) == 0 {
			return ReceiptItem{}, false
		}
		last := loc[len(loc)-1]
		total, err := strconv.ParseFloat(rest[last[0]:last[1]], 64)
		if err != nil {
			return ReceiptItem{}, false
		}
		description := strings.TrimSpace(strings.TrimRight(rest[:last[0]], " \t$"))
		if description == "" {
			return ReceiptItem{}, false
		}
		return ReceiptItem{
			Description: description,
			Quantity:    quantity,
			UnitPrice:   round2(total / float64(quantity)),
			Total:       total,
			Category:    CategoryUncategorized,
		}, true
	}

	if m := itemRe.FindStringSubmatch(line); m != nil {
		price, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return ReceiptItem{}, false
		}
		description := strings.TrimSpace(m[1])
		if description == "" {
			return ReceiptItem{}, false
		}
		return ReceiptItem{
			Description: description,
			Quantity:    1,
			UnitPrice:   price,
			Total:       price,
			Category:    CategoryUncategorized,
		}, true
	}

	return ReceiptItem{}, false
}

// lastPrice extracts the last two-decimal price on a line
func lastPrice(line string) (float64, bool) {
	matches := priceRe.FindAllString(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	amount, err := strconv.ParseFloat(matches[len(matches)-1], 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
