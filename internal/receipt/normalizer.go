package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FallbackCategory is assigned when no categorization rule matches, so every
// readable receipt still yields a storable expense.
const FallbackCategory = "Other"

// maxPlausibleAmount caps what a single receipt line is allowed to claim.
// Larger numeric tokens are treated as noise (card numbers, reference ids).
const maxPlausibleAmount = 1_000_000

var (
	// amountPattern matches currency-like numeric tokens: 42, 42.50, 1,234.56,
	// optionally prefixed by a currency symbol.
	amountPattern = regexp.MustCompile(`(?:[$€£]\s*)?(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)

	// totalLabelPattern matches "total"-like labels. \btotal\b does not match
	// inside "subtotal", which is exactly the distinction we need.
	totalLabelPattern = regexp.MustCompile(`(?i)\b(?:grand\s+total|amount\s+due|balance\s+due|total)\b`)
)

// UnparseableAmountError reports that no numeric token resembling a currency
// amount was found in the extraction output.
type UnparseableAmountError struct {
	Input string
}

func (e *UnparseableAmountError) Error() string {
	return fmt.Sprintf("no parseable amount in extraction output: %q", truncate(e.Input, 80))
}

// ExtractionError wraps a failure of the AI extraction oracle. Recoverable:
// callers may fall back to manual entry.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("receipt extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extraction is the loosely-typed output of the AI oracle for one document.
// Any field may be empty or junk; Text carries the raw document text when
// structured fields are missing.
type Extraction struct {
	Title       string
	Category    string
	Amount      string
	Description string
	Merchant    string
	Text        string
}

// Candidate is the validated expense candidate produced from an extraction.
type Candidate struct {
	Title       string
	Category    string
	Amount      float64
	Merchant    string
	Description string
}

// categoryRule maps keywords to a recognized category. Rules are ordered;
// the first match wins.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Food", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "diner", "bakery", "food", "lunch", "dinner", "breakfast", "bar ", "pub "}},
	{"Groceries", []string{"grocery", "supermarket", "market", "mart", "walmart", "costco", "aldi", "lidl", "tesco"}},
	{"Travel", []string{"airline", "flight", "hotel", "airbnb", "booking", "hostel", "travel", "rental car"}},
	{"Transport", []string{"uber", "lyft", "taxi", "metro", "subway", "bus ", "train", "parking", "fuel", "gas station", "petrol"}},
	{"Office Supplies", []string{"office", "staples", "stationery", "printer", "paper", "ink"}},
	{"Entertainment", []string{"cinema", "movie", "netflix", "spotify", "theatre", "concert", "game"}},
	{"Health", []string{"pharmacy", "drugstore", "clinic", "hospital", "dental", "doctor", "medicine"}},
	{"Utilities", []string{"electric", "water bill", "internet", "telecom", "phone bill", "utility"}},
	{"Shopping", []string{"amazon", "ebay", "mall", "clothing", "apparel", "shoes", "electronics"}},
}

// Normalize converts raw oracle output into a validated expense candidate or
// a typed failure. Pure: no I/O, no retries, no side effects.
func Normalize(ext Extraction) (Candidate, error) {
	amount, err := resolveAmount(ext)
	if err != nil {
		return Candidate{}, err
	}

	candidate := Candidate{
		Title:       strings.TrimSpace(ext.Title),
		Category:    resolveCategory(ext),
		Amount:      amount,
		Merchant:    strings.TrimSpace(ext.Merchant),
		Description: strings.TrimSpace(ext.Description),
	}
	if candidate.Title == "" {
		candidate.Title = "Receipt Expense"
	}
	return candidate, nil
}

// resolveAmount prefers the structured amount field, falling back to
// scanning the raw text.
func resolveAmount(ext Extraction) (float64, error) {
	if v, ok := parseAmount(ext.Amount); ok {
		return v, nil
	}
	if v, ok := amountFromText(ext.Text); ok {
		return v, nil
	}

	input := ext.Amount
	if input == "" {
		input = ext.Text
	}
	return 0, &UnparseableAmountError{Input: input}
}

// parseAmount parses a single currency-like token into a positive float.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	match := amountPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, false
	}

	token := match[1]
	if strings.Contains(token, ",") && !strings.Contains(token, ".") && !thousandsGrouped(token) {
		// European decimal comma: "42,50"
		token = strings.Replace(token, ",", ".", 1)
	} else {
		token = strings.ReplaceAll(token, ",", "")
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil || v <= 0 || v > maxPlausibleAmount {
		return 0, false
	}
	return v, true
}

// thousandsGrouped reports whether commas in the token look like thousands
// separators ("1,234" / "12,345,678") rather than a decimal comma.
func thousandsGrouped(token string) bool {
	parts := strings.Split(token, ",")
	for i, p := range parts {
		if i == 0 {
			if len(p) == 0 || len(p) > 3 {
				return false
			}
			continue
		}
		if len(p) != 3 {
			return false
		}
	}
	return len(parts) > 1
}

// amountFromText scans free receipt text for candidate amounts. Amounts on a
// line carrying a "total"-like label win; among several candidates the
// largest plausible value is chosen. Documented heuristic, not a guess at
// hidden intent.
func amountFromText(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	var labeled, all []float64
	for _, line := range strings.Split(text, "\n") {
		isTotalLine := totalLabelPattern.MatchString(line)
		for _, match := range amountPattern.FindAllStringSubmatch(line, -1) {
			v, ok := parseAmount(match[0])
			if !ok {
				continue
			}
			all = append(all, v)
			if isTotalLine {
				labeled = append(labeled, v)
			}
		}
	}

	if v, ok := largest(labeled); ok {
		return v, true
	}
	return largest(all)
}

func largest(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// resolveCategory maps the extraction onto the recognized category set. The
// oracle's own label is honored when it already names a recognized category;
// otherwise keyword rules run over merchant, title, label, and raw text, and
// the fixed fallback closes the gap.
func resolveCategory(ext Extraction) string {
	if label := strings.TrimSpace(ext.Category); label != "" {
		for _, rule := range categoryRules {
			if strings.EqualFold(label, rule.category) {
				return rule.category
			}
		}
	}

	haystack := strings.ToLower(strings.Join([]string{
		ext.Merchant, ext.Title, ext.Category, ext.Description, ext.Text,
	}, "\n"))

	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.category
			}
		}
	}
	return FallbackCategory
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
