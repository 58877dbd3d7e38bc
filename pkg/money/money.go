// Package money normalizes loosely formatted rupee amounts and renders them
// with Indian digit grouping.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Symbol    = "₹"
	Code      = "INR"
	EmptyDash = "—"
)

var suggestionAmountRe = regexp.MustCompile(`₹([\d,]+(?:\.\d+)?)`)

// Normalize strips separators, the rupee symbol and the INR code and parses the
// rest. Blank and unparseable input yields zero; it never fails.
func Normalize(raw string) decimal.Decimal {
	value := strings.TrimSpace(raw)
	if value == "" || value == EmptyDash {
		return decimal.Zero
	}
	value = strings.ReplaceAll(value, ",", "")
	value = strings.ReplaceAll(value, Symbol, "")
	value = strings.ReplaceAll(value, Code, "")
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Strip removes the symbol, the code and separators but keeps the text as typed.
func Strip(raw string) string {
	value := strings.ReplaceAll(raw, Symbol, "")
	value = strings.ReplaceAll(value, Code, "")
	value = strings.ReplaceAll(value, ",", "")
	return strings.TrimSpace(value)
}

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatINR renders d as ₹12,34,567.00.
func FormatINR(d decimal.Decimal) string {
	return Symbol + Group(d)
}

// Group renders d with two decimals and Indian grouping (last three digits,
// then pairs) without a symbol.
func Group(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return sign + intPart + "." + frac
	}
	head, last3 := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + last3 + "." + frac
}

// ParseSuggestion extracts the rupee amount from text like "Expected: ₹1,180.00".
func ParseSuggestion(text string) (decimal.Decimal, bool) {
	m := suggestionAmountRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
