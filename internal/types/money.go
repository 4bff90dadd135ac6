package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// All money values are int64 minor currency units (cents, øre) so that
// summation is exact.

var currencyTextRe = regexp.MustCompile(`(?i)\s*(KR|DKK|SEK|NOK|EUR|USD|KN|HRK)\.?\s*`)

// ParseCents parses a decimal price string into minor units without going
// through floating point. Accepts "12.99", "12,99", "1.299,00", "1 299,00 kr".
func ParseCents(value string) (int64, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price value")
	}
	cleaned = currencyTextRe.ReplaceAllString(cleaned, "")
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r == '€' || r == '$' || r == '£' || r == ' ' || unicode.IsSpace(r):
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value in %q", value)
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	var whole, frac string
	switch {
	case lastComma > lastDot:
		// European: 1.234,56
		whole = strings.ReplaceAll(cleaned[:lastComma], ".", "")
		frac = cleaned[lastComma+1:]
	case lastDot > lastComma:
		whole = strings.ReplaceAll(cleaned[:lastDot], ",", "")
		frac = cleaned[lastDot+1:]
	default:
		whole = cleaned
	}

	// A single separator followed by exactly three digits is a thousands separator.
	if len(frac) == 3 && (lastDot == -1 || lastComma == -1) && whole != "" && !strings.HasPrefix(whole, "0") {
		whole += frac
		frac = ""
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("too many decimal places in %q", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", value, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", value, err)
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}

// FormatCents formats minor units as a decimal string (1299 -> "12.99").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseDecimalCents parses a plain decimal number with a '.' separator, as
// found in JSON, into minor units. Digits beyond the second decimal must be
// zero.
func ParseDecimalCents(value string) (int64, error) {
	s := strings.TrimSpace(value)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid decimal %q", value)
	}
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("too many decimal places in %q", value)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid decimal %q", value)
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}
