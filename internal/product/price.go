package product

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid price")

var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// ParsePrice turns a display price such as "₽ 33 999", "$1,299.00" or
// "12,50 €" into a number.
func ParsePrice(raw string) (float64, error) {
	clean := nonPriceChars.ReplaceAllString(raw, "")
	clean = strings.Trim(clean, ".,")
	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}

	// With both separators the last one is decimal. A lone trailing ",dd" is
	// a decimal comma, any other comma groups thousands.
	lastComma, lastDot := strings.LastIndexByte(clean, ','), strings.LastIndexByte(clean, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		clean = strings.ReplaceAll(clean[:lastComma], ".", "") + "." + clean[lastComma+1:]
	case lastComma >= 0 && lastDot < 0 && len(clean)-lastComma-1 == 2:
		clean = clean[:lastComma] + "." + clean[lastComma+1:]
	}
	clean = strings.ReplaceAll(clean, ",", "")
	if strings.Count(clean, ".") > 1 {
		last := strings.LastIndexByte(clean, '.')
		clean = strings.ReplaceAll(clean[:last], ".", "") + clean[last:]
	}

	price, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return price, nil
}

var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"₽", "RUB"}, {"руб", "RUB"}, {"Руб", "RUB"}, {"RUB", "RUB"},
	{"$", "USD"}, {"USD", "USD"},
	{"€", "EUR"}, {"EUR", "EUR"},
	{"£", "GBP"}, {"GBP", "GBP"},
}

// DetectCurrency returns the ISO code of the first currency marker in text,
// or "" if there is none. Codes match case-sensitively.
func DetectCurrency(text string) string {
	for _, m := range currencyMarkers {
		if strings.Contains(text, m.marker) {
			return m.code
		}
	}
	return ""
}

// FindPrice scans card texts for the first one carrying a currency marker and
// a parsable amount. Texts without a marker are ignored so that model numbers
// and review counts are not mistaken for prices.
func FindPrice(texts []string) (float64, string, bool) {
	for _, text := range texts {
		currency := DetectCurrency(text)
		if currency == "" {
			continue
		}
		if price, err := ParsePrice(text); err == nil && price > 0 {
			return price, currency, true
		}
	}
	return 0, "", false
}
