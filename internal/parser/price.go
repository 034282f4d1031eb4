package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches a price figure with optional thousands separators and
// an optional decimal part, e.g. "4.12", "4,12", "1.234,56", "1,234.56".
var amountPattern = regexp.MustCompile(`\d+(?:[.,\s]\d{3})*(?:[.,]\d{1,2})?`)

// currency symbols and codes as they appear in the price banner, longest
// prefixes first so "HK$" wins over "$".
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"US $", "USD"},
	{"AU $", "AUD"},
	{"CA $", "CAD"},
	{"HK$", "HKD"},
	{"NZ$", "NZD"},
	{"R$", "BRL"},
	{"zł", "PLN"},
	{"kr", "SEK"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₽", "RUB"},
	{"₴", "UAH"},
	{"¥", "JPY"},
	{"₩", "KRW"},
	{"₹", "INR"},
	{"$", "USD"},
}

var isoCodePattern = regexp.MustCompile(`\b([A-Z]{3})\b`)

// ParsePrice extracts the first price figure from a scraped text fragment and
// the currency it is denominated in, when one can be told apart. Price ranges
// ("4,12 - 7,30") yield the low end.
func ParsePrice(text string) (float64, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", fmt.Errorf("empty price text")
	}

	currency := detectCurrency(text)

	match := amountPattern.FindString(text)
	if match == "" {
		return 0, currency, fmt.Errorf("no price figure in %q", text)
	}

	amount, err := parseAmount(match)
	if err != nil {
		return 0, currency, err
	}

	return amount, currency, nil
}

// ParseShipping turns a shipping line into a cost. Free shipping wording in
// the markups seen so far quotes zero.
func ParseShipping(text string) (float64, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return 0, fmt.Errorf("empty shipping text")
	}

	freeMarkers := []string{
		"free shipping",
		"free delivery",
		"free standard shipping",
		"shipping: free",
	}
	for _, marker := range freeMarkers {
		if strings.Contains(normalized, marker) {
			return 0, nil
		}
	}

	amount, _, err := ParsePrice(text)
	if err != nil {
		return 0, fmt.Errorf("unrecognized shipping text %q: %w", text, err)
	}

	return amount, nil
}

func detectCurrency(text string) string {
	for _, m := range currencyMarkers {
		if strings.Contains(text, m.marker) {
			return m.code
		}
	}

	if match := isoCodePattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}

	return ""
}

// parseAmount normalizes a matched figure to a float. The last separator
// followed by one or two digits is the decimal point; everything else is
// grouping.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	sep := lastDot
	if lastComma > sep {
		sep = lastComma
	}

	if sep >= 0 {
		decimals := len(s) - sep - 1
		if decimals >= 1 && decimals <= 2 {
			intPart := s[:sep]
			fracPart := s[sep+1:]
			intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
			s = intPart + "." + fracPart
		} else {
			// separators are grouping only
			s = strings.NewReplacer(".", "", ",", "").Replace(s)
		}
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}

	return amount, nil
}
