package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrShippingUnreadable marks a page whose item price parsed fine but whose
// shipping line did not. Callers report it against the shipping selectors,
// not the price ones.
var ErrShippingUnreadable = errors.New("shipping line unreadable")

// Selector lists tried in order against the item page HTML. The site has
// shipped several product page markups; the legacy class names stay at the
// tail until they stop showing up in the wild.
var (
	itemPriceSelectors = []string{
		".product-price-value",
		".uniform-banner-box-price",
		"[class*=\"Price_uniformBannerBoxPrice\"]",
		"[class*=\"price--currentPriceText\"]",
		".p-price .price",
	}

	shippingSelectors = []string{
		".dynamic-shipping-line",
		".product-shipping-price",
		"[class*=\"shipping--fee\"]",
		"[class*=\"dynamic-shipping\"]",
		".p-shipping .cost",
	}

	soldOutMarkers = []string{
		"sold out",
		"this product is no longer available",
		"item no longer available",
	}
)

// PageQuote is what can be read from a product page without driving the
// browser any further.
type PageQuote struct {
	ItemPrice     float64
	ShippingPrice float64
	Currency      string
	SoldOut       bool
}

// ItemPriceSelectors exposes the candidate list for error reporting.
func ItemPriceSelectors() []string {
	return append([]string(nil), itemPriceSelectors...)
}

// ShippingSelectors exposes the candidate list for error reporting.
func ShippingSelectors() []string {
	return append([]string(nil), shippingSelectors...)
}

// ParseProductPage extracts the item and shipping price from a full product
// page HTML snapshot. It is the fallback path for when live locator reads
// come back empty.
func ParseProductPage(html string) (*PageQuote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	quote := &PageQuote{}

	if isSoldOut(doc) {
		quote.SoldOut = true
		return quote, nil
	}

	priceText, ok := firstText(doc, itemPriceSelectors)
	if !ok {
		return nil, fmt.Errorf("item price not found (selectors tried: %s)", strings.Join(itemPriceSelectors, ", "))
	}

	amount, currency, err := ParsePrice(priceText)
	if err != nil {
		return nil, fmt.Errorf("item price text %q: %w", priceText, err)
	}
	quote.ItemPrice = amount
	quote.Currency = currency

	if shippingText, ok := firstText(doc, shippingSelectors); ok {
		cost, err := ParseShipping(shippingText)
		if err != nil {
			return nil, fmt.Errorf("%w: text %q: %v", ErrShippingUnreadable, shippingText, err)
		}
		quote.ShippingPrice = cost
	}
	// a missing shipping line means the seller ships free by default

	return quote, nil
}

func firstText(doc *goquery.Document, selectors []string) (string, bool) {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func isSoldOut(doc *goquery.Document) bool {
	banner := strings.ToLower(doc.Find(".product-status, .sold-out, [class*=\"soldOut\"]").Text())
	if banner == "" {
		return false
	}
	for _, marker := range soldOutMarkers {
		if strings.Contains(banner, marker) {
			return true
		}
	}
	return false
}
