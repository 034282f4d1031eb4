package aliexpress

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCountryNotFound means the ship-to dropdown had no selectable entry
	// for the requested country.
	ErrCountryNotFound = errors.New("country not found")

	// ErrCurrencyNotFound means the currency dropdown had no selectable
	// entry for the requested currency.
	ErrCurrencyNotFound = errors.New("currency not found")

	// ErrElementNotFound means a selector the navigation sequence depends on
	// stopped matching; the site markup probably changed.
	ErrElementNotFound = errors.New("element not found")

	// ErrItemPriceNotFound means no candidate selector yielded an item price
	// on the product page.
	ErrItemPriceNotFound = errors.New("item price not found")

	// ErrShippingNotFound means the shipping cost could not be read from the
	// product page.
	ErrShippingNotFound = errors.New("shipping price not found")

	// ErrSettingsNotApplied means the saved country/currency never showed up
	// in the page header within the wait budget.
	ErrSettingsNotApplied = errors.New("site settings were not applied")
)

// ElementError records which selector missed and what the element was for, so
// a markup change can be traced from the log alone.
type ElementError struct {
	URL      string
	Selector string
	Element  string
	Err      error
}

func (e *ElementError) Error() string {
	msg := fmt.Sprintf("%s (selector %q)", e.Element, e.Selector)
	if e.URL != "" {
		msg += " at " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ElementError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrElementNotFound
}

func elementErr(url, selector, element string, err error) *ElementError {
	if err == nil {
		err = ErrElementNotFound
	}
	return &ElementError{URL: url, Selector: selector, Element: element, Err: err}
}

// QuoteError records a failed price lookup together with the selectors that
// were tried, mirroring what gets written into the sheet's status column.
type QuoteError struct {
	URL       string
	Selectors []string
	Err       error
}

func (e *QuoteError) Error() string {
	msg := fmt.Sprintf("quote failed for %s", e.URL)
	if len(e.Selectors) > 0 {
		msg += " (selectors tried: " + strings.Join(e.Selectors, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}
