package aliexpress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kpapadakis/ali-price-checker/internal/models"
	"github.com/kpapadakis/ali-price-checker/internal/parser"
)

// QuotePrice opens the item page and reads the listed price and shipping cost
// under the configured country/currency. Transient failures are retried up to
// MaxRetries times before giving up on the item.
//
// Sold-out items quote zero for both prices, matching how the sheet records
// them.
func (d *Driver) QuotePrice(ctx context.Context, url string, tracking bool) (*models.PriceQuote, error) {
	if d.page == nil {
		return nil, fmt.Errorf("driver not configured")
	}

	item := models.CheckItem{URL: url, Tracking: tracking}
	quote := models.NewQuote(item, d.Currency())

	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if attempt > 0 {
			d.logger.Info("retrying quote", "url", url, "attempt", attempt+1)
			time.Sleep(d.cfg.RetryInterval)
		}

		page, err := d.quoteOnce(ctx, url, tracking)
		if err != nil {
			lastErr = err
			d.logger.Warn("quote attempt failed", "url", url, "attempt", attempt+1, "error", err)
			continue
		}

		if page.SoldOut {
			d.logger.Info("item sold out", "url", url)
			return quote, nil
		}

		quote.ItemPrice = page.ItemPrice
		quote.ShippingPrice = page.ShippingPrice
		if quote.Currency == "" {
			quote.Currency = page.Currency
		}

		d.logger.Info("item quoted",
			"url", url,
			"item_price", quote.ItemPrice,
			"shipping_price", quote.ShippingPrice,
			"currency", quote.Currency,
		)
		return quote, nil
	}

	if d.cfg.Debug {
		if _, err := d.browser.DumpPageSource(d.page, "quote-failure"); err != nil {
			d.logger.Warn("failed to dump page source", "error", err)
		}
	}

	return nil, quoteFailure(url, d.cfg.MaxRetries, lastErr)
}

// quoteFailure wraps the exhausted-retries error with the selector list that
// actually failed: shipping-side misses name the shipping selectors, anything
// else the item price ones.
func quoteFailure(url string, attempts int, lastErr error) *QuoteError {
	selectors := parser.ItemPriceSelectors()
	sentinel := ErrItemPriceNotFound
	if errors.Is(lastErr, ErrShippingNotFound) {
		selectors = parser.ShippingSelectors()
		sentinel = ErrShippingNotFound
	}

	return &QuoteError{
		URL:       url,
		Selectors: selectors,
		Err:       fmt.Errorf("%w after %d attempts: %w", sentinel, attempts, lastErr),
	}
}

// quoteOnce is a single navigate-and-read pass over the item page.
func (d *Driver) quoteOnce(ctx context.Context, url string, tracking bool) (*parser.PageQuote, error) {
	if err := d.browser.NavigateWithRetry(d.page, url, 2); err != nil {
		return nil, err
	}

	// item pages occasionally raise the coupon popup too
	d.closePopups()

	// try the live locators first; the goquery pass over the full HTML is
	// the fallback for markup variants the locators miss
	if tracking {
		d.preferTrackedShipping()
	}

	if quote, ok := d.quoteFromLocators(); ok {
		return quote, nil
	}

	html, err := d.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	quote, err := parser.ParseProductPage(html)
	if err != nil {
		if errors.Is(err, parser.ErrShippingUnreadable) {
			return nil, fmt.Errorf("%w: %v", ErrShippingNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrItemPriceNotFound, err)
	}

	return quote, nil
}

// quoteFromLocators reads price and shipping straight from the live page.
// Returns ok=false when no candidate selector produced a parseable price, in
// which case the HTML fallback runs.
func (d *Driver) quoteFromLocators() (*parser.PageQuote, bool) {
	quote := &parser.PageQuote{}

	priceText, ok := d.firstVisibleText(parser.ItemPriceSelectors())
	if !ok {
		return nil, false
	}

	amount, currency, err := parser.ParsePrice(priceText)
	if err != nil {
		d.logger.Debug("live price text unparseable, falling back", "text", priceText, "error", err)
		return nil, false
	}
	quote.ItemPrice = amount
	quote.Currency = currency

	if shippingText, ok := d.firstVisibleText(parser.ShippingSelectors()); ok {
		cost, err := parser.ParseShipping(shippingText)
		if err != nil {
			d.logger.Debug("live shipping text unparseable, falling back", "text", shippingText, "error", err)
			return nil, false
		}
		quote.ShippingPrice = cost
	}

	return quote, true
}

func (d *Driver) firstVisibleText(selectors []string) (string, bool) {
	for _, selector := range selectors {
		loc := d.page.Locator(selector).First()

		visible, err := loc.IsVisible()
		if err != nil || !visible {
			continue
		}

		text, err := loc.TextContent(playwright.LocatorTextContentOptions{
			Timeout: playwright.Float(1000),
		})
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// preferTrackedShipping opens the shipping options panel and clicks the first
// option mentioning tracking. Best effort: when the panel or option is not
// there the default shipping line is quoted instead.
func (d *Driver) preferTrackedShipping() {
	panel := d.page.Locator(shippingPanelSelector).First()
	if err := panel.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err != nil {
		d.logger.Debug("shipping panel not clickable, keeping default option", "error", err)
		return
	}

	options := d.page.Locator(shippingOptionsSelector)
	count, err := options.Count()
	if err != nil || count == 0 {
		d.logger.Debug("no shipping options listed, keeping default option")
		return
	}

	for i := 0; i < count; i++ {
		option := options.Nth(i)
		text, err := option.TextContent(playwright.LocatorTextContentOptions{
			Timeout: playwright.Float(1000),
		})
		if err != nil {
			continue
		}

		if strings.Contains(strings.ToLower(text), trackedOptionMarker) {
			if err := option.Click(); err != nil {
				d.logger.Debug("failed to select tracked option", "error", err)
			}
			return
		}
	}

	d.logger.Debug("no tracked shipping option found, keeping default")
}
