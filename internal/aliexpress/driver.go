package aliexpress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kpapadakis/ali-price-checker/internal/browser"
)

// DriverConfig controls one configured browsing session.
type DriverConfig struct {
	// Country to ship to; empty keeps the site default.
	Country string
	// Currency to show prices in; empty keeps the site default.
	Currency string
	// Debug dumps the page HTML when the settings verification times out.
	Debug bool
	// MaxRetries bounds per-item quote attempts.
	MaxRetries int
	// RetryInterval is the pause between quote attempts.
	RetryInterval time.Duration
	// SettingsWait bounds the post-save verification of the header badges.
	SettingsWait time.Duration
}

func (c *DriverConfig) withDefaults() DriverConfig {
	out := *c
	if out.MaxRetries == 0 {
		out.MaxRetries = 5
	}
	if out.RetryInterval == 0 {
		out.RetryInterval = 500 * time.Millisecond
	}
	if out.SettingsWait == 0 {
		out.SettingsWait = 5 * time.Second
	}
	return out
}

// Driver holds a page configured for one country/currency pair and quotes
// item prices against it.
type Driver struct {
	browser *browser.Browser
	page    playwright.Page
	cfg     DriverConfig
	logger  *slog.Logger

	// set during Configure
	currency  string
	flagClass string
}

// NewDriver validates the requested settings and prepares a driver. Configure
// must be called before quoting.
func NewDriver(b *browser.Browser, cfg DriverConfig, logger *slog.Logger) (*Driver, error) {
	if cfg.Country != "" && !IsSupportedCountry(cfg.Country) {
		return nil, fmt.Errorf("%w: %q", ErrCountryNotFound, cfg.Country)
	}
	if cfg.Currency != "" && !IsSupportedCurrency(cfg.Currency) {
		return nil, fmt.Errorf("%w: %q", ErrCurrencyNotFound, cfg.Currency)
	}

	return &Driver{
		browser: b,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "aliexpress"),
	}, nil
}

// Currency returns the ISO code the site settled on, known after Configure.
func (d *Driver) Currency() string {
	return strings.ToUpper(d.currency)
}

// Close closes the driver's page; the browser itself is owned by the caller.
func (d *Driver) Close() error {
	if d.page == nil {
		return nil
	}
	return d.page.Close()
}

// Reset discards the page and runs the settings sequence again. Used after
// repeated quote failures, when the session state is suspect.
func (d *Driver) Reset(ctx context.Context) error {
	d.logger.Info("resetting driver")
	if err := d.Close(); err != nil {
		d.logger.Warn("failed to close page during reset", "error", err)
	}
	d.page = nil
	return d.Configure(ctx)
}

// Configure opens the landing page, closes the startup popups, selects the
// ship-to country and display currency in the settings menu, injects the
// no-bonus cookie, saves, and waits until the header reflects the selection.
func (d *Driver) Configure(ctx context.Context) error {
	d.logger.Info("setting up driver", "country", d.cfg.Country, "currency", d.cfg.Currency)

	page, err := d.browser.NewPage()
	if err != nil {
		return err
	}
	d.page = page

	if err := d.browser.NavigateWithRetry(page, BaseURL, 3); err != nil {
		return err
	}

	d.closePopups()

	if d.cfg.Country == "" && d.cfg.Currency == "" {
		d.logger.Info("keeping site default settings")
		return nil
	}

	if err := d.openSettingsMenu(); err != nil {
		// a popup raced the click; close again and retry once, failing for
		// real the second time
		d.logger.Info("settings menu click intercepted, closing popups again")
		d.closePopups()
		if err := d.openSettingsMenu(); err != nil {
			return err
		}
	}

	if d.cfg.Country != "" {
		flagClass, err := d.selectCountry(NormalizeCountry(d.cfg.Country))
		if err != nil {
			return d.failSetup(err)
		}
		d.flagClass = flagClass
	}

	if d.cfg.Currency != "" {
		code, err := d.selectCurrency(NormalizeCurrency(d.cfg.Currency))
		if err != nil {
			return d.failSetup(err)
		}
		d.currency = code
	}

	if err := d.injectNoBonusCookie(ctx); err != nil {
		d.logger.Warn("failed to inject no-bonus cookie", "error", err)
	}

	if err := d.saveSettings(); err != nil {
		return d.failSetup(err)
	}

	// the page reloads on save; verify the header badges before trusting
	// any quote
	if err := d.waitForSettings(ctx); err != nil {
		return d.failSetup(err)
	}

	d.logger.Info("driver setup complete", "currency", d.Currency())
	return nil
}

// failSetup dumps the page for inspection when debug is on and hands the
// error back.
func (d *Driver) failSetup(err error) error {
	if d.cfg.Debug && d.page != nil {
		if _, dumpErr := d.browser.DumpPageSource(d.page, "driver-setup"); dumpErr != nil {
			d.logger.Warn("failed to dump page source", "error", dumpErr)
		}
	}
	return err
}

// closePopups dismisses whatever startup popups showed up. Absent popups are
// skipped; an intercepted close is retried on the next pass.
func (d *Driver) closePopups() {
	d.logger.Debug("closing popups")

	for _, popup := range startupPopups {
		loc := d.page.Locator(popup.selector).First()

		if err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(3000),
		}); err != nil {
			d.logger.Debug("popup not present, skipping", "popup", popup.name)
			continue
		}

		if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)}); err != nil {
			d.logger.Info("failed to close popup, will retry if it intercepts", "popup", popup.name, "error", err)
		}
	}
}

func (d *Driver) openSettingsMenu() error {
	loc := d.page.Locator(settingsMenuSelector)
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return elementErr(BaseURL, settingsMenuSelector, "settings menu", err)
	}
	return nil
}

// selectCountry picks the first visible, selectable dropdown entry after
// typing the country into the filter input. Returns the flag class the
// header will carry once the selection is saved.
func (d *Driver) selectCountry(country string) (string, error) {
	d.logger.Info("selecting country", "country", country)

	dropdown := d.page.Locator(countryDropdownSelector).First()
	if err := dropdown.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(3000),
	}); err != nil {
		return "", elementErr(BaseURL, countryDropdownSelector, "country list dropdown", err)
	}
	if err := dropdown.Click(); err != nil {
		return "", elementErr(BaseURL, countryDropdownSelector, "country list dropdown", err)
	}

	input := d.page.Locator(countryInputSelector).First()
	if err := input.Click(); err != nil {
		return "", elementErr(BaseURL, countryInputSelector, "country input", err)
	}
	if err := input.Fill(country); err != nil {
		return "", elementErr(BaseURL, countryInputSelector, "country input", err)
	}

	items := d.page.Locator(countryItemSelector)
	count, err := items.Count()
	if err != nil || count == 0 {
		return "", elementErr(BaseURL, countryItemSelector, "country list element", err)
	}

	for i := 0; i < count; i++ {
		item := items.Nth(i)

		// entries without data-name are group separators
		dataName, _ := item.GetAttribute("data-name")
		if dataName == "" {
			continue
		}

		// filtered-out entries stay in the DOM with display: none
		style, _ := item.GetAttribute("style")
		if strings.Contains(style, "display: none") {
			continue
		}

		dataCode, _ := item.GetAttribute("data-code")
		if err := item.Click(); err != nil {
			return "", elementErr(BaseURL, countryItemSelector, "country list element", err)
		}

		return "css_" + strings.ToLower(dataCode), nil
	}

	return "", fmt.Errorf("%w: %q", ErrCountryNotFound, country)
}

// selectCurrency picks the first visible currency after typing into the
// search input. Returns the ISO code taken from the entry's text.
func (d *Driver) selectCurrency(currency string) (string, error) {
	d.logger.Info("selecting currency", "currency", currency)

	// the second .select-item in the menu is the currency dropdown
	dropdowns := d.page.Locator(currencyDropdownSelector)
	count, err := dropdowns.Count()
	if err != nil || count < 2 {
		return "", elementErr(BaseURL, currencyDropdownSelector, "currency list dropdown", err)
	}
	if err := dropdowns.Nth(1).Click(); err != nil {
		return "", elementErr(BaseURL, currencyDropdownSelector, "currency list dropdown", err)
	}

	input, err := d.currencyInput()
	if err != nil {
		return "", err
	}
	if err := input.Click(); err != nil {
		return "", elementErr(BaseURL, currencyInputSelector, "currency input", err)
	}
	if err := input.Fill(currency); err != nil {
		return "", elementErr(BaseURL, currencyInputSelector, "currency input", err)
	}

	// the second .switcher-currency-c holds the result list
	lists := d.page.Locator(currencyListSelector)
	listCount, err := lists.Count()
	if err != nil || listCount < 2 {
		return "", elementErr(BaseURL, currencyListSelector, "currency list parent", err)
	}

	entries := lists.Nth(1).Locator("ul > li")
	entryCount, err := entries.Count()
	if err != nil || entryCount == 0 {
		return "", elementErr(BaseURL, currencyListSelector, "currency list items", err)
	}

	for i := 0; i < entryCount; i++ {
		entry := entries.Nth(i)

		text, err := entry.TextContent()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			// hidden entries report empty text
			continue
		}

		if err := entry.Click(); err != nil {
			return "", elementErr(BaseURL, currencyListSelector, "currency list items", err)
		}

		return currencyCode(text)
	}

	return "", fmt.Errorf("%w: %q", ErrCurrencyNotFound, currency)
}

// currencyCode reads the ISO code leading a dropdown entry's text, e.g.
// "EUR ( Euro )". Counted in runes so a symbol-led entry does not get split
// mid-character.
func currencyCode(text string) (string, error) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) < 3 {
		return "", fmt.Errorf("%w: unexpected entry text %q", ErrCurrencyNotFound, text)
	}
	return string(runes[:3]), nil
}

// currencyInput finds the search box among the .search-currency elements; the
// one without a data-role attribute is the real input.
func (d *Driver) currencyInput() (playwright.Locator, error) {
	inputs := d.page.Locator(currencyInputSelector)
	count, err := inputs.Count()
	if err != nil || count == 0 {
		return nil, elementErr(BaseURL, currencyInputSelector, "currency input", err)
	}

	for i := 0; i < count; i++ {
		input := inputs.Nth(i)
		role, _ := input.GetAttribute("data-role")
		if role == "" {
			return input, nil
		}
	}

	return nil, elementErr(BaseURL, currencyInputSelector, "currency input", nil)
}

// injectNoBonusCookie sets the cookie that hides new-user bonus pricing. An
// existing cookie keeps its attributes and only the value is replaced.
func (d *Driver) injectNoBonusCookie(ctx context.Context) error {
	cookies, err := d.browser.Context().Cookies(BaseURL)
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	cookie := playwright.OptionalCookie{
		Name:  noBonusCookieName,
		Value: noBonusCookieValue,
		URL:   playwright.String(BaseURL),
	}

	for _, existing := range cookies {
		if existing.Name == noBonusCookieName {
			cookie.URL = nil
			cookie.Domain = playwright.String(existing.Domain)
			cookie.Path = playwright.String(existing.Path)
			cookie.Expires = playwright.Float(existing.Expires)
			break
		}
	}

	if err := d.browser.Context().AddCookies([]playwright.OptionalCookie{cookie}); err != nil {
		return fmt.Errorf("failed to add cookie: %w", err)
	}

	return nil
}

func (d *Driver) saveSettings() error {
	loc := d.page.Locator(saveButtonSelector).First()
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return elementErr(BaseURL, saveButtonSelector, "save button", err)
	}
	// no need to close the menu: the page reloads on save
	return nil
}

// waitForSettings polls the header badges until the selected currency code
// and country flag show up, or the wait budget runs out.
func (d *Driver) waitForSettings(ctx context.Context) error {
	deadline := time.Now().Add(d.cfg.SettingsWait)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok := true

		if d.currency != "" {
			text, err := d.page.Locator(currencyBadgeSelector).First().TextContent(
				playwright.LocatorTextContentOptions{Timeout: playwright.Float(1000)})
			if err != nil || !strings.Contains(text, d.currency) {
				ok = false
			}
		}

		if ok && d.flagClass != "" {
			class, err := d.page.Locator(shipToBadgeSelector+" > *").First().GetAttribute(
				"class", playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(1000)})
			if err != nil || !strings.Contains(class, d.flagClass) {
				ok = false
			}
		}

		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: wanted currency %q and flag %q", ErrSettingsNotApplied, d.currency, d.flagClass)
		}

		time.Sleep(250 * time.Millisecond)
	}
}
