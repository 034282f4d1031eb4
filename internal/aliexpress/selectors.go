package aliexpress

// BaseURL is the landing page where the ship-to / currency settings live.
const BaseURL = "https://www.aliexpress.com/"

// Startup popups, in the order they tend to stack. Each one is optional; a
// popup that never shows up is skipped after a short wait.
var startupPopups = []struct {
	name     string
	selector string
}{
	{"cookies", ".btn-accept"},
	{"notifications", "._24EHh"},
	{"welcome", ".btn-close"},
}

// Settings menu navigation. All of these are fixed class names or IDs in the
// site header; when one goes stale the resulting ElementError names it.
const (
	settingsMenuSelector     = "#switcher-info"
	countryDropdownSelector  = ".address-select-trigger"
	countryInputSelector     = ".filter-input"
	countryItemSelector      = ".address-select-item"
	currencyDropdownSelector = ".select-item"
	currencyInputSelector    = ".search-currency"
	currencyListSelector     = ".switcher-currency-c"
	saveButtonSelector       = ".ui-button"

	// header badges used to verify the settings took effect after the save
	// reload
	currencyBadgeSelector = ".currency"
	shipToBadgeSelector   = ".ship-to"
)

// Shipping panel on the product page. Tracked shipping options carry
// "tracking" in their description.
const (
	shippingPanelSelector   = "[class*=\"dynamic-shipping\"]"
	shippingOptionsSelector = ".product-shipping-list .shipping-item"
	trackedOptionMarker     = "tracking"
)

// The new-user bonus banner skews first-visit prices; this cookie keeps it
// out of the quotes.
const (
	noBonusCookieName  = "ali_new_user_bonus"
	noBonusCookieValue = "close"
)
