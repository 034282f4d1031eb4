package aliexpress

import "strings"

// Countries and currencies the settings menu is known to accept. The runner
// validates its flags against these before launching a browser; the lists
// match the combo boxes the site itself offers.

var supportedCountries = []string{
	"argentina", "australia", "austria", "belarus", "belgium", "brazil",
	"bulgaria", "canada", "chile", "china", "colombia", "croatia", "cyprus",
	"czech republic", "denmark", "estonia", "finland", "france", "germany",
	"greece", "hong kong", "hungary", "india", "indonesia", "ireland",
	"israel", "italy", "japan", "kazakhstan", "latvia", "lithuania",
	"luxembourg", "malaysia", "malta", "mexico", "netherlands", "new zealand",
	"norway", "pakistan", "peru", "philippines", "poland", "portugal",
	"romania", "russia", "saudi arabia", "singapore", "slovakia", "slovenia",
	"south korea", "spain", "sweden", "switzerland", "thailand", "turkey",
	"ukraine", "united arab emirates", "united kingdom", "united states",
	"vietnam",
}

var supportedCurrencies = []string{
	"aud", "brl", "cad", "chf", "clp", "czk", "dkk", "eur", "gbp", "hkd",
	"huf", "idr", "ils", "inr", "jpy", "krw", "mxn", "myr", "nok", "nzd",
	"php", "pln", "rub", "sek", "sgd", "thb", "try", "uah", "usd", "vnd",
}

// NormalizeCountry lowercases and trims a country name the way the settings
// search input expects it.
func NormalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}

// NormalizeCurrency lowercases and trims a currency code. Both "EUR" and
// "eur" are accepted on input.
func NormalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

func IsSupportedCountry(country string) bool {
	country = NormalizeCountry(country)
	for _, c := range supportedCountries {
		if c == country {
			return true
		}
	}
	return false
}

func IsSupportedCurrency(currency string) bool {
	currency = NormalizeCurrency(currency)
	for _, c := range supportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// SupportedCountries returns a copy of the country catalog.
func SupportedCountries() []string {
	return append([]string(nil), supportedCountries...)
}

// SupportedCurrencies returns a copy of the currency catalog.
func SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}
