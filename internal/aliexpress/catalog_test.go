package aliexpress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupportedCountry(t *testing.T) {
	assert.True(t, IsSupportedCountry("greece"))
	assert.True(t, IsSupportedCountry("Greece"))
	assert.True(t, IsSupportedCountry("  United States  "))
	assert.False(t, IsSupportedCountry("atlantis"))
	assert.False(t, IsSupportedCountry(""))
}

func TestIsSupportedCurrency(t *testing.T) {
	assert.True(t, IsSupportedCurrency("eur"))
	assert.True(t, IsSupportedCurrency("EUR"))
	assert.True(t, IsSupportedCurrency("hKd"))
	assert.False(t, IsSupportedCurrency("xyz"))
	assert.False(t, IsSupportedCurrency(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hong kong", NormalizeCountry(" Hong Kong "))
	assert.Equal(t, "usd", NormalizeCurrency("USD"))
}

func TestCatalogCopies(t *testing.T) {
	countries := SupportedCountries()
	countries[0] = "mutated"
	assert.NotEqual(t, "mutated", SupportedCountries()[0])

	currencies := SupportedCurrencies()
	currencies[0] = "mutated"
	assert.NotEqual(t, "mutated", SupportedCurrencies()[0])
}
