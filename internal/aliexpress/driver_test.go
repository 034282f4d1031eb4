package aliexpress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyCode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		code     string
		hasError bool
	}{
		{name: "plain entry", text: "EUR ( Euro )", code: "EUR"},
		{name: "padded entry", text: "  USD ( US Dollar )  ", code: "USD"},
		{name: "code only", text: "JPY", code: "JPY"},
		{name: "multibyte lead stays whole", text: "₴₴₴ hryvnia", code: "₴₴₴"},
		{name: "too short", text: "AB", hasError: true},
		{name: "blank", text: "   ", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := currencyCode(tt.text)

			if tt.hasError {
				assert.ErrorIs(t, err, ErrCurrencyNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}
