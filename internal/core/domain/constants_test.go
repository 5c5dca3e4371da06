package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

func TestNormalizeCurrencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		requested       []string
		wantCurrencies  []domain.Currency
		wantDropped     []string
		wantHasToken    bool
	}{
		{
			name:      "with_empty_request",
			requested: nil,
			wantCurrencies: []domain.Currency{
				domain.CurrencyBTC, domain.CurrencyETH,
				domain.CurrencyUSDC, domain.CurrencyUSDT,
			},
			wantHasToken: true,
		},
		{
			name:           "with_duplicates",
			requested:      []string{"BTC", "BTC", "USDT"},
			wantCurrencies: []domain.Currency{domain.CurrencyBTC, domain.CurrencyUSDT},
			wantHasToken:   true,
		},
		{
			name:           "with_unsupported_codes",
			requested:      []string{"BTC", "DOGE", "XRP"},
			wantCurrencies: []domain.Currency{domain.CurrencyBTC},
			wantDropped:    []string{"DOGE", "XRP"},
		},
		{
			name:           "with_unsorted_request",
			requested:      []string{"ETH", "BTC"},
			wantCurrencies: []domain.Currency{domain.CurrencyBTC, domain.CurrencyETH},
		},
		{
			name:        "with_only_unsupported_codes",
			requested:   []string{"DOGE"},
			wantDropped: []string{"DOGE"},
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			currencies, dropped := domain.NormalizeCurrencies(tt.requested)
			require.Equal(t, tt.wantCurrencies, currencies)
			require.Equal(t, tt.wantDropped, dropped)
			require.Equal(t, tt.wantHasToken, domain.ContainsToken(currencies))
		})
	}
}

func TestCurrencyKind(t *testing.T) {
	t.Parallel()

	require.True(t, domain.CurrencyBTC.IsNative())
	require.True(t, domain.CurrencyETH.IsNative())
	require.True(t, domain.CurrencyUSDT.IsToken())
	require.True(t, domain.CurrencyUSDC.IsToken())
	require.False(t, domain.Currency("DOGE").IsSupported())
	for _, currency := range domain.AvailableCurrencies {
		require.True(t, currency.IsSupported())
	}
}
