package domain

import "sort"

// Currency identifies one of the currencies the withdrawal engine can move.
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDT Currency = "USDT"
	CurrencyUSDC Currency = "USDC"
)

var (
	// NativeCurrencies are the chain-native currencies.
	NativeCurrencies = []Currency{CurrencyBTC, CurrencyETH}
	// TokenCurrencies are the ERC20 tokens withdrawable on the ETH chain.
	TokenCurrencies = []Currency{CurrencyUSDT, CurrencyUSDC}
	// AvailableCurrencies is the whole supported set.
	AvailableCurrencies = append(
		append([]Currency{}, NativeCurrencies...), TokenCurrencies...,
	)
)

// IsNative returns whether the currency is a chain-native one.
func (c Currency) IsNative() bool {
	return c == CurrencyBTC || c == CurrencyETH
}

// IsToken returns whether the currency is an ERC20 token.
func (c Currency) IsToken() bool {
	return c == CurrencyUSDT || c == CurrencyUSDC
}

// IsSupported returns whether the currency belongs to the supported set.
func (c Currency) IsSupported() bool {
	return c.IsNative() || c.IsToken()
}

// NormalizeCurrencies deduplicates and sorts the requested currency codes and
// filters out the unsupported ones, returned separately so that the caller
// can log them. A nil or empty request means all supported currencies.
func NormalizeCurrencies(requested []string) ([]Currency, []string) {
	if len(requested) == 0 {
		currencies := make([]Currency, len(AvailableCurrencies))
		copy(currencies, AvailableCurrencies)
		sort.Slice(currencies, func(i, j int) bool {
			return currencies[i] < currencies[j]
		})
		return currencies, nil
	}

	seen := map[Currency]struct{}{}
	currencies := make([]Currency, 0, len(requested))
	var dropped []string
	for _, code := range requested {
		currency := Currency(code)
		if !currency.IsSupported() {
			dropped = append(dropped, code)
			continue
		}
		if _, ok := seen[currency]; ok {
			continue
		}
		seen[currency] = struct{}{}
		currencies = append(currencies, currency)
	}

	sort.Slice(currencies, func(i, j int) bool {
		return currencies[i] < currencies[j]
	})
	return currencies, dropped
}

// ContainsToken returns whether the given set includes at least one token
// currency.
func ContainsToken(currencies []Currency) bool {
	for _, c := range currencies {
		if c.IsToken() {
			return true
		}
	}
	return false
}
