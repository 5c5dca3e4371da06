package application

import (
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

// TokenConfig describes an ERC20 token the engine can withdraw.
type TokenConfig struct {
	Address  string
	Decimals int
}

// Config carries the operator-side parameters of the withdrawal engine:
// destination addresses, the gas funding key and the token registry.
type Config struct {
	BtcWithdrawAddress string
	EthWithdrawAddress string
	GasAddress         string
	GasPrivateKey      *ecdsa.PrivateKey
	Tokens             map[domain.Currency]TokenConfig
	// EthReceiptWindow is how long a broadcast ETH/token transaction may stay
	// unobserved before being flagged sent_tx_not_found.
	EthReceiptWindow time.Duration
	// BtcConfirmWindow is the same window for the BTC chain.
	BtcConfirmWindow time.Duration
}

var (
	// ErrMissingWithdrawAddress ...
	ErrMissingWithdrawAddress = errors.New("withdraw addresses must not be null")
	// ErrMissingGasConfig ...
	ErrMissingGasConfig = errors.New("gas address and gas private key must be set")
	// ErrUnknownToken ...
	ErrUnknownToken = errors.New("token registry contains an unsupported currency")
)

func (c *Config) validate() error {
	if c.BtcWithdrawAddress == "" || c.EthWithdrawAddress == "" {
		return ErrMissingWithdrawAddress
	}
	if c.GasAddress == "" || c.GasPrivateKey == nil {
		return ErrMissingGasConfig
	}
	for currency := range c.Tokens {
		if !currency.IsToken() {
			return ErrUnknownToken
		}
	}
	if c.EthReceiptWindow == 0 {
		c.EthReceiptWindow = 2 * time.Hour
	}
	if c.BtcConfirmWindow == 0 {
		c.BtcConfirmWindow = 3 * time.Hour
	}
	return nil
}
