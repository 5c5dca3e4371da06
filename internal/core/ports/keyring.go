package ports

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcec/v2"
)

// KeySource derives the per-account signing keys from the master key. The
// derivation is a deterministic, pure function of the account index.
type KeySource interface {
	// DeriveKeys returns the BTC and ETH signing keys of an account.
	DeriveKeys(index uint32) (*btcec.PrivateKey, *ecdsa.PrivateKey, error)
	// DeriveAddresses returns the BTC and ETH addresses of an account.
	DeriveAddresses(index uint32) (btcAddress, ethAddress string, err error)
}
