package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a purchaser's custodial account. Index is the BIP32 child index
// its per-chain keys are derived from; the addresses are stored so that the
// engine never needs the keys to read balances.
type Account struct {
	Id         string
	Index      uint32
	BtcAddress string
	EthAddress string
	CreatedAt  time.Time
}

// NewAccount returns an account bound to a derivation index and the
// addresses derived from it.
func NewAccount(index uint32, btcAddress, ethAddress string) *Account {
	return &Account{
		Id:         uuid.New().String(),
		Index:      index,
		BtcAddress: btcAddress,
		EthAddress: ethAddress,
		CreatedAt:  time.Now(),
	}
}
