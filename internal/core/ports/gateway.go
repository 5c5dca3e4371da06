package ports

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrReceiptNotFound is returned by EthGateway.Receipt while a broadcast
// transaction has not been mined yet. The caller treats it as transient.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

// Unspent is one spendable output of a custodial BTC address.
type Unspent struct {
	TxHash string
	Index  uint32
	Value  uint64
}

// BtcGateway is the facade over the UTXO chain node/explorer.
type BtcGateway interface {
	// ListUnspents returns all spendable outputs of an address along with
	// their total value.
	ListUnspents(ctx context.Context, address string) ([]Unspent, uint64, error)
	// RelayFee returns the flat fee (in satoshis) to attach to a sweep.
	RelayFee(ctx context.Context) (uint64, error)
	// BuildAndSend builds a transaction spending all the given outputs of
	// fromAddress to one output of the given amount for toAddress, signs it
	// with the provided key and broadcasts it, returning the tx hash.
	BuildAndSend(
		ctx context.Context,
		unspents []Unspent, fromAddress, toAddress string,
		amount uint64, privKey *btcec.PrivateKey,
	) (string, error)
	// Confirmations returns the number of confirmations of a transaction.
	// An error is a transient signal, including "transaction not found".
	Confirmations(ctx context.Context, txHash string) (int, error)
}

// TxReceipt is the mined outcome of an account-chain transaction.
type TxReceipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
}

// Failed returns whether the chain reports the transaction as reverted.
func (r *TxReceipt) Failed() bool {
	return r.Status == 0
}

// EthGateway is the facade over the account-based chain node.
type EthGateway interface {
	ChainId(ctx context.Context) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, address string) (*big.Int, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	// SendTransfer signs and broadcasts a plain value transfer, returning
	// the tx hash.
	SendTransfer(
		ctx context.Context, privKey *ecdsa.PrivateKey,
		toAddress string, amount, gasPrice *big.Int, nonce uint64,
	) (string, error)
	// SendTokenTransfer signs and broadcasts an ERC20 transfer of the given
	// token contract, returning the tx hash.
	SendTokenTransfer(
		ctx context.Context, privKey *ecdsa.PrivateKey,
		tokenAddress, toAddress string, amount, gasPrice *big.Int, nonce uint64,
	) (string, error)
	// TokenBalance returns the ERC20 balance of holder on the given contract.
	TokenBalance(ctx context.Context, tokenAddress, holderAddress string) (*big.Int, error)
	// Receipt returns the receipt of a broadcast transaction, or
	// ErrReceiptNotFound while it is not mined.
	Receipt(ctx context.Context, txHash string) (*TxReceipt, error)
}
