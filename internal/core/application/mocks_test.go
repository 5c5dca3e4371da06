package application_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
)

type mockBtcGateway struct {
	mock.Mock
}

func (m *mockBtcGateway) ListUnspents(
	ctx context.Context, address string,
) ([]ports.Unspent, uint64, error) {
	args := m.Called(ctx, address)
	var unspents []ports.Unspent
	if args.Get(0) != nil {
		unspents = args.Get(0).([]ports.Unspent)
	}
	return unspents, args.Get(1).(uint64), args.Error(2)
}

func (m *mockBtcGateway) RelayFee(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockBtcGateway) BuildAndSend(
	ctx context.Context, unspents []ports.Unspent, fromAddress, toAddress string,
	amount uint64, privKey *btcec.PrivateKey,
) (string, error) {
	args := m.Called(ctx, unspents, fromAddress, toAddress, amount, privKey)
	return args.String(0), args.Error(1)
}

func (m *mockBtcGateway) Confirmations(ctx context.Context, txHash string) (int, error) {
	args := m.Called(ctx, txHash)
	return args.Int(0), args.Error(1)
}

type mockEthGateway struct {
	mock.Mock
}

func (m *mockEthGateway) ChainId(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEthGateway) GasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEthGateway) Balance(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEthGateway) PendingNonce(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockEthGateway) SendTransfer(
	ctx context.Context, privKey *ecdsa.PrivateKey,
	toAddress string, amount, gasPrice *big.Int, nonce uint64,
) (string, error) {
	args := m.Called(ctx, privKey, toAddress, amount, gasPrice, nonce)
	return args.String(0), args.Error(1)
}

func (m *mockEthGateway) SendTokenTransfer(
	ctx context.Context, privKey *ecdsa.PrivateKey,
	tokenAddress, toAddress string, amount, gasPrice *big.Int, nonce uint64,
) (string, error) {
	args := m.Called(ctx, privKey, tokenAddress, toAddress, amount, gasPrice, nonce)
	return args.String(0), args.Error(1)
}

func (m *mockEthGateway) TokenBalance(
	ctx context.Context, tokenAddress, holderAddress string,
) (*big.Int, error) {
	args := m.Called(ctx, tokenAddress, holderAddress)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEthGateway) Receipt(ctx context.Context, txHash string) (*ports.TxReceipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TxReceipt), args.Error(1)
}

type mockRateSource struct {
	mock.Mock
}

func (m *mockRateSource) Rates(
	ctx context.Context,
) (map[domain.Currency]decimal.Decimal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Currency]decimal.Decimal), args.Error(1)
}

type mockKeySource struct {
	mock.Mock
}

func (m *mockKeySource) DeriveKeys(index uint32) (*btcec.PrivateKey, *ecdsa.PrivateKey, error) {
	args := m.Called(index)
	var btcKey *btcec.PrivateKey
	var ethKey *ecdsa.PrivateKey
	if args.Get(0) != nil {
		btcKey = args.Get(0).(*btcec.PrivateKey)
	}
	if args.Get(1) != nil {
		ethKey = args.Get(1).(*ecdsa.PrivateKey)
	}
	return btcKey, ethKey, args.Error(2)
}

func (m *mockKeySource) DeriveAddresses(index uint32) (string, string, error) {
	args := m.Called(index)
	return args.String(0), args.String(1), args.Error(2)
}
