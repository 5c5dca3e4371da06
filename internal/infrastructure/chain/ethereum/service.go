package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
	"github.com/DucatusX/gold-crowdsale-backend/pkg/circuitbreaker"
)

const (
	transferGasLimit      = 21000
	tokenTransferGasLimit = 200000
)

const erc20ABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	}
]`

type service struct {
	client  *ethclient.Client
	abi     abi.ABI
	chainId *big.Int
	cb      *gobreaker.CircuitBreaker
}

// NewService dials the given node RPC endpoint and returns an implementation
// of ports.EthGateway.
func NewService(rpcURL string) (ports.EthGateway, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	chainId, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chain id: %w", err)
	}

	return &service{
		client:  client,
		abi:     parsedABI,
		chainId: chainId,
		cb:      circuitbreaker.NewCircuitBreaker(),
	}, nil
}

func (s *service) ChainId(ctx context.Context) (*big.Int, error) {
	return s.chainId, nil
}

func (s *service) GasPrice(ctx context.Context) (*big.Int, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*big.Int), nil
}

func (s *service) Balance(ctx context.Context, address string) (*big.Int, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	})
	if err != nil {
		return nil, err
	}
	return res.(*big.Int), nil
}

func (s *service) PendingNonce(ctx context.Context, address string) (uint64, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.PendingNonceAt(ctx, common.HexToAddress(address))
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}

func (s *service) SendTransfer(
	ctx context.Context, privKey *ecdsa.PrivateKey,
	toAddress string, amount, gasPrice *big.Int, nonce uint64,
) (string, error) {
	tx := types.NewTransaction(
		nonce, common.HexToAddress(toAddress), amount,
		transferGasLimit, gasPrice, nil,
	)
	return s.signAndSend(ctx, tx, privKey)
}

func (s *service) SendTokenTransfer(
	ctx context.Context, privKey *ecdsa.PrivateKey,
	tokenAddress, toAddress string, amount, gasPrice *big.Int, nonce uint64,
) (string, error) {
	data, err := s.abi.Pack("transfer", common.HexToAddress(toAddress), amount)
	if err != nil {
		return "", err
	}

	tx := types.NewTransaction(
		nonce, common.HexToAddress(tokenAddress), big.NewInt(0),
		tokenTransferGasLimit, gasPrice, data,
	)
	return s.signAndSend(ctx, tx, privKey)
}

func (s *service) TokenBalance(
	ctx context.Context, tokenAddress, holderAddress string,
) (*big.Int, error) {
	data, err := s.abi.Pack("balanceOf", common.HexToAddress(holderAddress))
	if err != nil {
		return nil, err
	}

	contract := common.HexToAddress(tokenAddress)
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.CallContract(ctx, ethereum.CallMsg{
			To:   &contract,
			Data: data,
		}, nil)
	})
	if err != nil {
		return nil, err
	}

	out, err := s.abi.Unpack("balanceOf", res.([]byte))
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected balanceOf response")
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf response")
	}
	return balance, nil
}

func (s *service) Receipt(ctx context.Context, txHash string) (*ports.TxReceipt, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		receipt, err := s.client.TransactionReceipt(ctx, common.HexToHash(txHash))
		if err != nil {
			// A missing receipt is regular polling, not a node failure.
			if errors.Is(err, ethereum.NotFound) {
				return (*types.Receipt)(nil), nil
			}
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	receipt := res.(*types.Receipt)
	if receipt == nil {
		return nil, ports.ErrReceiptNotFound
	}
	return &ports.TxReceipt{
		TxHash:      receipt.TxHash.Hex(),
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (s *service) signAndSend(
	ctx context.Context, tx *types.Transaction, privKey *ecdsa.PrivateKey,
) (string, error) {
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(s.chainId), privKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if _, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.SendTransaction(ctx, signedTx)
	}); err != nil {
		return "", err
	}
	return signedTx.Hash().Hex(), nil
}
