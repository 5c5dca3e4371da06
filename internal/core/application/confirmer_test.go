package application_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
)

func TestConfirmEthTx(t *testing.T) {
	ctx := context.Background()

	newPendingRefill := func(t *testing.T, relayedAt time.Time) (*testEnv, *domain.WithdrawalTx) {
		env := newTestEnv(t)
		env.registerAccount(t)
		cycle, err := env.svc.CreateWithdrawCycle(ctx, []string{"USDT"})
		require.NoError(t, err)

		refill := env.findTx(t, cycle.Id, domain.TxTypeGasRefill, domain.CurrencyETH)
		env.applyTx(t, refill.Id, func(tx *domain.WithdrawalTx) error {
			return tx.MarkBroadcast("0xrefill", relayedAt)
		})
		return env, env.getTx(t, refill.Id)
	}

	t.Run("completes_on_successful_receipt", func(t *testing.T) {
		env, tx := newPendingRefill(t, time.Now())
		env.ethGateway.On("Receipt", mock.Anything, "0xrefill").
			Return(&ports.TxReceipt{TxHash: "0xrefill", Status: 1, BlockNumber: 10}, nil)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxCompleted, env.getTx(t, tx.Id).Status)
	})

	t.Run("fails_on_reverted_receipt", func(t *testing.T) {
		env, tx := newPendingRefill(t, time.Now())
		env.ethGateway.On("Receipt", mock.Anything, "0xrefill").
			Return(&ports.TxReceipt{TxHash: "0xrefill", Status: 0, BlockNumber: 10}, nil)

		env.svc.ConfirmSelector(ctx, tx)

		stored := env.getTx(t, tx.Id)
		require.Equal(t, domain.TxFailed, stored.Status)
		require.Equal(t, "reverted", stored.ErrorMessage)
	})

	t.Run("retries_while_receipt_missing_within_window", func(t *testing.T) {
		env, tx := newPendingRefill(t, time.Now())
		env.ethGateway.On("Receipt", mock.Anything, "0xrefill").
			Return(nil, ports.ErrReceiptNotFound)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxPending, env.getTx(t, tx.Id).Status)
	})

	t.Run("flags_stalled_transaction", func(t *testing.T) {
		env, tx := newPendingRefill(t, time.Now().Add(-3*time.Hour))
		env.ethGateway.On("Receipt", mock.Anything, "0xrefill").
			Return(nil, ports.ErrReceiptNotFound)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxSentNotFound, env.getTx(t, tx.Id).Status)
	})
}

func TestConfirmBtcTx(t *testing.T) {
	ctx := context.Background()

	newPendingBtcTx := func(t *testing.T, relayedAt time.Time) (*testEnv, *domain.WithdrawalTx) {
		env := newTestEnv(t)
		env.registerAccount(t)
		cycle, err := env.svc.CreateWithdrawCycle(ctx, []string{"BTC"})
		require.NoError(t, err)

		tx := env.findTx(t, cycle.Id, domain.TxTypeNative, domain.CurrencyBTC)
		env.applyTx(t, tx.Id, func(tx *domain.WithdrawalTx) error {
			return tx.MarkBroadcast("btctxhash", relayedAt)
		})
		return env, env.getTx(t, tx.Id)
	}

	t.Run("completes_past_min_confirmations", func(t *testing.T) {
		env, tx := newPendingBtcTx(t, time.Now())
		env.btcGateway.On("Confirmations", mock.Anything, "btctxhash").Return(4, nil)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxCompleted, env.getTx(t, tx.Id).Status)
	})

	t.Run("waits_below_min_confirmations", func(t *testing.T) {
		env, tx := newPendingBtcTx(t, time.Now())
		env.btcGateway.On("Confirmations", mock.Anything, "btctxhash").Return(3, nil)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxPending, env.getTx(t, tx.Id).Status)
	})

	t.Run("flags_transaction_unseen_past_window", func(t *testing.T) {
		env, tx := newPendingBtcTx(t, time.Now().Add(-4*time.Hour))
		env.btcGateway.On("Confirmations", mock.Anything, "btctxhash").
			Return(0, errUnreachable)

		env.svc.ConfirmSelector(ctx, tx)

		require.Equal(t, domain.TxSentNotFound, env.getTx(t, tx.Id).Status)
	})
}

// TestRunPassTokenCycle drives a single-account USDT cycle through consecutive
// passes until completion.
func TestRunPassTokenCycle(t *testing.T) {
	ctx := context.Background()
	gasPrice := big.NewInt(1_000_000_000)

	env := newTestEnv(t)
	account := env.registerAccount(t)

	btcKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	ethKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	env.keySource.On("DeriveKeys", account.Index).Return(btcKey, ethKey, nil)

	cycle, err := env.svc.CreateWithdrawCycle(ctx, []string{"USDT"})
	require.NoError(t, err)

	env.ethGateway.On("GasPrice", mock.Anything).Return(gasPrice, nil)
	env.rateSource.On("Rates", mock.Anything).Return(map[domain.Currency]decimal.Decimal{
		domain.CurrencyETH:  decimal.NewFromInt(2000),
		domain.CurrencyUSDT: decimal.NewFromInt(1),
	}, nil)
	tokenBalance := big.NewInt(100_000_000)
	env.ethGateway.On("TokenBalance", mock.Anything, testUsdtContract, mock.Anything).
		Return(tokenBalance, nil)
	env.ethGateway.On("Balance", mock.Anything, mock.Anything).Return(big.NewInt(0), nil)
	env.ethGateway.On("PendingNonce", mock.Anything, mock.Anything).Return(uint64(0), nil)
	env.ethGateway.On(
		"SendTransfer", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything,
	).Return("0xrefill", nil)
	env.ethGateway.On("Receipt", mock.Anything, "0xrefill").
		Return(&ports.TxReceipt{TxHash: "0xrefill", Status: 1, BlockNumber: 10}, nil)
	env.ethGateway.On(
		"SendTokenTransfer", mock.Anything, ethKey, testUsdtContract,
		testEthWithdrawAddress, tokenBalance, gasPrice, uint64(0),
	).Return("0xtoken", nil)
	env.ethGateway.On("Receipt", mock.Anything, "0xtoken").
		Return(&ports.TxReceipt{TxHash: "0xtoken", Status: 1, BlockNumber: 11}, nil)

	// First pass: the refill is authorized, broadcast and confirmed; the token
	// transfer waits for it.
	require.NoError(t, env.svc.RunPass(ctx))
	refill := env.findTx(t, cycle.Id, domain.TxTypeGasRefill, domain.CurrencyETH)
	require.Equal(t, domain.TxCompleted, refill.Status)

	// Second pass: the token transfer goes out and confirms, closing the cycle.
	require.NoError(t, env.svc.RunPass(ctx))
	tokenTx := env.findTx(t, cycle.Id, domain.TxTypeToken, domain.CurrencyUSDT)
	require.Equal(t, domain.TxCompleted, tokenTx.Status)

	stored, err := env.repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
	require.NoError(t, err)
	require.True(t, stored.IsCompleted())
}

// TestRunPassEmptyCycle checks a cycle planning no transactions completes on
// the first pass.
func TestRunPassEmptyCycle(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t)
	cycle, err := env.svc.CreateWithdrawCycle(ctx, []string{"BTC"})
	require.NoError(t, err)
	require.Equal(t, domain.CyclePending, cycle.Status)

	require.NoError(t, env.svc.RunPass(ctx))

	stored, err := env.repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
	require.NoError(t, err)
	require.True(t, stored.IsCompleted())
}
