package dbbadger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
	dbbadger "github.com/DucatusX/gold-crowdsale-backend/internal/infrastructure/storage/db/badger"
)

func newTestRepoManager(t *testing.T) ports.RepoManager {
	repoManager, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(repoManager.Close)
	return repoManager
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)
	repo := repoManager.AccountRepository()

	index, err := repo.NextIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), index)

	first := domain.NewAccount(index, "btcaddr1", "0xaddr1")
	require.NoError(t, repo.AddAccount(ctx, first))

	index, err = repo.NextIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(2), index)

	second := domain.NewAccount(index, "btcaddr2", "0xaddr2")
	require.NoError(t, repo.AddAccount(ctx, second))

	stored, err := repo.GetAccount(ctx, first.Id)
	require.NoError(t, err)
	require.Equal(t, first.BtcAddress, stored.BtcAddress)
	require.Equal(t, first.EthAddress, stored.EthAddress)

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	_, err = repo.GetAccount(ctx, "unknown")
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestCycleRepository(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)
	repo := repoManager.CycleRepository()

	cycle := domain.NewWithdrawCycle([]domain.Currency{domain.CurrencyBTC})
	require.NoError(t, repo.AddCycle(ctx, cycle))

	pending, err := repo.ListCyclesByStatus(ctx, domain.CyclePending)
	require.NoError(t, err)
	require.Len(t, pending, 0)

	err = repo.UpdateCycle(
		ctx, cycle.Id,
		func(c *domain.WithdrawCycle) (*domain.WithdrawCycle, error) {
			if err := c.Start(); err != nil {
				return nil, err
			}
			return c, nil
		},
	)
	require.NoError(t, err)

	pending, err = repo.ListCyclesByStatus(ctx, domain.CyclePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, cycle.Id, pending[0].Id)

	_, err = repo.GetCycle(ctx, "unknown")
	require.EqualError(t, err, domain.ErrCycleNotFound.Error())
}

func TestWithdrawalTxRepository(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)
	repo := repoManager.TxRepository()

	cycleId := "cycle1"
	accountId := "account1"

	refill, err := repo.GetGasRefillTx(ctx, cycleId, accountId)
	require.NoError(t, err)
	require.Nil(t, refill)

	require.NoError(t, repo.AddTx(ctx, domain.NewGasRefillTx(cycleId, accountId)))
	require.NoError(t, repo.AddTx(ctx, domain.NewWithdrawalTx(
		cycleId, accountId, domain.CurrencyUSDT,
		domain.TxWaitingForGasRefill, domain.TxTypeToken,
	)))
	require.NoError(t, repo.AddTx(ctx, domain.NewWithdrawalTx(
		cycleId, accountId, domain.CurrencyUSDC,
		domain.TxWaitingForGasRefill, domain.TxTypeToken,
	)))
	require.NoError(t, repo.AddTx(ctx, domain.NewWithdrawalTx(
		cycleId, accountId, domain.CurrencyBTC,
		domain.TxCreated, domain.TxTypeNative,
	)))

	refill, err = repo.GetGasRefillTx(ctx, cycleId, accountId)
	require.NoError(t, err)
	require.NotNil(t, refill)
	require.Equal(t, domain.TxTypeGasRefill, refill.Type)

	txs, err := repo.ListTxsForCycle(ctx, cycleId)
	require.NoError(t, err)
	require.Len(t, txs, 4)

	tokenTxs, err := repo.ListTokenTxsForAccount(ctx, cycleId, accountId)
	require.NoError(t, err)
	require.Len(t, tokenTxs, 2)

	// Eligible token transfers come out ordered by currency.
	eligible, err := repo.ListEligibleTokenTxs(ctx, cycleId, accountId)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	require.Equal(t, domain.CurrencyUSDC, eligible[0].Currency)
	require.Equal(t, domain.CurrencyUSDT, eligible[1].Currency)

	refills, err := repo.ListEligibleGasRefillTxs(ctx, cycleId)
	require.NoError(t, err)
	require.Len(t, refills, 1)

	// A broadcast refill is no longer eligible.
	err = repo.UpdateTx(
		ctx, refill.Id,
		func(tx *domain.WithdrawalTx) (*domain.WithdrawalTx, error) {
			if err := tx.MarkBroadcast("0xrefill", tx.CreatedAt); err != nil {
				return nil, err
			}
			return tx, nil
		},
	)
	require.NoError(t, err)

	refills, err = repo.ListEligibleGasRefillTxs(ctx, cycleId)
	require.NoError(t, err)
	require.Len(t, refills, 0)

	byStatus, err := repo.ListTxsForCycleByStatus(
		ctx, cycleId, []domain.TxStatus{domain.TxPending},
	)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, refill.Id, byStatus[0].Id)

	_, err = repo.GetTx(ctx, "unknown")
	require.EqualError(t, err, domain.ErrTxNotFound.Error())
}

func TestTxQueueRepository(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)
	repo := repoManager.QueueRepository()

	cycleId := "cycle1"
	accountId := "account1"

	queue, err := repo.GetOrCreateQueue(ctx, domain.NewTokenQueue(cycleId, accountId))
	require.NoError(t, err)

	// A second get-or-create on the same key returns the existing entry.
	again, err := repo.GetOrCreateQueue(ctx, domain.NewTokenQueue(cycleId, accountId))
	require.NoError(t, err)
	require.Equal(t, queue.Id, again.Id)

	gasQueue, err := repo.GetOrCreateQueue(ctx, domain.NewGasRefillQueue(cycleId))
	require.NoError(t, err)
	require.NotEqual(t, queue.Id, gasQueue.Id)

	queues, err := repo.ListQueuesForCycle(ctx, cycleId)
	require.NoError(t, err)
	require.Len(t, queues, 2)

	err = repo.UpdateQueue(
		ctx, queue.Id,
		func(q *domain.TxQueue) (*domain.TxQueue, error) {
			q.CurrentTxId = "tx1"
			return q, nil
		},
	)
	require.NoError(t, err)

	stored, err := repo.GetQueue(ctx, cycleId, accountId, domain.TokenQueue)
	require.NoError(t, err)
	require.True(t, stored.Authorizes("tx1"))

	_, err = repo.GetQueue(ctx, "unknown", accountId, domain.TokenQueue)
	require.EqualError(t, err, domain.ErrQueueNotFound.Error())
}

func TestRunTransactionRollback(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)

	cycle := domain.NewWithdrawCycle([]domain.Currency{domain.CurrencyBTC})
	errBoom := errors.New("boom")

	_, err := repoManager.RunTransaction(
		ctx, false,
		func(ctx context.Context) (interface{}, error) {
			if err := repoManager.CycleRepository().AddCycle(ctx, cycle); err != nil {
				return nil, err
			}
			return nil, errBoom
		},
	)
	require.EqualError(t, err, errBoom.Error())

	// The insert of the failed transaction never landed.
	_, err = repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
	require.EqualError(t, err, domain.ErrCycleNotFound.Error())
}

func TestRunTransactionCommit(t *testing.T) {
	ctx := context.Background()
	repoManager := newTestRepoManager(t)

	cycle := domain.NewWithdrawCycle([]domain.Currency{domain.CurrencyBTC})

	res, err := repoManager.RunTransaction(
		ctx, false,
		func(ctx context.Context) (interface{}, error) {
			if err := repoManager.CycleRepository().AddCycle(ctx, cycle); err != nil {
				return nil, err
			}
			return repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
		},
	)
	require.NoError(t, err)
	require.Equal(t, cycle.Id, res.(*domain.WithdrawCycle).Id)

	stored, err := repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
	require.NoError(t, err)
	require.Equal(t, domain.CycleCreated, stored.Status)
}
