package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

type withdrawalTxRepositoryImpl struct {
	store *badgerhold.Store
}

// NewWithdrawalTxRepositoryImpl initializes a badger implementation of the
// domain.WithdrawalTxRepository.
func NewWithdrawalTxRepositoryImpl(store *badgerhold.Store) domain.WithdrawalTxRepository {
	return withdrawalTxRepositoryImpl{store}
}

func (r withdrawalTxRepositoryImpl) AddTx(
	ctx context.Context, tx *domain.WithdrawalTx,
) error {
	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxInsert(btx, tx.Id, tx)
	}
	return r.store.Insert(tx.Id, tx)
}

func (r withdrawalTxRepositoryImpl) GetTx(
	ctx context.Context, id string,
) (*domain.WithdrawalTx, error) {
	var tx domain.WithdrawalTx
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(btx, id, &tx)
	} else {
		err = r.store.Get(id, &tx)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTxNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r withdrawalTxRepositoryImpl) GetGasRefillTx(
	ctx context.Context, cycleId, accountId string,
) (*domain.WithdrawalTx, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("AccountId").Eq(accountId).
		And("Type").Eq(domain.TxTypeGasRefill)

	txs, err := r.findTxs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (r withdrawalTxRepositoryImpl) ListTxsForCycle(
	ctx context.Context, cycleId string,
) ([]domain.WithdrawalTx, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).SortBy("CreatedAt")
	return r.findTxs(ctx, query)
}

func (r withdrawalTxRepositoryImpl) ListTxsForCycleByStatus(
	ctx context.Context, cycleId string, statuses []domain.TxStatus,
) ([]domain.WithdrawalTx, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("Status").In(toInterfaceSlice(statuses)...)
	return r.findTxs(ctx, query)
}

func (r withdrawalTxRepositoryImpl) ListTokenTxsForAccount(
	ctx context.Context, cycleId, accountId string,
) ([]domain.WithdrawalTx, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("AccountId").Eq(accountId).
		And("Type").Eq(domain.TxTypeToken)
	return r.findTxs(ctx, query)
}

func (r withdrawalTxRepositoryImpl) ListEligibleTokenTxs(
	ctx context.Context, cycleId, accountId string,
) ([]domain.WithdrawalTx, error) {
	statuses := []domain.TxStatus{
		domain.TxCreated,
		domain.TxWaitingForTokenTransfers,
		domain.TxWaitingForGasRefill,
	}
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("AccountId").Eq(accountId).
		And("Type").Eq(domain.TxTypeToken).
		And("Status").In(toInterfaceSlice(statuses)...).
		SortBy("Currency")
	return r.findTxs(ctx, query)
}

func (r withdrawalTxRepositoryImpl) ListEligibleGasRefillTxs(
	ctx context.Context, cycleId string,
) ([]domain.WithdrawalTx, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("Type").Eq(domain.TxTypeGasRefill).
		And("Status").Eq(domain.TxCreated).
		SortBy("AccountId")
	return r.findTxs(ctx, query)
}

func (r withdrawalTxRepositoryImpl) UpdateTx(
	ctx context.Context,
	id string, updateFn func(tx *domain.WithdrawalTx) (*domain.WithdrawalTx, error),
) error {
	currentTx, err := r.GetTx(ctx, id)
	if err != nil {
		return err
	}

	updatedTx, err := updateFn(currentTx)
	if err != nil {
		return err
	}

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(btx, id, updatedTx)
	}
	return r.store.Update(id, updatedTx)
}

func (r withdrawalTxRepositoryImpl) findTxs(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.WithdrawalTx, error) {
	var txs []domain.WithdrawalTx
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(btx, &txs, query)
	} else {
		err = r.store.Find(&txs, query)
	}
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func toInterfaceSlice(statuses []domain.TxStatus) []interface{} {
	res := make([]interface{}, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, s)
	}
	return res
}
