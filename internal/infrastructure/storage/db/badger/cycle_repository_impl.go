package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

type cycleRepositoryImpl struct {
	store *badgerhold.Store
}

// NewCycleRepositoryImpl initializes a badger implementation of the
// domain.WithdrawCycleRepository.
func NewCycleRepositoryImpl(store *badgerhold.Store) domain.WithdrawCycleRepository {
	return cycleRepositoryImpl{store}
}

func (r cycleRepositoryImpl) AddCycle(
	ctx context.Context, cycle *domain.WithdrawCycle,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxInsert(tx, cycle.Id, cycle)
	}
	return r.store.Insert(cycle.Id, cycle)
}

func (r cycleRepositoryImpl) GetCycle(
	ctx context.Context, id string,
) (*domain.WithdrawCycle, error) {
	var cycle domain.WithdrawCycle
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, id, &cycle)
	} else {
		err = r.store.Get(id, &cycle)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

func (r cycleRepositoryImpl) ListCyclesByStatus(
	ctx context.Context, status domain.CycleStatus,
) ([]domain.WithdrawCycle, error) {
	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")
	return r.findCycles(ctx, query)
}

func (r cycleRepositoryImpl) UpdateCycle(
	ctx context.Context,
	id string, updateFn func(c *domain.WithdrawCycle) (*domain.WithdrawCycle, error),
) error {
	currentCycle, err := r.GetCycle(ctx, id)
	if err != nil {
		return err
	}

	updatedCycle, err := updateFn(currentCycle)
	if err != nil {
		return err
	}

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, id, updatedCycle)
	}
	return r.store.Update(id, updatedCycle)
}

func (r cycleRepositoryImpl) findCycles(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.WithdrawCycle, error) {
	var cycles []domain.WithdrawCycle
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &cycles, query)
	} else {
		err = r.store.Find(&cycles, query)
	}
	if err != nil {
		return nil, err
	}
	return cycles, nil
}
