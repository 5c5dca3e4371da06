package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

type txQueueRepositoryImpl struct {
	store *badgerhold.Store
}

// NewTxQueueRepositoryImpl initializes a badger implementation of the
// domain.TxQueueRepository.
func NewTxQueueRepositoryImpl(store *badgerhold.Store) domain.TxQueueRepository {
	return txQueueRepositoryImpl{store}
}

func (r txQueueRepositoryImpl) GetOrCreateQueue(
	ctx context.Context, queue *domain.TxQueue,
) (*domain.TxQueue, error) {
	existing, err := r.getQueue(ctx, queue.CycleId, queue.AccountId, queue.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(btx, queue.Id, queue)
	} else {
		err = r.store.Insert(queue.Id, queue)
	}
	if err != nil {
		return nil, err
	}
	return queue, nil
}

func (r txQueueRepositoryImpl) GetQueue(
	ctx context.Context, cycleId, accountId string, queueType domain.QueueType,
) (*domain.TxQueue, error) {
	queue, err := r.getQueue(ctx, cycleId, accountId, queueType)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, domain.ErrQueueNotFound
	}
	return queue, nil
}

func (r txQueueRepositoryImpl) ListQueuesForCycle(
	ctx context.Context, cycleId string,
) ([]domain.TxQueue, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).SortBy("CreatedAt")
	return r.findQueues(ctx, query)
}

func (r txQueueRepositoryImpl) UpdateQueue(
	ctx context.Context,
	id string, updateFn func(q *domain.TxQueue) (*domain.TxQueue, error),
) error {
	var queue domain.TxQueue
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(btx, id, &queue)
	} else {
		err = r.store.Get(id, &queue)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.ErrQueueNotFound
		}
		return err
	}

	updatedQueue, err := updateFn(&queue)
	if err != nil {
		return err
	}

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(btx, id, updatedQueue)
	}
	return r.store.Update(id, updatedQueue)
}

func (r txQueueRepositoryImpl) getQueue(
	ctx context.Context, cycleId, accountId string, queueType domain.QueueType,
) (*domain.TxQueue, error) {
	query := badgerhold.Where("CycleId").Eq(cycleId).
		And("AccountId").Eq(accountId).
		And("Type").Eq(queueType)

	queues, err := r.findQueues(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(queues) == 0 {
		return nil, nil
	}
	return &queues[0], nil
}

func (r txQueueRepositoryImpl) findQueues(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.TxQueue, error) {
	var queues []domain.TxQueue
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(btx, &queues, query)
	} else {
		err = r.store.Find(&queues, query)
	}
	if err != nil {
		return nil, err
	}
	return queues, nil
}
