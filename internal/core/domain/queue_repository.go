package domain

import "context"

// TxQueueRepository persists queue entries.
type TxQueueRepository interface {
	// GetOrCreateQueue returns the queue entry matching the given one's
	// (cycle, account, type) identity, inserting it when missing.
	GetOrCreateQueue(ctx context.Context, queue *TxQueue) (*TxQueue, error)
	// GetQueue returns the entry for the given serialization domain, or
	// ErrQueueNotFound. The account id is empty for the gas refill queue.
	GetQueue(
		ctx context.Context, cycleId, accountId string, queueType QueueType,
	) (*TxQueue, error)
	// ListQueuesForCycle returns every queue entry owned by a cycle.
	ListQueuesForCycle(ctx context.Context, cycleId string) ([]TxQueue, error)
	// UpdateQueue lets the caller mutate a queue entry through a closure,
	// persisting the returned value.
	UpdateQueue(
		ctx context.Context,
		id string, updateFn func(q *TxQueue) (*TxQueue, error),
	) error
}
