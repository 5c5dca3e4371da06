package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueType represents the serialization domain of a queue entry.
type QueueType string

const (
	// TokenQueue serializes the token transfers signed with one account key.
	TokenQueue QueueType = "token"
	// GasRefillQueue serializes the refills signed with the operator gas key.
	GasRefillQueue QueueType = "gas_refill"
)

// TxQueue is a queue entry pointing at the single withdrawal transaction
// currently allowed to submit within its serialization domain. At most one
// transaction watched by an entry may be in flight at a time; this is what
// prevents two concurrently signed transactions from the same key.
type TxQueue struct {
	Id          string
	CycleId     string
	AccountId   string
	Type        QueueType
	CurrentTxId string
	Completed   bool
	CreatedAt   time.Time
}

// NewTokenQueue returns the per-account queue entry for token transfers.
func NewTokenQueue(cycleId, accountId string) *TxQueue {
	return &TxQueue{
		Id:        uuid.New().String(),
		CycleId:   cycleId,
		AccountId: accountId,
		Type:      TokenQueue,
		CreatedAt: time.Now(),
	}
}

// NewGasRefillQueue returns the cycle-global queue entry for gas refills.
func NewGasRefillQueue(cycleId string) *TxQueue {
	return &TxQueue{
		Id:        uuid.New().String(),
		CycleId:   cycleId,
		Type:      GasRefillQueue,
		CreatedAt: time.Now(),
	}
}

// Authorizes returns whether the given transaction is the one currently
// allowed to submit.
func (q *TxQueue) Authorizes(txId string) bool {
	return q.CurrentTxId == txId
}

// SetNextTx advances the queue entry. It is a no-op when the entry already
// completed or while the currently authorized transaction is still in
// flight. Otherwise it points the entry at the first remaining candidate,
// or irreversibly completes it when none remain. The caller supplies the
// current transaction record (nil when none is set) and the remaining
// eligible candidates in their deterministic order. Returns whether the
// entry changed.
func (q *TxQueue) SetNextTx(current *WithdrawalTx, remaining []WithdrawalTx) bool {
	if q.Completed {
		return false
	}
	if q.CurrentTxId != "" && current != nil && current.IsPending() {
		return false
	}

	if len(remaining) > 0 {
		if q.CurrentTxId == remaining[0].Id {
			return false
		}
		q.CurrentTxId = remaining[0].Id
		return true
	}

	q.CurrentTxId = ""
	q.Completed = true
	return true
}
