package domain

import (
	"time"

	"github.com/google/uuid"
)

// CycleStatus represents the status of a withdraw cycle. It only moves
// forward: created, pending, completed.
type CycleStatus string

const (
	CycleCreated   CycleStatus = "created"
	CyclePending   CycleStatus = "pending"
	CycleCompleted CycleStatus = "completed"
)

// WithdrawCycle is the batch container aggregating every withdrawal
// transaction and queue entry created for one run.
type WithdrawCycle struct {
	Id         string
	Currencies []Currency
	Status     CycleStatus
	CreatedAt  time.Time
}

// NewWithdrawCycle returns a cycle in created status for the given normalized
// currency set.
func NewWithdrawCycle(currencies []Currency) *WithdrawCycle {
	return &WithdrawCycle{
		Id:         uuid.New().String(),
		Currencies: currencies,
		Status:     CycleCreated,
		CreatedAt:  time.Now(),
	}
}

// Start brings the cycle from created to pending once the planning phase has
// enumerated all its transactions.
func (c *WithdrawCycle) Start() error {
	if c.Status == CyclePending {
		return nil
	}
	if c.Status != CycleCreated {
		return ErrCycleMustBeCreated
	}
	c.Status = CyclePending
	return nil
}

// Complete marks the cycle as completed. The caller is responsible for
// checking that no owned transaction is still ongoing. Idempotent.
func (c *WithdrawCycle) Complete() bool {
	if c.Status == CycleCompleted {
		return false
	}
	c.Status = CycleCompleted
	return true
}

// IsCompleted returns whether the cycle reached its terminal status.
func (c *WithdrawCycle) IsCompleted() bool {
	return c.Status == CycleCompleted
}
