package domain

import "context"

// WithdrawCycleRepository persists withdraw cycles.
type WithdrawCycleRepository interface {
	// AddCycle inserts a new cycle.
	AddCycle(ctx context.Context, cycle *WithdrawCycle) error
	// GetCycle returns a cycle by id, or ErrCycleNotFound.
	GetCycle(ctx context.Context, id string) (*WithdrawCycle, error)
	// ListCyclesByStatus returns all cycles in the given status.
	ListCyclesByStatus(ctx context.Context, status CycleStatus) ([]WithdrawCycle, error)
	// UpdateCycle lets the caller mutate a cycle through a closure, persisting
	// the returned value.
	UpdateCycle(
		ctx context.Context,
		id string, updateFn func(c *WithdrawCycle) (*WithdrawCycle, error),
	) error
}
