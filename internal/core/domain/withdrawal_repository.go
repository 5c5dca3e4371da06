package domain

import "context"

// WithdrawalTxRepository persists withdrawal transactions.
type WithdrawalTxRepository interface {
	// AddTx inserts a new withdrawal transaction.
	AddTx(ctx context.Context, tx *WithdrawalTx) error
	// GetTx returns a transaction by id, or ErrTxNotFound.
	GetTx(ctx context.Context, id string) (*WithdrawalTx, error)
	// GetGasRefillTx returns the gas refill transaction of an account within
	// a cycle, or nil when none exists.
	GetGasRefillTx(ctx context.Context, cycleId, accountId string) (*WithdrawalTx, error)
	// ListTxsForCycle returns every transaction owned by a cycle.
	ListTxsForCycle(ctx context.Context, cycleId string) ([]WithdrawalTx, error)
	// ListTxsForCycleByStatus returns the cycle's transactions in any of the
	// given statuses.
	ListTxsForCycleByStatus(
		ctx context.Context, cycleId string, statuses []TxStatus,
	) ([]WithdrawalTx, error)
	// ListTokenTxsForAccount returns the token withdrawals of an account
	// within a cycle.
	ListTokenTxsForAccount(ctx context.Context, cycleId, accountId string) ([]WithdrawalTx, error)
	// ListEligibleTokenTxs returns the account's token withdrawals still in a
	// pre-submission status, ordered by currency code.
	ListEligibleTokenTxs(ctx context.Context, cycleId, accountId string) ([]WithdrawalTx, error)
	// ListEligibleGasRefillTxs returns the cycle's created gas refills across
	// all accounts, ordered by account id.
	ListEligibleGasRefillTxs(ctx context.Context, cycleId string) ([]WithdrawalTx, error)
	// UpdateTx lets the caller mutate a transaction through a closure,
	// persisting the returned value.
	UpdateTx(
		ctx context.Context,
		id string, updateFn func(tx *WithdrawalTx) (*WithdrawalTx, error),
	) error
}
