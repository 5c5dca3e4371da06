package ports

import (
	"context"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

// RepoManager gives access to every repository and to the transactional
// boundary of the underlying store.
type RepoManager interface {
	AccountRepository() domain.AccountRepository
	CycleRepository() domain.WithdrawCycleRepository
	TxRepository() domain.WithdrawalTxRepository
	QueueRepository() domain.TxQueueRepository

	Close()

	// RunTransaction runs the handler within a single store transaction,
	// committing on success and discarding on error. The handler receives a
	// context carrying the open transaction, recognized by the repositories.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)
}
