package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAccountRepositoryImpl initializes a badger implementation of the
// domain.AccountRepository.
func NewAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return accountRepositoryImpl{store}
}

func (r accountRepositoryImpl) AddAccount(
	ctx context.Context, account *domain.Account,
) error {
	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxInsert(btx, account.Id, account)
	}
	return r.store.Insert(account.Id, account)
}

func (r accountRepositoryImpl) GetAccount(
	ctx context.Context, id string,
) (*domain.Account, error) {
	var account domain.Account
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(btx, id, &account)
	} else {
		err = r.store.Get(id, &account)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r accountRepositoryImpl) ListAccounts(
	ctx context.Context,
) ([]domain.Account, error) {
	query := (&badgerhold.Query{}).SortBy("Index")
	return r.findAccounts(ctx, query)
}

// NextIndex returns the derivation index for the next account. Indexes start
// at 1 so that the first child key never collides with the master.
func (r accountRepositoryImpl) NextIndex(ctx context.Context) (uint32, error) {
	accounts, err := r.findAccounts(
		ctx, (&badgerhold.Query{}).SortBy("Index").Reverse().Limit(1),
	)
	if err != nil {
		return 0, err
	}
	if len(accounts) == 0 {
		return 1, nil
	}
	return accounts[0].Index + 1, nil
}

func (r accountRepositoryImpl) findAccounts(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Account, error) {
	var accounts []domain.Account
	var err error

	if ctx.Value("tx") != nil {
		btx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(btx, &accounts, query)
	} else {
		err = r.store.Find(&accounts, query)
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
