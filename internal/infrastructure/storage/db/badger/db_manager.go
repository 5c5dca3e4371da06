package dbbadger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
)

// RepoManager holds the badgerhold store and all the repositories built on
// top of it.
type RepoManager struct {
	store *badgerhold.Store

	accountRepository domain.AccountRepository
	cycleRepository   domain.WithdrawCycleRepository
	txRepository      domain.WithdrawalTxRepository
	queueRepository   domain.TxQueueRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk
// in the given data dir and returns its ports.RepoManager implementation.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	store, err := createDb(baseDbDir+"/withdrawals", logger)
	if err != nil {
		return nil, fmt.Errorf("opening withdrawals db: %w", err)
	}

	return &RepoManager{
		store:             store,
		accountRepository: NewAccountRepositoryImpl(store),
		cycleRepository:   NewCycleRepositoryImpl(store),
		txRepository:      NewWithdrawalTxRepositoryImpl(store),
		queueRepository:   NewTxQueueRepositoryImpl(store),
	}, nil
}

func (d *RepoManager) AccountRepository() domain.AccountRepository {
	return d.accountRepository
}

func (d *RepoManager) CycleRepository() domain.WithdrawCycleRepository {
	return d.cycleRepository
}

func (d *RepoManager) TxRepository() domain.WithdrawalTxRepository {
	return d.txRepository
}

func (d *RepoManager) QueueRepository() domain.TxQueueRepository {
	return d.queueRepository
}

func (d *RepoManager) Close() {
	d.store.Close()
}

// RunTransaction runs the handler within one badger transaction, carried
// down to the repositories through the context. Write transactions are
// retried on conflict.
func (d *RepoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	for {
		tx := d.store.Badger().NewTransaction(!readOnly)
		txCtx := context.WithValue(ctx, "tx", tx)

		res, err := handler(txCtx)
		if err != nil {
			tx.Discard()
			return nil, err
		}

		if readOnly {
			tx.Discard()
			return res, nil
		}

		err = tx.Commit()
		if err == nil {
			return res, nil
		}
		if err != badger.ErrConflict {
			return nil, err
		}
	}
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)
	if err := en.Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	if _, err := buff.Write(data); err != nil {
		return err
	}
	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
