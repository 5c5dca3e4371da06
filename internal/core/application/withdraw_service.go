package application

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
)

const readOnlyTx = true

// WithdrawService defines the application layer of the withdrawal engine:
// planning withdraw cycles and driving their transactions through the state
// machine, one pass at a time.
type WithdrawService interface {
	// CreateWithdrawCycle plans a new cycle for the requested currency codes
	// (all supported ones when empty) across every registered account.
	CreateWithdrawCycle(ctx context.Context, currencies []string) (*domain.WithdrawCycle, error)
	// RegisterAccount creates a purchaser account on the next derivation
	// index.
	RegisterAccount(ctx context.Context) (*domain.Account, error)
	// RunPass advances every pending cycle: queue entries, processing,
	// confirmations and the completion check.
	RunPass(ctx context.Context) error
	// ProcessSelector routes one transaction to its processor.
	ProcessSelector(ctx context.Context, tx *domain.WithdrawalTx)
	// ConfirmSelector routes one broadcast transaction to its confirmation
	// check.
	ConfirmSelector(ctx context.Context, tx *domain.WithdrawalTx)
}

type withdrawService struct {
	repoManager ports.RepoManager
	btcGateway  ports.BtcGateway
	ethGateway  ports.EthGateway
	rateSource  ports.RateSource
	keySource   ports.KeySource
	cfg         Config
}

// NewWithdrawService is the factory function of the withdrawal application
// service.
func NewWithdrawService(
	repoManager ports.RepoManager,
	btcGateway ports.BtcGateway,
	ethGateway ports.EthGateway,
	rateSource ports.RateSource,
	keySource ports.KeySource,
	cfg Config,
) (WithdrawService, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &withdrawService{
		repoManager: repoManager,
		btcGateway:  btcGateway,
		ethGateway:  ethGateway,
		rateSource:  rateSource,
		keySource:   keySource,
		cfg:         cfg,
	}, nil
}

func (s *withdrawService) RegisterAccount(ctx context.Context) (*domain.Account, error) {
	accountRepo := s.repoManager.AccountRepository()

	index, err := accountRepo.NextIndex(ctx)
	if err != nil {
		return nil, err
	}
	btcAddress, ethAddress, err := s.keySource.DeriveAddresses(index)
	if err != nil {
		return nil, err
	}

	account := domain.NewAccount(index, btcAddress, ethAddress)
	if err := accountRepo.AddAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CreateWithdrawCycle enumerates one withdrawal transaction per
// (account, requested currency) with the initial status encoding its
// dependencies, plus the gas refill transactions and queue entries needed to
// serialize submission on the ETH chain.
func (s *withdrawService) CreateWithdrawCycle(
	ctx context.Context, currencies []string,
) (*domain.WithdrawCycle, error) {
	normalized, dropped := domain.NormalizeCurrencies(currencies)
	for _, code := range dropped {
		log.Warnf(
			"skipping currency %s: is not in supported list (%v)",
			code, domain.AvailableCurrencies,
		)
	}

	cycle := domain.NewWithdrawCycle(normalized)

	res, err := s.repoManager.RunTransaction(
		ctx, !readOnlyTx,
		func(ctx context.Context) (interface{}, error) {
			if err := s.repoManager.CycleRepository().AddCycle(ctx, cycle); err != nil {
				return nil, err
			}

			accounts, err := s.repoManager.AccountRepository().ListAccounts(ctx)
			if err != nil {
				return nil, err
			}

			for i := range accounts {
				if err := s.planAccount(ctx, cycle, &accounts[i]); err != nil {
					return nil, err
				}
			}

			if err := s.repoManager.CycleRepository().UpdateCycle(
				ctx, cycle.Id,
				func(c *domain.WithdrawCycle) (*domain.WithdrawCycle, error) {
					if err := c.Start(); err != nil {
						return nil, err
					}
					return c, nil
				},
			); err != nil {
				return nil, err
			}
			return s.repoManager.CycleRepository().GetCycle(ctx, cycle.Id)
		},
	)
	if err != nil {
		return nil, err
	}

	cycle = res.(*domain.WithdrawCycle)
	log.Infof(
		"created withdraw cycle %s for currencies %v", cycle.Id, cycle.Currencies,
	)
	return cycle, nil
}

func (s *withdrawService) planAccount(
	ctx context.Context, cycle *domain.WithdrawCycle, account *domain.Account,
) error {
	txRepo := s.repoManager.TxRepository()
	queueRepo := s.repoManager.QueueRepository()

	for _, currency := range cycle.Currencies {
		initialStatus := domain.TxCreated
		txType := domain.TxTypeNative

		switch {
		case currency == domain.CurrencyETH:
			// A native sweep on the account chain only makes sense to collect
			// the gas left over after token transfers.
			if !domain.ContainsToken(cycle.Currencies) {
				continue
			}
			initialStatus = domain.TxWaitingForTokenTransfers

		case currency.IsToken():
			refill, err := txRepo.GetGasRefillTx(ctx, cycle.Id, account.Id)
			if err != nil {
				return err
			}
			if refill == nil {
				if err := txRepo.AddTx(
					ctx, domain.NewGasRefillTx(cycle.Id, account.Id),
				); err != nil {
					return err
				}
			} else {
				if err := txRepo.UpdateTx(
					ctx, refill.Id,
					func(t *domain.WithdrawalTx) (*domain.WithdrawalTx, error) {
						t.GasTxCount++
						return t, nil
					},
				); err != nil {
					return err
				}
			}

			if _, err := queueRepo.GetOrCreateQueue(
				ctx, domain.NewTokenQueue(cycle.Id, account.Id),
			); err != nil {
				return err
			}
			if _, err := queueRepo.GetOrCreateQueue(
				ctx, domain.NewGasRefillQueue(cycle.Id),
			); err != nil {
				return err
			}

			initialStatus = domain.TxWaitingForGasRefill
			txType = domain.TxTypeToken
		}

		if err := txRepo.AddTx(ctx, domain.NewWithdrawalTx(
			cycle.Id, account.Id, currency, initialStatus, txType,
		)); err != nil {
			return err
		}
	}
	return nil
}

// RunPass is the periodic entry point. For every pending cycle it advances
// the queue entries, runs every processable transaction, checks the
// confirmations of the broadcast ones and finally the cycle completion.
func (s *withdrawService) RunPass(ctx context.Context) error {
	cycles, err := s.repoManager.CycleRepository().ListCyclesByStatus(
		ctx, domain.CyclePending,
	)
	if err != nil {
		return err
	}

	for i := range cycles {
		s.processCycle(ctx, &cycles[i])
	}
	return nil
}

func (s *withdrawService) processCycle(ctx context.Context, cycle *domain.WithdrawCycle) {
	s.advanceQueues(ctx, cycle.Id)

	txs, err := s.repoManager.TxRepository().ListTxsForCycle(ctx, cycle.Id)
	if err != nil {
		log.WithError(err).Errorf("failed to list transactions of cycle %s", cycle.Id)
		return
	}

	for i := range txs {
		if txs[i].CanProcess() {
			s.ProcessSelector(ctx, &txs[i])
		}
	}

	// Confirmation checks are pure reads plus an idempotent terminal write,
	// so they can run concurrently.
	pending, err := s.repoManager.TxRepository().ListTxsForCycleByStatus(
		ctx, cycle.Id, []domain.TxStatus{domain.TxPending},
	)
	if err != nil {
		log.WithError(err).Errorf("failed to list pending transactions of cycle %s", cycle.Id)
		return
	}
	eg := &errgroup.Group{}
	for i := range pending {
		tx := pending[i]
		eg.Go(func() error {
			s.ConfirmSelector(ctx, &tx)
			return nil
		})
	}
	// Confirmers record their outcome on the transaction itself.
	_ = eg.Wait()

	s.checkCycleCompletion(ctx, cycle.Id)
}

func (s *withdrawService) advanceQueues(ctx context.Context, cycleId string) {
	queues, err := s.repoManager.QueueRepository().ListQueuesForCycle(ctx, cycleId)
	if err != nil {
		log.WithError(err).Errorf("failed to list queue entries of cycle %s", cycleId)
		return
	}

	for i := range queues {
		if err := s.advanceQueue(ctx, &queues[i]); err != nil {
			log.WithError(err).Errorf("failed to advance queue entry %s", queues[i].Id)
		}
	}
}

// advanceQueue runs within a single store transaction so that the read of
// the in-flight transaction and the write of the next authorized one are
// atomic, preserving the one-in-flight-per-signing-key invariant.
func (s *withdrawService) advanceQueue(ctx context.Context, queue *domain.TxQueue) error {
	if queue.Completed {
		log.Infof("queue entry %s already completed, ignoring", queue.Id)
		return nil
	}

	_, err := s.repoManager.RunTransaction(
		ctx, !readOnlyTx,
		func(ctx context.Context) (interface{}, error) {
			txRepo := s.repoManager.TxRepository()

			var current *domain.WithdrawalTx
			if queue.CurrentTxId != "" {
				tx, err := txRepo.GetTx(ctx, queue.CurrentTxId)
				if err != nil {
					return nil, err
				}
				current = tx
			}

			var remaining []domain.WithdrawalTx
			var err error
			if queue.Type == domain.TokenQueue {
				remaining, err = txRepo.ListEligibleTokenTxs(
					ctx, queue.CycleId, queue.AccountId,
				)
			} else {
				remaining, err = txRepo.ListEligibleGasRefillTxs(ctx, queue.CycleId)
			}
			if err != nil {
				return nil, err
			}

			return nil, s.repoManager.QueueRepository().UpdateQueue(
				ctx, queue.Id,
				func(q *domain.TxQueue) (*domain.TxQueue, error) {
					q.SetNextTx(current, remaining)
					return q, nil
				},
			)
		},
	)
	return err
}

// checkCycleCompletion moves the cycle to completed once none of its
// transactions is in an ongoing status. Safe to call repeatedly.
func (s *withdrawService) checkCycleCompletion(ctx context.Context, cycleId string) {
	ongoing, err := s.repoManager.TxRepository().ListTxsForCycleByStatus(
		ctx, cycleId, domain.OngoingTxStatuses(),
	)
	if err != nil {
		log.WithError(err).Errorf("failed to check completion of cycle %s", cycleId)
		return
	}
	if len(ongoing) > 0 {
		return
	}

	if err := s.repoManager.CycleRepository().UpdateCycle(
		ctx, cycleId,
		func(c *domain.WithdrawCycle) (*domain.WithdrawCycle, error) {
			if c.Complete() {
				log.Infof("withdraw cycle %s is finished", c.Id)
			}
			return c, nil
		},
	); err != nil {
		log.WithError(err).Errorf("failed to complete cycle %s", cycleId)
	}
}

// updateTx persists a transition on a withdrawal transaction, logging
// instead of propagating since processing outcomes are encoded in the
// transaction record itself.
func (s *withdrawService) updateTx(
	ctx context.Context, id string, apply func(tx *domain.WithdrawalTx) error,
) {
	if err := s.repoManager.TxRepository().UpdateTx(
		ctx, id,
		func(tx *domain.WithdrawalTx) (*domain.WithdrawalTx, error) {
			if err := apply(tx); err != nil {
				return nil, err
			}
			return tx, nil
		},
	); err != nil {
		log.WithError(err).Errorf("failed to update withdrawal transaction %s", id)
	}
}
