package application

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
	"github.com/DucatusX/gold-crowdsale-backend/internal/core/ports"
)

// btcMinConfirmations is how many confirmations a BTC withdrawal needs
// before being considered final.
const btcMinConfirmations = 3

// ConfirmSelector routes a broadcast transaction to the confirmation check
// of its chain.
func (s *withdrawService) ConfirmSelector(ctx context.Context, tx *domain.WithdrawalTx) {
	switch {
	case tx.Currency == domain.CurrencyETH || tx.Type == domain.TxTypeToken:
		s.confirmEthTx(ctx, tx)
	case tx.Currency == domain.CurrencyBTC:
		s.confirmBtcTx(ctx, tx)
	default:
		log.Errorf(
			"withdraw confirmation error: cannot select confirmation for tx %s (%s/%s)",
			tx.Id, tx.Currency, tx.Type,
		)
	}
}

// confirmEthTx resolves an ETH chain transaction from its receipt: reverted
// means failed, mined means completed, not found starts the stall clock.
func (s *withdrawService) confirmEthTx(ctx context.Context, tx *domain.WithdrawalTx) {
	if tx.Status == domain.TxCompleted {
		log.Infof("transfer already validated (tx: %s)", tx.TxHash)
		return
	}

	receipt, err := s.ethGateway.Receipt(ctx, tx.TxHash)
	if err != nil {
		if errors.Is(err, ports.ErrReceiptNotFound) {
			s.applyStallPolicy(ctx, tx, s.cfg.EthReceiptWindow)
			return
		}
		log.WithError(err).Errorf("failed to fetch receipt of tx %s", tx.TxHash)
		return
	}

	if receipt.Failed() {
		log.Infof("withdraw %s reverted", tx.TxHash)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkFailed("reverted")
		})
		return
	}

	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		return t.Confirm()
	})
	log.Infof("withdraw %s completed", tx.TxHash)
}

// confirmBtcTx resolves a BTC withdrawal once it collects enough
// confirmations. Gateway errors count as "not yet found" and feed the stall
// clock.
func (s *withdrawService) confirmBtcTx(ctx context.Context, tx *domain.WithdrawalTx) {
	if tx.Status == domain.TxCompleted {
		log.Infof("transfer already validated (tx: %s)", tx.TxHash)
		return
	}

	confirmations, err := s.btcGateway.Confirmations(ctx, tx.TxHash)
	if err != nil {
		log.WithError(err).Infof("failed to get BTC confirmations of tx %s", tx.TxHash)
		s.applyStallPolicy(ctx, tx, s.cfg.BtcConfirmWindow)
		return
	}

	if confirmations > btcMinConfirmations {
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.Confirm()
		})
		log.Infof("withdraw %s completed", tx.TxHash)
	}
}

// applyStallPolicy leaves the transaction alone while the window anchored at
// its relay timestamp is still open, and flags it sent_tx_not_found for
// manual reconciliation once the window elapses.
func (s *withdrawService) applyStallPolicy(
	ctx context.Context, tx *domain.WithdrawalTx, window time.Duration,
) {
	stalled := false
	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		changed, err := t.MarkNotFoundAfter(time.Now(), window)
		if err != nil {
			return err
		}
		stalled = changed
		return nil
	})

	if stalled {
		log.Warnf("tx %s not found after %s, flagged for manual investigation", tx.TxHash, window)
	} else {
		log.Info("transaction not found, retrying")
	}
}
