package application

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/DucatusX/gold-crowdsale-backend/internal/core/domain"
)

const (
	// refillGasLimit is the gas of a plain value transfer.
	refillGasLimit = 21000
	// tokenTransferGasLimit is the gas budgeted per ERC20 transfer.
	tokenTransferGasLimit = 200000
	// ethDecimals is the precision of the ETH chain native unit.
	ethDecimals = 18
)

var (
	// fundedThresholdPercent: an account holding more than 110% of the token
	// transfer gas cost does not need a refill.
	fundedThresholdPercent = big.NewInt(110)
	// refillAmountPercent: refills carry 120% of the token transfer gas cost.
	refillAmountPercent = big.NewInt(120)
	oneHundred          = big.NewInt(100)
)

// ProcessSelector routes a withdrawal transaction to the processor matching
// its type and currency. An unroutable transaction is logged and left
// untouched.
func (s *withdrawService) ProcessSelector(ctx context.Context, tx *domain.WithdrawalTx) {
	switch tx.Type {
	case domain.TxTypeGasRefill:
		s.processGasRefill(ctx, tx)
	case domain.TxTypeToken:
		s.processWithdrawToken(ctx, tx)
	case domain.TxTypeNative:
		switch tx.Currency {
		case domain.CurrencyBTC:
			s.processWithdrawBtc(ctx, tx)
		case domain.CurrencyETH:
			s.processWithdrawEth(ctx, tx)
		default:
			log.Errorf(
				"withdraw processing error: cannot select processor for tx %s (%s/%s)",
				tx.Id, tx.Currency, tx.Type,
			)
		}
	default:
		log.Errorf(
			"withdraw processing error: cannot select processor for tx %s (%s/%s)",
			tx.Id, tx.Currency, tx.Type,
		)
	}
}

// processWithdrawBtc sweeps all unspents of the account's BTC address to the
// operator destination, net of the relay fee.
func (s *withdrawService) processWithdrawBtc(ctx context.Context, tx *domain.WithdrawalTx) {
	if tx.Currency != domain.CurrencyBTC || tx.Type != domain.TxTypeNative {
		log.Errorf(
			"BTC processing called on tx %s with currency %s and type %s",
			tx.Id, tx.Currency, tx.Type,
		)
		return
	}
	if tx.Status != domain.TxCreated {
		log.Errorf("withdrawal %s already processed or processing in progress (%s)", tx.Id, tx.Status)
		return
	}

	account, err := s.repoManager.AccountRepository().GetAccount(ctx, tx.AccountId)
	if err != nil {
		log.WithError(err).Errorf("failed to load account of withdrawal %s", tx.Id)
		return
	}

	btcKey, _, err := s.keySource.DeriveKeys(account.Index)
	if err != nil {
		log.WithError(err).Errorf("failed to derive keys for account %s", account.Id)
		return
	}

	unspents, balance, err := s.btcGateway.ListUnspents(ctx, account.BtcAddress)
	if err != nil {
		// Transient: the next pass retries.
		log.WithError(err).Errorf("failed to fetch unspents of BTC address %s", account.BtcAddress)
		return
	}

	fee, err := s.btcGateway.RelayFee(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch BTC relay fee")
		return
	}

	if balance <= fee {
		log.Infof(
			"address %s skipped: balance %d <= tx fee of %d",
			account.BtcAddress, balance, fee,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkSkipped()
		})
		return
	}

	amount := balance - fee
	log.Infof(
		"withdraw tx params: from %s to %s on amount %d",
		account.BtcAddress, s.cfg.BtcWithdrawAddress, amount,
	)

	txHash, err := s.btcGateway.BuildAndSend(
		ctx, unspents, account.BtcAddress, s.cfg.BtcWithdrawAddress, amount, btcKey,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"withdraw failed for address %s and amount %d (%d - %d)",
			account.BtcAddress, amount, balance, fee,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkFailed(err.Error())
		})
		return
	}

	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		return t.MarkBroadcast(txHash, time.Now())
	})
	log.Infof("withdraw BTC tx sent: %s", txHash)
}

// processGasRefill funds the account's ETH address with the gas its queued
// token transfers will burn, unless the tokens are not worth it or the
// address is already funded. Only the transaction currently authorized by
// the global gas refill queue may run.
func (s *withdrawService) processGasRefill(ctx context.Context, tx *domain.WithdrawalTx) {
	if tx.Currency != domain.CurrencyETH || tx.Type != domain.TxTypeGasRefill {
		log.Errorf(
			"gas refill processing called on tx %s with currency %s and type %s",
			tx.Id, tx.Currency, tx.Type,
		)
		return
	}
	if tx.Status != domain.TxCreated {
		log.Errorf("withdrawal %s already processed or processing in progress (%s)", tx.Id, tx.Status)
		return
	}

	queue, err := s.repoManager.QueueRepository().GetQueue(
		ctx, tx.CycleId, "", domain.GasRefillQueue,
	)
	if err != nil {
		log.WithError(err).Errorf("failed to load gas refill queue of cycle %s", tx.CycleId)
		return
	}
	if !queue.Authorizes(tx.Id) {
		log.Infof("refill %s postponed due to multiple txs in queue", tx.Id)
		return
	}

	account, err := s.repoManager.AccountRepository().GetAccount(ctx, tx.AccountId)
	if err != nil {
		log.WithError(err).Errorf("failed to load account of refill %s", tx.Id)
		return
	}

	gasPrice, err := s.ethGateway.GasPrice(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch gas price")
		return
	}

	refillGasFee := new(big.Int).Mul(gasPrice, big.NewInt(refillGasLimit))
	tokenGasFee := new(big.Int).Mul(
		gasPrice, big.NewInt(tokenTransferGasLimit*int64(tx.GasTxCount)),
	)

	rates, err := s.rateSource.Rates(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch exchange rates")
		return
	}
	ethRate, ok := rates[domain.CurrencyETH]
	if !ok {
		log.Error("exchange rates are missing the ETH quote")
		return
	}

	tokenTxs, err := s.repoManager.TxRepository().ListTokenTxsForAccount(
		ctx, tx.CycleId, tx.AccountId,
	)
	if err != nil {
		log.WithError(err).Errorf("failed to list token withdrawals of account %s", tx.AccountId)
		return
	}

	totalTokenValueWei := new(big.Int)
	for i := range tokenTxs {
		tokenTx := &tokenTxs[i]
		token, ok := s.cfg.Tokens[tokenTx.Currency]
		if !ok {
			log.Errorf("no contract configured for token %s", tokenTx.Currency)
			return
		}

		tokenBalance, err := s.ethGateway.TokenBalance(ctx, token.Address, account.EthAddress)
		if err != nil {
			log.WithError(err).Errorf(
				"failed to fetch %s balance of address %s", tokenTx.Currency, account.EthAddress,
			)
			return
		}

		tokenRate, ok := rates[tokenTx.Currency]
		if !ok {
			log.Errorf("exchange rates are missing the %s quote", tokenTx.Currency)
			return
		}

		valueWei := tokenValueInWei(tokenBalance, token.Decimals, tokenRate, ethRate)
		totalTokenValueWei.Add(totalTokenValueWei, valueWei)

		s.updateTx(ctx, tokenTx.Id, func(t *domain.WithdrawalTx) error {
			t.SetPlannedTransfer(tokenBalance, gasPrice)
			return nil
		})
	}

	totalRefillCost := new(big.Int).Add(refillGasFee, tokenGasFee)
	if totalTokenValueWei.Cmp(totalRefillCost) <= 0 {
		log.Infof(
			"refill on address %s skipped: tokens value in ETH %s <= tx fee of %s",
			account.EthAddress, totalTokenValueWei, totalRefillCost,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkTokenBalanceTooLow()
		})
		for i := range tokenTxs {
			s.updateTx(ctx, tokenTxs[i].Id, func(t *domain.WithdrawalTx) error {
				return t.MarkSkipped()
			})
		}
		return
	}

	balance, err := s.ethGateway.Balance(ctx, account.EthAddress)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch balance of address %s", account.EthAddress)
		return
	}

	fundedThreshold := percentOf(tokenGasFee, fundedThresholdPercent)
	if balance.Cmp(fundedThreshold) > 0 {
		log.Infof(
			"refill on address %s skipped: current balance %s > %s and is enough for withdrawing tokens",
			account.EthAddress, balance, fundedThreshold,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkSkipped()
		})
		return
	}

	nonce, err := s.ethGateway.PendingNonce(ctx, s.cfg.GasAddress)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch nonce of gas address %s", s.cfg.GasAddress)
		return
	}

	refillAmount := percentOf(tokenGasFee, refillAmountPercent)
	txHash, err := s.ethGateway.SendTransfer(
		ctx, s.cfg.GasPrivateKey, account.EthAddress, refillAmount, gasPrice, nonce,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"refill failed for address %s and amount %s", account.EthAddress, refillAmount,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkFailed(err.Error())
		})
		return
	}

	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		t.SetPlannedTransfer(refillAmount, gasPrice)
		return t.MarkBroadcast(txHash, time.Now())
	})
	log.Infof("refill tx sent: %s", txHash)
}

// processWithdrawToken transfers the token amount computed by the refill
// step to the operator destination, once the account's refill is resolved
// and the account queue authorizes it.
func (s *withdrawService) processWithdrawToken(ctx context.Context, tx *domain.WithdrawalTx) {
	if !tx.Currency.IsToken() || tx.Type != domain.TxTypeToken {
		log.Errorf(
			"token processing called on tx %s with currency %s and type %s",
			tx.Id, tx.Currency, tx.Type,
		)
		return
	}
	if !tx.CanProcess() {
		log.Errorf("withdrawal %s already processed or processing in progress (%s)", tx.Id, tx.Status)
		return
	}

	refill, err := s.repoManager.TxRepository().GetGasRefillTx(ctx, tx.CycleId, tx.AccountId)
	if err != nil {
		log.WithError(err).Errorf("failed to load refill of withdrawal %s", tx.Id)
		return
	}
	if refill == nil {
		log.Warnf("refill transaction not found, skipping withdrawal %s", tx.Id)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkSkipped()
		})
		return
	}
	if refill.Status == domain.TxFailed {
		log.Infof("withdraw %s: %s skipped, refill transaction failed", tx.Currency, tx.Id)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkSkipped()
		})
		return
	}
	if !refill.IsResolved() {
		log.Infof("withdraw %s: %s postponed, refill transaction not completed yet", tx.Currency, tx.Id)
		return
	}

	if tx.Status != domain.TxCreated {
		queue, err := s.repoManager.QueueRepository().GetQueue(
			ctx, tx.CycleId, tx.AccountId, domain.TokenQueue,
		)
		if err != nil {
			log.WithError(err).Errorf("failed to load token queue of account %s", tx.AccountId)
			return
		}
		if !queue.Authorizes(tx.Id) {
			log.Infof("withdrawal %s delayed because other token withdrawals in queue", tx.Id)
			if tx.Status == domain.TxWaitingForGasRefill {
				s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
					return t.MarkWaitingForTokenTransfers()
				})
			}
			return
		}
	}

	if tx.Amount == nil || tx.GasPrice == nil {
		// The refill resolved without planning the transfer: nothing to spend.
		log.Warnf("withdrawal %s has no planned amount, postponing", tx.Id)
		return
	}

	token, ok := s.cfg.Tokens[tx.Currency]
	if !ok {
		log.Errorf("no contract configured for token %s", tx.Currency)
		return
	}

	account, err := s.repoManager.AccountRepository().GetAccount(ctx, tx.AccountId)
	if err != nil {
		log.WithError(err).Errorf("failed to load account of withdrawal %s", tx.Id)
		return
	}
	_, ethKey, err := s.keySource.DeriveKeys(account.Index)
	if err != nil {
		log.WithError(err).Errorf("failed to derive keys for account %s", account.Id)
		return
	}

	nonce, err := s.ethGateway.PendingNonce(ctx, account.EthAddress)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch nonce of address %s", account.EthAddress)
		return
	}

	log.Infof(
		"withdraw tx params: from %s to %s on amount %s",
		account.EthAddress, s.cfg.EthWithdrawAddress, tx.Amount,
	)

	txHash, err := s.ethGateway.SendTokenTransfer(
		ctx, ethKey, token.Address, s.cfg.EthWithdrawAddress,
		tx.Amount, tx.GasPrice, nonce,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"withdraw failed for address %s and amount %s", account.EthAddress, tx.Amount,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkFailed(err.Error())
		})
		return
	}

	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		return t.MarkBroadcast(txHash, time.Now())
	})
	log.Infof("withdraw %s tx sent: %s", tx.Currency, txHash)
}

// processWithdrawEth sweeps the residual ETH balance once every token
// withdrawal of the account is resolved.
func (s *withdrawService) processWithdrawEth(ctx context.Context, tx *domain.WithdrawalTx) {
	if tx.Currency != domain.CurrencyETH || tx.Type != domain.TxTypeNative {
		log.Errorf(
			"ETH processing called on tx %s with currency %s and type %s",
			tx.Id, tx.Currency, tx.Type,
		)
		return
	}
	if tx.Status != domain.TxCreated && tx.Status != domain.TxWaitingForTokenTransfers {
		log.Errorf("withdrawal %s already processed or processing in progress (%s)", tx.Id, tx.Status)
		return
	}

	if tx.Status == domain.TxWaitingForTokenTransfers {
		tokenTxs, err := s.repoManager.TxRepository().ListTokenTxsForAccount(
			ctx, tx.CycleId, tx.AccountId,
		)
		if err != nil {
			log.WithError(err).Errorf("failed to list token withdrawals of account %s", tx.AccountId)
			return
		}
		for i := range tokenTxs {
			if !tokenTxs[i].IsResolved() {
				log.Info("delaying tx because waiting for token transfers")
				return
			}
		}
	}

	account, err := s.repoManager.AccountRepository().GetAccount(ctx, tx.AccountId)
	if err != nil {
		log.WithError(err).Errorf("failed to load account of withdrawal %s", tx.Id)
		return
	}
	_, ethKey, err := s.keySource.DeriveKeys(account.Index)
	if err != nil {
		log.WithError(err).Errorf("failed to derive keys for account %s", account.Id)
		return
	}

	gasPrice, err := s.ethGateway.GasPrice(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch gas price")
		return
	}
	totalGasFee := new(big.Int).Mul(gasPrice, big.NewInt(refillGasLimit))

	balance, err := s.ethGateway.Balance(ctx, account.EthAddress)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch balance of address %s", account.EthAddress)
		return
	}

	if balance.Cmp(totalGasFee) <= 0 {
		log.Infof(
			"address %s skipped: balance %s <= tx fee of %s",
			account.EthAddress, balance, totalGasFee,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkSkipped()
		})
		return
	}

	nonce, err := s.ethGateway.PendingNonce(ctx, account.EthAddress)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch nonce of address %s", account.EthAddress)
		return
	}

	amount := new(big.Int).Sub(balance, totalGasFee)
	log.Infof(
		"withdraw tx params: from %s to %s on amount %s",
		account.EthAddress, s.cfg.EthWithdrawAddress, amount,
	)

	txHash, err := s.ethGateway.SendTransfer(
		ctx, ethKey, s.cfg.EthWithdrawAddress, amount, gasPrice, nonce,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"withdraw ETH failed for address %s and amount %s (%s - %s)",
			account.EthAddress, amount, balance, totalGasFee,
		)
		s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
			return t.MarkFailed(err.Error())
		})
		return
	}

	s.updateTx(ctx, tx.Id, func(t *domain.WithdrawalTx) error {
		return t.MarkBroadcast(txHash, time.Now())
	})
	log.Infof("withdraw ETH sent tx: %s", txHash)
}

// tokenValueInWei converts a raw token balance to its value in the chain
// native unit: balance / 10^tokenDecimals * tokenRate * ethRate * 10^18,
// with both rates sharing the same quote basis.
func tokenValueInWei(
	balance *big.Int, tokenDecimals int, tokenRate, ethRate decimal.Decimal,
) *big.Int {
	value := decimal.NewFromBigInt(balance, -int32(tokenDecimals)).
		Mul(tokenRate).
		Mul(ethRate).
		Mul(decimal.New(1, ethDecimals))
	return value.BigInt()
}

func percentOf(amount, percent *big.Int) *big.Int {
	res := new(big.Int).Mul(amount, percent)
	return res.Div(res, oneHundred)
}
