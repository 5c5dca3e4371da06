package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// TxStatus represents the status of a withdrawal transaction.
type TxStatus string

const (
	TxCreated                  TxStatus = "created"
	TxPending                  TxStatus = "pending"
	TxWaitingForTokenTransfers TxStatus = "waiting_for_token_transfers"
	TxWaitingForGasRefill      TxStatus = "waiting_for_gas_refill"
	TxCompleted                TxStatus = "completed"
	TxSkipped                  TxStatus = "skipped"
	TxFailed                   TxStatus = "failed"
	TxSentNotFound             TxStatus = "sent_tx_not_found"
	TxTokenBalanceTooLow       TxStatus = "token_balance_too_low"
)

// TxType represents the type of a withdrawal transaction.
type TxType string

const (
	TxTypeNative    TxType = "native"
	TxTypeToken     TxType = "token"
	TxTypeGasRefill TxType = "gas_refill"
)

// WithdrawalTx is one withdrawal transaction owned by a cycle, for one
// account and one currency. Its transition methods enforce the eligibility
// guards; everything that talks to the outside world lives in the
// application layer.
type WithdrawalTx struct {
	Id           string
	CycleId      string
	AccountId    string
	Currency     Currency
	Amount       *big.Int
	Status       TxStatus
	Type         TxType
	TxHash       string
	GasTxCount   int
	GasPrice     *big.Int
	ErrorMessage string
	CreatedAt    time.Time
	RelayedAt    *time.Time
}

// NewWithdrawalTx returns a withdrawal transaction with the given initial
// status, as decided by the cycle builder.
func NewWithdrawalTx(
	cycleId, accountId string, currency Currency,
	status TxStatus, txType TxType,
) *WithdrawalTx {
	return &WithdrawalTx{
		Id:        uuid.New().String(),
		CycleId:   cycleId,
		AccountId: accountId,
		Currency:  currency,
		Status:    status,
		Type:      txType,
		CreatedAt: time.Now(),
	}
}

// NewGasRefillTx returns the gas refill transaction funding an account's
// token transfers within a cycle. It starts counting one token transfer.
func NewGasRefillTx(cycleId, accountId string) *WithdrawalTx {
	tx := NewWithdrawalTx(
		cycleId, accountId, CurrencyETH, TxCreated, TxTypeGasRefill,
	)
	tx.GasTxCount = 1
	return tx
}

// preSubmissionStatuses are the statuses a transaction can be processed from.
var preSubmissionStatuses = map[TxStatus]struct{}{
	TxCreated:                  {},
	TxWaitingForTokenTransfers: {},
	TxWaitingForGasRefill:      {},
}

// ongoingStatuses are the statuses keeping a cycle open.
var ongoingStatuses = []TxStatus{
	TxCreated, TxPending, TxWaitingForTokenTransfers, TxWaitingForGasRefill,
}

// OngoingTxStatuses returns the list of non-terminal statuses.
func OngoingTxStatuses() []TxStatus {
	statuses := make([]TxStatus, len(ongoingStatuses))
	copy(statuses, ongoingStatuses)
	return statuses
}

// IsOngoing returns whether the transaction still keeps its cycle open.
func (t *WithdrawalTx) IsOngoing() bool {
	for _, s := range ongoingStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// IsPending returns whether the transaction has been broadcast and awaits
// confirmation.
func (t *WithdrawalTx) IsPending() bool {
	return t.Status == TxPending
}

// IsResolved returns whether the transaction ended either confirmed or
// deliberately not attempted. A resolved gas refill unblocks its account's
// token transfers.
func (t *WithdrawalTx) IsResolved() bool {
	return t.Status == TxCompleted || t.Status == TxSkipped
}

// CanProcess returns whether the transaction is in a pre-submission status.
func (t *WithdrawalTx) CanProcess() bool {
	_, ok := preSubmissionStatuses[t.Status]
	return ok
}

// MarkBroadcast brings the transaction to pending, recording the hash
// returned by the chain together with the relay timestamp. They are set once
// and never cleared.
func (t *WithdrawalTx) MarkBroadcast(txHash string, now time.Time) error {
	if !t.CanProcess() {
		return ErrTxNotEligible
	}
	t.TxHash = txHash
	t.Status = TxPending
	t.RelayedAt = &now
	return nil
}

// MarkSkipped flags the transaction as deliberately not attempted, a
// terminal status distinct from failure.
func (t *WithdrawalTx) MarkSkipped() error {
	if !t.CanProcess() {
		return ErrTxNotEligible
	}
	t.Status = TxSkipped
	return nil
}

// MarkFailed flags the transaction as rejected, keeping the reason around
// for later inspection. A broadcast transaction can still fail when the
// chain reports it reverted.
func (t *WithdrawalTx) MarkFailed(reason string) error {
	if !t.CanProcess() && t.Status != TxPending {
		return ErrTxNotEligible
	}
	t.Status = TxFailed
	t.ErrorMessage = reason
	return nil
}

// MarkTokenBalanceTooLow flags a gas refill whose account tokens are not
// worth the gas needed to move them.
func (t *WithdrawalTx) MarkTokenBalanceTooLow() error {
	if t.Type != TxTypeGasRefill || t.Status != TxCreated {
		return ErrTxNotEligible
	}
	t.Status = TxTokenBalanceTooLow
	return nil
}

// MarkWaitingForTokenTransfers downgrades a token withdrawal that already
// left the created status but lost its turn in the account queue.
func (t *WithdrawalTx) MarkWaitingForTokenTransfers() error {
	if t.Status != TxWaitingForGasRefill {
		return ErrTxNotEligible
	}
	t.Status = TxWaitingForTokenTransfers
	return nil
}

// Confirm brings a pending transaction to completed. Calling it on an
// already completed transaction is a no-op.
func (t *WithdrawalTx) Confirm() error {
	if t.Status == TxCompleted {
		return nil
	}
	if t.Status != TxPending {
		return ErrTxNotEligible
	}
	t.Status = TxCompleted
	return nil
}

// MarkNotFoundAfter applies the stall policy: once the given window has
// elapsed since the relay timestamp with no confirmation observed, the
// transaction becomes sent_tx_not_found, a terminal status flagged for
// manual reconciliation. It returns whether the transition happened.
func (t *WithdrawalTx) MarkNotFoundAfter(now time.Time, window time.Duration) (bool, error) {
	if t.Status != TxPending {
		return false, nil
	}
	if t.RelayedAt == nil {
		return false, ErrTxNotRelayed
	}
	if now.Before(t.RelayedAt.Add(window)) {
		return false, nil
	}
	t.Status = TxSentNotFound
	return true, nil
}

// SetPlannedTransfer records the raw token amount and the gas price snapshot
// computed during the gas refill step, so that the later token transfer
// spends exactly what the refill was sized for.
func (t *WithdrawalTx) SetPlannedTransfer(amount, gasPrice *big.Int) {
	t.Amount = amount
	t.GasPrice = gasPrice
}
