package domain

import "errors"

var (
	// ErrCycleNotFound ...
	ErrCycleNotFound = errors.New("withdraw cycle not found")
	// ErrTxNotFound ...
	ErrTxNotFound = errors.New("withdrawal transaction not found")
	// ErrQueueNotFound ...
	ErrQueueNotFound = errors.New("transaction queue not found")
	// ErrAccountNotFound ...
	ErrAccountNotFound = errors.New("account not found")
	// ErrCycleMustBeCreated is thrown when starting a cycle that already left
	// the created status.
	ErrCycleMustBeCreated = errors.New("withdraw cycle must be in created status")
	// ErrTxNotEligible is thrown when a transition is applied to a
	// transaction whose current status does not permit it.
	ErrTxNotEligible = errors.New("withdrawal transaction status is not eligible for this transition")
	// ErrTxNotRelayed is thrown when checking the stall window of a
	// transaction that was never broadcast.
	ErrTxNotRelayed = errors.New("withdrawal transaction was never relayed")
)
