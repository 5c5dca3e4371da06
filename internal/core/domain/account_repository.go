package domain

import "context"

// AccountRepository persists purchaser accounts.
type AccountRepository interface {
	// AddAccount inserts a new account.
	AddAccount(ctx context.Context, account *Account) error
	// GetAccount returns an account by id, or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*Account, error)
	// ListAccounts returns every account, ordered by derivation index.
	ListAccounts(ctx context.Context) ([]Account, error)
	// NextIndex returns the derivation index for the next account.
	NextIndex(ctx context.Context) (uint32, error)
}
