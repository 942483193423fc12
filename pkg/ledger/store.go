package ledger

import (
	"context"
)

type Store interface {
	// Count returns the number of accounts in the ledger.
	Count(ctx context.Context) (uint64, error)

	// Save creates or updates an account. The record's Version must match the
	// stored version, or be zero for a new account, otherwise ErrStaleVersion
	// is returned. On success the record's Version is incremented.
	Save(ctx context.Context, record *Record) error

	// SaveBatch saves every record with the semantics of Save. Either all
	// records are written or none are.
	SaveBatch(ctx context.Context, records ...*Record) error

	// Get finds the account at address.
	//
	// Returns ErrAccountNotFound if no record is found.
	Get(ctx context.Context, address string) (*Record, error)

	// GetAll returns the accounts found at addresses, in the order requested.
	// Missing addresses are skipped.
	GetAll(ctx context.Context, addresses ...string) ([]*Record, error)
}
