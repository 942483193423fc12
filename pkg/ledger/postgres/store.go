package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/counter-program/pkg/ledger"

	pgutil "github.com/code-payments/counter-program/pkg/database/postgres"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) ledger.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Count returns the number of accounts in the ledger.
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbGetCount(ctx, s.db)
}

// Save creates or updates an account.
func (s *store) Save(ctx context.Context, record *ledger.Record) error {
	obj, err := toAccountModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromAccountModel(obj)
	res.CopyTo(record)

	return nil
}

// SaveBatch saves every record inside a single serializable transaction. The
// transaction is retried when postgres aborts it on a serialization conflict.
func (s *store) SaveBatch(ctx context.Context, records ...*ledger.Record) error {
	var models []*accountModel
	err := pgutil.ExecuteRetryable(func() error {
		models = make([]*accountModel, len(records))
		for i, record := range records {
			obj, err := toAccountModel(record)
			if err != nil {
				return err
			}
			models[i] = obj
		}

		return pgutil.ExecuteTxWithinCtx(ctx, s.db, sql.LevelSerializable, func(ctx context.Context) error {
			for _, obj := range models {
				if err := obj.dbSave(ctx, s.db); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	for i, obj := range models {
		fromAccountModel(obj).CopyTo(records[i])
	}
	return nil
}

// Get finds the account at address.
//
// Returns ErrAccountNotFound if no record is found.
func (s *store) Get(ctx context.Context, address string) (*ledger.Record, error) {
	obj, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromAccountModel(obj), nil
}

// GetAll returns the accounts found at addresses, in the order requested.
func (s *store) GetAll(ctx context.Context, addresses ...string) ([]*ledger.Record, error) {
	models, err := dbGetAll(ctx, s.db, addresses...)
	if err != nil {
		return nil, err
	}

	byAddress := make(map[string]*accountModel, len(models))
	for _, obj := range models {
		byAddress[obj.Address] = obj
	}

	res := make([]*ledger.Record, 0, len(models))
	for _, address := range addresses {
		if obj, ok := byAddress[address]; ok {
			res = append(res, fromAccountModel(obj))
		}
	}
	return res, nil
}
