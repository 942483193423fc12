package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/counter-program/pkg/ledger"

	pgutil "github.com/code-payments/counter-program/pkg/database/postgres"
)

const (
	accountTableName = "counter__core_account"
)

type accountModel struct {
	Id            sql.NullInt64 `db:"id"`
	Address       string        `db:"address"`
	Owner         string        `db:"owner"`
	Lamports      int64         `db:"lamports"`
	Data          []byte        `db:"data"`
	Executable    bool          `db:"executable"`
	RentEpoch     int64         `db:"rent_epoch"`
	Slot          int64         `db:"slot"`
	Version       int64         `db:"version"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

func toAccountModel(obj *ledger.Record) (*accountModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &accountModel{
		Address:       obj.Address,
		Owner:         obj.Owner,
		Lamports:      int64(obj.Lamports),
		Data:          data,
		Executable:    obj.Executable,
		RentEpoch:     int64(obj.RentEpoch),
		Slot:          int64(obj.Slot),
		Version:       int64(obj.Version),
		LastUpdatedAt: time.Now(),
	}, nil
}

func fromAccountModel(obj *accountModel) *ledger.Record {
	return &ledger.Record{
		Id:            uint64(obj.Id.Int64),
		Address:       obj.Address,
		Owner:         obj.Owner,
		Lamports:      uint64(obj.Lamports),
		Data:          obj.Data,
		Executable:    obj.Executable,
		RentEpoch:     uint64(obj.RentEpoch),
		Slot:          uint64(obj.Slot),
		Version:       uint64(obj.Version),
		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func (m *accountModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + accountTableName + `
			(address, owner, lamports, data, executable, rent_epoch, slot, version, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8 + 1, $9)

			ON CONFLICT (address)
			DO UPDATE
				SET owner = $2, lamports = $3, data = $4, executable = $5, rent_epoch = $6, slot = $7, version = ` + accountTableName + `.version + 1, last_updated_at = $9
				WHERE ` + accountTableName + `.address = $1 AND ` + accountTableName + `.version = $8

			RETURNING
				id, address, owner, lamports, data, executable, rent_epoch, slot, version, last_updated_at`

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Owner,
			m.Lamports,
			m.Data,
			m.Executable,
			m.RentEpoch,
			m.Slot,
			m.Version,
			m.LastUpdatedAt,
		).StructScan(m)
		if err != nil {
			return pgutil.CheckNoRows(err, ledger.ErrStaleVersion)
		}
		return nil
	})
}

func dbGetCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + accountTableName
	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}

	return res, nil
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*accountModel, error) {
	res := &accountModel{}

	query := `SELECT id, address, owner, lamports, data, executable, rent_epoch, slot, version, last_updated_at
		FROM ` + accountTableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetAll(ctx context.Context, db *sqlx.DB, addresses ...string) ([]*accountModel, error) {
	res := []*accountModel{}
	if len(addresses) == 0 {
		return res, nil
	}

	query, args, err := sqlx.In(`SELECT id, address, owner, lamports, data, executable, rent_epoch, slot, version, last_updated_at
		FROM `+accountTableName+`
		WHERE address IN (?)`, addresses)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return res, nil
}
