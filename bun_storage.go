package session

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// kvRecord is the single-table layout behind BunStorage.
type kvRecord struct {
	bun.BaseModel `bun:"table:session_store,alias:ss"`
	Key           string `bun:"key,pk"`
	Value         []byte `bun:"value,notnull"`
}

// BunStorage persists values in a SQLite table through Bun. Useful for
// hosts that already carry a local database and do not have an OS keychain.
type BunStorage struct {
	db  *bun.DB
	ctx context.Context
}

var _ Storage = (*BunStorage)(nil)

// NewBunStorage wraps an existing Bun handle. The table is created when
// missing.
func NewBunStorage(ctx context.Context, db *bun.DB) (*BunStorage, error) {
	if _, err := db.NewCreateTable().
		Model((*kvRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to create session store table")
	}
	return &BunStorage{db: db, ctx: ctx}, nil
}

// OpenBunStorage opens a SQLite database at dsn and wraps it. Use
// "file::memory:?cache=shared" for an in-memory database.
func OpenBunStorage(ctx context.Context, dsn string) (*BunStorage, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to open sqlite database")
	}
	return NewBunStorage(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
}

func (s *BunStorage) Get(key string) ([]byte, error) {
	rec := new(kvRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("key = ?", key).
		Scan(s.ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStorageKeyNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "session store read failed")
	}
	return rec.Value, nil
}

func (s *BunStorage) Set(key string, value []byte) error {
	rec := &kvRecord{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(s.ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "session store write failed")
	}
	return nil
}

func (s *BunStorage) Delete(key string) error {
	_, err := s.db.NewDelete().
		Model((*kvRecord)(nil)).
		Where("key = ?", key).
		Exec(s.ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "session store delete failed")
	}
	return nil
}
