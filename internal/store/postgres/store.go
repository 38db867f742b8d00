// Package postgres is the durable store. All mutations go through an execer
// that prefers the transaction carried in context, so a service unit of work
// (state change plus outbox append) commits or rolls back as one.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"

	txcontext "domainflow/pkg/platform/tx"
)

// Schema is the DDL for all tables this store owns. Integration tests apply
// it to a fresh database; deployments apply it through migration tooling.
//
//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx opens a transaction, stores it in context and commits when fn
// succeeds. Store calls made with the returned context join the transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
