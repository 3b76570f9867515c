// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package postgres stores portal records directly in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// Pool is the subset of *pgxpool.Pool used by the stores. pgxmock pools
// satisfy it in unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperr.New(apperr.Unknown).With("operation", "parse database url").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.New(apperr.Network).With("operation", "ping database").Wrap(err)
	}
	return pool, nil
}

// ClassifyError tags a database error with its apperr kind. Integrity
// constraint violations become Duplicate, Reference or InvalidData;
// connection failures become Network.
func ClassifyError(err error, table, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := backend.ConstraintKind(pgErr.Code); ok {
			return backend.ConstraintError(kind, table, pgErr.ConstraintName, pgErr.Detail)
		}
		return apperr.New(apperr.Unknown).
			With("table", table).
			With("operation", op).
			With("sqlstate", pgErr.Code).
			Wrap(err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || apperr.KindOf(err) == apperr.Network {
		return apperr.New(apperr.Network).With("table", table).With("operation", op).Wrap(err)
	}
	if k := apperr.KindOf(err); k != apperr.Unknown {
		return err
	}
	return apperr.New(apperr.Unknown).With("table", table).With("operation", op).Wrap(err)
}
