// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package postgres persists accounts and password resets in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/phiona/phiona/internal/accounts"
	"github.com/phiona/phiona/internal/backend/postgres"
)

const accountColumns = `id, email, password_hash, email_confirmed, attributes,
	failed_attempts, locked_until, created_at, updated_at`

// Store implements accounts.Store.
type Store struct {
	pool postgres.Pool
}

var _ accounts.Store = (*Store)(nil)

// NewStore creates a Store.
func NewStore(pool postgres.Pool) *Store {
	return &Store{pool: pool}
}

// Create implements accounts.Store. A taken email is a Duplicate error.
func (s *Store) Create(ctx context.Context, a *accounts.Account) error {
	attrs, err := json.Marshal(nonNil(a.Attributes))
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "marshal attributes").Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID.String(),
		a.Email,
		a.PasswordHash,
		a.EmailConfirmed,
		attrs,
		a.FailedAttempts,
		a.LockedUntil,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return postgres.ClassifyError(err, "accounts", "insert account")
	}
	return nil
}

// GetByID implements accounts.Store.
func (s *Store) GetByID(ctx context.Context, id ulid.ULID) (*accounts.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(accounts.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err, "accounts", "get account by id")
	}
	return a, nil
}

// GetByEmail implements accounts.Store.
func (s *Store) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(accounts.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err, "accounts", "get account by email")
	}
	return a, nil
}

// Update implements accounts.Store.
func (s *Store) Update(ctx context.Context, a *accounts.Account) error {
	attrs, err := json.Marshal(nonNil(a.Attributes))
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "marshal attributes").Wrap(err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			password_hash = $3,
			email_confirmed = $4,
			attributes = $5,
			failed_attempts = $6,
			locked_until = $7,
			updated_at = $8
		WHERE id = $1
	`,
		a.ID.String(),
		a.Email,
		a.PasswordHash,
		a.EmailConfirmed,
		attrs,
		a.FailedAttempts,
		a.LockedUntil,
		a.UpdatedAt,
	)
	if err != nil {
		return postgres.ClassifyError(err, "accounts", "update account")
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", a.ID.String()).Wrap(accounts.ErrNotFound)
	}
	return nil
}

// CreateReset implements accounts.Store.
func (s *Store) CreateReset(ctx context.Context, r *accounts.PasswordReset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_resets (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID.String(), r.AccountID.String(), r.TokenHash, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return postgres.ClassifyError(err, "password_resets", "insert reset")
	}
	return nil
}

// GetResetByTokenHash implements accounts.Store.
func (s *Store) GetResetByTokenHash(ctx context.Context, hash string) (*accounts.PasswordReset, error) {
	var (
		r              accounts.PasswordReset
		id, accountID  string
		expires, since time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM password_resets WHERE token_hash = $1
	`, hash).Scan(&id, &accountID, &r.TokenHash, &expires, &since)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(accounts.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err, "password_resets", "get reset")
	}
	if r.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", id).Wrap(err)
	}
	if r.AccountID, err = ulid.Parse(accountID); err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("account_id", accountID).Wrap(err)
	}
	r.ExpiresAt, r.CreatedAt = expires, since
	return &r, nil
}

// DeleteResets implements accounts.Store.
func (s *Store) DeleteResets(ctx context.Context, accountID ulid.ULID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE account_id = $1`, accountID.String()); err != nil {
		return postgres.ClassifyError(err, "password_resets", "delete resets")
	}
	return nil
}

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var (
		a     accounts.Account
		id    string
		attrs []byte
	)
	if err := row.Scan(
		&id,
		&a.Email,
		&a.PasswordHash,
		&a.EmailConfirmed,
		&attrs,
		&a.FailedAttempts,
		&a.LockedUntil,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").With("id", id).Wrap(err)
	}
	a.ID = parsed

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &a.Attributes); err != nil {
			return nil, oops.Code("ACCOUNT_INVALID_ATTRIBUTES").With("id", id).Wrap(err)
		}
	}
	return &a, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
