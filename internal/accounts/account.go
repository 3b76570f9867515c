// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package accounts implements email/password accounts for backends that
// manage identities themselves rather than delegating to a hosted service.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/backend"
)

// Lockout policy.
const (
	LockoutThreshold = 7
	LockoutDuration  = 15 * time.Minute
)

// ErrNotFound is returned by stores when an account or reset does not exist.
var ErrNotFound = errors.New("not found")

// Account is a stored identity.
type Account struct {
	ID             ulid.ULID
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	Attributes     map[string]string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity converts the account to the backend representation.
func (a *Account) Identity() *backend.Identity {
	attrs := make(map[string]string, len(a.Attributes))
	for k, v := range a.Attributes {
		attrs[k] = v
	}
	return &backend.Identity{
		ID:             a.ID.String(),
		Email:          a.Email,
		EmailConfirmed: a.EmailConfirmed,
		Attributes:     attrs,
	}
}

// IsLocked reports whether the account is locked at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// RecordFailure counts a failed sign-in and locks the account at the threshold.
func (a *Account) RecordFailure(now time.Time) {
	a.FailedAttempts++
	if a.FailedAttempts >= LockoutThreshold {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
	}
	a.UpdatedAt = now
}

// RecordSuccess clears the failure counter and any lockout.
func (a *Account) RecordSuccess(now time.Time) {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

// Store persists accounts and password resets.
type Store interface {
	// Create stores a new account. It returns an apperr.Duplicate error when
	// the email is taken.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)
	// GetByEmail matches case-insensitively; returns ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	CreateReset(ctx context.Context, r *PasswordReset) error
	GetResetByTokenHash(ctx context.Context, hash string) (*PasswordReset, error)
	DeleteResets(ctx context.Context, accountID ulid.ULID) error
}
