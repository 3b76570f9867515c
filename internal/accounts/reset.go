// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32
	ResetTokenExpiry = time.Hour
)

// PasswordReset is a pending reset request. Only the token hash is stored.
type PasswordReset struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the reset has expired at now.
func (r *PasswordReset) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// GenerateResetToken returns a random hex token and its sha256 hash.
func GenerateResetToken() (token, hash string, err error) {
	b := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the stored form of a reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Notifier delivers reset tokens to account owners.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier records reset requests in the log instead of sending mail.
// The token itself is never logged.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendPasswordReset implements Notifier.
func (n LogNotifier) SendPasswordReset(ctx context.Context, email, _ string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset issued", "email", email)
	return nil
}
