// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/pkg/errutil"
)

// Messages returned to users. They mirror the wording of hosted auth services
// so the UI reads the same regardless of backend.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgAlreadyRegistered  = "User already registered"
	MsgEmailNotConfirmed  = "Email not confirmed"
	MsgLocked             = "Too many failed attempts. Please try again later."
	MsgWeakPassword       = "Password should be at least 6 characters"
)

const minPasswordLength = 6

// Options configures a Service.
type Options struct {
	// AutoConfirm marks new accounts confirmed so sign-up signs in directly.
	AutoConfirm bool
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service registers and authenticates accounts.
type Service struct {
	store       Store
	hasher      PasswordHasher
	notifier    Notifier
	autoConfirm bool
	logger      *slog.Logger
	now         func() time.Time
	dummyHash   string
}

// NewService creates a Service.
func NewService(store Store, hasher PasswordHasher, opts Options) (*Service, error) {
	s := &Service{
		store:       store,
		hasher:      hasher,
		notifier:    opts.Notifier,
		autoConfirm: opts.AutoConfirm,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	if s.now == nil {
		s.now = time.Now
	}

	// Unknown emails are verified against a hash with the same cost so sign-in
	// time does not reveal whether an account exists.
	dummy := make([]byte, 16)
	if _, err := rand.Read(dummy); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, err)
	}
	hash, err := hasher.Hash(string(dummy) + "x")
	if err != nil {
		return nil, apperr.Wrap(apperr.Unknown, err)
	}
	s.dummyHash = hash
	return s, nil
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password string, attrs map[string]string) (*Account, error) {
	email = NormalizeEmail(email)
	if len(password) < minPasswordLength {
		return nil, apperr.New(apperr.Auth).With("email", email).Errorf(MsgWeakPassword)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.New(apperr.Unknown).With("operation", "hash password").Wrap(err)
	}

	now := s.now()
	acct := &Account{
		ID:             ulid.Make(),
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: s.autoConfirm,
		Attributes:     maps.Clone(attrs),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if acct.Attributes == nil {
		acct.Attributes = map[string]string{}
	}

	if err := s.store.Create(ctx, acct); err != nil {
		if apperr.Is(err, apperr.Duplicate) {
			return nil, apperr.New(apperr.Auth).With("email", email).Errorf(MsgAlreadyRegistered)
		}
		return nil, classifyStoreErr(err, "create account")
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", acct.ID.String(), "confirmed", acct.EmailConfirmed)
	return acct, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords yield
// the same error after the same amount of work.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	acct, lookupErr := s.store.GetByEmail(ctx, email)

	target := s.dummyHash
	exists := false
	switch {
	case lookupErr == nil:
		target = acct.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
	default:
		return nil, classifyStoreErr(lookupErr, "get account by email")
	}

	valid, verifyErr := s.hasher.Verify(password, target)
	if verifyErr != nil && exists {
		return nil, apperr.New(apperr.Unknown).With("operation", "verify password").Wrap(verifyErr)
	}

	now := s.now()
	if !exists || !valid {
		if exists {
			acct.RecordFailure(now)
			if err := s.store.Update(ctx, acct); err != nil {
				errutil.LogWarn(ctx, s.logger, "record sign-in failure", err)
			}
		}
		return nil, apperr.New(apperr.Auth).Errorf(MsgInvalidCredentials)
	}

	if acct.IsLocked(now) {
		return nil, apperr.New(apperr.Auth).With("locked_until", acct.LockedUntil).Errorf(MsgLocked)
	}
	if !acct.EmailConfirmed {
		return nil, apperr.New(apperr.Auth).Errorf(MsgEmailNotConfirmed)
	}

	if acct.FailedAttempts > 0 {
		acct.RecordSuccess(now)
		if err := s.store.Update(ctx, acct); err != nil {
			errutil.LogWarn(ctx, s.logger, "reset sign-in failures", err)
		}
	}
	return acct, nil
}

// Lookup returns the account with the given id.
func (s *Service) Lookup(ctx context.Context, id ulid.ULID) (*Account, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreErr(err, "get account by id")
	}
	return acct, nil
}

// Confirm marks an account's email as confirmed.
func (s *Service) Confirm(ctx context.Context, id ulid.ULID) error {
	acct, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	acct.EmailConfirmed = true
	acct.UpdatedAt = s.now()
	if err := s.store.Update(ctx, acct); err != nil {
		return classifyStoreErr(err, "confirm account")
	}
	return nil
}

// RequestReset issues a reset token for email. Unknown emails succeed
// without sending anything so the response does not reveal which addresses
// have accounts.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	acct, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return classifyStoreErr(err, "get account by email")
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return apperr.Wrap(apperr.Unknown, err)
	}
	now := s.now()
	reset := &PasswordReset{
		ID:        ulid.Make(),
		AccountID: acct.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(ResetTokenExpiry),
		CreatedAt: now,
	}
	if err := s.store.CreateReset(ctx, reset); err != nil {
		return classifyStoreErr(err, "create reset")
	}
	if err := s.notifier.SendPasswordReset(ctx, acct.Email, token); err != nil {
		return apperr.New(apperr.Network).With("operation", "send reset").Wrap(err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token and removes every
// outstanding reset for the account.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.New(apperr.Auth).Errorf(MsgWeakPassword)
	}
	reset, err := s.store.GetResetByTokenHash(ctx, HashResetToken(token))
	if errors.Is(err, ErrNotFound) {
		return apperr.New(apperr.Auth).Errorf("Reset link is invalid or has expired")
	}
	if err != nil {
		return classifyStoreErr(err, "get reset")
	}
	if reset.IsExpired(s.now()) {
		return apperr.New(apperr.Auth).Errorf("Reset link is invalid or has expired")
	}

	acct, err := s.Lookup(ctx, reset.AccountID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.New(apperr.Unknown).With("operation", "hash password").Wrap(err)
	}
	acct.PasswordHash = hash
	acct.RecordSuccess(s.now())
	if err := s.store.Update(ctx, acct); err != nil {
		return classifyStoreErr(err, "update password")
	}
	if err := s.store.DeleteResets(ctx, acct.ID); err != nil {
		errutil.LogWarn(ctx, s.logger, "delete resets", err)
	}
	return nil
}

// classifyStoreErr keeps a kind the store already assigned and tags
// everything else Unknown.
func classifyStoreErr(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.New(apperr.Auth).With("operation", op).Errorf("Account not found")
	}
	if k := apperr.KindOf(err); k != apperr.Unknown {
		return err
	}
	return apperr.New(apperr.Unknown).With("operation", op).Wrap(err)
}
