// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package accounts

import (
	"context"
	"maps"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[ulid.ULID]*Account
	byEmail  map[string]ulid.ULID
	resets   map[string]*PasswordReset
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[ulid.ULID]*Account),
		byEmail:  make(map[string]ulid.ULID),
		resets:   make(map[string]*PasswordReset),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(a.Email)
	if _, taken := s.byEmail[email]; taken {
		return apperr.New(apperr.Duplicate).With("email", email).Errorf("email already registered")
	}
	s.accounts[a.ID] = copyAccount(a)
	s.byEmail[email] = a.ID
	return nil
}

// GetByID implements Store.
func (s *MemoryStore) GetByID(_ context.Context, id ulid.ULID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(a), nil
}

// GetByEmail implements Store.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(s.accounts[id]), nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	s.accounts[a.ID] = copyAccount(a)
	return nil
}

// CreateReset implements Store.
func (s *MemoryStore) CreateReset(_ context.Context, r *PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.resets[r.TokenHash] = &c
	return nil
}

// GetResetByTokenHash implements Store.
func (s *MemoryStore) GetResetByTokenHash(_ context.Context, hash string) (*PasswordReset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resets[hash]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

// DeleteResets implements Store.
func (s *MemoryStore) DeleteResets(_ context.Context, accountID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, r := range s.resets {
		if r.AccountID == accountID {
			delete(s.resets, hash)
		}
	}
	return nil
}

func copyAccount(a *Account) *Account {
	c := *a
	c.Attributes = maps.Clone(a.Attributes)
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}
