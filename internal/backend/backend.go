// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package backend defines the capabilities the portal needs from its hosted
// auth and storage service.
//
// Adapters live in subpackages: memory (in-process), postgres (direct
// database) and rest (hosted service over HTTP). Every error an adapter
// returns is tagged with an apperr.Kind so callers never inspect
// adapter-specific codes.
package backend

import (
	"context"
)

// Identity is an account as reported by the auth provider.
type Identity struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	EmailConfirmed bool              `json:"email_confirmed"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// AuthProvider manages accounts and the sign-in state of one client.
type AuthProvider interface {
	// SignUp creates an account. Providers that auto-confirm email also sign
	// the client in and return a confirmed identity.
	SignUp(ctx context.Context, email, password string, attrs map[string]string) (*Identity, error)

	// SignIn authenticates the client.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignOut ends the client's session.
	SignOut(ctx context.Context) error

	// CurrentSession returns the signed-in identity, or (nil, nil) when the
	// client has no session.
	CurrentSession(ctx context.Context) (*Identity, error)

	// RequestPasswordReset starts the password reset flow for email. It
	// succeeds whether or not an account exists.
	RequestPasswordReset(ctx context.Context, email string) error
}

// RecordStore is generic row persistence.
type RecordStore interface {
	// CreateRecord inserts a row and returns it with generated columns filled.
	CreateRecord(ctx context.Context, table string, fields Fields) (*Record, error)

	// FindRecord returns the first row matching filter, or (nil, nil).
	FindRecord(ctx context.Context, table string, filter Filter) (*Record, error)

	// UpdateRecord changes fields of the row with the given id.
	UpdateRecord(ctx context.Context, table, id string, fields Fields) (*Record, error)

	// ListRecords returns the rows matching filter.
	ListRecords(ctx context.Context, table string, filter Filter, q Query) ([]*Record, error)
}

// Collaborator is the full capability set used by the flow controllers.
type Collaborator interface {
	AuthProvider
	RecordStore
}

// Factory creates a collaborator for one client. Each client owns its own
// auth state; records are shared.
type Factory func(ctx context.Context) (Collaborator, error)

type composite struct {
	AuthProvider
	RecordStore
}

// Compose joins an auth provider and a record store.
func Compose(auth AuthProvider, records RecordStore) Collaborator {
	return composite{AuthProvider: auth, RecordStore: records}
}

// Query controls ordering and size of ListRecords results.
type Query struct {
	OrderBy string
	Desc    bool
	Limit   int
}
