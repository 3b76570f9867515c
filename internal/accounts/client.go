// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package accounts

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// Client is the auth provider of one client, backed by a shared Service.
type Client struct {
	svc *Service

	mu      sync.Mutex
	current *ulid.ULID
}

var _ backend.AuthProvider = (*Client)(nil)

// NewClient creates a signed-out client.
func NewClient(svc *Service) *Client {
	return &Client{svc: svc}
}

// SignUp implements backend.AuthProvider. Confirmed accounts are signed in.
func (c *Client) SignUp(ctx context.Context, email, password string, attrs map[string]string) (*backend.Identity, error) {
	acct, err := c.svc.Register(ctx, email, password, attrs)
	if err != nil {
		return nil, err
	}
	if acct.EmailConfirmed {
		c.set(&acct.ID)
	}
	return acct.Identity(), nil
}

// SignIn implements backend.AuthProvider.
func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	acct, err := c.svc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(&acct.ID)
	return acct.Identity(), nil
}

// SignOut implements backend.AuthProvider. Signing out without a session succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.Network, err)
	}
	c.set(nil)
	return nil
}

// CurrentSession implements backend.AuthProvider. A session whose account
// no longer exists is dropped.
func (c *Client) CurrentSession(ctx context.Context) (*backend.Identity, error) {
	c.mu.Lock()
	id := c.current
	c.mu.Unlock()
	if id == nil {
		return nil, nil
	}

	acct, err := c.svc.Lookup(ctx, *id)
	if err != nil {
		if apperr.Is(err, apperr.Auth) {
			c.set(nil)
			return nil, nil
		}
		return nil, err
	}
	return acct.Identity(), nil
}

// RequestPasswordReset implements backend.AuthProvider.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.svc.RequestReset(ctx, email)
}

func (c *Client) set(id *ulid.ULID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
}
