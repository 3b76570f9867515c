// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package rest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// Client is the collaborator of one browser client. It holds that client's
// access token and sends it with record requests so row-level policies
// apply.
type Client struct {
	svc *Service

	mu      sync.Mutex
	token   string
	current *backend.Identity
}

var _ backend.Collaborator = (*Client)(nil)

// NewClient creates a signed-out client.
func NewClient(svc *Service) *Client {
	return &Client{svc: svc}
}

type user struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *string        `json:"email_confirmed_at"`
	ConfirmedAt      *string        `json:"confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *user  `json:"user"`
}

// signUpResponse is either a session (auto-confirm) or a bare user.
type signUpResponse struct {
	tokenResponse
	user
}

func (u *user) identity() (*backend.Identity, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return nil, apperr.New(apperr.Unknown).With("id", u.ID).Wrapf(err, "backend returned an invalid user id")
	}
	attrs := make(map[string]string, len(u.UserMetadata))
	for k, v := range u.UserMetadata {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}
	return &backend.Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil || u.ConfirmedAt != nil,
		Attributes:     attrs,
	}, nil
}

// SignUp implements backend.AuthProvider.
func (c *Client) SignUp(ctx context.Context, email, password string, attrs map[string]string) (*backend.Identity, error) {
	body := map[string]any{"email": email, "password": password}
	if len(attrs) > 0 {
		body["data"] = attrs
	}

	var resp signUpResponse
	err := c.svc.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body}, &resp)
	if err != nil {
		return nil, authError(err, "sign up")
	}

	u := resp.tokenResponse.User
	if u == nil {
		u = &resp.user
	}
	id, err := u.identity()
	if err != nil {
		return nil, err
	}
	if resp.AccessToken != "" {
		c.set(resp.AccessToken, id)
	}
	return id, nil
}

// SignIn implements backend.AuthProvider.
func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	var resp tokenResponse
	err := c.svc.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return nil, authError(err, "sign in")
	}
	if resp.User == nil || resp.AccessToken == "" {
		return nil, apperr.New(apperr.Unknown).Errorf("backend returned no session")
	}
	id, err := resp.User.identity()
	if err != nil {
		return nil, err
	}
	c.set(resp.AccessToken, id)
	return id, nil
}

// SignOut implements backend.AuthProvider. The local session is kept when
// the backend cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.accessToken()
	if token == "" {
		return nil
	}
	err := c.svc.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout", token: token}, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.status == http.StatusUnauthorized) {
		return authError(err, "sign out")
	}
	c.set("", nil)
	return nil
}

// CurrentSession implements backend.AuthProvider. An expired token ends the
// session.
func (c *Client) CurrentSession(ctx context.Context) (*backend.Identity, error) {
	token := c.accessToken()
	if token == "" {
		return nil, nil
	}

	var u user
	err := c.svc.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: token, idempotent: true}, &u)
	var se *statusError
	if errors.As(err, &se) && (se.status == http.StatusUnauthorized || se.status == http.StatusForbidden) {
		c.set("", nil)
		return nil, nil
	}
	if err != nil {
		return nil, authError(err, "get user")
	}
	id, err := u.identity()
	if err != nil {
		return nil, err
	}
	c.set(token, id)
	return id, nil
}

// RequestPasswordReset implements backend.AuthProvider.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	err := c.svc.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		body:   map[string]string{"email": email},
	}, nil)
	if err != nil {
		return authError(err, "recover")
	}
	return nil
}

func (c *Client) set(token string, id *backend.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.current = token, id
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// authError classifies auth API failures. Client errors carry the backend's
// message as an Auth error.
func authError(err error, op string) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	kind := apperr.Unknown
	switch {
	case se.status >= 400 && se.status < 500:
		kind = apperr.Auth
	case se.transient():
		kind = apperr.Network
	}
	return apperr.New(kind).
		With("operation", op).
		With("status", se.status).
		With("error_code", se.body.ErrorCode).
		Errorf("%s", se.Error())
}
