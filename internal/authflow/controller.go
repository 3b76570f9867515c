// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package authflow drives sign-up, sign-in, sign-out and password reset for
// one client and is the only writer of that client's session.
package authflow

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/profile"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/internal/validation"
	"github.com/phiona/phiona/pkg/errutil"
)

// State is the position of the controller in the sign-in state machine.
type State string

// States.
const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateError          State = "error"
)

// Messages shown to users.
const (
	MsgRegistered = "Registration successful! Welcome to Phiona!"
	MsgCheckEmail = "Registration successful! Please check your email to confirm your account."
	MsgLoggedIn   = "Login successful!"
	MsgLoggedOut  = "Logged out successfully!"
	MsgResetSent  = "Password reset email sent! Check your inbox."
)

// EventKind distinguishes controller events.
type EventKind string

// Event kinds.
const (
	// EventStateChanged fires on every state transition.
	EventStateChanged EventKind = "state_changed"
	// EventDismissModal asks the presentation layer to close the auth modal.
	EventDismissModal EventKind = "dismiss_modal"
)

// Event is delivered to subscribers.
type Event struct {
	Kind  EventKind
	State State
}

// Options configures a Controller.
type Options struct {
	Observer flow.Observer
	Logger   *slog.Logger
}

// Controller is the auth flow of one client. It is safe for concurrent use.
type Controller struct {
	auth     backend.AuthProvider
	holder   *session.Holder
	profiles *profile.Service
	observer flow.Observer
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	nextID    int
	listeners map[int]func(Event)
}

// New creates a Controller. profiles may be nil when the backend creates
// profiles itself.
func New(auth backend.AuthProvider, holder *session.Holder, profiles *profile.Service, opts Options) *Controller {
	c := &Controller{
		auth:      auth,
		holder:    holder,
		profiles:  profiles,
		observer:  opts.Observer,
		logger:    opts.Logger,
		state:     StateAnonymous,
		listeners: make(map[int]func(Event)),
	}
	if c.observer == nil {
		c.observer = flow.NopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the read-only view of the session this controller writes.
func (c *Controller) Session() session.Reader {
	return c.holder
}

// Subscribe registers fn for controller events.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Restore adopts an existing backend session, if any.
func (c *Controller) Restore(ctx context.Context) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "auth.restore")

	id, err := c.auth.CurrentSession(ctx)
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "session restore failed", err)
		return done(flow.FromError(err))
	}
	if id == nil {
		if c.holder.Current().Authenticated {
			c.holder.Clear()
		}
		c.transition(StateAnonymous)
		return done(flow.Success("", nil))
	}
	c.signedIn(id)
	return done(flow.Success("", id))
}

// Register validates the sign-up form and creates the account.
func (c *Controller) Register(ctx context.Context, form validation.Record) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "auth.register")

	res := validation.Validate(form, validation.SignupRules)
	if !res.Valid() {
		c.transition(StateError)
		return done(flow.Invalid(res, res.Messages()[0]))
	}

	clean := validation.Sanitize(form, validation.SignupRules)
	email := strings.ToLower(clean[validation.FieldEmail])
	attrs := map[string]string{}
	for attr, field := range map[string]string{
		"full_name": validation.FieldName,
		"school":    validation.FieldSchool,
		"skills":    validation.FieldSkills,
	} {
		if v := clean[field]; v != "" {
			attrs[attr] = v
		}
	}

	c.transition(StateAuthenticating)
	id, err := c.auth.SignUp(ctx, email, clean[validation.FieldPassword], attrs)
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "sign up failed", err, "email", email)
		c.transition(StateError)
		return done(flow.FromError(err))
	}

	if !id.EmailConfirmed {
		c.transition(StateAnonymous)
		c.emit(Event{Kind: EventDismissModal, State: StateAnonymous})
		return done(flow.Success(MsgCheckEmail, id))
	}

	if id.Attributes == nil {
		id.Attributes = attrs
	}
	c.ensureProfile(ctx, id)
	c.signedIn(id)
	c.emit(Event{Kind: EventDismissModal, State: StateAuthenticated})
	return done(flow.Success(MsgRegistered, id))
}

// Login signs the client in. Malformed input is rejected without calling
// the backend, and a failure leaves the session untouched.
func (c *Controller) Login(ctx context.Context, email, password string) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "auth.login")

	form := validation.Record{validation.FieldEmail: email, validation.FieldPassword: password}
	res := validation.Validate(form, validation.LoginRules)
	if !res.Valid() {
		c.transition(StateError)
		return done(flow.Invalid(res, res.Messages()[0]))
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	c.transition(StateAuthenticating)
	id, err := c.auth.SignIn(ctx, normalized, password)
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "sign in failed", err, "email", normalized)
		c.transition(StateError)
		return done(flow.FromError(err))
	}

	c.ensureProfile(ctx, id)
	c.signedIn(id)
	c.emit(Event{Kind: EventDismissModal, State: StateAuthenticated})
	return done(flow.Success(MsgLoggedIn, id))
}

// Logout signs the client out. The backend is asked even when the local
// session is already empty, since it may still hold a token. The session is
// cleared only after the backend confirms.
func (c *Controller) Logout(ctx context.Context) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "auth.logout")

	if err := c.auth.SignOut(ctx); err != nil {
		errutil.LogWarn(ctx, c.logger, "sign out failed", err)
		return done(flow.FromError(err))
	}
	c.holder.Clear()
	c.transition(StateAnonymous)
	return done(flow.Success(MsgLoggedOut, nil))
}

// ResetPassword requests a password reset email. It never changes state.
func (c *Controller) ResetPassword(ctx context.Context, email string) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "auth.reset_password")

	form := validation.Record{validation.FieldEmail: email}
	res := validation.Validate(form, validation.ResetRules)
	if !res.Valid() {
		return done(flow.Invalid(res, res.Messages()[0]))
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := c.auth.RequestPasswordReset(ctx, normalized); err != nil {
		errutil.LogWarn(ctx, c.logger, "password reset request failed", err, "email", normalized)
		return done(flow.FromError(err))
	}
	return done(flow.Success(MsgResetSent, nil))
}

func (c *Controller) signedIn(id *backend.Identity) {
	c.holder.SetAuthenticated(session.User{ID: id.ID, Email: id.Email})
	c.transition(StateAuthenticated)
}

// ensureProfile creates the profile of id when it is missing. Failures are
// logged and never fail the sign-in.
func (c *Controller) ensureProfile(ctx context.Context, id *backend.Identity) {
	if c.profiles == nil {
		return
	}
	ctx, done := flow.Track(ctx, c.observer, "profile.ensure", attribute.String("user.id", id.ID))
	if _, err := c.profiles.Get(ctx, id.ID); err == nil {
		done(flow.Success("", nil))
		return
	}
	err := c.profiles.Create(ctx, id.ID, id.Email, id.Attributes["full_name"], id.Attributes["school"])
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "profile creation failed", err, "user_id", id.ID)
		done(flow.FromError(err))
		return
	}
	done(flow.Success("", nil))
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	changed := c.state != to
	c.state = to
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: EventStateChanged, State: to})
	}
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
