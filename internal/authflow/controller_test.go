// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package authflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/authflow"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/backendtest"
	"github.com/phiona/phiona/internal/profile"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/internal/validation"
)

func ada() *backend.Identity {
	return &backend.Identity{ID: "u1", Email: "ada@example.com", EmailConfirmed: true}
}

func signupForm() validation.Record {
	return validation.Record{
		validation.FieldName:            " Ada Lovelace ",
		validation.FieldEmail:           " Ada@Example.COM ",
		validation.FieldPassword:        "secret1",
		validation.FieldPasswordConfirm: "secret1",
		validation.FieldSchool:          "MIT",
		validation.FieldAgreeTerms:      "true",
	}
}

func newController(m *backendtest.Collaborator) (*authflow.Controller, *session.Holder) {
	holder := session.NewHolder()
	return authflow.New(m, holder, nil, authflow.Options{}), holder
}

func TestRegister_InvalidFormMakesNoCall(t *testing.T) {
	m := &backendtest.Collaborator{}
	c, holder := newController(m)

	form := signupForm()
	form[validation.FieldPassword] = "12345"
	form[validation.FieldPasswordConfirm] = "12345"

	out := c.Register(context.Background(), form)
	assert.False(t, out.OK)
	assert.Equal(t, apperr.Validation, out.Kind)
	assert.Contains(t, out.FieldErrors[validation.FieldPassword], "at least 6")
	assert.NotContains(t, out.FieldErrors, validation.FieldPasswordConfirm)
	assert.Equal(t, authflow.StateError, c.State())
	assert.False(t, holder.Current().Authenticated)
	m.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_Success(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("SignUp", mock.Anything, "ada@example.com", "secret1",
		map[string]string{"full_name": "Ada Lovelace", "school": "MIT"}).Return(ada(), nil)
	c, holder := newController(m)

	var events []authflow.Event
	cancel := c.Subscribe(func(ev authflow.Event) { events = append(events, ev) })
	defer cancel()

	out := c.Register(context.Background(), signupForm())
	require.True(t, out.OK, out.Message)
	assert.Equal(t, authflow.MsgRegistered, out.Message)
	assert.Equal(t, authflow.StateAuthenticated, c.State())
	assert.Equal(t, session.Session{UserID: "u1", Email: "ada@example.com", Authenticated: true}, holder.Current())
	assert.Contains(t, events, authflow.Event{Kind: authflow.EventDismissModal, State: authflow.StateAuthenticated})
	m.AssertExpectations(t)
}

func TestRegister_CollaboratorFailureLeavesSession(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.Errorf(apperr.Auth, "User already registered"))
	c, holder := newController(m)

	out := c.Register(context.Background(), signupForm())
	assert.False(t, out.OK)
	assert.Equal(t, apperr.Auth, out.Kind)
	assert.Equal(t, "User already registered", out.Message)
	assert.Equal(t, authflow.StateError, c.State())
	assert.Equal(t, session.Session{}, holder.Current())
}

func TestRegister_UnconfirmedEmail(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&backend.Identity{ID: "u1", Email: "ada@example.com"}, nil)
	c, holder := newController(m)

	out := c.Register(context.Background(), signupForm())
	assert.True(t, out.OK)
	assert.Equal(t, authflow.MsgCheckEmail, out.Message)
	assert.Equal(t, authflow.StateAnonymous, c.State())
	assert.False(t, holder.Current().Authenticated)
}

func TestLogin(t *testing.T) {
	t.Run("malformed input is rejected locally", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		c, _ := newController(m)

		out := c.Login(context.Background(), "not-an-email", "secret1")
		assert.Equal(t, validation.MsgInvalidEmail, out.FieldErrors[validation.FieldEmail])

		out = c.Login(context.Background(), "ada@example.com", "12345")
		assert.Contains(t, out.FieldErrors, validation.FieldPassword)
		m.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure never mutates the session", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignIn", mock.Anything, "ada@example.com", "wrong1").
			Return(nil, apperr.Errorf(apperr.Auth, "Invalid login credentials"))
		c, holder := newController(m)

		before := holder.Current()
		out := c.Login(context.Background(), "ada@example.com", "wrong1")
		assert.Equal(t, "Invalid login credentials", out.Message)
		assert.Equal(t, before, holder.Current())
		assert.Equal(t, authflow.StateError, c.State())
	})

	t.Run("success sets session and dismisses modal", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignIn", mock.Anything, "ada@example.com", "secret1").Return(ada(), nil)
		c, holder := newController(m)

		dismissed := false
		c.Subscribe(func(ev authflow.Event) { dismissed = dismissed || ev.Kind == authflow.EventDismissModal })

		out := c.Login(context.Background(), " ADA@example.com", "secret1")
		assert.True(t, out.OK)
		assert.Equal(t, authflow.MsgLoggedIn, out.Message)
		assert.True(t, holder.Current().Authenticated)
		assert.True(t, dismissed)
	})
}

func TestLogout(t *testing.T) {
	login := func(t *testing.T, m *backendtest.Collaborator) (*authflow.Controller, *session.Holder) {
		t.Helper()
		m.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(ada(), nil)
		c, holder := newController(m)
		require.True(t, c.Login(context.Background(), "ada@example.com", "secret1").OK)
		return c, holder
	}

	t.Run("failure keeps the session", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignOut", mock.Anything).Return(apperr.Errorf(apperr.Network, "backend unreachable"))
		c, holder := login(t, m)

		out := c.Logout(context.Background())
		assert.False(t, out.OK)
		assert.Equal(t, apperr.Network, out.Kind)
		assert.True(t, holder.Current().Authenticated)
		assert.Equal(t, authflow.StateAuthenticated, c.State())
	})

	t.Run("confirmed sign-out clears the session", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignOut", mock.Anything).Return(nil)
		c, holder := login(t, m)

		out := c.Logout(context.Background())
		assert.True(t, out.OK)
		assert.Equal(t, authflow.MsgLoggedOut, out.Message)
		assert.Equal(t, session.Session{}, holder.Current())
		assert.Equal(t, authflow.StateAnonymous, c.State())
	})

	t.Run("anonymous session still signs out remotely", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignOut", mock.Anything).Return(nil).Once()
		c, holder := newController(m)

		out := c.Logout(context.Background())
		assert.True(t, out.OK)
		assert.Equal(t, authflow.MsgLoggedOut, out.Message)
		assert.Equal(t, session.Session{}, holder.Current())
		assert.Equal(t, authflow.StateAnonymous, c.State())
		m.AssertExpectations(t)
	})

	t.Run("anonymous session reports remote failure", func(t *testing.T) {
		m := &backendtest.Collaborator{}
		m.On("SignOut", mock.Anything).Return(apperr.Errorf(apperr.Network, "backend unreachable")).Once()
		c, _ := newController(m)

		out := c.Logout(context.Background())
		assert.False(t, out.OK)
		assert.Equal(t, apperr.Network, out.Kind)
		m.AssertExpectations(t)
	})
}

func TestResetPassword(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("RequestPasswordReset", mock.Anything, "ada@example.com").Return(nil)
	c, _ := newController(m)

	out := c.ResetPassword(context.Background(), "bad")
	assert.Equal(t, apperr.Validation, out.Kind)

	out = c.ResetPassword(context.Background(), "Ada@example.com")
	assert.True(t, out.OK)
	assert.Equal(t, authflow.MsgResetSent, out.Message)
	assert.Equal(t, authflow.StateAnonymous, c.State())
	m.AssertExpectations(t)
}

func TestRestore(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("CurrentSession", mock.Anything).Return(ada(), nil).Once()
	m.On("CurrentSession", mock.Anything).Return(nil, nil).Once()
	c, holder := newController(m)

	require.True(t, c.Restore(context.Background()).OK)
	assert.True(t, holder.Current().Authenticated)

	require.True(t, c.Restore(context.Background()).OK)
	assert.False(t, holder.Current().Authenticated)
	assert.Equal(t, authflow.StateAnonymous, c.State())
}

func TestRegister_CreatesProfile(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&backend.Identity{
			ID: "u1", Email: "ada@example.com", EmailConfirmed: true,
			Attributes: map[string]string{"full_name": "Ada Lovelace", "school": "MIT"},
		}, nil)
	m.On("FindRecord", mock.Anything, backend.TableProfiles, backend.Filter{"id": "u1"}).Return(nil, nil)
	m.On("CreateRecord", mock.Anything, backend.TableProfiles, backend.Fields{
		"id": "u1", "username": "ada", "full_name": "Ada Lovelace", "location": "MIT",
	}).Return(&backend.Record{ID: "u1"}, nil)

	c := authflow.New(m, session.NewHolder(), profile.NewService(m), authflow.Options{})
	out := c.Register(context.Background(), signupForm())
	assert.True(t, out.OK)
	m.AssertExpectations(t)
}

func TestRegister_ProfileFailureDoesNotFailSignUp(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(ada(), nil)
	m.On("FindRecord", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	m.On("CreateRecord", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.Errorf(apperr.Network, "down"))

	holder := session.NewHolder()
	c := authflow.New(m, holder, profile.NewService(m), authflow.Options{})
	out := c.Register(context.Background(), signupForm())
	assert.True(t, out.OK)
	assert.True(t, holder.Current().Authenticated)
}
