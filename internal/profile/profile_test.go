// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package profile_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend/backendtest"
	"github.com/phiona/phiona/internal/backend/memory"
	"github.com/phiona/phiona/internal/profile"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/internal/validation"
)

func signedIn(id string) *session.Holder {
	h := session.NewHolder()
	h.SetAuthenticated(session.User{ID: id, Email: "ada@example.com"})
	return h
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "ada", profile.Username("ada@example.com"))
	assert.Equal(t, "ada", profile.Username(" ada@example.com "))
	assert.Equal(t, "noat", profile.Username("noat"))
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := profile.NewService(memory.NewRecordStore(time.Now))

	require.NoError(t, svc.Create(ctx, "u1", "ada@example.com", " Ada Lovelace ", "MIT"))
	// Second creation is absorbed.
	require.NoError(t, svc.Create(ctx, "u1", "ada@example.com", "Other", ""))

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Username)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.Equal(t, "MIT", p.Location)

	_, err = svc.Get(ctx, "u2")
	assert.Equal(t, apperr.Reference, apperr.KindOf(err))
	assert.Equal(t, profile.MsgNotFound, apperr.Message(err))
}

func TestService_CreatePropagatesBackendErrors(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("CreateRecord", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.Errorf(apperr.Network, "backend unreachable"))

	err := profile.NewService(m).Create(context.Background(), "u1", "ada@example.com", "", "")
	assert.Equal(t, apperr.Network, apperr.KindOf(err))
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) *profile.Service {
		t.Helper()
		svc := profile.NewService(memory.NewRecordStore(time.Now))
		require.NoError(t, svc.Create(ctx, "u1", "ada@example.com", "Ada", ""))
		return svc
	}

	t.Run("requires sign-in", func(t *testing.T) {
		out := newService(t).Update(ctx, session.NewHolder(), validation.Record{validation.FieldBio: "hi"})
		assert.False(t, out.OK)
		assert.Equal(t, profile.MsgLoginFirst, out.Message)
	})

	t.Run("validates fields", func(t *testing.T) {
		out := newService(t).Update(ctx, signedIn("u1"), validation.Record{
			validation.FieldAvatarURL: "ftp://x",
			validation.FieldBio:       strings.Repeat("b", validation.MaxBioLength+1),
		})
		assert.Equal(t, apperr.Validation, out.Kind)
		assert.Contains(t, out.FieldErrors, validation.FieldAvatarURL)
		assert.Contains(t, out.FieldErrors, validation.FieldBio)
	})

	t.Run("saves only submitted fields", func(t *testing.T) {
		svc := newService(t)
		out := svc.Update(ctx, signedIn("u1"), validation.Record{
			validation.FieldBio:       "  Builds engines  ",
			validation.FieldAvatarURL: "https://example.com/a.png",
		})
		require.True(t, out.OK, out.Message)
		assert.Equal(t, profile.MsgUpdated, out.Message)

		p, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Builds engines", p.Bio)
		assert.Equal(t, "Ada", p.FullName)
		assert.False(t, p.UpdatedAt.IsZero())
	})

	t.Run("nothing to save", func(t *testing.T) {
		out := newService(t).Update(ctx, signedIn("u1"), validation.Record{})
		assert.Equal(t, profile.MsgNothingToSet, out.Message)
	})

	t.Run("missing profile", func(t *testing.T) {
		out := newService(t).Update(ctx, signedIn("u9"), validation.Record{validation.FieldBio: "x"})
		assert.Equal(t, apperr.Reference, out.Kind)
	})
}
