// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/accounts"
	"github.com/phiona/phiona/internal/apperr"
)

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, accounts.Options{AutoConfirm: true})
	client := accounts.NewClient(svc)

	id, err := client.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)

	signedUp, err := client.SignUp(ctx, "ada@example.com", "secret1", map[string]string{"school": "MIT"})
	require.NoError(t, err)
	assert.True(t, signedUp.EmailConfirmed)
	assert.Equal(t, "MIT", signedUp.Attributes["school"])

	current, err := client.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, signedUp.ID, current.ID)

	require.NoError(t, client.SignOut(ctx))
	current, err = client.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	signedIn, err := client.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, signedUp.ID, signedIn.ID)
}

func TestClient_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, accounts.Options{AutoConfirm: true})
	a := accounts.NewClient(svc)
	b := accounts.NewClient(svc)

	_, err := a.SignUp(ctx, "ada@example.com", "secret1", nil)
	require.NoError(t, err)

	current, err := b.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = b.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
}

func TestClient_UnconfirmedSignUpStaysSignedOut(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, accounts.Options{AutoConfirm: false})
	client := accounts.NewClient(svc)

	id, err := client.SignUp(ctx, "ada@example.com", "secret1", nil)
	require.NoError(t, err)
	assert.False(t, id.EmailConfirmed)

	current, err := client.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestClient_SignOutCancelledContext(t *testing.T) {
	svc, _ := newService(t, accounts.Options{AutoConfirm: true})
	client := accounts.NewClient(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.SignOut(ctx)
	assert.Equal(t, apperr.Network, apperr.KindOf(err))
}
