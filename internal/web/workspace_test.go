// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/authflow"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/backendtest"
)

func anonymousFactory() backend.Factory {
	return func(context.Context) (backend.Collaborator, error) {
		m := &backendtest.Collaborator{}
		m.On("CurrentSession", mock.Anything).Return(nil, nil)
		return m, nil
	}
}

type counts struct {
	mu   sync.Mutex
	seen []int
}

func (c *counts) record(n int) {
	c.mu.Lock()
	c.seen = append(c.seen, n)
	c.mu.Unlock()
}

func (c *counts) values() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.seen...)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	var n counts
	reg := NewRegistry(anonymousFactory(), RegistryOptions{OnCountChange: n.record})

	ws, err := reg.Create(context.Background())
	require.NoError(t, err)
	assert.Len(t, ws.ID, 26, "ULID")
	assert.Equal(t, authflow.StateAnonymous, ws.Auth.State())
	assert.Equal(t, "Student Hackathon 2024", ws.Registrations.DefaultName())

	got, ok := reg.Get(ws.ID)
	require.True(t, ok)
	assert.Same(t, ws, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []int{1}, n.values())
}

func TestRegistry_RestoresExistingSession(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("CurrentSession", mock.Anything).
		Return(&backend.Identity{ID: "u1", Email: "ada@example.com", EmailConfirmed: true}, nil)
	reg := NewRegistry(func(context.Context) (backend.Collaborator, error) { return m, nil },
		RegistryOptions{DefaultHackathon: "Spring Jam"})

	ws, err := reg.Create(context.Background())
	require.NoError(t, err)

	snap := ws.View.Snapshot()
	assert.True(t, snap.Authenticated, "view mirrors the restored session")
	assert.Equal(t, "ada@example.com", snap.UserEmail)
	assert.Equal(t, "Spring Jam", ws.Registrations.DefaultName())
}

func TestRegistry_CreateFailure(t *testing.T) {
	reg := NewRegistry(func(context.Context) (backend.Collaborator, error) {
		return nil, errors.New("backend down")
	}, RegistryOptions{})

	_, err := reg.Create(context.Background())
	require.Error(t, err)
	assert.Zero(t, reg.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	clk := newClock()
	var n counts
	reg := NewRegistry(anonymousFactory(), RegistryOptions{TTL: time.Minute, Now: clk.now, OnCountChange: n.record})
	ctx := context.Background()

	idle, err := reg.Create(ctx)
	require.NoError(t, err)
	active, err := reg.Create(ctx)
	require.NoError(t, err)
	updates, _ := idle.View.Watch()

	clk.advance(45 * time.Second)
	_, ok := reg.Get(active.ID)
	require.True(t, ok)

	clk.advance(30 * time.Second)
	assert.Equal(t, 1, reg.Sweep(clk.now()))
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Get(idle.ID)
	assert.False(t, ok)
	_, open := <-updates
	assert.False(t, open, "swept workspaces close their view streams")

	assert.Zero(t, reg.Sweep(clk.now()))
	assert.Equal(t, []int{1, 2, 1}, n.values())
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	var n counts
	reg := NewRegistry(anonymousFactory(), RegistryOptions{TTL: time.Minute, OnCountChange: n.record})
	_, err := reg.Create(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		reg.Run(ctx, time.Millisecond)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Zero(t, reg.Len())
	assert.Equal(t, 0, n.values()[len(n.values())-1])
}
