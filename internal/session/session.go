// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package session holds the signed-in identity of one client.
package session

import (
	"sync"
)

// User identifies a signed-in account.
type User struct {
	ID    string
	Email string
}

// Session is a snapshot of the client's sign-in state. The zero value is the
// anonymous session.
type Session struct {
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// Listener receives the new snapshot after every mutation.
type Listener func(Session)

// Reader is the read-only view handed to everything that is not the auth flow.
type Reader interface {
	Current() Session
	Subscribe(fn Listener) (cancel func())
}

// Holder owns the session state. Only the auth flow controller holds a
// *Holder; other components receive it as a Reader.
type Holder struct {
	mu        sync.RWMutex
	current   Session
	nextID    int
	listeners map[int]Listener
}

var _ Reader = (*Holder)(nil)

// NewHolder creates an anonymous session holder.
func NewHolder() *Holder {
	return &Holder{listeners: make(map[int]Listener)}
}

// Current returns the current snapshot.
func (h *Holder) Current() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// SetAuthenticated records user as signed in.
func (h *Holder) SetAuthenticated(user User) {
	h.set(Session{UserID: user.ID, Email: user.Email, Authenticated: true})
}

// Clear resets the holder to the anonymous session.
func (h *Holder) Clear() {
	h.set(Session{})
}

// Subscribe registers fn for mutation notifications. Listeners run
// synchronously on the mutating goroutine, outside the holder lock.
func (h *Holder) Subscribe(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *Holder) set(s Session) {
	h.mu.Lock()
	h.current = s
	fns := make([]Listener, 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
