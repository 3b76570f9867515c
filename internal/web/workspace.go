// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/phiona/phiona/internal/authflow"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/competition"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/profile"
	"github.com/phiona/phiona/internal/registration"
	"github.com/phiona/phiona/internal/session"
)

// Workspace is the server-side state of one browser client: its own
// collaborator client, session and controllers.
type Workspace struct {
	ID            string
	Auth          *authflow.Controller
	Registrations *registration.Controller
	Competitions  *competition.Service
	Profiles      *profile.Service
	View          *View

	holder *session.Holder
	stops  []func()

	mu       sync.Mutex
	lastSeen time.Time
}

// Session returns the workspace session.
func (w *Workspace) Session() session.Reader {
	return w.holder
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) close() {
	for _, stop := range w.stops {
		stop()
	}
	w.View.Close()
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// TTL is the idle time after which a workspace is swept.
	TTL              time.Duration
	DefaultHackathon string
	Observer         flow.Observer
	Logger           *slog.Logger
	Now              func() time.Time
	// OnCountChange receives the number of live workspaces.
	OnCountChange func(n int)
}

// Registry owns the live workspaces.
type Registry struct {
	factory backend.Factory
	opts    RegistryOptions

	mu    sync.RWMutex
	items map[string]*Workspace
}

// NewRegistry creates a Registry that builds collaborators with factory.
func NewRegistry(factory backend.Factory, opts RegistryOptions) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Observer == nil {
		opts.Observer = flow.NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{factory: factory, opts: opts, items: make(map[string]*Workspace)}
}

// Get returns the workspace id and marks it as used.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	ws, ok := r.items[id]
	r.mu.RUnlock()
	if ok {
		ws.touch(r.opts.Now())
	}
	return ws, ok
}

// Create builds a new workspace and restores any backend session the new
// collaborator already holds.
func (r *Registry) Create(ctx context.Context) (*Workspace, error) {
	client, err := r.factory(ctx)
	if err != nil {
		return nil, oops.Code("WORKSPACE_CREATE_FAILED").With("operation", "create collaborator").Wrap(err)
	}

	holder := session.NewHolder()
	profiles := profile.NewService(client)
	ws := &Workspace{
		ID:   ulid.Make().String(),
		Auth: authflow.New(client, holder, profiles, authflow.Options{Observer: r.opts.Observer, Logger: r.opts.Logger}),
		Registrations: registration.New(client, holder, registration.Options{
			DefaultHackathon: r.opts.DefaultHackathon,
			Observer:         r.opts.Observer,
			Logger:           r.opts.Logger,
			Now:              r.opts.Now,
		}),
		Competitions: competition.NewService(client, competition.Options{
			Observer: r.opts.Observer,
			Logger:   r.opts.Logger,
			Now:      r.opts.Now,
		}),
		Profiles: profiles,
		View:     NewView(r.opts.Now),
		holder:   holder,
		lastSeen: r.opts.Now(),
	}

	ws.stops = append(ws.stops,
		holder.Subscribe(ws.View.SetSession),
		ws.Auth.Subscribe(func(ev authflow.Event) {
			switch ev.Kind {
			case authflow.EventStateChanged:
				ws.View.SetAuthState(ev.State)
			case authflow.EventDismissModal:
				ws.View.CloseModal()
			}
		}),
	)

	if o := ws.Auth.Restore(ctx); !o.OK {
		r.opts.Logger.WarnContext(ctx, "session restore failed", "workspace", ws.ID, "kind", o.Kind)
	}

	r.mu.Lock()
	r.items[ws.ID] = ws
	n := len(r.items)
	r.mu.Unlock()
	r.countChanged(n)

	r.opts.Logger.DebugContext(ctx, "workspace created", "workspace", ws.ID)
	return ws, nil
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Sweep removes workspaces idle since before now minus the TTL and returns
// how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.opts.TTL)

	r.mu.Lock()
	var expired []*Workspace
	for id, ws := range r.items {
		if ws.idleSince().Before(cutoff) {
			expired = append(expired, ws)
			delete(r.items, id)
		}
	}
	n := len(r.items)
	r.mu.Unlock()

	for _, ws := range expired {
		ws.close()
	}
	if len(expired) > 0 {
		r.countChanged(n)
		r.opts.Logger.Debug("workspaces swept", "removed", len(expired), "remaining", n)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes every
// workspace.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep(r.opts.Now())
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, ws := range items {
		ws.close()
	}
	r.countChanged(0)
}

func (r *Registry) countChanged(n int) {
	if r.opts.OnCountChange != nil {
		r.opts.OnCountChange(n)
	}
}
