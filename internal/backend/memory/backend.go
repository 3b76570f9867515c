// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/phiona/phiona/internal/accounts"
	"github.com/phiona/phiona/internal/backend"
)

// Options configures a Backend.
type Options struct {
	// AutoConfirm signs users in straight after sign-up.
	AutoConfirm bool
	// SeedCompetitions loads the sample competitions.
	SeedCompetitions bool
	Hasher           accounts.PasswordHasher
	Notifier         accounts.Notifier
	Logger           *slog.Logger
	Now              func() time.Time
}

// Backend holds the shared state of the in-process backend. Each client gets
// its own auth session over the shared accounts and records.
type Backend struct {
	Records  *RecordStore
	Accounts *accounts.Service
}

// New creates a Backend.
func New(ctx context.Context, opts Options) (*Backend, error) {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = accounts.NewArgon2idHasher(accounts.DefaultParams)
	}
	svc, err := accounts.NewService(accounts.NewMemoryStore(), hasher, accounts.Options{
		AutoConfirm: opts.AutoConfirm,
		Notifier:    opts.Notifier,
		Logger:      opts.Logger,
		Now:         opts.Now,
	})
	if err != nil {
		return nil, err
	}

	b := &Backend{Records: NewRecordStore(opts.Now), Accounts: svc}
	if opts.SeedCompetitions {
		if err := Seed(ctx, b.Records); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Factory returns a backend.Factory handing out per-client collaborators.
func (b *Backend) Factory() backend.Factory {
	return func(context.Context) (backend.Collaborator, error) {
		return backend.Compose(accounts.NewClient(b.Accounts), b.Records), nil
	}
}

// Seed inserts the sample competitions.
func Seed(ctx context.Context, store backend.RecordStore) error {
	now := time.Now().UTC()
	day := 24 * time.Hour
	seeds := []backend.Fields{
		{
			"title":        "Campus Climate Hack",
			"description":  "Build tools that help campuses cut their footprint.",
			"category":     "sustainability",
			"status":       "active",
			"prize_amount": 5000,
			"start_date":   now.Add(-2 * day),
			"end_date":     now.Add(12 * day),
		},
		{
			"title":        "Open Data Sprint",
			"description":  "Turn public datasets into something students use every day.",
			"category":     "data",
			"status":       "upcoming",
			"prize_amount": 2500,
			"start_date":   now.Add(7 * day),
			"end_date":     now.Add(9 * day),
		},
		{
			"title":        "Accessible Web Challenge",
			"description":  "Make a course site usable by everyone.",
			"category":     "web",
			"status":       "active",
			"prize_amount": 3000,
			"start_date":   now.Add(-day),
			"end_date":     now.Add(20 * time.Hour),
		},
	}
	for _, f := range seeds {
		if _, err := store.CreateRecord(ctx, backend.TableCompetitions, f); err != nil {
			return err
		}
	}
	return nil
}
