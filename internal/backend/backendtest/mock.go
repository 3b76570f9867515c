// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package backendtest provides test doubles for backend collaborators.
package backendtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/phiona/phiona/internal/backend"
)

// Collaborator is a testify mock of backend.Collaborator.
type Collaborator struct {
	mock.Mock
}

var _ backend.Collaborator = (*Collaborator)(nil)

// SignUp implements backend.AuthProvider.
func (m *Collaborator) SignUp(ctx context.Context, email, password string, attrs map[string]string) (*backend.Identity, error) {
	args := m.Called(ctx, email, password, attrs)
	return identity(args, 0), args.Error(1)
}

// SignIn implements backend.AuthProvider.
func (m *Collaborator) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	args := m.Called(ctx, email, password)
	return identity(args, 0), args.Error(1)
}

// SignOut implements backend.AuthProvider.
func (m *Collaborator) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// CurrentSession implements backend.AuthProvider.
func (m *Collaborator) CurrentSession(ctx context.Context) (*backend.Identity, error) {
	args := m.Called(ctx)
	return identity(args, 0), args.Error(1)
}

// RequestPasswordReset implements backend.AuthProvider.
func (m *Collaborator) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

// CreateRecord implements backend.RecordStore.
func (m *Collaborator) CreateRecord(ctx context.Context, table string, fields backend.Fields) (*backend.Record, error) {
	args := m.Called(ctx, table, fields)
	return record(args, 0), args.Error(1)
}

// FindRecord implements backend.RecordStore.
func (m *Collaborator) FindRecord(ctx context.Context, table string, filter backend.Filter) (*backend.Record, error) {
	args := m.Called(ctx, table, filter)
	return record(args, 0), args.Error(1)
}

// UpdateRecord implements backend.RecordStore.
func (m *Collaborator) UpdateRecord(ctx context.Context, table, id string, fields backend.Fields) (*backend.Record, error) {
	args := m.Called(ctx, table, id, fields)
	return record(args, 0), args.Error(1)
}

// ListRecords implements backend.RecordStore.
func (m *Collaborator) ListRecords(ctx context.Context, table string, filter backend.Filter, q backend.Query) ([]*backend.Record, error) {
	args := m.Called(ctx, table, filter, q)
	recs, _ := args.Get(0).([]*backend.Record)
	return recs, args.Error(1)
}

func identity(args mock.Arguments, i int) *backend.Identity {
	id, _ := args.Get(i).(*backend.Identity)
	return id
}

func record(args mock.Arguments, i int) *backend.Record {
	rec, _ := args.Get(i).(*backend.Record)
	return rec
}
