// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package memory is an in-process backend for development and tests.
//
// Records live in maps and the constraints of backend.Tables are enforced on
// write, so flows see the same error kinds a database would report.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// RecordStore implements backend.RecordStore in memory.
type RecordStore struct {
	mu     sync.RWMutex
	tables map[string][]*backend.Record
	now    func() time.Time
}

var _ backend.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates an empty store. now defaults to time.Now.
func NewRecordStore(now func() time.Time) *RecordStore {
	if now == nil {
		now = time.Now
	}
	return &RecordStore{tables: make(map[string][]*backend.Record), now: now}
}

// CreateRecord implements backend.RecordStore.
func (s *RecordStore) CreateRecord(ctx context.Context, table string, fields backend.Fields) (*backend.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Network, err)
	}
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if err := tbl.CheckColumns(fields); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &backend.Record{Table: table, Fields: maps.Clone(fields), CreatedAt: now}
	if rec.Fields == nil {
		rec.Fields = backend.Fields{}
	}
	if id, ok := rec.Fields["id"]; ok {
		rec.ID = fmt.Sprint(id)
		delete(rec.Fields, "id")
	}
	delete(rec.Fields, "created_at")
	if rec.ID == "" {
		if tbl.ClientID {
			return nil, violation(apperr.InvalidData, table, table+"_pkey", "id is required")
		}
		rec.ID = ulid.Make().String()
	}
	applyDefaults(rec, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(tbl, rec, true); err != nil {
		return nil, err
	}
	for _, existing := range s.tables[table] {
		if existing.ID == rec.ID {
			return nil, violation(apperr.Duplicate, table, table+"_pkey", "id "+rec.ID)
		}
	}
	s.tables[table] = append(s.tables[table], rec)
	return rec.Clone(), nil
}

// FindRecord implements backend.RecordStore.
func (s *RecordStore) FindRecord(ctx context.Context, table string, filter backend.Filter) (*backend.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Network, err)
	}
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if err := tbl.CheckColumns(filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.tables[table] {
		if rec.Matches(filter) {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

// UpdateRecord implements backend.RecordStore.
func (s *RecordStore) UpdateRecord(ctx context.Context, table, id string, fields backend.Fields) (*backend.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Network, err)
	}
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if err := tbl.CheckColumns(fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.InvalidData).With("table", table).Errorf("no fields to update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	idx := slices.IndexFunc(rows, func(r *backend.Record) bool { return r.ID == id })
	if idx < 0 {
		return nil, apperr.New(apperr.Reference).With("table", table).With("id", id).Errorf("record not found")
	}

	updated := rows[idx].Clone()
	for col, v := range fields {
		if col == "id" || col == "created_at" {
			continue
		}
		updated.Fields[col] = v
	}
	if err := s.check(tbl, updated, false); err != nil {
		return nil, err
	}
	rows[idx] = updated
	return updated.Clone(), nil
}

// ListRecords implements backend.RecordStore.
func (s *RecordStore) ListRecords(ctx context.Context, table string, filter backend.Filter, q backend.Query) ([]*backend.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Network, err)
	}
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if err := tbl.CheckColumns(filter); err != nil {
		return nil, err
	}
	if q.OrderBy != "" && !tbl.HasColumn(q.OrderBy) {
		return nil, apperr.New(apperr.InvalidData).With("table", table).With("column", q.OrderBy).Errorf("unknown order column")
	}

	s.mu.RLock()
	var out []*backend.Record
	for _, rec := range s.tables[table] {
		if rec.Matches(filter) {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		if q.Desc {
			slices.Reverse(out)
		}
		slices.SortStableFunc(out, func(a, b *backend.Record) int {
			c := compareColumn(a, b, q.OrderBy)
			if q.Desc {
				return -c
			}
			return c
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// check enforces required, check, reference and unique constraints. The
// caller holds s.mu.
func (s *RecordStore) check(tbl backend.Table, rec *backend.Record, insert bool) error {
	for _, col := range tbl.Required {
		if strings.TrimSpace(rec.String(col)) == "" {
			return violation(apperr.InvalidData, tbl.Name, col+"_not_null", col+" is required")
		}
	}
	for col, allowed := range tbl.Checks {
		v, ok := rec.Fields[col]
		if !ok || v == nil {
			continue
		}
		if !slices.Contains(allowed, fmt.Sprint(v)) {
			return violation(apperr.InvalidData, tbl.Name, tbl.Name+"_"+col+"_check", fmt.Sprintf("%s = %v", col, v))
		}
	}
	for col, target := range tbl.References {
		ref := rec.String(col)
		if ref == "" {
			continue
		}
		if !slices.ContainsFunc(s.tables[target], func(r *backend.Record) bool { return r.ID == ref }) {
			return violation(apperr.Reference, tbl.Name, tbl.Name+"_"+col+"_fkey",
				fmt.Sprintf("%s=%s is not present in table %q", col, ref, target))
		}
	}
	for _, cols := range tbl.Unique {
		key := make(backend.Filter, len(cols))
		for _, c := range cols {
			key[c] = rec.Fields[c]
		}
		if slices.ContainsFunc(cols, func(c string) bool { return key[c] == nil }) {
			continue
		}
		for _, existing := range s.tables[tbl.Name] {
			if !insert && existing.ID == rec.ID {
				continue
			}
			if existing.Matches(key) {
				return violation(apperr.Duplicate, tbl.Name, tbl.Name+"_"+strings.Join(cols, "_")+"_key",
					fmt.Sprintf("(%s) already exists", strings.Join(cols, ", ")))
			}
		}
	}
	return nil
}

func violation(kind apperr.Kind, table, constraint, detail string) error {
	return backend.ConstraintError(kind, table, constraint, detail)
}

func applyDefaults(rec *backend.Record, now time.Time) {
	set := func(col string, v any) {
		if _, ok := rec.Fields[col]; !ok {
			rec.Fields[col] = v
		}
	}
	switch rec.Table {
	case backend.TableProfiles:
		set("updated_at", now)
	case backend.TableCompetitions:
		set("status", "upcoming")
		set("prize_amount", 0)
		set("participant_count", 0)
	case backend.TableParticipants:
		set("joined_at", now)
	case backend.TableRegistrations:
		set("registration_status", "completed")
		set("registration_timestamp", now)
	}
}

func compareColumn(a, b *backend.Record, col string) int {
	if col == "created_at" {
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	if col == "id" {
		return cmp.Compare(a.ID, b.ID)
	}
	if ta, tb := a.Time(col), b.Time(col); !ta.IsZero() || !tb.IsZero() {
		return ta.Compare(tb)
	}
	if _, ok := a.Fields[col].(string); !ok {
		if na, nb := a.Int(col), b.Int(col); na != nb {
			return cmp.Compare(na, nb)
		}
	}
	return cmp.Compare(a.String(col), b.String(col))
}
