// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

var representation = http.Header{"Prefer": {"return=representation"}}

// CreateRecord implements backend.RecordStore.
func (c *Client) CreateRecord(ctx context.Context, table string, fields backend.Fields) (*backend.Record, error) {
	if err := checkColumns(table, fields); err != nil {
		return nil, err
	}
	var rows []map[string]any
	err := c.svc.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		body:   fields,
		token:  c.accessToken(),
		header: representation,
	}, &rows)
	if err != nil {
		return nil, recordError(err, table, "insert")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.Unknown).With("table", table).Errorf("insert returned no rows")
	}
	return backend.RecordFromRow(table, rows[0]), nil
}

// FindRecord implements backend.RecordStore.
func (c *Client) FindRecord(ctx context.Context, table string, filter backend.Filter) (*backend.Record, error) {
	if err := checkColumns(table, filter); err != nil {
		return nil, err
	}
	q := filterQuery(filter)
	q.Set("limit", "1")

	var rows []map[string]any
	err := c.svc.do(ctx, request{
		method:     http.MethodGet,
		path:       "/rest/v1/" + table,
		query:      q,
		token:      c.accessToken(),
		idempotent: true,
	}, &rows)
	if err != nil {
		return nil, recordError(err, table, "find")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return backend.RecordFromRow(table, rows[0]), nil
}

// UpdateRecord implements backend.RecordStore.
func (c *Client) UpdateRecord(ctx context.Context, table, id string, fields backend.Fields) (*backend.Record, error) {
	if err := checkColumns(table, fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.InvalidData).With("table", table).Errorf("no fields to update")
	}

	var rows []map[string]any
	err := c.svc.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + table,
		query:  filterQuery(backend.Filter{"id": id}),
		body:   fields,
		token:  c.accessToken(),
		header: representation,
	}, &rows)
	if err != nil {
		return nil, recordError(err, table, "update")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.Reference).With("table", table).With("id", id).Errorf("record not found")
	}
	return backend.RecordFromRow(table, rows[0]), nil
}

// ListRecords implements backend.RecordStore.
func (c *Client) ListRecords(ctx context.Context, table string, filter backend.Filter, opts backend.Query) ([]*backend.Record, error) {
	if err := checkColumns(table, filter); err != nil {
		return nil, err
	}
	q := filterQuery(filter)
	if opts.OrderBy != "" {
		if tbl, _ := backend.LookupTable(table); !tbl.HasColumn(opts.OrderBy) {
			return nil, apperr.New(apperr.InvalidData).With("table", table).With("column", opts.OrderBy).Errorf("unknown order column")
		}
		dir := "asc"
		if opts.Desc {
			dir = "desc"
		}
		q.Set("order", opts.OrderBy+"."+dir)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var rows []map[string]any
	err := c.svc.do(ctx, request{
		method:     http.MethodGet,
		path:       "/rest/v1/" + table,
		query:      q,
		token:      c.accessToken(),
		idempotent: true,
	}, &rows)
	if err != nil {
		return nil, recordError(err, table, "list")
	}
	out := make([]*backend.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, backend.RecordFromRow(table, row))
	}
	return out, nil
}

func checkColumns(table string, cols map[string]any) error {
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return err
	}
	return tbl.CheckColumns(cols)
}

func filterQuery(filter backend.Filter) url.Values {
	q := url.Values{"select": {"*"}}
	for col, v := range filter {
		q.Set(col, "eq."+queryValue(v))
	}
	return q
}

func queryValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// recordError classifies data API failures. The body code is a SQLSTATE for
// constraint violations and a PGRST code otherwise.
func recordError(err error, table, op string) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	code := fmt.Sprint(se.body.Code)
	if kind, ok := backend.ConstraintKind(code); ok {
		return backend.ConstraintError(kind, table, "", se.body.Details)
	}

	kind := apperr.Unknown
	switch {
	case se.status == http.StatusUnauthorized || se.status == http.StatusForbidden:
		kind = apperr.Auth
	case se.transient():
		kind = apperr.Network
	}
	return apperr.New(kind).
		With("table", table).
		With("operation", op).
		With("status", se.status).
		With("code", code).
		Errorf("%s", se.Error())
}
