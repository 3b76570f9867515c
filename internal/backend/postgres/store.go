// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// RecordStore implements backend.RecordStore on PostgreSQL. Table and column
// names are checked against backend.Tables before they reach SQL.
type RecordStore struct {
	pool Pool
}

var _ backend.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore.
func NewRecordStore(pool Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// CreateRecord implements backend.RecordStore.
func (s *RecordStore) CreateRecord(ctx context.Context, table string, fields backend.Fields) (*backend.Record, error) {
	tbl, err := lookup(table, fields)
	if err != nil {
		return nil, err
	}

	cols := sortedKeys(fields)
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		args = append(args, fields[c])
	}
	if _, ok := fields["id"]; !ok && !tbl.ClientID {
		cols = append(cols, "id")
		args = append(args, ulid.Make().String())
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf(`INSERT INTO %s AS t (%s) VALUES (%s) RETURNING to_jsonb(t)`,
		ident(table), identList(cols), strings.Join(placeholders, ", "))

	var data []byte
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		return nil, ClassifyError(err, table, "insert")
	}
	return decodeRecord(table, data)
}

// FindRecord implements backend.RecordStore.
func (s *RecordStore) FindRecord(ctx context.Context, table string, filter backend.Filter) (*backend.Record, error) {
	if _, err := lookup(table, filter); err != nil {
		return nil, err
	}

	where, args := whereClause(filter, 1)
	sql := fmt.Sprintf(`SELECT to_jsonb(t) FROM %s AS t%s LIMIT 1`, ident(table), where)

	var data []byte
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ClassifyError(err, table, "find")
	}
	return decodeRecord(table, data)
}

// UpdateRecord implements backend.RecordStore.
func (s *RecordStore) UpdateRecord(ctx context.Context, table, id string, fields backend.Fields) (*backend.Record, error) {
	if _, err := lookup(table, fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.InvalidData).With("table", table).Errorf("no fields to update")
	}

	cols := sortedKeys(fields)
	sets := make([]string, len(cols))
	args := []any{id}
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), i+2)
		args = append(args, fields[c])
	}

	sql := fmt.Sprintf(`UPDATE %s AS t SET %s WHERE t.id = $1 RETURNING to_jsonb(t)`,
		ident(table), strings.Join(sets, ", "))

	var data []byte
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.Reference).With("table", table).With("id", id).Errorf("record not found")
	}
	if err != nil {
		return nil, ClassifyError(err, table, "update")
	}
	return decodeRecord(table, data)
}

// ListRecords implements backend.RecordStore.
func (s *RecordStore) ListRecords(ctx context.Context, table string, filter backend.Filter, q backend.Query) ([]*backend.Record, error) {
	tbl, err := lookup(table, filter)
	if err != nil {
		return nil, err
	}

	where, args := whereClause(filter, 1)
	var b strings.Builder
	fmt.Fprintf(&b, `SELECT to_jsonb(t) FROM %s AS t%s`, ident(table), where)
	if q.OrderBy != "" {
		if !tbl.HasColumn(q.OrderBy) {
			return nil, apperr.New(apperr.InvalidData).With("table", table).With("column", q.OrderBy).Errorf("unknown order column")
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY %s %s`, ident(q.OrderBy), dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, ClassifyError(err, table, "list")
	}
	defer rows.Close()

	var out []*backend.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, ClassifyError(err, table, "scan")
		}
		rec, err := decodeRecord(table, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ClassifyError(err, table, "iterate")
	}
	return out, nil
}

func lookup(table string, cols map[string]any) (backend.Table, error) {
	tbl, err := backend.LookupTable(table)
	if err != nil {
		return tbl, err
	}
	return tbl, tbl.CheckColumns(cols)
}

func whereClause(filter backend.Filter, start int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	cols := sortedKeys(filter)
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("t.%s = $%d", ident(c), start+i)
		args[i] = filter[c]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeRecord(table string, data []byte) (*backend.Record, error) {
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, apperr.New(apperr.Unknown).With("table", table).With("operation", "decode row").Wrap(err)
	}
	return backend.RecordFromRow(table, row), nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = ident(c)
	}
	return strings.Join(out, ", ")
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
