// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package backend

import (
	"fmt"
	"maps"
	"time"
)

// Fields are column values of a row.
type Fields map[string]any

// Filter selects rows by column equality.
type Filter map[string]any

// Record is a stored row.
type Record struct {
	ID        string    `json:"id"`
	Table     string    `json:"-"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// String returns the column as a string, or "" when absent or nil.
func (r *Record) String(col string) string {
	switch v := r.Fields[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an int, or 0 when absent or not numeric.
func (r *Record) Int(col string) int {
	switch v := r.Fields[col].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Time returns the column as a time, parsing RFC 3339 strings.
func (r *Record) Time(col string) time.Time {
	switch v := r.Fields[col].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Clone returns a deep copy of the record's top level.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = maps.Clone(r.Fields)
	return &c
}

// Matches reports whether every filter column equals the record's value.
func (r *Record) Matches(f Filter) bool {
	for col, want := range f {
		var got any
		if col == "id" {
			got = r.ID
		} else {
			got = r.Fields[col]
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// RecordFromRow builds a record from a decoded row, lifting the id and
// created_at columns out of the fields.
func RecordFromRow(table string, row map[string]any) *Record {
	rec := &Record{Table: table, Fields: Fields(row)}
	if rec.Fields == nil {
		rec.Fields = Fields{}
	}
	rec.ID = rec.String("id")
	rec.CreatedAt = rec.Time("created_at")
	delete(rec.Fields, "id")
	return rec
}
