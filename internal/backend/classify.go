// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package backend

import (
	"github.com/jackc/pgerrcode"

	"github.com/phiona/phiona/internal/apperr"
)

// Constraint violation messages shown to users.
const (
	MsgDuplicate   = "A record with these details already exists"
	MsgReference   = "Invalid user account. Please log in again."
	MsgInvalidData = "Invalid registration data provided"
)

// ConstraintKind maps a SQLSTATE to an error kind. The second result is false
// for codes that are not integrity constraint violations.
func ConstraintKind(sqlState string) (apperr.Kind, bool) {
	switch sqlState {
	case pgerrcode.UniqueViolation:
		return apperr.Duplicate, true
	case pgerrcode.ForeignKeyViolation:
		return apperr.Reference, true
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException,
		pgerrcode.InvalidTextRepresentation:
		return apperr.InvalidData, true
	default:
		return "", false
	}
}

// ConstraintError builds the error for a constraint violation on table.
func ConstraintError(kind apperr.Kind, table, constraint, detail string) error {
	msg := MsgInvalidData
	switch kind {
	case apperr.Duplicate:
		msg = MsgDuplicate
	case apperr.Reference:
		msg = MsgReference
	}
	return apperr.New(kind).
		With("table", table).
		With("constraint", constraint).
		With("detail", detail).
		Errorf("%s", msg)
}
