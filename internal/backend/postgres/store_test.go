// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

func newMockStore(t *testing.T) (*RecordStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewRecordStore(mock), mock
}

func jsonRow(data string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"to_jsonb"}).AddRow([]byte(data))
}

func TestRecordStore_CreateRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("generates id and decodes returned row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`INSERT INTO "competition_participants" AS t \("competition_id", "user_id", "id"\)`).
			WithArgs("c1", "u1", pgxmock.AnyArg()).
			WillReturnRows(jsonRow(`{"id":"p1","user_id":"u1","competition_id":"c1","created_at":"2026-03-01T10:00:00Z"}`))

		rec, err := store.CreateRecord(ctx, backend.TableParticipants, backend.Fields{"user_id": "u1", "competition_id": "c1"})
		require.NoError(t, err)
		assert.Equal(t, "p1", rec.ID)
		assert.Equal(t, "u1", rec.String("user_id"))
		assert.Equal(t, 2026, rec.CreatedAt.Year())
		assert.NotContains(t, rec.Fields, "id")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("client supplied id is kept", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`INSERT INTO "profiles" AS t \("id", "username"\)`).
			WithArgs("u1", "ada").
			WillReturnRows(jsonRow(`{"id":"u1","username":"ada"}`))

		rec, err := store.CreateRecord(ctx, backend.TableProfiles, backend.Fields{"id": "u1", "username": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "u1", rec.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	constraintCases := []struct {
		name string
		code string
		kind apperr.Kind
		msg  string
	}{
		{"unique violation", pgerrcode.UniqueViolation, apperr.Duplicate, backend.MsgDuplicate},
		{"foreign key violation", pgerrcode.ForeignKeyViolation, apperr.Reference, backend.MsgReference},
		{"check violation", pgerrcode.CheckViolation, apperr.InvalidData, backend.MsgInvalidData},
	}
	for _, tc := range constraintCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery(`INSERT INTO "registered_hackathons"`).
				WillReturnError(&pgconn.PgError{Code: tc.code, ConstraintName: "c"})

			_, err := store.CreateRecord(ctx, backend.TableRegistrations, backend.Fields{
				"user_id": "u1", "hackathon_name": "Hack",
			})
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.Message(err))
		})
	}

	t.Run("unknown column never reaches the database", func(t *testing.T) {
		store, mock := newMockStore(t)
		_, err := store.CreateRecord(ctx, backend.TableProfiles, backend.Fields{"id": "u1", "password": "x"})
		assert.Equal(t, apperr.InvalidData, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown table", func(t *testing.T) {
		store, _ := newMockStore(t)
		_, err := store.CreateRecord(ctx, "users; DROP TABLE profiles", backend.Fields{})
		assert.Equal(t, apperr.Unknown, apperr.KindOf(err))
	})
}

func TestRecordStore_FindRecord(t *testing.T) {
	ctx := context.Background()
	filter := backend.Filter{"user_id": "u1", "hackathon_name": "Hack"}

	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT to_jsonb\(t\) FROM "registered_hackathons" AS t WHERE t."hackathon_name" = \$1 AND t."user_id" = \$2 LIMIT 1`).
			WithArgs("Hack", "u1").
			WillReturnRows(jsonRow(`{"id":"r1","user_id":"u1","hackathon_name":"Hack"}`))

		rec, err := store.FindRecord(ctx, backend.TableRegistrations, filter)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "r1", rec.ID)
	})

	t.Run("absent is nil without error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT to_jsonb`).WillReturnError(pgx.ErrNoRows)

		rec, err := store.FindRecord(ctx, backend.TableRegistrations, filter)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("connection failure is a network error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT to_jsonb`).WillReturnError(context.DeadlineExceeded)

		_, err := store.FindRecord(ctx, backend.TableRegistrations, filter)
		assert.Equal(t, apperr.Network, apperr.KindOf(err))
	})
}

func TestRecordStore_UpdateRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("updates and returns row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE "profiles" AS t SET "bio" = \$2, "full_name" = \$3 WHERE t.id = \$1`).
			WithArgs("u1", "hi", "Ada").
			WillReturnRows(jsonRow(`{"id":"u1","username":"ada","bio":"hi","full_name":"Ada"}`))

		rec, err := store.UpdateRecord(ctx, backend.TableProfiles, "u1", backend.Fields{"full_name": "Ada", "bio": "hi"})
		require.NoError(t, err)
		assert.Equal(t, "hi", rec.String("bio"))
	})

	t.Run("missing row is a reference error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE "profiles"`).WillReturnError(pgx.ErrNoRows)

		_, err := store.UpdateRecord(ctx, backend.TableProfiles, "nope", backend.Fields{"bio": "x"})
		assert.Equal(t, apperr.Reference, apperr.KindOf(err))
	})

	t.Run("empty update rejected", func(t *testing.T) {
		store, _ := newMockStore(t)
		_, err := store.UpdateRecord(ctx, backend.TableProfiles, "u1", backend.Fields{})
		assert.Equal(t, apperr.InvalidData, apperr.KindOf(err))
	})
}

func TestRecordStore_ListRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered and limited", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := pgxmock.NewRows([]string{"to_jsonb"}).
			AddRow([]byte(`{"id":"r2","hackathon_name":"B"}`)).
			AddRow([]byte(`{"id":"r1","hackathon_name":"A"}`))
		mock.ExpectQuery(`SELECT to_jsonb\(t\) FROM "registered_hackathons" AS t WHERE t."user_id" = \$1 ORDER BY "registration_timestamp" DESC LIMIT \$2`).
			WithArgs("u1", 10).
			WillReturnRows(rows)

		recs, err := store.ListRecords(ctx, backend.TableRegistrations, backend.Filter{"user_id": "u1"},
			backend.Query{OrderBy: "registration_timestamp", Desc: true, Limit: 10})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "r2", recs[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order column", func(t *testing.T) {
		store, _ := newMockStore(t)
		_, err := store.ListRecords(ctx, backend.TableCompetitions, nil, backend.Query{OrderBy: "1; --"})
		assert.Equal(t, apperr.InvalidData, apperr.KindOf(err))
	})

	t.Run("query error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT to_jsonb`).WillReturnError(errors.New("boom"))
		_, err := store.ListRecords(ctx, backend.TableCompetitions, nil, backend.Query{})
		assert.Equal(t, apperr.Unknown, apperr.KindOf(err))
	})
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, ClassifyError(nil, "t", "op"))

	err := ClassifyError(&pgconn.PgError{Code: pgerrcode.SyntaxError}, "t", "op")
	assert.Equal(t, apperr.Unknown, apperr.KindOf(err))

	err = ClassifyError(errors.New("plain"), "t", "op")
	assert.Equal(t, apperr.Unknown, apperr.KindOf(err))

	dup := ClassifyError(apperr.Errorf(apperr.Duplicate, "taken"), "t", "op")
	assert.Equal(t, apperr.Duplicate, apperr.KindOf(dup))
	assert.Equal(t, "taken", apperr.Message(dup))
}
