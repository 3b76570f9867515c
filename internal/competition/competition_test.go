// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package competition_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/backendtest"
	"github.com/phiona/phiona/internal/backend/memory"
	"github.com/phiona/phiona/internal/competition"
	"github.com/phiona/phiona/internal/session"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTimeLeft(t *testing.T) {
	tests := []struct {
		end  time.Time
		want string
	}{
		{epoch.Add(-time.Minute), "Ended"},
		{epoch, "Ended"},
		{epoch.Add(30 * time.Minute), "Ending soon"},
		{epoch.Add(5*time.Hour + 10*time.Minute), "5 hours left"},
		{epoch.Add(24 * time.Hour), "1 days left"},
		{epoch.Add(3*24*time.Hour + 23*time.Hour), "3 days left"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, competition.TimeLeft(tt.end, epoch))
		})
	}
}

type fixture struct {
	store *memory.RecordStore
	svc   *competition.Service
	ids   map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	tick := epoch
	store := memory.NewRecordStore(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	f := &fixture{
		store: store,
		svc:   competition.NewService(store, competition.Options{Now: func() time.Time { return epoch }}),
		ids:   map[string]string{},
	}
	for _, c := range []struct{ title, category, status string }{
		{"Climate", "sustainability", competition.StatusActive},
		{"Data Sprint", "data", competition.StatusUpcoming},
		{"Big Data", "Data-Science", competition.StatusActive},
	} {
		rec, err := store.CreateRecord(ctx, backend.TableCompetitions, backend.Fields{
			"title": c.title, "category": c.category, "status": c.status,
			"end_date": epoch.Add(48 * time.Hour),
		})
		require.NoError(t, err)
		f.ids[c.title] = rec.ID
	}
	_, err := store.CreateRecord(ctx, backend.TableProfiles, backend.Fields{"id": "u1", "username": "ada"})
	require.NoError(t, err)
	return f
}

func titles(t *testing.T, out any) []string {
	t.Helper()
	comps, ok := out.([]*competition.Competition)
	require.True(t, ok)
	var got []string
	for _, c := range comps {
		got = append(got, c.Title)
	}
	return got
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.svc.List(ctx, "")
	require.True(t, out.OK)
	assert.Equal(t, []string{"Big Data", "Data Sprint", "Climate"}, titles(t, out.Data))
	assert.Equal(t, "2 days left", out.Data.([]*competition.Competition)[0].TimeLeft)

	out = f.svc.List(ctx, competition.AllCategories)
	assert.Len(t, titles(t, out.Data), 3)

	out = f.svc.List(ctx, "data*")
	assert.Equal(t, []string{"Big Data", "Data Sprint"}, titles(t, out.Data))

	out = f.svc.List(ctx, "{web,sustainability}")
	assert.Equal(t, []string{"Climate"}, titles(t, out.Data))

	out = f.svc.List(ctx, "[")
	assert.Equal(t, apperr.Validation, out.Kind)
}

func TestService_Join(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.ids["Climate"]

	out := f.svc.Join(ctx, session.NewHolder(), id)
	assert.Equal(t, competition.MsgLoginFirst, out.Message)

	holder := session.NewHolder()
	holder.SetAuthenticated(session.User{ID: "u1", Email: "ada@example.com"})

	out = f.svc.Join(ctx, holder, id)
	require.True(t, out.OK, out.Message)
	assert.Equal(t, competition.MsgJoined, out.Message)

	rec, err := f.store.FindRecord(ctx, backend.TableCompetitions, backend.Filter{"id": id})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Int("participant_count"))

	out = f.svc.Join(ctx, holder, id)
	assert.Equal(t, apperr.Duplicate, out.Kind)
	assert.Equal(t, competition.MsgAlreadyJoined, out.Message)

	out = f.svc.Join(ctx, holder, "missing")
	assert.Equal(t, apperr.Reference, out.Kind)
	assert.Equal(t, competition.MsgNotFound, out.Message)
}

func TestService_JoinBackendFailure(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("FindRecord", mock.Anything, backend.TableCompetitions, backend.Filter{"id": "c1"}).
		Return(&backend.Record{ID: "c1", Table: backend.TableCompetitions}, nil)
	m.On("CreateRecord", mock.Anything, backend.TableParticipants, mock.Anything).
		Return(nil, apperr.Errorf(apperr.Network, "backend unreachable"))

	holder := session.NewHolder()
	holder.SetAuthenticated(session.User{ID: "u1"})

	out := competition.NewService(m, competition.Options{}).Join(context.Background(), holder, "c1")
	assert.Equal(t, apperr.Network, out.Kind)
	assert.Equal(t, "backend unreachable", out.Message)
	m.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_JoinWithoutProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.ids["Climate"]

	holder := session.NewHolder()
	holder.SetAuthenticated(session.User{ID: "no-profile", Email: "grace@example.com"})

	out := f.svc.Join(ctx, holder, id)
	assert.False(t, out.OK)
	assert.Equal(t, apperr.Reference, out.Kind)
	assert.Equal(t, backend.MsgReference, out.Message)

	rec, err := f.store.FindRecord(ctx, backend.TableCompetitions, backend.Filter{"id": id})
	require.NoError(t, err)
	assert.Zero(t, rec.Int("participant_count"))
}

func TestService_JoinLookupFailure(t *testing.T) {
	m := &backendtest.Collaborator{}
	m.On("FindRecord", mock.Anything, backend.TableCompetitions, mock.Anything).
		Return(nil, apperr.Errorf(apperr.Network, "backend unreachable"))

	holder := session.NewHolder()
	holder.SetAuthenticated(session.User{ID: "u1"})

	out := competition.NewService(m, competition.Options{}).Join(context.Background(), holder, "c1")
	assert.Equal(t, apperr.Network, out.Kind)
	m.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompetition_ActionLabel(t *testing.T) {
	assert.Equal(t, "Register", (&competition.Competition{Status: competition.StatusUpcoming}).ActionLabel())
	assert.Equal(t, "Join Now", (&competition.Competition{Status: competition.StatusActive}).ActionLabel())
}
