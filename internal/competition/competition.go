// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package competition lists open competitions and lets signed-in users join
// them.
package competition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/pkg/errutil"
)

// Competition statuses.
const (
	StatusUpcoming = "upcoming"
	StatusActive   = "active"
	StatusEnded    = "ended"
)

// Messages shown to users.
const (
	MsgLoginFirst     = "Please login to join competitions"
	MsgJoined         = "Successfully joined the competition!"
	MsgAlreadyJoined  = "You have already joined this competition"
	MsgNotFound       = "Competition not found"
	MsgInvalidPattern = "Invalid category filter"
)

// AllCategories matches every competition.
const AllCategories = "all"

// Competition is a listed challenge.
type Competition struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category"`
	Status           string    `json:"status"`
	PrizeAmount      int       `json:"prize_amount"`
	ParticipantCount int       `json:"participant_count"`
	StartDate        time.Time `json:"start_date,omitzero"`
	EndDate          time.Time `json:"end_date,omitzero"`
	CreatedAt        time.Time `json:"created_at"`
	TimeLeft         string    `json:"time_left,omitempty"`
}

func fromRecord(rec *backend.Record, now time.Time) *Competition {
	c := &Competition{
		ID:               rec.ID,
		Title:            rec.String("title"),
		Description:      rec.String("description"),
		Category:         rec.String("category"),
		Status:           rec.String("status"),
		PrizeAmount:      rec.Int("prize_amount"),
		ParticipantCount: rec.Int("participant_count"),
		StartDate:        rec.Time("start_date"),
		EndDate:          rec.Time("end_date"),
		CreatedAt:        rec.CreatedAt,
	}
	if !c.EndDate.IsZero() {
		c.TimeLeft = TimeLeft(c.EndDate, now)
	}
	return c
}

// ActionLabel is the call to action shown on the competition card.
func (c *Competition) ActionLabel() string {
	if c.Status == StatusUpcoming {
		return "Register"
	}
	return "Join Now"
}

// TimeLeft describes the time remaining until end.
func TimeLeft(end, now time.Time) string {
	diff := end.Sub(now)
	if diff <= 0 {
		return "Ended"
	}
	day := 24 * time.Hour
	days := int(diff / day)
	hours := int((diff % day) / time.Hour)
	switch {
	case days > 0:
		return fmt.Sprintf("%d days left", days)
	case hours > 0:
		return fmt.Sprintf("%d hours left", hours)
	default:
		return "Ending soon"
	}
}

// Options configures a Service.
type Options struct {
	Observer flow.Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service reads competitions and records participation.
type Service struct {
	records  backend.RecordStore
	observer flow.Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(records backend.RecordStore, opts Options) *Service {
	s := &Service{records: records, observer: opts.Observer, logger: opts.Logger, now: opts.Now}
	if s.observer == nil {
		s.observer = flow.NopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// List returns competitions newest first. category is a glob over the
// category name, matched case-insensitively; "" and "all" match everything.
func (s *Service) List(ctx context.Context, category string) flow.Outcome {
	ctx, done := flow.Track(ctx, s.observer, "competition.list", attribute.String("competition.category", category))

	match, err := categoryMatcher(category)
	if err != nil {
		return done(flow.Failure(apperr.Validation, MsgInvalidPattern))
	}

	recs, err := s.records.ListRecords(ctx, backend.TableCompetitions, nil,
		backend.Query{OrderBy: "created_at", Desc: true})
	if err != nil {
		errutil.LogWarn(ctx, s.logger, "list competitions failed", err)
		return done(flow.FromError(err))
	}

	now := s.now()
	out := make([]*Competition, 0, len(recs))
	for _, rec := range recs {
		if c := fromRecord(rec, now); match(c.Category) {
			out = append(out, c)
		}
	}
	return done(flow.Success("", out))
}

// Join adds the signed-in user to the competition and refreshes its
// participant count.
func (s *Service) Join(ctx context.Context, sess session.Reader, competitionID string) flow.Outcome {
	ctx, done := flow.Track(ctx, s.observer, "competition.join", attribute.String("competition.id", competitionID))

	cur := sess.Current()
	if !cur.Authenticated || cur.UserID == "" {
		return done(flow.Failure(apperr.Auth, MsgLoginFirst))
	}

	comp, err := s.records.FindRecord(ctx, backend.TableCompetitions, backend.Filter{"id": competitionID})
	switch {
	case err != nil:
		errutil.LogWarn(ctx, s.logger, "competition lookup failed", err, "competition_id", competitionID)
		return done(flow.FromError(err))
	case comp == nil:
		return done(flow.Failure(apperr.Reference, MsgNotFound))
	}

	_, err = s.records.CreateRecord(ctx, backend.TableParticipants, backend.Fields{
		"user_id":        cur.UserID,
		"competition_id": competitionID,
		"joined_at":      s.now().UTC(),
	})
	switch kind := apperr.KindOf(err); {
	case err == nil:
	case kind == apperr.Duplicate:
		return done(flow.Failure(kind, MsgAlreadyJoined))
	case kind == apperr.Reference:
		// The competition exists, so the user row is what is missing.
		errutil.LogWarn(ctx, s.logger, "join competition without profile", err, "competition_id", competitionID)
		return done(flow.Failure(kind, backend.MsgReference))
	default:
		errutil.LogWarn(ctx, s.logger, "join competition failed", err, "competition_id", competitionID)
		return done(flow.FromError(err))
	}

	s.refreshCount(ctx, competitionID)
	return done(flow.Success(MsgJoined, nil))
}

// refreshCount recomputes participant_count from the participant rows.
func (s *Service) refreshCount(ctx context.Context, competitionID string) {
	rows, err := s.records.ListRecords(ctx, backend.TableParticipants,
		backend.Filter{"competition_id": competitionID}, backend.Query{})
	if err == nil {
		_, err = s.records.UpdateRecord(ctx, backend.TableCompetitions, competitionID,
			backend.Fields{"participant_count": len(rows)})
	}
	if err != nil {
		errutil.LogWarn(ctx, s.logger, "participant count refresh failed", err, "competition_id", competitionID)
	}
}

func categoryMatcher(pattern string) (func(string) bool, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" || pattern == AllCategories {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, apperr.New(apperr.Validation).With("pattern", pattern).Wrap(err)
	}
	return func(category string) bool { return g.Match(strings.ToLower(category)) }, nil
}
