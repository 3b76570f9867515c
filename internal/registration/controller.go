// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package registration records hackathon sign-ups for authenticated users.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/internal/validation"
	"github.com/phiona/phiona/pkg/errutil"
)

// DefaultHackathon is used when a submission names no hackathon.
const DefaultHackathon = "Student Hackathon 2024"

// Registration statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Messages shown to users.
const (
	MsgLoginRequired    = "User must be logged in to register for hackathons"
	MsgNotAuthenticated = "User not authenticated"
	MsgDuplicate        = "You have already registered for this hackathon"
	MsgInvalidAccount   = backend.MsgReference
	MsgInvalidData      = backend.MsgInvalidData
)

// Registration is a stored hackathon sign-up.
type Registration struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	HackathonName   string    `json:"hackathon_name"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	University      string    `json:"university"`
	Skillset        string    `json:"skillset"`
	Experience      string    `json:"experience"`
	ProjectInterest string    `json:"project_interest,omitempty"`
	Status          string    `json:"registration_status"`
	RegisteredAt    time.Time `json:"registration_timestamp"`
}

func fromRecord(rec *backend.Record) *Registration {
	return &Registration{
		ID:              rec.ID,
		UserID:          rec.String("user_id"),
		HackathonName:   rec.String("hackathon_name"),
		FullName:        rec.String("full_name"),
		Email:           rec.String("email"),
		University:      rec.String("university"),
		Skillset:        rec.String("skillset"),
		Experience:      rec.String("experience"),
		ProjectInterest: rec.String("project_interest"),
		Status:          rec.String("registration_status"),
		RegisteredAt:    rec.Time("registration_timestamp"),
	}
}

// Stats summarises the completed registrations of one hackathon.
type Stats struct {
	HackathonName string          `json:"hackathon_name"`
	Total         int             `json:"total_registrations"`
	Registrations []*Registration `json:"registrations"`
}

// Options configures a Controller.
type Options struct {
	// DefaultHackathon replaces the package default when set.
	DefaultHackathon string
	Observer         flow.Observer
	Logger           *slog.Logger
	Now              func() time.Time
}

// Controller submits and lists hackathon registrations.
type Controller struct {
	records     backend.RecordStore
	sess        session.Reader
	defaultName string
	observer    flow.Observer
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Controller. sess is consulted only by SubmitForSession and
// MyRegistrations.
func New(records backend.RecordStore, sess session.Reader, opts Options) *Controller {
	c := &Controller{
		records:     records,
		sess:        sess,
		defaultName: opts.DefaultHackathon,
		observer:    opts.Observer,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if c.defaultName == "" {
		c.defaultName = DefaultHackathon
	}
	if c.observer == nil {
		c.observer = flow.NopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// DefaultName returns the hackathon used when a form names none.
func (c *Controller) DefaultName() string {
	return c.defaultName
}

// SubmitForSession submits form for the signed-in user of the session.
func (c *Controller) SubmitForSession(ctx context.Context, form validation.Record) flow.Outcome {
	var userID string
	if cur := c.sess.Current(); cur.Authenticated {
		userID = cur.UserID
	}
	return c.Submit(ctx, userID, form)
}

// Submit registers userID for the hackathon named in form. Every invalid
// field is reported at once. A registration that already exists is a
// Duplicate failure whether the pre-check or the write detects it. Writes
// are never retried.
func (c *Controller) Submit(ctx context.Context, userID string, form validation.Record) flow.Outcome {
	if strings.TrimSpace(form[validation.FieldHackathonName]) == "" {
		form = withDefault(form, validation.FieldHackathonName, c.defaultName)
	}
	name := strings.TrimSpace(form[validation.FieldHackathonName])
	ctx, done := flow.Track(ctx, c.observer, "registration.submit", attribute.String("hackathon.name", name))

	res := validation.Validate(form, validation.HackathonRules)
	if !res.Valid() {
		return done(flow.Invalid(res, "Validation failed: "+res.Summary()))
	}
	if userID == "" {
		return done(flow.Failure(apperr.Reference, MsgLoginRequired))
	}

	clean := validation.Sanitize(form, validation.HackathonRules)
	key := backend.Filter{"user_id": userID, "hackathon_name": clean[validation.FieldHackathonName]}

	existing, err := c.records.FindRecord(ctx, backend.TableRegistrations, key)
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "registration pre-check failed", err, "user_id", userID, "hackathon", name)
		return done(classify(err))
	}
	if existing != nil {
		return done(flow.Failure(apperr.Duplicate, MsgDuplicate))
	}

	fields := backend.Fields{
		"user_id":                userID,
		"hackathon_name":         clean[validation.FieldHackathonName],
		"full_name":              clean[validation.FieldFullName],
		"email":                  strings.ToLower(clean[validation.FieldEmail]),
		"university":             clean[validation.FieldUniversity],
		"skillset":               clean[validation.FieldSkillset],
		"experience":             clean[validation.FieldExperience],
		"registration_status":    StatusCompleted,
		"registration_timestamp": c.now().UTC(),
	}
	if v := clean[validation.FieldProjectInterest]; v != "" {
		fields["project_interest"] = v
	}

	rec, err := c.records.CreateRecord(ctx, backend.TableRegistrations, fields)
	if err != nil {
		errutil.LogWarn(ctx, c.logger, "registration write failed", err, "user_id", userID, "hackathon", name)
		return done(classify(err))
	}

	msg := fmt.Sprintf("Successfully registered for %s! Your registration has been confirmed.", clean[validation.FieldHackathonName])
	return done(flow.Success(msg, fromRecord(rec)))
}

// UserRegistrations lists the registrations of userID, newest first.
func (c *Controller) UserRegistrations(ctx context.Context, userID string) flow.Outcome {
	ctx, done := flow.Track(ctx, c.observer, "registration.list")
	if userID == "" {
		return done(flow.Failure(apperr.Reference, MsgNotAuthenticated))
	}

	recs, err := c.records.ListRecords(ctx, backend.TableRegistrations,
		backend.Filter{"user_id": userID},
		backend.Query{OrderBy: "registration_timestamp", Desc: true})
	if err != nil {
		return done(flow.FromError(err))
	}
	out := make([]*Registration, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return done(flow.Success("", out))
}

// MyRegistrations lists the registrations of the signed-in user.
func (c *Controller) MyRegistrations(ctx context.Context) flow.Outcome {
	var userID string
	if cur := c.sess.Current(); cur.Authenticated {
		userID = cur.UserID
	}
	return c.UserRegistrations(ctx, userID)
}

// Stats counts the completed registrations of the named hackathon.
func (c *Controller) Stats(ctx context.Context, hackathon string) (*Stats, error) {
	recs, err := c.records.ListRecords(ctx, backend.TableRegistrations,
		backend.Filter{"hackathon_name": hackathon, "registration_status": StatusCompleted},
		backend.Query{OrderBy: "registration_timestamp"})
	if err != nil {
		return nil, err
	}
	st := &Stats{HackathonName: hackathon, Total: len(recs), Registrations: make([]*Registration, 0, len(recs))}
	for _, rec := range recs {
		st.Registrations = append(st.Registrations, fromRecord(rec))
	}
	return st, nil
}

// StatsMessage is the notice shown after a successful registration.
func StatsMessage(total int) string {
	return fmt.Sprintf("You're one of %d students registered for this hackathon!", total)
}

func classify(err error) flow.Outcome {
	switch kind := apperr.KindOf(err); kind {
	case apperr.Duplicate:
		return flow.Failure(kind, MsgDuplicate)
	case apperr.Reference:
		return flow.Failure(kind, MsgInvalidAccount)
	case apperr.InvalidData:
		return flow.Failure(kind, MsgInvalidData)
	default:
		return flow.Failure(kind, "Registration failed: "+apperr.Message(err))
	}
}

func withDefault(form validation.Record, field, value string) validation.Record {
	out := make(validation.Record, len(form)+1)
	maps.Copy(out, form)
	out[field] = value
	return out
}
