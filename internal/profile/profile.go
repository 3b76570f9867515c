// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package profile manages the public profile stored for each account.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/session"
	"github.com/phiona/phiona/internal/validation"
)

// Messages shown to users.
const (
	MsgNotFound     = "Profile not found"
	MsgLoginFirst   = "Please login to edit your profile"
	MsgUpdated      = "Profile updated successfully!"
	MsgNothingToSet = "No profile changes to save"
)

// Profile is the public part of an account.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromRecord(rec *backend.Record) *Profile {
	return &Profile{
		ID:        rec.ID,
		Username:  rec.String("username"),
		FullName:  rec.String("full_name"),
		Bio:       rec.String("bio"),
		AvatarURL: rec.String("avatar_url"),
		Location:  rec.String("location"),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.Time("updated_at"),
	}
}

// Service reads and writes profiles through one client's record store.
type Service struct {
	records backend.RecordStore
	now     func() time.Time
}

// NewService creates a Service.
func NewService(records backend.RecordStore) *Service {
	return &Service{records: records, now: time.Now}
}

// Username derives a username from the local part of an email address.
func Username(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

// Create stores the profile of a newly registered account. A profile that
// already exists, for example one created by a database trigger, is not an
// error.
func (s *Service) Create(ctx context.Context, id, email, fullName, school string) error {
	fields := backend.Fields{"id": id, "username": Username(email)}
	if fullName = strings.TrimSpace(fullName); fullName != "" {
		fields["full_name"] = fullName
	}
	if school = strings.TrimSpace(school); school != "" {
		fields["location"] = school
	}
	_, err := s.records.CreateRecord(ctx, backend.TableProfiles, fields)
	if apperr.Is(err, apperr.Duplicate) {
		return nil
	}
	return err
}

// Get returns the profile with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	rec, err := s.records.FindRecord(ctx, backend.TableProfiles, backend.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.New(apperr.Reference).With("id", id).Errorf(MsgNotFound)
	}
	return fromRecord(rec), nil
}

// Update validates form against validation.ProfileRules and saves the
// fields it contains for the signed-in user.
func (s *Service) Update(ctx context.Context, sess session.Reader, form validation.Record) flow.Outcome {
	current := sess.Current()
	if !current.Authenticated || current.UserID == "" {
		return flow.Failure(apperr.Reference, MsgLoginFirst)
	}

	res := validation.Validate(form, validation.ProfileRules)
	if !res.Valid() {
		return flow.Invalid(res, res.Summary())
	}

	fields := backend.Fields{}
	for col, v := range validation.Sanitize(form, validation.ProfileRules) {
		if _, present := form[col]; present {
			fields[col] = v
		}
	}
	if len(fields) == 0 {
		return flow.Failure(apperr.Validation, MsgNothingToSet)
	}
	fields["updated_at"] = s.now().UTC()

	rec, err := s.records.UpdateRecord(ctx, backend.TableProfiles, current.UserID, fields)
	if err != nil {
		return flow.FromError(err)
	}
	return flow.Success(MsgUpdated, fromRecord(rec))
}
