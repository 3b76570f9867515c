// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package validation

import "regexp"

// Field names shared by the forms.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password_confirm"
	FieldSchool          = "school"
	FieldSkills          = "skills"
	FieldAgreeTerms      = "agree_terms"

	FieldHackathonName   = "hackathon_name"
	FieldFullName        = "full_name"
	FieldUniversity      = "university"
	FieldSkillset        = "skillset"
	FieldExperience      = "experience"
	FieldProjectInterest = "project_interest"

	FieldBio       = "bio"
	FieldLocation  = "location"
	FieldAvatarURL = "avatar_url"
)

// Length bounds.
const (
	MinPasswordLength      = 6
	MaxPasswordLength      = 72
	MaxHackathonNameLength = 200
	MaxFullNameLength      = 100
	MaxUniversityLength    = 150
	MaxSkillsetLength      = 500
	MaxProjectInterest     = 1000
	MaxBioLength           = 500
)

// Experience levels accepted on a hackathon registration.
const (
	ExperienceFirstTime = "first-time"
	ExperienceSome      = "some"
	ExperienceMany      = "many"
)

// ExperienceLevels lists the accepted experience values.
var ExperienceLevels = []string{ExperienceFirstTime, ExperienceSome, ExperienceMany}

var (
	// EmailPattern accepts local@domain.tld with a tld of two or more letters.
	EmailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	personNamePattern    = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	hackathonNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!()&]+$`)
	httpURLPattern       = regexp.MustCompile(`^https?://\S+$`)
)

// Shared failure messages.
const (
	MsgInvalidEmail    = "Please enter a valid email address"
	MsgPasswordsDiffer = "Passwords do not match"
)

// Email is the rule for a required email address.
var Email = Rule{
	Label:    "Email",
	Required: true,
	Pattern:  EmailPattern,
	Message:  MsgInvalidEmail,
}

// Password is the rule for a required password.
var Password = Rule{
	Label:     "Password",
	Required:  true,
	MinLength: MinPasswordLength,
	MaxLength: MaxPasswordLength,
	Raw:       true,
}

// SignupRules validates the account registration form.
var SignupRules = RuleSet{
	Name: "signup",
	Fields: []FieldRule{
		{FieldName, Rule{
			Label:     "Name",
			Required:  true,
			MinLength: 2,
			MaxLength: MaxFullNameLength,
			Pattern:   personNamePattern,
			Message:   "Name can only contain letters, spaces, hyphens, apostrophes and periods",
		}},
		{FieldEmail, Email},
		{FieldPassword, Password},
		{FieldPasswordConfirm, Rule{
			Label:    "Password confirmation",
			Required: true,
			Raw:      true,
			Messages: Messages{Required: "Please confirm your password"},
		}},
		{FieldSchool, Rule{Label: "School/University", MaxLength: MaxUniversityLength}},
		{FieldSkills, Rule{Label: "Skills", MaxLength: MaxSkillsetLength}},
		{FieldAgreeTerms, Rule{
			Label:         "Terms",
			Required:      true,
			AllowedValues: []string{"true", "on", "yes"},
			Message:       "You must agree to the terms and conditions",
			Messages:      Messages{Required: "You must agree to the terms and conditions"},
		}},
	},
	Confirms: []Confirm{{Field: FieldPasswordConfirm, Of: FieldPassword, Message: MsgPasswordsDiffer}},
}

// LoginRules validates the sign-in form.
var LoginRules = RuleSet{
	Name: "login",
	Fields: []FieldRule{
		{FieldEmail, Email},
		{FieldPassword, Rule{Label: "Password", Required: true, MinLength: MinPasswordLength, Raw: true}},
	},
}

// ResetRules validates the password reset form.
var ResetRules = RuleSet{
	Name:   "reset",
	Fields: []FieldRule{{FieldEmail, Email}},
}

// HackathonRules validates a hackathon registration.
var HackathonRules = RuleSet{
	Name: "hackathon",
	Fields: []FieldRule{
		{FieldHackathonName, Rule{
			Label:     "Hackathon name",
			Required:  true,
			MaxLength: MaxHackathonNameLength,
			Pattern:   hackathonNamePattern,
		}},
		{FieldFullName, Rule{
			Label:     "Full name",
			Required:  true,
			MaxLength: MaxFullNameLength,
			Pattern:   personNamePattern,
		}},
		{FieldEmail, Rule{
			Label:    "Email",
			Required: true,
			Pattern:  EmailPattern,
			Message:  "Invalid email format",
		}},
		{FieldUniversity, Rule{
			Label:     "University",
			Required:  true,
			MaxLength: MaxUniversityLength,
			Messages:  Messages{TooLong: "University name is too long (max 150 characters)"},
		}},
		{FieldSkillset, Rule{
			Label:     "Skillset",
			Required:  true,
			MaxLength: MaxSkillsetLength,
			Messages:  Messages{TooLong: "Skillset description is too long (max 500 characters)"},
		}},
		{FieldExperience, Rule{
			Label:         "Experience level",
			Required:      true,
			AllowedValues: ExperienceLevels,
			Message:       "Invalid experience level",
			Messages:      Messages{Required: "Invalid experience level"},
		}},
		{FieldProjectInterest, Rule{
			Label:     "Project interest",
			MaxLength: MaxProjectInterest,
			Messages:  Messages{TooLong: "Project interest description is too long (max 1000 characters)"},
		}},
	},
}

// ProfileRules validates a profile update. Every field is optional.
var ProfileRules = RuleSet{
	Name: "profile",
	Fields: []FieldRule{
		{FieldFullName, Rule{
			Label:     "Full name",
			MaxLength: MaxFullNameLength,
			Pattern:   personNamePattern,
		}},
		{FieldBio, Rule{Label: "Bio", MaxLength: MaxBioLength}},
		{FieldLocation, Rule{Label: "Location", MaxLength: MaxUniversityLength}},
		{FieldAvatarURL, Rule{
			Label:   "Avatar URL",
			Pattern: httpURLPattern,
			Message: "Avatar URL must start with http:// or https://",
		}},
	},
}

// IsEmail reports whether s, trimmed, is a well-formed email address.
func IsEmail(s string) bool {
	_, ok := Email.Check(s)
	return ok
}
