// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package validation provides declarative per-field form rules and a pure
// validator that applies them to submitted records.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Messages overrides the default message of individual checks.
// Empty entries fall back to messages built from the rule label.
type Messages struct {
	Required string
	TooShort string
	TooLong  string
	Invalid  string
}

// Rule describes the constraints on one field. A zero MinLength or MaxLength
// disables that bound. Rules are immutable once built.
type Rule struct {
	Label         string
	Required      bool
	MinLength     int
	MaxLength     int
	Pattern       *regexp.Regexp
	AllowedValues []string
	// Message is reported when the pattern or allowed-value check fails.
	Message  string
	Messages Messages
	// Raw fields keep surrounding whitespace when sanitized, e.g. passwords.
	Raw bool
}

// Check evaluates value against the rule. Checks run in order: presence,
// minimum length, maximum length, pattern, allowed values. The first failure
// is returned; remaining checks are skipped.
func (r Rule) Check(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		if r.Required {
			return pick(r.Messages.Required, r.Label+" is required"), false
		}
		return "", true
	}

	n := utf8.RuneCountInString(v)
	if r.MinLength > 0 && n < r.MinLength {
		return pick(r.Messages.TooShort, fmt.Sprintf("%s must be at least %d characters", r.Label, r.MinLength)), false
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return pick(r.Messages.TooLong, fmt.Sprintf("%s is too long (max %d characters)", r.Label, r.MaxLength)), false
	}
	if r.Pattern != nil && !r.Pattern.MatchString(v) {
		return pick(r.Messages.Invalid, r.Message, r.Label+" contains invalid characters"), false
	}
	if len(r.AllowedValues) > 0 && !slices.Contains(r.AllowedValues, v) {
		return pick(r.Messages.Invalid, r.Message, "Invalid "+strings.ToLower(r.Label)), false
	}
	return "", true
}

func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
