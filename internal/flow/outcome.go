// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package flow holds the result type shared by the user-facing flows and the
// tracing and metrics hooks around them.
package flow

import (
	"maps"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/validation"
)

// Outcome is the result of a user action. Flows never return Go errors;
// every failure is an Outcome with a Kind and a message for the user.
type Outcome struct {
	OK          bool              `json:"success"`
	Kind        apperr.Kind       `json:"kind,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	// Errors lists field messages in rule order.
	Errors []string `json:"errors,omitempty"`
	Data   any      `json:"data,omitempty"`
}

// Success builds a successful outcome.
func Success(message string, data any) Outcome {
	return Outcome{OK: true, Message: message, Data: data}
}

// Failure builds a failed outcome of kind.
func Failure(kind apperr.Kind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}

// Invalid builds a validation failure from res.
func Invalid(res validation.Result, message string) Outcome {
	return Outcome{
		Kind:        apperr.Validation,
		Message:     message,
		FieldErrors: maps.Clone(res.Errors),
		Errors:      res.Messages(),
	}
}

// FromError converts err to a failed outcome carrying its kind and message.
func FromError(err error) Outcome {
	return Failure(apperr.KindOf(err), apperr.Message(err))
}
