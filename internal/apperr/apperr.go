// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package apperr defines the error classes surfaced to users of the portal.
//
// Every error produced at a collaborator boundary carries one Kind as its oops
// code. Flow controllers branch on the Kind, never on message text.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/samber/oops"
)

// Kind classifies a failure.
type Kind string

// Error kinds.
const (
	// Validation means local field rules failed; carried as data, not as an error.
	Validation Kind = "VALIDATION"
	// Auth means the collaborator rejected credentials or the session.
	Auth Kind = "AUTH"
	// Duplicate means a record with the same unique key already exists.
	Duplicate Kind = "DUPLICATE"
	// Reference means a referenced record, such as the user account, is missing.
	Reference Kind = "REFERENCE"
	// InvalidData means the collaborator rejected the record contents.
	InvalidData Kind = "INVALID_DATA"
	// Network means the collaborator could not be reached.
	Network Kind = "NETWORK"
	// Unknown is everything else.
	Unknown Kind = "UNKNOWN"
)

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Validation, Auth, Duplicate, Reference, InvalidData, Network, Unknown}
}

// New starts an oops builder tagged with kind.
func New(kind Kind) oops.OopsErrorBuilder {
	return oops.Code(string(kind))
}

// Errorf creates an error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return oops.Code(string(kind)).Errorf(format, args...)
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(kind)).Wrap(err)
}

// KindOf classifies err. Untagged context deadlines and network errors are
// Network; any other untagged error is Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			if k := parse(code); k != "" {
				return k
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Network
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network
	}
	return Unknown
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err: the innermost oops message,
// or the plain error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}

func parse(code string) Kind {
	for _, k := range Kinds() {
		if string(k) == code {
			return k
		}
	}
	return ""
}
