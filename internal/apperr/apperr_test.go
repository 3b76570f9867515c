// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/phiona/phiona/pkg/errutil"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"tagged duplicate", Errorf(Duplicate, "already there"), Duplicate},
		{"wrapped auth", Wrap(Auth, errors.New("bad password")), Auth},
		{"builder with context", New(Reference).With("table", "profiles").Errorf("missing"), Reference},
		{"outer wrap keeps kind", fmt.Errorf("submit: %w", Errorf(InvalidData, "check failed")), InvalidData},
		{"foreign oops code", oops.Code("SOMETHING_ELSE").Errorf("x"), Unknown},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), Network},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, Network},
		{"plain", errors.New("boom"), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(Network, nil))
}

func TestIs(t *testing.T) {
	err := Errorf(Network, "timeout")
	assert.True(t, Is(err, Network))
	assert.False(t, Is(err, Auth))
	assert.False(t, Is(nil, Unknown))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "You have already registered for this hackathon",
		Message(Errorf(Duplicate, "You have already registered for this hackathon")))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Empty(t, Message(nil))
}

func TestErrorf_CarriesCode(t *testing.T) {
	err := New(Auth).With("email", "a@b.co").Errorf("Invalid login credentials")
	errutil.AssertErrorCode(t, err, "AUTH")
	errutil.AssertErrorContext(t, err, "email", "a@b.co")
}
