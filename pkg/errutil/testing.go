// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails t unless err carries code. Wrapping layers that add
// context without a code do not hide the inner code.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	require.Error(t, err, "expected an error coded %s", code)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error coded %s, got %T: %v", code, err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails t unless the merged context of err holds key with
// value.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	got, found := oopsErr.Context()[key]
	if assert.True(t, found, "context key %q missing from %v", key, oopsErr.Context()) {
		assert.Equal(t, value, got, "context key %q", key)
	}
}

// AssertUncoded fails t if err carries any oops code. Used for failures that
// must stay generic, such as a cancelled context surfacing unchanged.
func AssertUncoded(t testing.TB, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Empty(t, Code(err), "unexpected code on %v", err)
}
