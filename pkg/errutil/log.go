// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with its oops code and context.
// Plain errors are logged by their text.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.ErrorContext(ctx, msg, append(Attrs(err), attrs...)...)
}

// LogWarn is LogError at warn level, for failures a flow tolerates.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.WarnContext(ctx, msg, append(Attrs(err), attrs...)...)
}

// Attrs returns slog key/value pairs describing err.
func Attrs(err error) []any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err.Error()}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// Code returns the oops code of err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}
