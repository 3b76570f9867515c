// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package rest talks to a hosted backend exposing a GoTrue-style auth API
// under /auth/v1 and a PostgREST-style data API under /rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
)

// Config configures the hosted backend connection.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// Retries is the number of extra attempts for idempotent reads.
	Retries uint64
	// MinVersion, when set, is a semver constraint the auth service version
	// must satisfy at startup, for example ">= 2.100.0".
	MinVersion string
}

// Service holds the connection shared by every client.
type Service struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	retries uint64
	minVer  string
	logger  *slog.Logger
}

// NewService validates cfg and creates a Service. The URL and API key are
// required.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.New(apperr.Unknown).
			With("url_set", cfg.URL != "").
			With("api_key_set", cfg.APIKey != "").
			Errorf("backend URL and API key are required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperr.New(apperr.Unknown).With("url", cfg.URL).Errorf("invalid backend URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		base:    base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		retries: cfg.Retries,
		minVer:  cfg.MinVersion,
		logger:  logger,
	}, nil
}

// Factory returns a backend.Factory creating signed-out clients.
func (s *Service) Factory() backend.Factory {
	return func(context.Context) (backend.Collaborator, error) {
		return NewClient(s), nil
	}
}

// request is one HTTP call against the backend.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string
	header http.Header
	// idempotent requests are retried on transient failures.
	idempotent bool
}

// errorBody covers the error shapes of both APIs.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// statusError is an unsuccessful HTTP response.
type statusError struct {
	status int
	body   errorBody
}

func (e *statusError) Error() string {
	if t := e.body.text(); t != "" {
		return t
	}
	return http.StatusText(e.status)
}

func (e *statusError) transient() bool {
	switch e.status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do sends req and decodes a successful response into out. Non-2xx
// responses are returned as *statusError; transport failures are Network.
func (s *Service) do(ctx context.Context, req request, out any) error {
	attempt := func(ctx context.Context) error {
		err := s.once(ctx, req, out)
		if err == nil {
			return nil
		}
		var se *statusError
		if apperr.Is(err, apperr.Network) || (errors.As(err, &se) && se.transient()) {
			return retry.RetryableError(err)
		}
		return err
	}

	if !req.idempotent || s.retries == 0 {
		return s.once(ctx, req, out)
	}
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, attempt)
}

func (s *Service) once(ctx context.Context, req request, out any) error {
	u := *s.base
	u.Path = s.base.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return apperr.New(apperr.Unknown).With("path", req.path).Wrap(err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return apperr.New(apperr.Unknown).With("path", req.path).Wrap(err)
	}
	httpReq.Header.Set("apikey", s.apiKey)
	token := req.token
	if token == "" {
		token = s.apiKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return apperr.New(apperr.Network).
			With("method", req.method).
			With("path", req.path).
			Wrapf(err, "backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperr.New(apperr.Network).With("path", req.path).Wrap(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{status: resp.StatusCode}
		_ = json.Unmarshal(data, &se.body) //nolint:errcheck // body shape is best effort
		s.logger.DebugContext(ctx, "backend request failed",
			"method", req.method, "path", req.path, "status", resp.StatusCode, "code", fmt.Sprint(se.body.Code))
		return se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.New(apperr.Unknown).With("path", req.path).With("operation", "decode response").Wrap(err)
	}
	return nil
}
