// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/phiona/phiona/internal/apperr"
)

type healthResponse struct {
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Health reports the auth service version. It is used as the readiness
// probe of the hosted backend.
func (s *Service) Health(ctx context.Context) (string, error) {
	var resp healthResponse
	err := s.do(ctx, request{method: http.MethodGet, path: "/auth/v1/health", idempotent: true}, &resp)
	if err != nil {
		return "", authError(err, "health")
	}
	return resp.Version, nil
}

// CheckVersion fails when the auth service version does not satisfy the
// configured constraint. Without a constraint it only checks reachability.
func (s *Service) CheckVersion(ctx context.Context) error {
	version, err := s.Health(ctx)
	if err != nil {
		return err
	}
	if s.minVer == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(s.minVer)
	if err != nil {
		return apperr.New(apperr.Unknown).With("constraint", s.minVer).Wrapf(err, "invalid backend version constraint")
	}
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return apperr.New(apperr.Unknown).With("version", version).Wrapf(err, "backend reported an unparseable version")
	}
	if !constraint.Check(v) {
		return apperr.New(apperr.Unknown).
			With("version", v.String()).
			With("constraint", s.minVer).
			Errorf("backend version %s does not satisfy %s", v, s.minVer)
	}
	s.logger.InfoContext(ctx, "backend version accepted", "version", v.String(), "constraint", s.minVer)
	return nil
}
