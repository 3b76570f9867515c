// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/validation"
)

const maxBodyBytes = 1 << 20

// Envelope wraps every JSON response.
type Envelope struct {
	Success     bool              `json:"success"`
	Data        any               `json:"data,omitempty"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	Kind        apperr.Kind       `json:"kind,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Auth:
		return http.StatusUnauthorized
	case apperr.Duplicate:
		return http.StatusConflict
	case apperr.Reference:
		return http.StatusNotFound
	case apperr.InvalidData:
		return http.StatusUnprocessableEntity
	case apperr.Network:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Error: msg})
}

func writeOutcome(w http.ResponseWriter, o flow.Outcome) {
	if o.OK {
		writeJSON(w, http.StatusOK, Envelope{Success: true, Data: o.Data, Message: o.Message})
		return
	}
	writeJSON(w, StatusFor(o.Kind), Envelope{
		Error:       o.Message,
		Kind:        o.Kind,
		FieldErrors: o.FieldErrors,
	})
}

// decodeForm reads a flat JSON object into a form record. Booleans and
// numbers are rendered as strings; null is skipped.
func decodeForm(r *http.Request) (validation.Record, error) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		return nil, oops.Code("BAD_REQUEST").Wrapf(err, "invalid request body")
	}

	form := make(validation.Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			form[k] = val
		case bool:
			form[k] = strconv.FormatBool(val)
		case float64:
			form[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			return nil, oops.Code("BAD_REQUEST").With("field", k).Errorf("field %q must be a string", k)
		}
	}
	return form, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return oops.Code("BAD_REQUEST").Wrapf(err, "invalid request body")
	}
	return nil
}
