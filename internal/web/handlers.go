// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/flow"
	"github.com/phiona/phiona/internal/registration"
	"github.com/phiona/phiona/internal/validation"
	"github.com/phiona/phiona/pkg/errutil"
)

// Messages shown by the adapter itself.
const (
	MsgBusy                 = "Please wait for the current request to finish"
	MsgInvalidTab           = "Unknown modal tab"
	MsgNotificationNotFound = "Notification not found"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]string{"status": "ok"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeData(w, workspaceFrom(r).View.Snapshot())
}

type modalRequest struct {
	Open bool `json:"open"`
	Tab  Tab  `json:"tab"`
}

func (s *Server) handleModal(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	var req modalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.Message(err))
		return
	}
	if !req.Open {
		ws.View.CloseModal()
		writeData(w, ws.View.Snapshot())
		return
	}
	if req.Tab == "" {
		req.Tab = TabLogin
	}
	if !req.Tab.Valid() {
		writeOutcome(w, flow.Failure(apperr.Validation, MsgInvalidTab))
		return
	}
	ws.View.OpenModal(req.Tab)
	writeData(w, ws.View.Snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeData(w, workspaceFrom(r).Session().Current())
}

// submit runs fn as the single in-flight submission of form and mirrors
// its outcome into the view.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, form string, fn func(*Workspace, validation.Record) flow.Outcome) {
	ws := workspaceFrom(r)
	values, err := decodeForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.Message(err))
		return
	}
	if !ws.View.Begin(form) {
		writeError(w, http.StatusConflict, MsgBusy)
		return
	}
	defer ws.View.End(form)

	o := fn(ws, values)
	present(ws.View, form, o)
	writeOutcome(w, o)
}

// present shows an outcome the way the forms do: inline field errors and a
// notification.
func present(v *View, form string, o flow.Outcome) {
	if form != "" {
		v.SetFieldErrors(form, o.FieldErrors)
	}
	switch {
	case !o.OK && o.Message != "":
		v.Notify(NotifyError, o.Message)
	case o.OK && o.Message != "":
		v.Notify(NotifySuccess, o.Message)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, FormRegister, func(ws *Workspace, form validation.Record) flow.Outcome {
		return ws.Auth.Register(r.Context(), form)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, FormLogin, func(ws *Workspace, form validation.Record) flow.Outcome {
		return ws.Auth.Login(r.Context(), form[validation.FieldEmail], form[validation.FieldPassword])
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	if !ws.View.Begin(FormLogout) {
		writeError(w, http.StatusConflict, MsgBusy)
		return
	}
	defer ws.View.End(FormLogout)

	o := ws.Auth.Logout(r.Context())
	present(ws.View, "", o)
	writeOutcome(w, o)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, FormReset, func(ws *Workspace, form validation.Record) flow.Outcome {
		o := ws.Auth.ResetPassword(r.Context(), form[validation.FieldEmail])
		if o.OK {
			ws.View.ShowTab(TabLogin)
		}
		return o
	})
}

type strengthRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type strengthResponse struct {
	Strength     validation.Strength `json:"strength"`
	Match        bool                `json:"match"`
	MatchMessage string              `json:"match_message,omitempty"`
}

func (s *Server) handlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req strengthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.Message(err))
		return
	}
	match, msg := validation.PasswordsMatch(req.Password, req.PasswordConfirm)
	writeData(w, strengthResponse{
		Strength:     validation.PasswordStrength(req.Password),
		Match:        match,
		MatchMessage: msg,
	})
}

func (s *Server) handleHackathonRegister(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, FormHackathon, func(ws *Workspace, form validation.Record) flow.Outcome {
		o := ws.Registrations.SubmitForSession(r.Context(), form)
		if o.Message == registration.MsgLoginRequired && !ws.Session().Current().Authenticated {
			ws.View.OpenModal(TabLogin)
		}
		if !o.OK {
			return o
		}
		reg, ok := o.Data.(*registration.Registration)
		if !ok {
			return o
		}
		st, err := ws.Registrations.Stats(r.Context(), reg.HackathonName)
		if err != nil {
			errutil.LogWarn(r.Context(), s.logger, "hackathon stats failed", err, "hackathon", reg.HackathonName)
			return o
		}
		ws.View.Notify(NotifyInfo, registration.StatsMessage(st.Total))
		return o
	})
}

func (s *Server) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, workspaceFrom(r).Registrations.MyRegistrations(r.Context()))
}

type statsResponse struct {
	HackathonName string `json:"hackathon_name"`
	Total         int    `json:"total_registrations"`
	Message       string `json:"message"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := workspaceFrom(r).Registrations.Stats(r.Context(), name)
	if err != nil {
		errutil.LogWarn(r.Context(), s.logger, "hackathon stats failed", err, "hackathon", name)
		writeOutcome(w, flow.FromError(err))
		return
	}
	writeData(w, statsResponse{
		HackathonName: st.HackathonName,
		Total:         st.Total,
		Message:       registration.StatsMessage(st.Total),
	})
}

func (s *Server) handleCompetitions(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, workspaceFrom(r).Competitions.List(r.Context(), r.URL.Query().Get("category")))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	o := ws.Competitions.Join(r.Context(), ws.Session(), chi.URLParam(r, "id"))
	if o.Kind == apperr.Auth && !ws.Session().Current().Authenticated {
		ws.View.OpenModal(TabLogin)
		ws.View.Notify(NotifyInfo, o.Message)
		writeOutcome(w, o)
		return
	}
	present(ws.View, "", o)
	writeOutcome(w, o)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	cur := ws.Session().Current()
	if !cur.Authenticated {
		writeOutcome(w, flow.Failure(apperr.Auth, registration.MsgNotAuthenticated))
		return
	}
	p, err := ws.Profiles.Get(r.Context(), cur.UserID)
	if err != nil {
		writeOutcome(w, flow.FromError(err))
		return
	}
	writeData(w, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, FormProfile, func(ws *Workspace, form validation.Record) flow.Outcome {
		return ws.Profiles.Update(r.Context(), ws.Session(), form)
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	if !ws.View.Dismiss(chi.URLParam(r, "id")) {
		writeOutcome(w, flow.Failure(apperr.Reference, MsgNotificationNotFound))
		return
	}
	writeData(w, ws.View.Snapshot())
}
