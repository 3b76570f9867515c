// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

// Package web serves the portal to browsers. Each browser owns a Workspace
// identified by a cookie, and every response uses the same JSON envelope.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/phiona/phiona/internal/observability"
)

// CookieName holds the workspace id.
const CookieName = "phiona_ws"

// Options configures a Server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	// SecureCookies marks the workspace cookie Secure.
	SecureCookies bool
	// Metrics is optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server is the web adapter.
type Server struct {
	registry *Registry
	opts     Options
	logger   *slog.Logger
	router   chi.Router

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server over registry.
func NewServer(registry *Registry, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	s := &Server{registry: registry, opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withWorkspace)

		r.Get("/view", s.handleView)
		r.Get("/view/stream", s.handleViewStream)
		r.Post("/modal", s.handleModal)
		r.Get("/session", s.handleSession)

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/reset", s.handleReset)
		r.Post("/password/strength", s.handlePasswordStrength)

		r.Post("/hackathons/register", s.handleHackathonRegister)
		r.Get("/hackathons/registrations", s.handleMyRegistrations)
		r.Get("/hackathons/{name}/stats", s.handleStats)

		r.Get("/competitions", s.handleCompetitions)
		r.Post("/competitions/{id}/join", s.handleJoin)

		r.Get("/profile", s.handleGetProfile)
		r.Patch("/profile", s.handleUpdateProfile)

		r.Delete("/notifications/{id}", s.handleDismiss)
	})
	return r
}

// Start listens on the configured address. Serve errors after Start
// returns are delivered on the returned channel, which is closed when the
// server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("SERVER_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("LISTEN_FAILED").With("addr", s.opts.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Open view streams are closed by
// cancelling the registry context, not here.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_web_server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// accessLog logs each request and counts it by route pattern.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		}
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type workspaceKey struct{}

// withWorkspace resolves the workspace cookie, creating a workspace for
// new or expired clients.
func (s *Server) withWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ws *Workspace
		if c, err := r.Cookie(CookieName); err == nil {
			ws, _ = s.registry.Get(c.Value)
		}
		if ws == nil {
			created, err := s.registry.Create(r.Context())
			if err != nil {
				s.logger.ErrorContext(r.Context(), "workspace creation failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			ws = created
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    ws.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), workspaceKey{}, ws)))
	})
}

func workspaceFrom(r *http.Request) *Workspace {
	ws, _ := r.Context().Value(workspaceKey{}).(*Workspace)
	return ws
}
