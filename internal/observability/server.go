// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker reports why the portal cannot take traffic yet, or nil
// when it can.
type ReadinessChecker func() error

// Server exposes /metrics and the liveness and readiness probes.
type Server struct {
	addr     string
	ready    ReadinessChecker
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewServer creates an observability server for addr ("127.0.0.1:9100",
// ":9100"). Metrics are registered in a private registry together with the
// Go runtime and process collectors. A nil ready is always ready.
func NewServer(addr string, ready ReadinessChecker) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		addr:     addr,
		ready:    ready,
		registry: reg,
		metrics:  NewMetrics(reg),
		logger:   slog.Default().With("component", "observability"),
	}
}

// Metrics returns the portal metrics, which double as the flow observer.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	r.Get("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, nil)
	})
	r.Get("/healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		var err error
		if s.ready != nil {
			err = s.ready()
		}
		writeProbe(w, err)
	})
	return r
}

type probe struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func writeProbe(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	body := probe{Status: "ok"}
	if err != nil {
		body = probe{Status: "unavailable", Reason: err.Error()}
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // client may have gone away
}

// Start binds addr and serves in the background. Serve failures after Start
// returns arrive on the channel, which is closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil, oops.Code("SERVER_ALREADY_RUNNING").Errorf("observability server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	srv := &http.Server{Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	s.listener, s.srv = ln, srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("observability server listening", "addr", ln.Addr().String())
	return errCh, nil
}

// Stop shuts the server down gracefully. Stopping a stopped server is a
// no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return oops.With("operation", "shutdown observability server").Wrap(err)
	}
	s.srv = nil
	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
