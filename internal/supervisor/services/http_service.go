// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cohortlens/internal/config"
)

// HTTPServer is the subset of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under supervision.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server. A non-positive shutdownTimeout means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// NewMetricsServer builds the Prometheus listener described by cfg.
func NewMetricsServer(cfg config.MetricsConfig) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewMetricsService wraps the metrics listener for the api layer.
func NewMetricsService(cfg config.MetricsConfig, shutdownTimeout time.Duration) *HTTPServerService {
	svc := NewHTTPServerService(NewMetricsServer(cfg), shutdownTimeout)
	svc.name = "metrics-server"
	return svc
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", h.name, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", h.name, err)
		}

		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return h.name
}
