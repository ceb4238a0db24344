// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpapi serves the gateway over HTTP.
package httpapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/gateway"
	"github.com/Gosayram/fngate/internal/health"
)

const (
	// defaultMaxBodyBytes matches the synchronous payload limit of common function runtimes
	defaultMaxBodyBytes = 6 << 20
	// HealthOperation is served on GET /health
	HealthOperation = "healthCheck"
	// transportName labels HTTP invocations in audit events
	transportName = "http"
)

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	gateway    *gateway.Gateway
	logger     *zap.Logger
	config     *Config
}

// Config contains server configuration
type Config struct {
	Address           string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxBodyBytes      int64
	TLSEnabled        bool
	TLSCertFile       string
	TLSKeyFile        string
	TLSCACertFile     string
	RequireClientCert bool
	// Readiness backs GET /ready; nil reports ready with no components
	Readiness *health.Checker
}

// NewServer creates a new HTTP server in front of gw
func NewServer(config *Config, gw *gateway.Gateway, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.Readiness == nil {
		config.Readiness = health.NewChecker()
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(MetricsMiddleware)

	s := &Server{
		router:  router,
		gateway: gw,
		logger:  logger,
		config:  config,
	}

	s.registerRoutes()

	return s
}

// registerRoutes registers the invocation routes
func (s *Server) registerRoutes() {
	s.router.Options("/*", s.preflight)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.invoke(w, r, HealthOperation, false)
	})

	s.router.Get("/ready", s.ready)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/operations", s.listOperations)
		r.Post("/callable/{operation}", func(w http.ResponseWriter, r *http.Request) {
			s.invoke(w, r, chi.URLParam(r, "operation"), true)
		})
		r.Post("/{operation}", func(w http.ResponseWriter, r *http.Request) {
			s.invoke(w, r, chi.URLParam(r, "operation"), false)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	// Configure TLS if enabled
	if s.config.TLSEnabled {
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to build TLS config: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	s.logger.Info("Starting HTTP server",
		zap.String("address", addr),
		zap.Bool("tls_enabled", s.config.TLSEnabled),
		zap.Strings("operations", s.gateway.Registry().List()),
	)

	var err error
	if s.config.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// buildTLSConfig builds TLS configuration
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
	}

	// Require client certificates if configured
	if s.config.RequireClientCert {
		if s.config.TLSCACertFile == "" {
			return nil, fmt.Errorf("client certificates required but no CA certificate configured")
		}
		caPEM, err := os.ReadFile(s.config.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no certificates found in %s", s.config.TLSCACertFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// Router returns the chi router (for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
