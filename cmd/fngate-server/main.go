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

// Package main provides the fngate HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/app"
	"github.com/Gosayram/fngate/internal/config"
	"github.com/Gosayram/fngate/internal/health"
	"github.com/Gosayram/fngate/internal/logging"
	"github.com/Gosayram/fngate/internal/telemetry"
	"github.com/Gosayram/fngate/internal/transport/httpapi"
	"github.com/Gosayram/fngate/internal/version"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, logger := initializeConfigAndLogger()
	defer func() {
		_ = logger.Sync() // Ignore sync errors on exit
	}()

	logStartupInfo(logger, cfg)

	shutdownTracing := initializeTelemetry(ctx, cfg, logger)
	defer shutdownTracing()

	components, err := app.Build(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Error("Failed to close document store", zap.Error(err))
		}
	}()

	httpServer := setupHTTPServer(cfg, logger, components)
	startAndShutdownServer(httpServer, cfg, logger)
}

// initializeConfigAndLogger loads configuration and initializes logger
func initializeConfigAndLogger() (*config.Config, *logging.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer - acceptable for configuration errors
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return cfg, logger
}

// logStartupInfo logs server startup information
func logStartupInfo(logger *logging.Logger, cfg *config.Config) {
	info := version.Info()
	logger.Info("Starting fngate-server",
		zap.String("version", info["version"]),
		zap.String("commit", info["commit"]),
		zap.String("date", info["date"]),
		zap.String("environment", cfg.Service.Environment),
		zap.String("storage", cfg.Storage.Type),
		zap.Strings("auth_providers", cfg.Auth.Providers),
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
	)
}

// initializeTelemetry installs the tracer provider and returns its flush function
func initializeTelemetry(ctx context.Context, cfg *config.Config, logger *logging.Logger) func() {
	shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Service.Name,
		Version:     version.Version,
		Environment: cfg.Service.Environment,
		Region:      cfg.Service.Region,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error("Failed to flush traces", zap.Error(err))
		}
	}
}

// setupHTTPServer configures and sets up the HTTP server
func setupHTTPServer(cfg *config.Config, logger *logging.Logger, components *app.App) *httpapi.Server {
	serverConfig := &httpapi.Config{
		Address:           cfg.Server.Address,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TLSEnabled:        cfg.Server.TLSEnabled,
		TLSCertFile:       cfg.Server.TLSCertFile,
		TLSKeyFile:        cfg.Server.TLSKeyFile,
		TLSCACertFile:     cfg.Server.TLSCACertFile,
		RequireClientCert: cfg.Server.RequireClientCert,
		Readiness:         health.NewChecker().Require("storage", components.Store),
	}

	return httpapi.NewServer(serverConfig, components.Gateway, logger.Logger)
}

// startAndShutdownServer starts the server and handles graceful shutdown
func startAndShutdownServer(httpServer *httpapi.Server, cfg *config.Config, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info("Server starting...")
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
