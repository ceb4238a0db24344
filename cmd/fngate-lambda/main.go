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

// Package main provides the fngate AWS Lambda entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/app"
	"github.com/Gosayram/fngate/internal/config"
	"github.com/Gosayram/fngate/internal/logging"
	"github.com/Gosayram/fngate/internal/telemetry"
	"github.com/Gosayram/fngate/internal/transport/lambdaapi"
	"github.com/Gosayram/fngate/internal/version"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting fngate-lambda",
		zap.String("version", version.Version),
		zap.String("environment", cfg.Service.Environment),
		zap.String("operation", cfg.Lambda.Operation),
	)

	if _, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Service.Name,
		Version:     version.Version,
		Environment: cfg.Service.Environment,
		Region:      cfg.Service.Region,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	}); err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	components, err := app.Build(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	handler := lambdaapi.NewHandler(components.Gateway, lambdaapi.Config{
		Operation: cfg.Lambda.Operation,
	}, logger.Logger)

	// The runtime freezes the process between events, so spans are flushed before returning.
	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := handler.Handle(ctx, event)
		if flushErr := telemetry.Flush(ctx); flushErr != nil {
			logger.Warn("Failed to flush traces", zap.Error(flushErr))
		}
		return resp, err
	})
}
