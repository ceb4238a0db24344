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

// Package logging provides structured logging functionality using zap.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lambdaFunctionEnv is set by the Lambda runtime
const lambdaFunctionEnv = "AWS_LAMBDA_FUNCTION_NAME"

// Logger wraps zap.Logger
type Logger struct {
	*zap.Logger
}

// New creates a new logger based on configuration. Inside the Lambda runtime every
// entry carries the function name.
func New(level, format, outputPath string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "text" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.Encoding = "json"
	}

	if outputPath != "" {
		config.OutputPaths = []string{outputPath}
		config.ErrorOutputPaths = []string{outputPath}
	}

	if fn := os.Getenv(lambdaFunctionEnv); fn != "" {
		config.InitialFields = map[string]any{"function": fn}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// ParseLevel parses a level name, falling back to info
func ParseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return zapLevel
}

// NewNop returns a no-op logger
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// NewDevelopment returns a development logger
func NewDevelopment() (*Logger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// WithFields adds structured fields to the logger
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.With(fields...)}
}

// ForInvocation scopes the logger to one invocation
func (l *Logger) ForInvocation(requestID, operation string) *zap.Logger {
	return l.With(zap.String("request_id", requestID), zap.String("operation", operation))
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

// NewDefault creates a default logger for development
func NewDefault() *Logger {
	if os.Getenv("FNGATE_LOG_LEVEL") == "" {
		logger, err := NewDevelopment()
		if err != nil {
			return NewNop()
		}
		return logger
	}
	logger, err := New(os.Getenv("FNGATE_LOG_LEVEL"), "json", "")
	if err != nil {
		return NewNop()
	}
	return logger
}
