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

package audit

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// sensitiveMetadata keys are never written to the audit log
var sensitiveMetadata = []string{"password", "token", "authorization", "secret", "fcmToken"}

// Logger writes audit events through zap
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new audit logger. A nil logger discards events.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{
		logger: logger.Named("audit"),
	}
}

// Log logs an audit event
//
//nolint:revive // ctx parameter is kept for request-scoped sinks
func (l *Logger) Log(ctx context.Context, event *Event) {
	sanitize(event)

	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.String("audit_type", string(event.Type)),
		zap.Time("audit_timestamp", event.Timestamp),
		zap.String("audit_subject", event.Subject),
		zap.String("audit_result", event.Result),
	}

	if event.Operation != "" {
		fields = append(fields, zap.String("audit_operation", event.Operation))
	}

	if event.Code != "" {
		fields = append(fields, zap.String("audit_code", event.Code))
	}

	if event.Duration > 0 {
		fields = append(fields, zap.Duration("audit_duration", event.Duration))
	}

	if len(event.Metadata) > 0 {
		metadataJSON, _ := json.Marshal(event.Metadata)
		fields = append(fields, zap.String("audit_metadata", string(metadataJSON)))
	}

	l.logger.Info("Audit event", fields...)
}

func sanitize(event *Event) {
	for _, key := range sensitiveMetadata {
		delete(event.Metadata, key)
	}
}
