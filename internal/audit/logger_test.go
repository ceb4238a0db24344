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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTypeInvocationSucceeded, "")
	assert.Equal(t, AnonymousSubject, event.Subject)
	assert.Equal(t, ResultSuccess, event.Result)
	assert.NotEmpty(t, event.ID)

	event.WithCode("not-found")
	assert.Equal(t, ResultFailure, event.Result)
	assert.Equal(t, "not-found", event.Code)

	denied := NewEvent(EventTypeAuthzDenied, "u1").WithResult(ResultDenied).WithCode("permission-denied")
	assert.Equal(t, ResultDenied, denied.Result)
}

func TestLogger_Log(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewLogger(zap.New(core))

	event := NewEvent(EventTypeInvocationFailed, "u1").
		WithOperation("getProfile").
		WithCode("unauthenticated").
		WithMetadata("transport", "http").
		WithMetadata("password", "hunter2")
	logger.Log(context.Background(), event)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "audit", entry.LoggerName)
	assert.Equal(t, "getProfile", fields["audit_operation"])
	assert.Equal(t, "unauthenticated", fields["audit_code"])
	assert.Equal(t, `{"transport":"http"}`, fields["audit_metadata"])
}
