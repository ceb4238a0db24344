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

// Package audit records one structured audit event per invocation.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event
type EventType string

const (
	// EventTypeInvocationSucceeded is emitted when a handler returns a result
	EventTypeInvocationSucceeded EventType = "invocation.succeeded"
	// EventTypeInvocationFailed is emitted for every failed invocation
	EventTypeInvocationFailed EventType = "invocation.failed"
	// EventTypeAuthzDenied is emitted when a privilege check fails
	EventTypeAuthzDenied EventType = "authz.denied"
)

// Result values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// AnonymousSubject identifies callers without a verified credential
const AnonymousSubject = "anonymous"

// Event represents an audit event
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Subject   string            `json:"subject"`
	Operation string            `json:"operation,omitempty"`
	Result    string            `json:"result"`
	Code      string            `json:"code,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates a new audit event. An empty subject is recorded as anonymous.
func NewEvent(eventType EventType, subject string) *Event {
	if subject == "" {
		subject = AnonymousSubject
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Subject:   subject,
		Result:    ResultSuccess,
		Metadata:  make(map[string]string),
	}
}

// WithOperation sets the operation
func (e *Event) WithOperation(operation string) *Event {
	e.Operation = operation
	return e
}

// WithResult sets the result
func (e *Event) WithResult(result string) *Event {
	e.Result = result
	return e
}

// WithCode records the failure kind and marks the event failed
func (e *Event) WithCode(code string) *Event {
	if code != "" {
		e.Code = code
		if e.Result == ResultSuccess {
			e.Result = ResultFailure
		}
	}
	return e
}

// WithDuration sets the invocation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}
