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

// Package gateway turns transport requests into handler invocations and
// handler outcomes into transport responses.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/audit"
	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/metrics"
)

const (
	// tracerName identifies gateway spans
	tracerName = "github.com/Gosayram/fngate/internal/gateway"
	// MessageUnknownOperation is returned for operations missing from the registry
	MessageUnknownOperation = "Unknown operation"
	// MetadataTransport names the transport in audit events
	MetadataTransport = "transport"
)

// Request is a transport-neutral invocation request
type Request struct {
	Body    []byte
	Headers map[string]string
	// Transport labels the caller runtime for audit, e.g. "http" or "lambda"
	Transport string
	// RequestID is propagated into logs when the transport supplies one
	RequestID string
}

// Response is a transport-neutral invocation response
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Resolver resolves the caller of an invocation
type Resolver interface {
	Resolve(ctx context.Context, headers authn.Headers) authn.AuthContext
}

// Config contains gateway configuration
type Config struct {
	Resolver Resolver
	Registry *Registry
	Logger   *zap.Logger
	Audit    *audit.Logger
	Tracer   trace.Tracer
}

// Gateway runs invocations. It holds no per-invocation state.
type Gateway struct {
	resolver Resolver
	registry *Registry
	logger   *zap.Logger
	audit    *audit.Logger
	tracer   trace.Tracer
}

// New creates a gateway. A nil resolver treats every caller as anonymous.
func New(config Config) *Gateway {
	g := &Gateway{
		resolver: config.Resolver,
		registry: config.Registry,
		logger:   config.Logger,
		audit:    config.Audit,
		tracer:   config.Tracer,
	}
	if g.resolver == nil {
		g.resolver = authn.NewResolver(nil, config.Logger)
	}
	if g.registry == nil {
		g.registry = NewRegistry()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.audit == nil {
		g.audit = audit.NewLogger(g.logger)
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}
	return g
}

// Registry returns the handler registry
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Invoke runs one invocation of operation and always produces a response
func (g *Gateway) Invoke(ctx context.Context, operation string, req Request) Response {
	start := time.Now()

	ctx, span := g.tracer.Start(ctx, "invoke "+operation,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("fngate.operation", operation)),
	)
	defer span.End()

	logger := g.logger.With(zap.String("operation", operation))
	if req.RequestID != "" {
		logger = logger.With(zap.String("request_id", req.RequestID))
	}

	auth := authn.Anonymous()
	result, err := g.run(ctx, operation, req, &auth, logger)

	var resp Response
	code := metrics.StatusOK
	if err != nil {
		f := failure.Classify(err)
		code = string(f.Kind)
		if f.Kind == failure.KindInternal {
			logger.Error("Invocation failed", zap.Error(err))
		} else {
			logger.Debug("Invocation rejected", zap.String("code", code), zap.String("message", f.Message))
		}
		span.SetStatus(codes.Error, code)
		resp = failureResponse(f)
	} else {
		body, encErr := encodeSuccess(result)
		if encErr != nil {
			logger.Error("Handler result is not serializable", zap.Error(encErr))
			f := failure.Classify(encErr)
			code = string(f.Kind)
			span.SetStatus(codes.Error, code)
			resp = failureResponse(f)
		} else {
			resp = Response{StatusCode: http.StatusOK, Headers: ResponseHeaders(), Body: body}
		}
	}

	duration := time.Since(start)
	span.SetAttributes(
		attribute.String("fngate.code", code),
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Bool("fngate.authenticated", auth.IsAuthenticated()),
	)
	metrics.RecordInvocation(operation, code, duration)
	g.record(ctx, operation, code, auth, req, duration)

	return resp
}

// run walks lookup, parse, auth resolution and the handler call
func (g *Gateway) run(ctx context.Context, operation string, req Request, auth *authn.AuthContext, logger *zap.Logger) (any, error) {
	handler, ok := g.registry.Get(operation)
	if !ok {
		return nil, failure.NotFound(MessageUnknownOperation).WithDetails(map[string]string{"operation": operation})
	}

	payload, err := ParsePayload(req.Body)
	if err != nil {
		return nil, err
	}

	envelope := Envelope{Payload: payload, Headers: NewHeaders(req.Headers)}

	*auth = g.resolver.Resolve(ctx, envelope.Headers)
	metrics.RecordAuthResolution(auth.IsAuthenticated())
	if subject, ok := auth.SubjectID(); ok {
		logger.Debug("Caller resolved", zap.String("subject", subject))
	}

	return g.call(authn.WithAuth(ctx, *auth), operation, handler, envelope, *auth)
}

// call invokes handler and converts a panic into an internal failure
func (g *Gateway) call(ctx context.Context, operation string, handler Handler, envelope Envelope, auth authn.AuthContext) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordPanic(operation)
			g.logger.Error("Handler panicked",
				zap.String("operation", operation),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			result = nil
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	return handler.Invoke(ctx, envelope.Payload, auth)
}

// ErrorResponse builds the response for a failure raised outside an invocation,
// such as a transport rejecting an oversized body.
func ErrorResponse(err error) Response {
	return failureResponse(failure.Classify(err))
}

func failureResponse(f *failure.Failure) Response {
	return Response{
		StatusCode: f.Status(),
		Headers:    ResponseHeaders(),
		Body:       encodeFailure(f),
	}
}

func (g *Gateway) record(ctx context.Context, operation, code string, auth authn.AuthContext, req Request, duration time.Duration) {
	subject, _ := auth.SubjectID()

	eventType := audit.EventTypeInvocationSucceeded
	switch failure.Kind(code) {
	case failure.KindPermissionDenied:
		eventType = audit.EventTypeAuthzDenied
	default:
		if code != metrics.StatusOK {
			eventType = audit.EventTypeInvocationFailed
		}
	}

	event := audit.NewEvent(eventType, subject).
		WithOperation(operation).
		WithDuration(duration)
	if code != metrics.StatusOK {
		event.WithCode(code)
	}
	if eventType == audit.EventTypeAuthzDenied {
		event.WithResult(audit.ResultDenied)
	}
	if req.Transport != "" {
		event.WithMetadata(MetadataTransport, req.Transport)
	}
	if req.RequestID != "" {
		event.WithMetadata("request_id", req.RequestID)
	}

	g.audit.Log(ctx, event)
}

// Preflight answers a cross-origin preflight request
func Preflight() Response {
	return Response{
		StatusCode: http.StatusNoContent,
		Headers:    ResponseHeaders(),
	}
}
