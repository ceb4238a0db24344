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

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/gateway"
)

// invoke converts r into a gateway request and writes the gateway response
func (s *Server) invoke(w http.ResponseWriter, r *http.Request, operation string, callable bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResponse(w, gateway.ErrorResponse(failure.InvalidArgument("Request body too large")))
			return
		}
		s.logger.Warn("Failed to read request body", zap.Error(err))
		writeResponse(w, gateway.ErrorResponse(failure.InvalidArgument("Request body could not be read")))
		return
	}

	if callable {
		body = gateway.UnwrapCallable(body)
	}

	resp := s.gateway.Invoke(r.Context(), operation, gateway.Request{
		Body:      body,
		Headers:   flattenHeaders(r.Header),
		Transport: transportName,
		RequestID: middleware.GetReqID(r.Context()),
	})

	writeResponse(w, resp)
}

// preflight answers cross-origin preflight requests
func (s *Server) preflight(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, gateway.Preflight())
}

// listOperations lists the registered operation names
func (s *Server) listOperations(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(map[string]any{"operations": s.gateway.Registry().List()})
	if err != nil {
		writeResponse(w, gateway.ErrorResponse(err))
		return
	}
	writeResponse(w, gateway.Response{StatusCode: http.StatusOK, Headers: gateway.ResponseHeaders(), Body: body})
}

// ready reports whether the resources invocations depend on are reachable
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	report := s.config.Readiness.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
		s.logger.Warn("Readiness check failed", zap.String("message", report.Message))
	}

	body, err := json.Marshal(report)
	if err != nil {
		writeResponse(w, gateway.ErrorResponse(err))
		return
	}
	writeResponse(w, gateway.Response{StatusCode: status, Headers: gateway.ResponseHeaders(), Body: body})
}

func writeResponse(w http.ResponseWriter, resp gateway.Response) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// flattenHeaders keeps the first value of every header
func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
