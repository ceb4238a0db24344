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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/gateway"
	"github.com/Gosayram/fngate/internal/health"
)

// setupTestServer creates a test server with an echo and a health operation
func setupTestServer(t *testing.T, config *Config) *httptest.Server {
	t.Helper()

	registry := gateway.NewRegistry()
	registry.MustRegister(HealthOperation, gateway.HandlerFunc(func(context.Context, map[string]any, authn.AuthContext) (any, error) {
		return map[string]any{"status": "healthy"}, nil
	}))
	registry.MustRegister("echo", gateway.HandlerFunc(func(_ context.Context, payload map[string]any, _ authn.AuthContext) (any, error) {
		return payload, nil
	}))
	registry.MustRegister("private", gateway.HandlerFunc(func(_ context.Context, _ map[string]any, auth authn.AuthContext) (any, error) {
		if !auth.IsAuthenticated() {
			return nil, failure.Unauthenticated("User must be authenticated")
		}
		return nil, nil
	}))

	gw := gateway.New(gateway.Config{Registry: registry, Logger: zap.NewNop()})
	if config == nil {
		config = &Config{}
	}
	srv := httptest.NewServer(NewServer(config, gw, zap.NewNop()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	for name, value := range gateway.ResponseHeaders() {
		assert.Equal(t, value, resp.Header.Get(name), name)
	}
}

func TestServer_Health(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.String(), `"status":"healthy"`)
	assertCORS(t, resp)
}

func TestServer_RawInvoke(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, body := post(t, srv.URL+"/v1/echo", `{"limit":5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"data": map[string]any{"limit": float64(5)}}, body)
	assertCORS(t, resp)
}

func TestServer_CallableInvoke(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, body := post(t, srv.URL+"/v1/callable/echo", `{"data":{"q":"mercy"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"data": map[string]any{"q": "mercy"}}, body)

	resp, body = post(t, srv.URL+"/v1/callable/echo", `{"data":"text"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid-argument", body["error"].(map[string]any)["code"])
}

func TestServer_Failures(t *testing.T) {
	srv := setupTestServer(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown operation", path: "/v1/missing", body: `{}`, status: http.StatusBadRequest, code: "not-found"},
		{name: "malformed body", path: "/v1/echo", body: `{not json`, status: http.StatusBadRequest, code: "invalid-argument"},
		{name: "missing auth", path: "/v1/private", body: ``, status: http.StatusBadRequest, code: "unauthenticated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["error"].(map[string]any)["code"])
			assertCORS(t, resp)
		})
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	srv := setupTestServer(t, &Config{MaxBodyBytes: 16})

	resp, body := post(t, srv.URL+"/v1/echo", `{"payload":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid-argument", body["error"].(map[string]any)["code"])
}

func TestServer_Preflight(t *testing.T) {
	srv := setupTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/echo", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assertCORS(t, resp)
}

func TestServer_Operations(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/operations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Operations []string `json:"operations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"echo", HealthOperation, "private"}, body.Operations)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServer_Ready(t *testing.T) {
	var failing atomic.Bool
	checker := health.NewChecker().Require("storage", pingFunc(func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	}))
	srv := setupTestServer(t, &Config{Readiness: checker})

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	failing.Store(true)
	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	var report health.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, health.StatusUnhealthy, report.Status)
	assertCORS(t, resp)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)
	_, _ = post(t, srv.URL+"/v1/echo", `{}`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	assert.Contains(t, body.String(), "fngate_invocations_total")
	assert.Contains(t, body.String(), `fngate_http_requests_total{route="/v1/{operation}",status="200"}`)
}

func TestBuildTLSConfig_RequiresCA(t *testing.T) {
	s := &Server{config: &Config{TLSEnabled: true, RequireClientCert: true}}
	_, err := s.buildTLSConfig()
	assert.Error(t, err)

	s.config.RequireClientCert = false
	tlsConfig, err := s.buildTLSConfig()
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig)
}
