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

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/config"
	"github.com/Gosayram/fngate/internal/gateway"
)

func testConfig(storageType string) *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "fngate-test", Environment: "test"},
		Storage: config.StorageConfig{Type: storageType},
		Auth: config.AuthConfig{
			Providers: []string{config.ProviderJWT},
			JWTSecret: "test-secret",
		},
		Notifications: config.NotificationsConfig{Provider: config.NotifierLog},
	}
}

func invoke(t *testing.T, a *App, operation, body string, headers map[string]string) (json.RawMessage, *gateway.ErrorBody, int) {
	t.Helper()
	resp := a.Gateway.Invoke(context.Background(), operation, gateway.Request{
		Body:    []byte(body),
		Headers: headers,
	})
	data, errBody, err := gateway.DecodeResponse(resp.Body)
	require.NoError(t, err)
	return data, errBody, resp.StatusCode
}

func TestBuild_MemoryRoundTrip(t *testing.T) {
	a, err := Build(context.Background(), testConfig(config.StorageMemory), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	data, _, status := invoke(t, a, "healthCheck", "", nil)
	require.Equal(t, http.StatusOK, status)
	var health map[string]any
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "fngate-test", health["service"])

	data, _, status = invoke(t, a, "createUser", `{"email":"a@example.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, status)
	var created struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEmpty(t, created.Token)

	data, _, status = invoke(t, a, "getProfile", "", map[string]string{
		"authorization": "Bearer " + created.Token,
	})
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Profile map[string]any `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, created.UserID, got.Profile["userId"])
	assert.NotContains(t, got.Profile, "passwordHash")

	_, errBody, status := invoke(t, a, "getProfile", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, errBody)
	assert.Equal(t, "unauthenticated", errBody.Code)
}

func TestBuild_Bolt(t *testing.T) {
	cfg := testConfig(config.StorageBolt)
	cfg.Storage.Path = filepath.Join(t.TempDir(), "fngate.db")

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Store.Ping(context.Background()))
	require.NoError(t, a.Close())
}

func TestBuild_UnknownStorage(t *testing.T) {
	_, err := Build(context.Background(), testConfig("mongo"), nil)
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestBuildVerifier(t *testing.T) {
	verifier, err := BuildVerifier(context.Background(), config.AuthConfig{
		Providers: []string{config.ProviderJWT},
		JWTSecret: "s",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &authn.JWTVerifier{}, verifier)

	_, err = BuildVerifier(context.Background(), config.AuthConfig{Providers: []string{"saml"}}, nil)
	assert.Error(t, err)
}
