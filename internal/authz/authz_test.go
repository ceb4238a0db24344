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

package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewDefaultEngine(nil)
	require.NoError(t, err)
	return engine
}

func user(flags map[string]bool) authn.AuthContext {
	return authn.Authenticated(&authn.Claims{Subject: "user-1", Flags: flags})
}

func TestRolesFor(t *testing.T) {
	assert.Equal(t, []Role{RoleAnonymous}, RolesFor(authn.Anonymous()))
	assert.Equal(t, []Role{RoleAnonymous, RoleUser}, RolesFor(user(nil)))
	assert.Equal(t,
		[]Role{RoleAnonymous, RoleUser, RolePremium, RoleAdmin},
		RolesFor(user(map[string]bool{authn.FlagAdmin: true, authn.FlagPremium: true})),
	)
}

func TestEngine_Allowed(t *testing.T) {
	engine := newTestEngine(t)
	admin := user(map[string]bool{authn.FlagAdmin: true})

	tests := []struct {
		name      string
		auth      authn.AuthContext
		operation string
		allowed   bool
	}{
		{"anonymous health", authn.Anonymous(), "healthCheck", true},
		{"anonymous profile", authn.Anonymous(), "getProfile", false},
		{"user profile", user(nil), "getProfile", true},
		{"user public", user(nil), "getDuas", true},
		{"user claims", user(nil), "setCustomClaims", false},
		{"admin claims", admin, "setCustomClaims", true},
		{"admin anything", admin, "someFutureOperation", true},
		{"user unknown", user(nil), "someFutureOperation", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, engine.Allowed(tt.auth, tt.operation))
		})
	}
}

func TestEngine_Require(t *testing.T) {
	engine := newTestEngine(t)

	assert.NoError(t, engine.Require(user(nil), "logEvent"))

	err := engine.Require(authn.Anonymous(), "logEvent")
	require.Error(t, err)
	assert.Equal(t, failure.KindUnauthenticated, failure.Classify(err).Kind)

	err = engine.Require(user(nil), "setCustomClaims")
	require.Error(t, err)
	assert.Equal(t, failure.KindPermissionDenied, failure.Classify(err).Kind)
}

func TestCasbinEngine_PolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(path, []byte("p, premium, aiChat, invoke\n"), 0o600))

	casbinEngine, err := NewCasbinEngine(CasbinConfig{PolicyPath: path})
	require.NoError(t, err)
	assert.Len(t, casbinEngine.Rules(), 1)

	engine := NewEngine(casbinEngine, nil)
	assert.True(t, engine.Allowed(user(map[string]bool{authn.FlagPremium: true}), "aiChat"))
	assert.False(t, engine.Allowed(user(nil), "aiChat"))
}

func TestCasbinEngine_AddRules(t *testing.T) {
	casbinEngine, err := NewCasbinEngine(CasbinConfig{})
	require.NoError(t, err)
	before := len(casbinEngine.Rules())

	require.NoError(t, casbinEngine.AddRules(Rule{Role: RolePremium, Operation: "exportData"}))
	assert.Len(t, casbinEngine.Rules(), before+1)

	allowed, err := casbinEngine.Enforce(RolePremium, "exportData", ActionInvoke)
	require.NoError(t, err)
	assert.True(t, allowed)
}
