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

// Package authz decides which callers may invoke which operations.
package authz

import (
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/failure"
)

// Messages of the failures returned by Require
const (
	MessageUnauthenticated  = "User must be authenticated"
	MessagePermissionDenied = "Insufficient privileges for this operation"
)

// Engine checks operation grants for resolved callers
type Engine struct {
	casbin *CasbinEngine
	logger *zap.Logger
}

// NewEngine creates an engine over a casbin enforcer
func NewEngine(casbinEngine *CasbinEngine, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		casbin: casbinEngine,
		logger: logger,
	}
}

// NewDefaultEngine creates an engine with the built-in model and rules
func NewDefaultEngine(logger *zap.Logger) (*Engine, error) {
	casbinEngine, err := NewCasbinEngine(CasbinConfig{})
	if err != nil {
		return nil, err
	}
	return NewEngine(casbinEngine, logger), nil
}

// Allowed reports whether auth may invoke operation. Enforcement errors deny.
func (e *Engine) Allowed(auth authn.AuthContext, operation string) bool {
	for _, role := range RolesFor(auth) {
		allowed, err := e.casbin.Enforce(role, operation, ActionInvoke)
		if err != nil {
			e.logger.Error("Authorization check failed",
				zap.String("operation", operation),
				zap.String("role", string(role)),
				zap.Error(err),
			)
			return false
		}
		if allowed {
			return true
		}
	}
	return false
}

// Require returns nil when auth may invoke operation. Anonymous callers get
// unauthenticated, authenticated callers without the grant get permission-denied.
func (e *Engine) Require(auth authn.AuthContext, operation string) error {
	if e.Allowed(auth, operation) {
		return nil
	}

	if !auth.IsAuthenticated() {
		return failure.Unauthenticated(MessageUnauthenticated)
	}

	subject, _ := auth.SubjectID()
	e.logger.Warn("Permission denied",
		zap.String("operation", operation),
		zap.String("subject", subject),
	)
	return failure.PermissionDenied(MessagePermissionDenied)
}
