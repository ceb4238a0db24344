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

package authn

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	// AuthorizationHeader carries the bearer credential
	AuthorizationHeader = "Authorization"
	// bearerPrefix is matched case-sensitively
	bearerPrefix = "Bearer "
)

// Headers is a case-insensitive header lookup. http.Header satisfies it.
type Headers interface {
	Get(name string) string
}

// Resolver turns request headers into an AuthContext
type Resolver struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewResolver creates a resolver. A nil verifier resolves every request as anonymous.
func NewResolver(verifier Verifier, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		verifier: verifier,
		logger:   logger,
	}
}

// Resolve never fails: a missing, malformed or rejected credential yields Anonymous.
// Handlers that require a caller decide themselves how to fail.
func (r *Resolver) Resolve(ctx context.Context, headers Headers) AuthContext {
	if headers == nil {
		return Anonymous()
	}

	token, ok := BearerToken(headers.Get(AuthorizationHeader))
	if !ok || r.verifier == nil {
		return Anonymous()
	}

	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		r.logger.Debug("Bearer credential rejected, continuing anonymously", zap.Error(err))
		return Anonymous()
	}

	return Authenticated(claims)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}
