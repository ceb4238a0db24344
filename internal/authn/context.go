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

// Package authn verifies bearer credentials and resolves the caller identity of an invocation.
package authn

import (
	"context"
	"maps"
)

type contextKey string

const authKey contextKey = "auth"

// AuthContext is the resolved identity of one invocation. The zero value is anonymous.
// It is never mutated after construction.
type AuthContext struct {
	subject    string
	flags      map[string]bool
	attributes map[string]string
}

// Anonymous returns the unauthenticated context
func Anonymous() AuthContext {
	return AuthContext{}
}

// Authenticated returns a context for a verified subject. An empty subject yields Anonymous.
func Authenticated(claims *Claims) AuthContext {
	if claims == nil || claims.Subject == "" {
		return Anonymous()
	}
	return AuthContext{
		subject:    claims.Subject,
		flags:      maps.Clone(claims.Flags),
		attributes: maps.Clone(claims.Attributes),
	}
}

// IsAuthenticated reports whether a credential was verified
func (a AuthContext) IsAuthenticated() bool {
	return a.subject != ""
}

// SubjectID returns the caller identifier and whether one is present
func (a AuthContext) SubjectID() (string, bool) {
	return a.subject, a.subject != ""
}

// HasFlag reports whether a boolean claim is granted
func (a AuthContext) HasFlag(name string) bool {
	return a.flags[name]
}

// Claims returns a copy of every claim. It is empty for anonymous callers.
func (a AuthContext) Claims() map[string]any {
	out := make(map[string]any, len(a.flags)+len(a.attributes))
	for k, v := range a.attributes {
		out[k] = v
	}
	for k, v := range a.flags {
		out[k] = v
	}
	return out
}

// Flags returns a copy of the boolean claims
func (a AuthContext) Flags() map[string]bool {
	out := make(map[string]bool, len(a.flags))
	maps.Copy(out, a.flags)
	return out
}

// WithAuth adds the auth context to ctx
func WithAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authKey, auth)
}

// FromContext retrieves the auth context, anonymous if none was stored
func FromContext(ctx context.Context) AuthContext {
	auth, _ := ctx.Value(authKey).(AuthContext)
	return auth
}
