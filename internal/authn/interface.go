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
	"errors"
	"time"
)

var (
	// ErrInvalidCredential is returned for every rejected credential: malformed, expired or badly signed.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrMissingSecret is returned when a signing secret is not configured
	ErrMissingSecret = errors.New("signing secret is required")
)

const (
	// FlagAdmin grants administrative operations
	FlagAdmin = "admin"
	// FlagPremium marks premium subscribers
	FlagPremium = "premium"
)

// Claims is the verified content of a credential
type Claims struct {
	Subject    string
	Flags      map[string]bool
	Attributes map[string]string
	ExpiresAt  time.Time
}

// Verifier verifies a bearer credential and extracts its claims
type Verifier interface {
	// Verify returns the claims of a valid token or an error wrapping ErrInvalidCredential
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Manager tries several verifiers in order
type Manager struct {
	verifiers []Verifier
}

// NewManager creates a new verifier manager
func NewManager(verifiers ...Verifier) *Manager {
	return &Manager{
		verifiers: verifiers,
	}
}

// Verify returns the claims of the first verifier that accepts the token
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	for _, verifier := range m.verifiers {
		claims, err := verifier.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		// Continue to next verifier on error
	}

	return nil, ErrInvalidCredential
}

// Len returns the number of configured verifiers
func (m *Manager) Len() int {
	return len(m.verifiers)
}

// claimsFromMap builds Claims from decoded token claims. Boolean claims become
// flags and string claims become attributes; admin and premium are always present.
func claimsFromMap(raw map[string]any, subjectClaims ...string) (*Claims, bool) {
	var subject string
	for _, name := range subjectClaims {
		if s, ok := raw[name].(string); ok && s != "" {
			subject = s
			break
		}
	}
	if subject == "" {
		return nil, false
	}

	claims := &Claims{
		Subject: subject,
		Flags: map[string]bool{
			FlagAdmin:   false,
			FlagPremium: false,
		},
		Attributes: make(map[string]string),
	}

	for key, value := range raw {
		switch v := value.(type) {
		case bool:
			claims.Flags[key] = v
		case string:
			if !registeredClaims[key] {
				claims.Attributes[key] = v
			}
		}
	}

	return claims, true
}

// registeredClaims are never copied into Attributes
var registeredClaims = map[string]bool{
	"iss": true,
	"sub": true,
	"aud": true,
	"jti": true,
	"uid": true,
}
