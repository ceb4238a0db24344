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
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// DefaultTokenTTL is the validity window of issued tokens
	DefaultTokenTTL = 7 * 24 * time.Hour
	// subjectClaim carries the caller identifier in issued tokens
	subjectClaim = "uid"
)

// JWTVerifier verifies HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
	logger *zap.Logger
}

// NewJWTVerifier creates a verifier for tokens signed with secret
func NewJWTVerifier(secret []byte, logger *zap.Logger) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JWTVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		logger: logger,
	}, nil
}

// Verify parses and validates token
//
//nolint:revive // ctx parameter is required by Verifier interface
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	raw := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, raw, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		// The reason stays in the logs; callers only ever see ErrInvalidCredential.
		v.logger.Debug("Credential rejected", zap.String("reason", rejectionReason(err)))
		return nil, ErrInvalidCredential
	}

	claims, ok := claimsFromMap(raw, subjectClaim, "sub")
	if !ok {
		v.logger.Debug("Credential rejected", zap.String("reason", "missing_subject"))
		return nil, ErrInvalidCredential
	}

	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// rejectionReason classifies a parse error for logging only
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not_yet_valid"
	default:
		return "invalid"
	}
}

// reservedClaims are set by Issue and never overwritten by flags
var reservedClaims = map[string]bool{
	subjectClaim: true,
	"sub":        true,
	"iss":        true,
	"aud":        true,
	"jti":        true,
	"iat":        true,
	"nbf":        true,
	"exp":        true,
	"email":      true,
}

// Issuer signs tokens accepted by JWTVerifier
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer. A zero ttl uses DefaultTokenTTL.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject carrying email and the given flags.
// Flags named after registered or identity claims are ignored.
func (i *Issuer) Issue(subject, email string, flags map[string]bool) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		subjectClaim: subject,
		"sub":        subject,
		FlagAdmin:    false,
		FlagPremium:  false,
		"iat":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(expiresAt),
	}
	if email != "" {
		claims["email"] = email
	}
	for name, value := range flags {
		if reservedClaims[name] {
			continue
		}
		claims[name] = value
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// TTL returns the validity window of issued tokens
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
