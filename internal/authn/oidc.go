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
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

// firebaseIssuerPrefix is the issuer of Firebase Authentication ID tokens
const firebaseIssuerPrefix = "https://securetoken.google.com/"

// OIDCVerifier verifies ID tokens issued by an OpenID Connect provider,
// such as Firebase Authentication for callable functions.
type OIDCVerifier struct {
	verifier    *oidc.IDTokenVerifier
	userIDClaim string
	logger      *zap.Logger
}

// OIDCConfig contains OIDC verifier configuration
type OIDCConfig struct {
	Issuer      string
	ClientID    string
	UserIDClaim string // Claim to use as subject (default: "sub")
}

// FirebaseConfig returns the OIDC configuration for a Firebase project
func FirebaseConfig(projectID string) *OIDCConfig {
	return &OIDCConfig{
		Issuer:      firebaseIssuerPrefix + projectID,
		ClientID:    projectID,
		UserIDClaim: "user_id",
	}
}

// NewOIDCVerifier creates a verifier. Discovery and key fetching happen once here;
// the provider refreshes its key set on its own.
func NewOIDCVerifier(ctx context.Context, config *OIDCConfig, logger *zap.Logger) (*OIDCVerifier, error) {
	if config.Issuer == "" {
		return nil, fmt.Errorf("OIDC issuer is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("OIDC client ID is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return newOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: config.ClientID}), config.UserIDClaim, logger), nil
}

// NewOIDCVerifierWithKeySet creates a verifier against a fixed key set, without discovery
func NewOIDCVerifierWithKeySet(keySet oidc.KeySet, config *OIDCConfig, logger *zap.Logger) *OIDCVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	verifier := oidc.NewVerifier(config.Issuer, keySet, &oidc.Config{ClientID: config.ClientID})
	return newOIDCVerifier(verifier, config.UserIDClaim, logger)
}

func newOIDCVerifier(verifier *oidc.IDTokenVerifier, userIDClaim string, logger *zap.Logger) *OIDCVerifier {
	if userIDClaim == "" {
		userIDClaim = "sub"
	}
	return &OIDCVerifier{
		verifier:    verifier,
		userIDClaim: userIDClaim,
		logger:      logger,
	}
}

// Verify verifies an ID token and returns its claims
func (o *OIDCVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	idToken, err := o.verifier.Verify(ctx, token)
	if err != nil {
		o.logger.Debug("ID token rejected", zap.Error(err))
		return nil, ErrInvalidCredential
	}

	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		o.logger.Debug("ID token claims unreadable", zap.Error(err))
		return nil, ErrInvalidCredential
	}

	claims, ok := claimsFromMap(raw, o.userIDClaim, "sub")
	if !ok {
		o.logger.Debug("ID token has no subject", zap.String("claim", o.userIDClaim))
		return nil, ErrInvalidCredential
	}
	claims.ExpiresAt = idToken.Expiry

	return claims, nil
}
