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

package functions

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/failure"
)

const (
	// minPasswordLength is the shortest accepted password
	minPasswordLength = 6
	// userIDPrefix marks identifiers minted by createUser
	userIDPrefix = "user_"

	fieldPasswordHash = "passwordHash"
	fieldLastLogin    = "lastLogin"
	fieldCustomClaims = "customClaims"
	fieldFCMToken     = "fcmToken"
	fieldFCMUpdatedAt = "fcmTokenUpdatedAt"
	fieldPreferences  = "preferences"
)

// createUser registers a profile and returns a signed credential for it
func (f *Functions) createUser(ctx context.Context, payload map[string]any, _ authn.AuthContext) (any, error) {
	email, err := requireString(payload, "email")
	if err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, failure.InvalidArgument("email is not a valid address")
	}

	password, err := requireString(payload, "password")
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, failure.Newf(failure.KindInvalidArgument, "password must be at least %d characters", minPasswordLength)
	}

	displayName, err := optionalString(payload, "displayName", "")
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := userIDPrefix + uuid.NewString()
	profile := newProfile(userID, email, displayName, f.nowUTC())
	profile[fieldPasswordHash] = string(hash)

	if err := f.store.Put(ctx, docstore.CollectionUsers, profile); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	token, _, err := f.issuer.Issue(userID, email, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	f.logger.Info("User created", zap.String("user_id", userID))

	return map[string]any{
		"success": true,
		"userId":  userID,
		"token":   token,
	}, nil
}

// newProfile returns a profile with default preferences, subscription and statistics
func newProfile(userID, email, displayName string, now time.Time) docstore.Item {
	return docstore.Item{
		"userId":       userID,
		"email":        email,
		"displayName":  displayName,
		"photoURL":     "",
		fieldLastLogin: now.Format(time.RFC3339),
		fieldPreferences: map[string]any{
			"language":       "en",
			"notifications":  true,
			"theme":          "light",
			"culturalRegion": "general",
			"prayerMethod":   "MWL",
			"madhab":         "general",
		},
		"subscription": map[string]any{
			"plan":       "free",
			"status":     "active",
			"expiryDate": nil,
		},
		"statistics": map[string]any{
			"duasRead":    0,
			"versesRead":  0,
			"hadithRead":  0,
			"tasbihCount": 0,
			"streak":      0,
		},
	}
}

// updateLastLogin stamps the caller's profile with the current time
func (f *Functions) updateLastLogin(ctx context.Context, _ map[string]any, auth authn.AuthContext) (any, error) {
	userID := subject(auth)

	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return nil, failure.NotFound("User profile not found")
	}

	profile[fieldLastLogin] = f.nowUTC().Format(time.RFC3339)
	if err := f.store.Put(ctx, docstore.CollectionUsers, profile); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return map[string]any{"success": true}, nil
}

// getProfile returns the caller's profile, or a null profile when none exists
func (f *Functions) getProfile(ctx context.Context, _ map[string]any, auth authn.AuthContext) (any, error) {
	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": subject(auth)})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return map[string]any{"profile": nil}, nil
	}

	delete(profile, fieldPasswordHash)
	return map[string]any{"profile": profile}, nil
}

// setCustomClaims stores claims on a target profile; admins only
func (f *Functions) setCustomClaims(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	targetID, err := requireString(payload, "uid")
	if err != nil {
		return nil, err
	}
	claims, err := optionalObject(payload, "claims")
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, failure.InvalidArgument("claims is required")
	}

	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": targetID})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return nil, failure.NotFound("User profile not found").WithDetails(map[string]string{"uid": targetID})
	}

	profile[fieldCustomClaims] = claims
	if err := f.store.Put(ctx, docstore.CollectionUsers, profile); err != nil {
		return nil, fmt.Errorf("failed to store custom claims: %w", err)
	}

	f.logger.Info("Custom claims updated",
		zap.String("admin", subject(auth)),
		zap.String("user_id", targetID),
	)

	return map[string]any{"success": true}, nil
}
