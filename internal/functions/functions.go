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

// Package functions implements the operations served by fngate.
package functions

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/authz"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/gateway"
)

// Operation names
const (
	OpHealthCheck      = "healthCheck"
	OpCreateUser       = "createUser"
	OpUpdateLastLogin  = "updateLastLogin"
	OpGetProfile       = "getProfile"
	OpSetCustomClaims  = "setCustomClaims"
	OpLogEvent         = "logEvent"
	OpGetUserAnalytics = "getUserAnalytics"
	OpSendNotification = "sendNotification"
	OpUpdateFcmToken   = "updateFcmToken"
	OpAIChat           = "aiChat"
	OpClassifyIntent   = "classifyIntent"
	OpGetDuas          = "getDuas"
	OpSearchQuran      = "searchQuran"
)

const (
	// defaultServiceName is reported by healthCheck
	defaultServiceName = "duacopilot-backend"
	// defaultServiceVersion is reported by healthCheck
	defaultServiceVersion = "1.0.0"
	// defaultEnvironment is reported when none is configured
	defaultEnvironment = "development"
)

var (
	// ErrMissingStore is returned when no document store is configured
	ErrMissingStore = errors.New("document store is required")
	// ErrMissingIssuer is returned when no token issuer is configured
	ErrMissingIssuer = errors.New("token issuer is required")
)

// ServiceInfo is reported by healthCheck
type ServiceInfo struct {
	Service     string
	Version     string
	Environment string
	Region      string
}

// Dependencies are the collaborators of the handlers
type Dependencies struct {
	Store     docstore.Store
	Issuer    *authn.Issuer
	Authz     *authz.Engine
	Notifier  Notifier
	Completer Completer
	Models    Models
	Info      ServiceInfo
	Logger    *zap.Logger
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// Functions holds the handlers and their collaborators
type Functions struct {
	store     docstore.Store
	issuer    *authn.Issuer
	authz     *authz.Engine
	notifier  Notifier
	completer Completer
	models    Models
	info      ServiceInfo
	logger    *zap.Logger
	now       func() time.Time
}

// New validates deps and creates the handler set
func New(deps Dependencies) (*Functions, error) {
	if deps.Store == nil {
		return nil, ErrMissingStore
	}
	if deps.Issuer == nil {
		return nil, ErrMissingIssuer
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Authz == nil {
		engine, err := authz.NewDefaultEngine(deps.Logger)
		if err != nil {
			return nil, err
		}
		deps.Authz = engine
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Functions{
		store:     deps.Store,
		issuer:    deps.Issuer,
		authz:     deps.Authz,
		notifier:  deps.Notifier,
		completer: deps.Completer,
		models:    deps.Models.withDefaults(),
		info:      deps.Info.withDefaults(),
		logger:    deps.Logger,
		now:       deps.Now,
	}, nil
}

func (i ServiceInfo) withDefaults() ServiceInfo {
	if i.Service == "" {
		i.Service = defaultServiceName
	}
	if i.Version == "" {
		i.Version = defaultServiceVersion
	}
	if i.Environment == "" {
		i.Environment = defaultEnvironment
	}
	return i
}

// Register adds every operation to registry, each behind its authorization check
func (f *Functions) Register(registry *gateway.Registry) error {
	handlers := map[string]gateway.HandlerFunc{
		OpHealthCheck:      f.healthCheck,
		OpCreateUser:       f.createUser,
		OpUpdateLastLogin:  f.updateLastLogin,
		OpGetProfile:       f.getProfile,
		OpSetCustomClaims:  f.setCustomClaims,
		OpLogEvent:         f.logEvent,
		OpGetUserAnalytics: f.getUserAnalytics,
		OpSendNotification: f.sendNotification,
		OpUpdateFcmToken:   f.updateFcmToken,
		OpAIChat:           f.aiChat,
		OpClassifyIntent:   f.classifyIntent,
		OpGetDuas:          f.getDuas,
		OpSearchQuran:      f.searchQuran,
	}

	for name, handler := range handlers {
		if err := registry.Register(name, f.guard(name, handler)); err != nil {
			return err
		}
	}
	return nil
}

// nowUTC returns the current time in UTC
func (f *Functions) nowUTC() time.Time {
	return f.now().UTC()
}
