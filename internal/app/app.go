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

// Package app assembles the invocation gateway from configuration. The HTTP server,
// the Lambda entry point and the CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/audit"
	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/authz"
	"github.com/Gosayram/fngate/internal/config"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/functions"
	"github.com/Gosayram/fngate/internal/gateway"
	"github.com/Gosayram/fngate/internal/version"
)

// App is an assembled gateway and the resources it owns
type App struct {
	Gateway  *gateway.Gateway
	Store    *docstore.Facade
	Issuer   *authn.Issuer
	Verifier authn.Verifier
}

// Build opens storage and wires every component. Close releases what Build opened.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := &awsLoader{region: cfg.Service.Region}

	store, err := openStore(ctx, cfg, loader, logger)
	if err != nil {
		return nil, err
	}

	a, err := assemble(ctx, cfg, store, loader, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func assemble(ctx context.Context, cfg *config.Config, store *docstore.Facade, loader *awsLoader, logger *zap.Logger) (*App, error) {
	secret := []byte(cfg.Auth.JWTSecret)

	issuer, err := authn.NewIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	verifier, err := BuildVerifier(ctx, cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	casbinEngine, err := authz.NewCasbinEngine(authz.CasbinConfig{
		ModelPath:  cfg.Auth.PolicyModelPath,
		PolicyPath: cfg.Auth.PolicyPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization engine: %w", err)
	}

	notifier, err := buildNotifier(ctx, cfg.Notifications, loader, logger)
	if err != nil {
		return nil, err
	}

	var completer functions.Completer
	if cfg.AI.APIKey != "" {
		completer = functions.NewOpenAIClient(functions.OpenAIConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Timeout: cfg.AI.Timeout,
		}, logger)
	} else {
		logger.Warn("No AI API key configured, aiChat and classifyIntent will fail")
	}

	fns, err := functions.New(functions.Dependencies{
		Store:     store,
		Issuer:    issuer,
		Authz:     authz.NewEngine(casbinEngine, logger),
		Notifier:  notifier,
		Completer: completer,
		Models: functions.Models{
			Chat:     cfg.AI.ChatModel,
			Classify: cfg.AI.ClassifyModel,
		},
		Info: functions.ServiceInfo{
			Service:     cfg.Service.Name,
			Version:     version.Version,
			Environment: cfg.Service.Environment,
			Region:      cfg.Service.Region,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create functions: %w", err)
	}

	registry := gateway.NewRegistry()
	if err := fns.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register functions: %w", err)
	}

	gw := gateway.New(gateway.Config{
		Resolver: authn.NewResolver(verifier, logger),
		Registry: registry,
		Logger:   logger,
		Audit:    audit.NewLogger(logger),
	})

	return &App{
		Gateway:  gw,
		Store:    store,
		Issuer:   issuer,
		Verifier: verifier,
	}, nil
}

// Close releases the document store
func (a *App) Close() error {
	return a.Store.Close()
}

// BuildVerifier chains the configured credential verifiers in order
func BuildVerifier(ctx context.Context, cfg config.AuthConfig, logger *zap.Logger) (authn.Verifier, error) {
	verifiers := make([]authn.Verifier, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		switch provider {
		case config.ProviderJWT:
			v, err := authn.NewJWTVerifier([]byte(cfg.JWTSecret), logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
			}
			verifiers = append(verifiers, v)
		case config.ProviderOIDC:
			v, err := authn.NewOIDCVerifier(ctx, &authn.OIDCConfig{
				Issuer:      cfg.OIDCIssuer,
				ClientID:    cfg.OIDCClientID,
				UserIDClaim: cfg.OIDCUserIDClaim,
			}, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create OIDC verifier: %w", err)
			}
			verifiers = append(verifiers, v)
		case config.ProviderFirebase:
			v, err := authn.NewOIDCVerifier(ctx, authn.FirebaseConfig(cfg.FirebaseProjectID), logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create Firebase verifier: %w", err)
			}
			verifiers = append(verifiers, v)
		default:
			return nil, fmt.Errorf("unknown auth provider: %s", provider)
		}
	}

	if len(verifiers) == 1 {
		return verifiers[0], nil
	}
	return authn.NewManager(verifiers...), nil
}

func buildNotifier(ctx context.Context, cfg config.NotificationsConfig, loader *awsLoader, logger *zap.Logger) (functions.Notifier, error) {
	switch cfg.Provider {
	case config.NotifierSNS:
		awsCfg, err := loader.load(ctx)
		if err != nil {
			return nil, err
		}
		notifier, err := functions.NewSNSNotifier(awsCfg, cfg.TopicARN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SNS notifier: %w", err)
		}
		return notifier, nil
	case config.NotifierLog, "":
		return functions.NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier: %s", cfg.Provider)
	}
}

// OpenStore opens the configured backend behind a facade
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*docstore.Facade, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return openStore(ctx, cfg, &awsLoader{region: cfg.Service.Region}, logger)
}

func openStore(ctx context.Context, cfg *config.Config, loader *awsLoader, logger *zap.Logger) (*docstore.Facade, error) {
	catalog := docstore.DefaultCatalog()
	if cfg.Storage.CatalogPath != "" {
		loaded, err := docstore.LoadCatalog(cfg.Storage.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = loaded
	}

	backend, err := openBackend(ctx, cfg.Storage, catalog, loader)
	if err != nil {
		return nil, err
	}

	logger.Info("Document store opened",
		zap.String("backend", backend.Name()),
		zap.Strings("collections", catalog.Names()),
	)

	return docstore.NewFacade(backend, catalog, logger), nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig, catalog *docstore.Catalog, loader *awsLoader) (docstore.Backend, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return docstore.NewMemoryBackend(), nil

	case config.StorageBolt:
		backend, err := docstore.NewBoltBackend(cfg.Path, catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb storage: %w", err)
		}
		return backend, nil

	case config.StoragePostgres:
		backend, err := docstore.NewPostgresBackend(ctx, docstore.PostgresConfig{
			ConnectionString: cfg.Connection,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			SkipMigrations:   cfg.SkipMigrations,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return backend, nil

	case config.StorageEtcd:
		backend, err := docstore.NewEtcdBackend(ctx, docstore.EtcdConfig{
			Endpoints:      cfg.Endpoints,
			DialTimeout:    cfg.DialTimeout,
			RequestTimeout: cfg.RequestTimeout,
			KeyPrefix:      cfg.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open etcd storage: %w", err)
		}
		return backend, nil

	case config.StorageDynamoDB:
		awsCfg, err := loader.load(ctx)
		if err != nil {
			return nil, err
		}
		return docstore.NewDynamoBackend(awsCfg, docstore.DynamoConfig{
			TablePrefix: cfg.TablePrefix,
			Endpoint:    cfg.Endpoint,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// awsLoader loads the shared AWS configuration at most once
type awsLoader struct {
	region string
	cfg    *aws.Config
}

func (l *awsLoader) load(ctx context.Context) (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if l.region != "" {
		opts = append(opts, awsconfig.WithRegion(l.region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	l.cfg = &cfg
	return cfg, nil
}
