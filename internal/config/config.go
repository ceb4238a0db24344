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

// Package config provides configuration loading and management for fngate.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// envPrefix is prepended to every variable name
	envPrefix = "FNGATE_"
	// defaultServerPort is the default HTTP server port
	defaultServerPort = 8080
	// defaultReadTimeout is the default read timeout for HTTP server
	defaultReadTimeout = 30 * time.Second
	// defaultWriteTimeout is the default write timeout for HTTP server
	defaultWriteTimeout = 60 * time.Second
	// defaultIdleTimeout is the default idle timeout for HTTP server
	defaultIdleTimeout = 120 * time.Second
	// defaultMaxBodyBytes is the default request body limit
	defaultMaxBodyBytes = 6 << 20
	// defaultEtcdDialTimeout is the default etcd dial timeout
	defaultEtcdDialTimeout = 5 * time.Second
	// defaultPostgresMaxConns is the default pool size
	defaultPostgresMaxConns = 10
	// defaultPostgresMinConns is the default number of idle connections kept
	defaultPostgresMinConns = 1
	// defaultTokenTTL is the validity window of issued tokens
	defaultTokenTTL = 7 * 24 * time.Hour
	// defaultCompletionTimeout bounds one language model call
	defaultCompletionTimeout = 60 * time.Second
)

// Storage backend types
const (
	StorageMemory   = "memory"
	StorageBolt     = "boltdb"
	StoragePostgres = "postgres"
	StorageEtcd     = "etcd"
	StorageDynamoDB = "dynamodb"
)

// Credential verifier types
const (
	ProviderJWT      = "jwt"
	ProviderOIDC     = "oidc"
	ProviderFirebase = "firebase"
)

// Notifier types
const (
	NotifierLog = "log"
	NotifierSNS = "sns"
)

// Config represents the application configuration
type Config struct {
	Service       ServiceConfig
	Server        ServerConfig
	Storage       StorageConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Telemetry     TelemetryConfig
	Notifications NotificationsConfig
	AI            AIConfig
	Lambda        LambdaConfig
}

// ServiceConfig identifies the deployment
type ServiceConfig struct {
	Name        string
	Environment string
	Region      string
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Address           string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxBodyBytes      int64
	TLSEnabled        bool
	TLSCertFile       string
	TLSKeyFile        string
	TLSCACertFile     string
	RequireClientCert bool
}

// StorageConfig contains document store configuration
type StorageConfig struct {
	Type        string // "memory", "boltdb", "postgres", "etcd", "dynamodb"
	CatalogPath string // YAML collection schemas; built-in schemas when empty
	Path        string // for boltdb
	Connection  string // for postgres
	MaxConns    int32  // for postgres
	MinConns    int32  // for postgres
	// SkipMigrations leaves the postgres schema untouched at startup
	SkipMigrations bool
	Endpoints      []string      // for etcd (comma-separated endpoints)
	DialTimeout    time.Duration // for etcd (default: 5s)
	RequestTimeout time.Duration // for etcd; zero keeps the invocation deadline
	KeyPrefix      string        // for etcd
	TablePrefix    string        // for dynamodb
	Endpoint       string        // for dynamodb local
}

// AuthConfig contains credential verification configuration
type AuthConfig struct {
	Providers         []string // "jwt", "oidc", "firebase"
	JWTSecret         string
	TokenTTL          time.Duration
	OIDCIssuer        string
	OIDCClientID      string
	OIDCUserIDClaim   string
	FirebaseProjectID string
	PolicyModelPath   string
	PolicyPath        string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string // "debug", "info", "warn", "error"
	Format     string // "json", "text"
	OutputPath string
}

// TelemetryConfig contains tracing configuration
type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// NotificationsConfig selects the push notification backend
type NotificationsConfig struct {
	Provider string // "log", "sns"
	TopicARN string
}

// AIConfig contains language model configuration
type AIConfig struct {
	BaseURL       string
	APIKey        string
	ChatModel     string
	ClassifyModel string
	Timeout       time.Duration
}

// LambdaConfig contains Lambda adapter configuration
type LambdaConfig struct {
	// Operation fixes the served operation; empty routes by path parameter
	Operation string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "duacopilot-backend"),
			Environment: firstNonEmpty(getEnv("ENVIRONMENT", ""), os.Getenv("STAGE"), "development"),
			Region:      firstNonEmpty(getEnv("REGION", ""), os.Getenv("AWS_REGION")),
		},
		Server: ServerConfig{
			Address:           getEnv("SERVER_ADDRESS", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", defaultServerPort),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			MaxBodyBytes:      int64(getEnvInt("SERVER_MAX_BODY_BYTES", defaultMaxBodyBytes)),
			TLSEnabled:        getEnvBool("TLS_ENABLED", false),
			TLSCertFile:       getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:        getEnv("TLS_KEY_FILE", ""),
			TLSCACertFile:     getEnv("TLS_CA_CERT_FILE", ""),
			RequireClientCert: getEnvBool("TLS_REQUIRE_CLIENT_CERT", false),
		},
		Storage: StorageConfig{
			Type:           getEnv("STORAGE_TYPE", StorageBolt),
			CatalogPath:    getEnv("STORAGE_CATALOG", ""),
			Path:           getEnv("STORAGE_PATH", "./data/fngate.db"),
			Connection:     getEnv("STORAGE_CONNECTION", ""),
			MaxConns:       safeInt32(getEnvInt("STORAGE_POSTGRES_MAX_CONNS", defaultPostgresMaxConns)),
			MinConns:       safeInt32(getEnvInt("STORAGE_POSTGRES_MIN_CONNS", defaultPostgresMinConns)),
			SkipMigrations: getEnvBool("STORAGE_SKIP_MIGRATIONS", false),
			Endpoints:      getEnvSlice("STORAGE_ETCD_ENDPOINTS", []string{"localhost:2379"}),
			DialTimeout:    getEnvDuration("STORAGE_ETCD_DIAL_TIMEOUT", defaultEtcdDialTimeout),
			RequestTimeout: getEnvDuration("STORAGE_ETCD_REQUEST_TIMEOUT", 0),
			KeyPrefix:      getEnv("STORAGE_ETCD_KEY_PREFIX", "/fngate/"),
			TablePrefix:    getEnv("STORAGE_DYNAMODB_TABLE_PREFIX", ""),
			Endpoint:       getEnv("STORAGE_DYNAMODB_ENDPOINT", ""),
		},
		Auth: AuthConfig{
			Providers:         getEnvSlice("AUTH_PROVIDERS", []string{ProviderJWT}),
			JWTSecret:         firstNonEmpty(getEnv("JWT_SECRET", ""), os.Getenv("JWT_SECRET")),
			TokenTTL:          getEnvDuration("TOKEN_TTL", defaultTokenTTL),
			OIDCIssuer:        getEnv("OIDC_ISSUER", ""),
			OIDCClientID:      getEnv("OIDC_CLIENT_ID", ""),
			OIDCUserIDClaim:   getEnv("OIDC_USER_ID_CLAIM", "sub"),
			FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
			PolicyModelPath:   getEnv("AUTHZ_MODEL_PATH", ""),
			PolicyPath:        getEnv("AUTHZ_POLICY_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
			Insecure:     getEnvBool("OTLP_INSECURE", false),
		},
		Notifications: NotificationsConfig{
			Provider: getEnv("NOTIFIER", NotifierLog),
			TopicARN: firstNonEmpty(getEnv("NOTIFICATION_TOPIC_ARN", ""), os.Getenv("NOTIFICATION_TOPIC_ARN")),
		},
		AI: AIConfig{
			BaseURL:       getEnv("AI_BASE_URL", ""),
			APIKey:        firstNonEmpty(getEnv("AI_API_KEY", ""), os.Getenv("OPENAI_API_KEY")),
			ChatModel:     getEnv("AI_CHAT_MODEL", ""),
			ClassifyModel: getEnv("AI_CLASSIFY_MODEL", ""),
			Timeout:       getEnvDuration("AI_TIMEOUT", defaultCompletionTimeout),
		},
		Lambda: LambdaConfig{
			Operation: getEnv("LAMBDA_OPERATION", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.TLSEnabled {
		if c.Server.TLSCertFile == "" {
			return fmt.Errorf("TLS enabled but cert file not specified")
		}
		if c.Server.TLSKeyFile == "" {
			return fmt.Errorf("TLS enabled but key file not specified")
		}
		if c.Server.RequireClientCert && c.Server.TLSCACertFile == "" {
			return fmt.Errorf("client cert required but CA cert file not specified")
		}
	}

	switch c.Storage.Type {
	case StorageMemory, StorageDynamoDB:
	case StorageBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("boltdb storage type requires a path")
		}
	case StoragePostgres:
		if c.Storage.Connection == "" {
			return fmt.Errorf("postgres storage type requires a connection string")
		}
	case StorageEtcd:
		if len(c.Storage.Endpoints) == 0 {
			return fmt.Errorf("etcd storage type requires at least one endpoint")
		}
	case "":
		return fmt.Errorf("storage type not specified")
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret not specified")
	}
	for _, provider := range c.Auth.Providers {
		switch provider {
		case ProviderJWT:
		case ProviderOIDC:
			if c.Auth.OIDCIssuer == "" || c.Auth.OIDCClientID == "" {
				return fmt.Errorf("oidc provider requires issuer and client ID")
			}
		case ProviderFirebase:
			if c.Auth.FirebaseProjectID == "" {
				return fmt.Errorf("firebase provider requires a project ID")
			}
		default:
			return fmt.Errorf("unknown auth provider: %s", provider)
		}
	}

	switch c.Notifications.Provider {
	case NotifierLog:
	case NotifierSNS:
		if c.Notifications.TopicARN == "" {
			return fmt.Errorf("sns notifier requires a topic ARN")
		}
	default:
		return fmt.Errorf("unknown notifier: %s", c.Notifications.Provider)
	}

	return nil
}

// HasProvider reports whether a credential verifier type is enabled
func (a AuthConfig) HasProvider(name string) bool {
	return slices.Contains(a.Providers, name)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(envPrefix + key); value != "" {
		// Split by comma
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part != "" {
				result = append(result, part)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// firstNonEmpty returns the first non-empty value; unprefixed runtime variables act as fallbacks
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// safeInt32 safely converts int to int32, clamping to int32 limits if necessary
func safeInt32(value int) int32 {
	const maxInt32 = int32(^uint32(0) >> 1)
	const minInt32 = -maxInt32 - 1

	if value > int(maxInt32) {
		return maxInt32
	}
	if value < int(minInt32) {
		return minInt32
	}
	return int32(value)
}
