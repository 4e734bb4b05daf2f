package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tailaid/tailaid-api/internal/secrets"
	"go.uber.org/zap"
)

// Database drivers understood by database.NewDatabase
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full application configuration, loaded by Load
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	ApiKey    ApiKeyConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Alerts    AlertsConfig
	Seed      SeedConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	// Driver is "postgres", "sqlite" or "memory"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// SQLitePath is the database file used by the sqlite driver
	SQLitePath string
	// FallbackToMemory switches to the in-memory store when postgres is unreachable
	FallbackToMemory bool
	// RunMigrations applies the embedded goose migrations on startup (postgres only)
	RunMigrations bool
	// ConnectRetries is how many times the postgres connection is attempted
	ConnectRetries int
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	// TokenTTL is the token lifetime in minutes
	TokenTTL   int
	BcryptCost int
}

type ApiKeyConfig struct {
	// Value is filled from ADMIN_API_KEY or the secret store
	Value string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source is "environment", "vault" or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	// CacheTTL in seconds
	CacheTTL int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

type CORSConfig struct {
	// AllowedOrigins may contain "*". An empty list allows any origin in development only.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge caches preflight responses (seconds)
	MaxAge int
}

// SecurityConfig controls the response headers set by middleware.SecurityHeaders
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions is DENY, SAMEORIGIN or empty for no header
	FrameOptions       string
	ContentTypeNosniff bool
	ReferrerPolicy     string
	PermissionsPolicy  string
}

type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the per-IP limit applied to every route
	RequestsPerMinute int
	// LoginRequestsPerMinute is the per-IP limit on the login endpoint
	LoginRequestsPerMinute int
	WhitelistIPs           []string
	// WhitelistPaths bypass rate limiting; a trailing "/*" matches by prefix
	WhitelistPaths []string
}

// AlertsConfig controls the stale alert escalation job
type AlertsConfig struct {
	EscalationEnabled    bool
	EscalationCron       string
	EscalateAfterMinutes int
	// EscalationTimeout bounds a single sweep (seconds)
	EscalationTimeout int
}

// SeedConfig points at an optional YAML file with facilities to create on startup
type SeedConfig struct {
	File string
}

// ConnectionString is the lib/pq keyword DSN
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration bounds a single handler; zero disables the timeout
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// TokenTTLDuration returns the token lifetime as duration
func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

// EscalateAfter returns the age at which a pending alert is escalated
func (a *AlertsConfig) EscalateAfter() time.Duration {
	return time.Duration(a.EscalateAfterMinutes) * time.Minute
}

// EscalationTimeoutDuration returns the per-sweep timeout
func (a *AlertsConfig) EscalationTimeoutDuration() time.Duration {
	return time.Duration(a.EscalationTimeout) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (s *StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadSizeMB << 20
}

// Load reads config.json (from . or ./config) and the environment. Nothing is
// fetched from Key Vault here; see LoadWithSecrets.
func Load() (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// DATABASE_HOST overrides database.host and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for target, env := range map[*string]string{
		&cfg.ApiKey.Value:         "ADMIN_API_KEY",
		&cfg.Auth.JWTSecret:       "JWT_SECRET",
		&cfg.Secrets.KeyVaultName: "AZURE_KEY_VAULT_NAME",
	} {
		if *target == "" {
			*target = v.GetString(env)
		}
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	return &cfg, nil
}

// vaultRequested reports whether secrets should come from Key Vault. That
// needs USE_AZURE_KEY_VAULT=true and a staging or production environment.
func vaultRequested(cfg *Config, logger *zap.Logger) bool {
	if !strings.EqualFold(os.Getenv("USE_AZURE_KEY_VAULT"), "true") {
		return false
	}
	if secrets.ResolveSource(secrets.SourceAuto, cfg.App.Environment) != secrets.SourceVault {
		logger.Warn("Ignoring USE_AZURE_KEY_VAULT outside staging and production",
			zap.String("environment", cfg.App.Environment),
		)
		return false
	}
	return true
}

// LoadWithSecrets is Load followed by Key Vault lookups for credentials when
// vault use is requested. The JWT secret is checked either way.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if !vaultRequested(cfg, logger) {
		logger.Debug("Reading secrets from environment", zap.String("environment", cfg.App.Environment))
		return cfg, validateSecrets(cfg, logger)
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("key vault %s: %w", cfg.Secrets.KeyVaultName, err)
	}
	if err := ApplySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets resolved from key vault", zap.String("vault", cfg.Secrets.KeyVaultName))
	return cfg, validateSecrets(cfg, logger)
}

// SecretSource is the subset of secrets.Provider used to fill in credentials
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

// ApplySecrets overwrites credential fields with values from the secret source.
// Missing secrets leave the configured value untouched.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	fields := []struct {
		secret string
		env    string
		target *string
	}{
		{"tailaid-db-host", "DATABASE_HOST", &cfg.Database.Host},
		{"tailaid-db-user", "DATABASE_USER", &cfg.Database.User},
		{"tailaid-db-password", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"tailaid-jwt-secret", "JWT_SECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.ApiKey.Value},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
	}

	for _, f := range fields {
		value, err := src.GetSecretOrEnv(ctx, f.secret, f.env)
		if err != nil || value == "" {
			continue
		}
		*f.target = value
	}
	return nil
}

// validateSecrets rejects a missing JWT secret outside development
func validateSecrets(cfg *Config, logger *zap.Logger) error {
	if cfg.Auth.JWTSecret != "" {
		return nil
	}
	switch cfg.App.Environment {
	case "development", "local", "test", "":
		cfg.Auth.JWTSecret = "tailaid-dev-secret"
		logger.Warn("JWT secret not configured, using insecure development secret")
		return nil
	default:
		return fmt.Errorf("auth.jwtSecret (JWT_SECRET) is required in %s", cfg.App.Environment)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "TailAid API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// An empty host means no database is configured and the in-memory store is used
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "tailaid")
	v.SetDefault("database.user", "tailaid")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.sqlitePath", "./tailaid.db")
	v.SetDefault("database.fallbackToMemory", true)
	v.SetDefault("database.runMigrations", true)
	v.SetDefault("database.connectRetries", 3)

	v.SetDefault("auth.issuer", "tailaid-api")
	v.SetDefault("auth.tokenTTL", 24*60)
	v.SetDefault("auth.bcryptCost", 10)

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "alert-photos")
	v.SetDefault("storage.maxUploadSizeMB", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "microphone=(), camera=()")

	// Dashboards poll every 3-5 seconds, so the per-IP budget is generous
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 300)
	v.SetDefault("rateLimit.loginRequestsPerMinute", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	v.SetDefault("alerts.escalationEnabled", true)
	v.SetDefault("alerts.escalationCron", "0 * * * * *")
	v.SetDefault("alerts.escalateAfterMinutes", 15)
	v.SetDefault("alerts.escalationTimeout", 30)

	v.SetDefault("seed.file", "")
}
