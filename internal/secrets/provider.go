// Package secrets resolves credentials from the environment or Azure Key Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource names a backend for Provider
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	SourceVault       SecretSource = "vault"
	// SourceAuto picks vault in staging and production, environment elsewhere
	SourceAuto SecretSource = "auto"
)

// ErrSecretNotSet is returned when an environment variable is empty
var ErrSecretNotSet = errors.New("secret not set")

type vaultReader interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Provider reads named secrets from one source
type Provider struct {
	source SecretSource
	vault  vaultReader
	logger *zap.Logger
}

type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "staging", "production":
		return SourceVault
	default:
		return SourceEnvironment
	}
}

func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	p := &Provider{source: ResolveSource(cfg.Source, cfg.Environment), logger: logger}

	switch p.source {
	case SourceEnvironment:
	case SourceVault:
		if cfg.VaultName == "" {
			return nil, errors.New("vault source needs a vault name")
		}
		client, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("vault client: %w", err)
		}
		p.vault = client
	default:
		return nil, fmt.Errorf("unknown secret source %q", p.source)
	}

	logger.Info("Secrets provider ready",
		zap.String("source", string(p.source)),
		zap.String("environment", cfg.Environment),
	)
	return p, nil
}

// NewEnvironmentProvider reads secrets from environment variables only
func NewEnvironmentProvider(logger *zap.Logger) *Provider {
	return &Provider{source: SourceEnvironment, logger: logger}
}

// GetSecret looks name up in the provider's source. For the environment
// source name is a variable name, for vault a Key Vault secret name.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	if p.source == SourceEnvironment {
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("%w: %s", ErrSecretNotSet, name)
	}
	if p.vault == nil {
		return "", errors.New("vault client not initialized")
	}
	return p.vault.GetSecret(ctx, name)
}

// GetSecretOrEnv returns envName when it is set and otherwise asks the source,
// using secretName for vault and envName for the environment.
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		p.logger.Debug("Secret taken from environment", zap.String("env", envName))
		return value, nil
	}
	if p.IsVaultEnabled() {
		return p.GetSecret(ctx, secretName)
	}
	return p.GetSecret(ctx, envName)
}

func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
