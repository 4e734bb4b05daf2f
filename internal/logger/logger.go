package logger

import (
	"fmt"

	"github.com/tailaid/tailaid-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// usesJSON reports whether logs should be machine readable. Deployed
// environments always log JSON regardless of the configured format.
func usesJSON(cfg *config.LoggingConfig, appCfg *config.AppConfig) bool {
	switch appCfg.Environment {
	case "staging", "production":
		return true
	}
	return cfg.Format == "json"
}

// NewLogger creates the application logger. An unknown level falls back to info.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if usesJSON(cfg, appCfg) {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// Every alert state change must reach the log
		zapCfg.Sampling = nil
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// WithRequest scopes a logger to one HTTP request
func WithRequest(log *zap.Logger, method, path, requestID string) *zap.Logger {
	return log.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithUser adds the authenticated caller
func WithUser(log *zap.Logger, userID, name, role string) *zap.Logger {
	return log.With(
		zap.String("user_id", userID),
		zap.String("user_name", name),
		zap.String("user_role", role),
	)
}
