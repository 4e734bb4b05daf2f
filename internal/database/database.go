package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/migrations"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// retryDelay is the pause before each postgres reconnect attempt, scaled by attempt number
var retryDelay = time.Second

// Connection is an open store together with the backend actually in use
type Connection struct {
	DB *gorm.DB
	// Driver is the effective driver after any fallback to memory
	Driver string
}

// IsMemory reports whether the in-memory fallback store is in use
func (c *Connection) IsMemory() bool {
	return c.Driver == config.DriverMemory
}

// Close releases the underlying connection pool
func (c *Connection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MemoryDSN returns a shared-cache in-memory SQLite DSN. Connections using the
// same name see the same data for as long as one of them stays open.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// NewDatabase opens the configured store. A postgres driver without a host, or
// one that cannot be reached while FallbackToMemory is set, yields the
// in-memory store instead.
func NewDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*Connection, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return openMemory("tailaid")

	case config.DriverSQLite:
		db, err := openSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Connection{DB: db, Driver: config.DriverSQLite}, nil

	case config.DriverPostgres, "":
		if cfg.Host == "" {
			logger.Warn("No database host configured, using in-memory store; data is lost on restart")
			return openMemory("tailaid")
		}

		db, err := openPostgres(cfg, logger)
		if err != nil {
			if !cfg.FallbackToMemory {
				return nil, err
			}
			logger.Warn("Postgres unavailable, falling back to in-memory store",
				zap.String("host", cfg.Host),
				zap.Error(err))
			return openMemory("tailaid")
		}
		return &Connection{DB: db, Driver: config.DriverPostgres}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenMemory opens a named in-memory store with its schema applied
func OpenMemory(name string) (*Connection, error) {
	conn, err := openMemory(name)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(conn.DB); err != nil {
		return nil, fmt.Errorf("failed to migrate in-memory store: %w", err)
	}
	return conn, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func openPostgres(cfg *config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := connectPostgres(cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt < attempts {
			logger.Warn("Database connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			time.Sleep(time.Duration(attempt) * retryDelay)
		}
	}

	return nil, lastErr
}

func connectPostgres(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// SQLite allows a single writer; one connection avoids lock errors
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openMemory(name string) (*Connection, error) {
	db, err := openSQLite(MemoryDSN(name))
	if err != nil {
		return nil, err
	}
	return &Connection{DB: db, Driver: config.DriverMemory}, nil
}

// Migrate brings the schema up to date: goose migrations on postgres,
// AutoMigrate on the SQLite backends
func (c *Connection) Migrate(ctx context.Context) error {
	if c.Driver != config.DriverPostgres {
		return AutoMigrate(c.DB.WithContext(ctx))
	}

	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return RunGooseUp(ctx, sqlDB)
}

// RunGooseUp applies the embedded postgres migrations
func RunGooseUp(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// AutoMigrate creates the schema from the models (SQLite backends)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Alert{},
		&domain.Note{},
	)
}

// HealthCheck pings the database
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// HealthCheckWithStats pings the database and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	if err := HealthCheck(db); err != nil {
		return sql.DBStats{}, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Stats(), nil
}
