package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tailaid/tailaid-api/docs"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/database"
	"github.com/tailaid/tailaid-api/internal/http/handler"
	"github.com/tailaid/tailaid-api/internal/http/middleware"
	"github.com/tailaid/tailaid-api/internal/http/router"
	"github.com/tailaid/tailaid-api/internal/jobs"
	"github.com/tailaid/tailaid-api/internal/logger"
	"github.com/tailaid/tailaid-api/internal/repository"
	"github.com/tailaid/tailaid-api/internal/seed"
	"github.com/tailaid/tailaid-api/internal/service"
	"github.com/tailaid/tailaid-api/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title TailAid API
// @version 1.0
// @description Injured animal emergency alerts for reporters, hospitals and rescue centers

// @contact.name TailAid Support
// @contact.email support@tailaid.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production with USE_AZURE_KEY_VAULT=true secrets come from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	conn, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	if conn.Driver != config.DriverPostgres || cfg.Database.RunMigrations {
		if err := conn.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	log.Info("Database ready",
		zap.String("driver", conn.Driver),
		zap.Bool("memory_fallback", conn.IsMemory()),
	)

	photoStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTLDuration())
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(conn.DB)
	alertRepo := repository.NewAlertRepository(conn.DB)
	noteRepo := repository.NewNoteRepository(conn.DB)

	// Services
	maxPhotoBytes := cfg.Storage.MaxUploadBytes()
	userService := service.NewUserService(userRepo, tokens, cfg.Auth.BcryptCost, log)
	alertService := service.NewAlertService(conn.DB, alertRepo, noteRepo, photoStorage, maxPhotoBytes, log)
	noteService := service.NewNoteService(conn.DB, noteRepo, alertRepo, log)
	facilityService := service.NewFacilityService(userRepo, log)

	if cfg.Seed.File != "" {
		if _, err := seed.NewSeeder(userService, log).ApplyFile(ctx, cfg.Seed.File); err != nil {
			return fmt.Errorf("failed to seed accounts: %w", err)
		}
	}

	rt := router.NewRouter(
		cfg,
		log,
		conn,
		auth.NewMiddleware(tokens, cfg.ApiKey.Value, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		router.Handlers{
			User:     handler.NewUserHandler(userService, log),
			Auth:     handler.NewAuthHandler(userService, log),
			Alert:    handler.NewAlertHandler(alertService, maxPhotoBytes, log),
			Note:     handler.NewNoteHandler(noteService, log),
			Facility: handler.NewFacilityHandler(facilityService, log),
		},
	)

	var scheduler *jobs.Scheduler
	if cfg.Alerts.EscalationEnabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterEscalationJob(
			scheduler,
			alertService,
			log,
			cfg.Alerts.EscalationCron,
			cfg.Alerts.EscalateAfter(),
			cfg.Alerts.EscalationTimeoutDuration(),
		); err != nil {
			return fmt.Errorf("failed to register escalation job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Alert escalation disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
		return nil
	})

	return g.Wait()
}
