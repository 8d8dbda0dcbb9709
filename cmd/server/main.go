package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/config"
	"github.com/contactdeck/be-contacts-admin/internal/handler"
	"github.com/contactdeck/be-contacts-admin/internal/migrations"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/internal/service"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "contacts-admin").
		Logger()

	ctx := context.Background()

	log.Info().Msg("Connecting to database")
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := runMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Msg("Migrations applied")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	attemptRepo := repository.NewAttemptRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)
	contactRepo := repository.NewContactRepository(dbPool)
	settingsRepo := repository.NewSettingsRepository(dbPool)
	chatRepo := repository.NewChatRepository(dbPool)

	// Token issuers. The admin scheme is a deployment choice; chat logins are
	// always self-contained signed tokens with a long lifetime.
	var adminIssuer token.Issuer
	switch cfg.AdminTokenScheme {
	case config.TokenSchemeSession:
		if err := sessionRepo.DeleteExpired(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to sweep expired sessions")
		}
		adminIssuer = token.NewSessionIssuer(sessionRepo, cfg.AdminTokenTTL)
	case config.TokenSchemeSigned:
		adminIssuer = token.NewSignedIssuer([]byte(cfg.JWTSecret), cfg.AdminTokenTTL, "contacts-admin")
	default:
		log.Fatal().Str("scheme", cfg.AdminTokenScheme).Msg("Unknown admin token scheme")
	}
	chatIssuer := token.NewSignedIssuer([]byte(cfg.JWTSecret), cfg.ChatTokenTTL, "contacts-chat")

	// Services
	auditService := service.NewAuditService(auditRepo, log)
	authService := service.NewAuthService(userRepo, attemptRepo, adminIssuer, cfg, log)
	userService := service.NewUserService(userRepo, auditService, log)
	contentService := service.NewContentService(contactRepo, settingsRepo, auditService, log)
	chatService := service.NewChatService(chatRepo, chatIssuer, auditService, log)

	h := handler.NewHTTPHandler(authService, userService, contentService, chatService, auditService, cfg, log)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("token_scheme", cfg.AdminTokenScheme).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// runMigrations applies embedded schema migrations through the database/sql
// driver; the pool handles everything else.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
