// Package main initializes and starts the ContactKeeper API server,
// setting up configuration, logging, storage, repositories, services,
// handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/ContactKeeper/internal/auth"
	"github.com/atinyakov/ContactKeeper/internal/config"
	"github.com/atinyakov/ContactKeeper/internal/db"
	"github.com/atinyakov/ContactKeeper/internal/logger"
	"github.com/atinyakov/ContactKeeper/internal/repository"
	"github.com/atinyakov/ContactKeeper/internal/server/handler/http"
	"github.com/atinyakov/ContactKeeper/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// cleanupInterval is how often soft-deleted contacts are purged.
const cleanupInterval = time.Hour

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize repositories: PostgreSQL when configured, memory otherwise.
	var (
		userRepo    service.UserRepository
		contactRepo service.ContactRepository
	)
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		db.StartSoftDeleteCleaner(ctx, postgresDB,
			cleanupInterval,
			options.ContactRetention.Std(),
			zapLogger,
		)

		userRepo = repository.NewPostgresUserRepository(postgresDB)
		contactRepo = repository.NewPostgresContactRepository(postgresDB)
	} else {
		zapLogger.Warn("no database configured, data is kept in memory")
		store := repository.NewMemoryStore()
		userRepo, contactRepo = store, store
	}

	// Initialize credential hashing and token signing.
	hasher := auth.NewHasher(options.BcryptCost)
	codec, err := auth.NewCodec(auth.TokenConfig{
		Secret:     []byte(options.SecretKey),
		Algorithm:  options.Algorithm,
		AccessTTL:  options.AccessTokenExpire.Std(),
		RefreshTTL: options.RefreshTokenExpire.Std(),
	})
	if err != nil {
		zapLogger.Fatal("invalid token configuration", zap.Error(err))
	}

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, hasher, codec)
	contactService := service.NewContactService(contactRepo)

	// Create HTTP handlers for auth and contact endpoints.
	authHandler := &http.AuthHandler{AuthService: authService, Logger: zapLogger}
	contactHandler := &http.ContactHandler{ContactService: contactService, Logger: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, contactHandler, authService, zapLogger, options.RequestTimeout.Std())

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       options.RequestTimeout.Std() + 5*time.Second,
		WriteTimeout:      options.RequestTimeout.Std() + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
