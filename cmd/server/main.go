package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget/internal/clients/cognito"
	"budget/internal/clients/s3client"
	"budget/internal/config"
	"budget/internal/database"
	"budget/internal/modules/auth"
	"budget/internal/modules/entries"
	"budget/internal/modules/reports"
	"budget/internal/server"
	"budget/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting budget backend")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	dbCfg := database.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		Path:     cfg.SQLitePath,
	}

	// Create the database on first boot
	if cfg.DBDriver == "postgres" {
		if err := database.EnsureDatabase(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database exists")
		}
	}

	db, err := database.New(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := entries.InitSchema(db.Conn(), db.Driver()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	ctx := context.Background()

	// AWS-backed clients
	blobStore, err := s3client.New(ctx, s3client.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 client")
	}

	identity, err := cognito.New(ctx, cognito.Config{
		Region:       cfg.CognitoRegion,
		UserPoolID:   cfg.CognitoUserPoolID,
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Cognito client")
	}

	// Modules
	entryRepo := entries.NewRepository(db.Conn(), log)
	importer := entries.NewImporter(entryRepo, log)
	entriesHandler := entries.NewHandler(entryRepo, importer, log)

	reportCache := reports.NewCache(blobStore, log)
	reportService := reports.NewService(entryRepo, reportCache, log)
	reportsHandler := reports.NewHandler(reportService, log)

	authHandler := auth.NewHandler(identity, log)

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		DevMode: cfg.DevMode,
		Entries: entriesHandler,
		Reports: reportsHandler,
		Auth:    authHandler,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
