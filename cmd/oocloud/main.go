package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/adapter/sqlite"
	"github.com/oocloud/oocloud/internal/config"
	"github.com/oocloud/oocloud/internal/logger"
	"github.com/oocloud/oocloud/internal/service/auth"
	"github.com/oocloud/oocloud/internal/service/drive"
	"github.com/oocloud/oocloud/internal/service/maintenance"
	"github.com/oocloud/oocloud/internal/service/reconciler"
	"github.com/oocloud/oocloud/internal/service/server"
	"github.com/oocloud/oocloud/internal/service/shared"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	provision := flag.Bool("provision", false, "Ensure all user folder trees exist and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting oocloud",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Initialize the folder tree
	layout, err := storage.NewLayout(cfg.Storage.RootDir)
	if err != nil {
		zapLogger.Fatal("failed to initialize storage root", zap.Error(err))
	}
	if err := layout.EnsureSharedDir(); err != nil {
		zapLogger.Fatal("failed to create shared folder", zap.Error(err))
	}

	// Open database
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Storage.RootDir, "oocloud.db")
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		zapLogger.Fatal("failed to open database", zap.Error(err), zap.String("path", dbPath))
	}
	defer store.Close()

	if *provision {
		provisionFolders(store, layout, zapLogger)
		return
	}

	// Wire services. Transitions and reconciliation share one keylock so
	// they serialize per user and category.
	locks := keylock.New()

	recCfg := &reconciler.Config{
		TrashRetention: cfg.Storage.GetTrashRetention(),
	}
	recService := reconciler.New(recCfg, layout, store, locks, zapLogger)

	driveService := drive.New(layout, store, recService, locks, zapLogger)
	sharedService := shared.New(layout, store, locks, zapLogger)

	authCfg := auth.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.GetTokenTTL(),
		OTPTTL:    cfg.Auth.GetOTPTTL(),
	}
	authService := auth.New(authCfg, store, layout, zapLogger)

	maintenanceCfg := &maintenance.Config{
		SweepInterval:      cfg.Maintenance.GetSweepInterval(),
		OTPCleanupInterval: cfg.Maintenance.GetOTPCleanupInterval(),
	}
	maintenanceService := maintenance.New(maintenanceCfg, store, recService, zapLogger)

	// Create HTTP server
	serverCfg := &server.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
	}
	httpServer := server.New(serverCfg, store, authService, driveService, sharedService, nil, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	go func() {
		if err := httpServer.Start(); err != nil {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Start maintenance service
	go func() {
		if err := maintenanceService.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("maintenance service stopped with error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr),
		zap.String("root_dir", cfg.Storage.RootDir),
	)
	<-sigChan

	zapLogger.Info("shutdown signal received, stopping services...")

	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	maintenanceService.Stop()

	// Stop HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("application stopped successfully")
}

// provisionFolders creates the folder tree for every known user.
func provisionFolders(store *sqlite.Store, layout *storage.Layout, zapLogger *zap.Logger) {
	users, err := store.ListUsers()
	if err != nil {
		zapLogger.Fatal("failed to list users", zap.Error(err))
	}

	for _, u := range users {
		if err := layout.EnsureUserDirs(u.FolderName()); err != nil {
			zapLogger.Error("failed to provision user folders",
				zap.String("user", u.ID),
				zap.Error(err))
			continue
		}
		zapLogger.Info("provisioned folders", zap.String("user", u.ID), zap.String("folder", u.FolderName()))
	}

	zapLogger.Info("provisioning complete", zap.Int("users", len(users)))
}
