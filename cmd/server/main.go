package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/api"
	"github.com/denzelpenzel/battery-marketplace/internal/config"
	"github.com/denzelpenzel/battery-marketplace/internal/crypto"
	"github.com/denzelpenzel/battery-marketplace/internal/database"
	"github.com/denzelpenzel/battery-marketplace/internal/logger"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"github.com/denzelpenzel/battery-marketplace/internal/services"
	"github.com/denzelpenzel/battery-marketplace/internal/session"
	"go.uber.org/zap"
)

// seedAdmin creates the bootstrap administrator on first start
func seedAdmin(authService *services.AuthService, cfg config.AdminConfig, logger *zap.Logger) {
	if cfg.Password == "" {
		logger.Info("ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, created, err := authService.SeedAdmin(ctx, cfg.Username, cfg.Email, cfg.Password)
	if err != nil {
		logger.Fatal("Failed to seed admin user", zap.Error(err))
	}
	if created {
		logger.Info("Bootstrap admin created", zap.Int64("user_id", admin.ID))
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := database.NewConnection(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewPostgresRepository(db, cfg.Database.QueryTimeout, zapLogger)
	sessions := session.NewMemoryStore(cfg.Session.TTL)
	hasher := crypto.NewHasher(cfg.Security.ScryptN, cfg.Security.ScryptR, cfg.Security.ScryptP)
	validator := services.NewValidator()

	// Initialize services
	authService := services.NewAuthService(repo, sessions, hasher, validator, zapLogger)
	userService := services.NewUserService(repo, zapLogger)
	batteryService := services.NewBatteryService(repo, validator, zapLogger)
	inquiryService := services.NewInquiryService(repo, validator, zapLogger)

	seedAdmin(authService, cfg.Admin, zapLogger)

	// Initialize API server
	server := api.NewServer(cfg, zapLogger, sessions, authService, userService, batteryService, inquiryService)

	go func() {
		if err := server.Start(); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
