package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/chirpline/backend/internal/cache"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"github.com/anonto42/chirpline/backend/internal/router"
	"github.com/anonto42/chirpline/backend/pkg/config"
	"github.com/anonto42/chirpline/backend/pkg/firebase"
	"github.com/anonto42/chirpline/backend/pkg/logger"
	"github.com/anonto42/chirpline/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	if err := db.Postgres.AutoMigrate(&models.User{}, &models.Follow{}); err != nil {
		zlog.Fatal("failed to auto migrate models", zap.Error(err))
	}
	if err := repositories.EnsureIndexes(ctx, db.Mongo.Database(cfg.MongoDatabase)); err != nil {
		zlog.Fatal("failed to create MongoDB indexes", zap.Error(err))
	}
	zlog.Info("schema ready")

	// Firebase is optional in jwt mode; without it new profiles cannot be synced.
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			zlog.Fatal("failed to initialize Firebase", zap.Error(err))
		}
	} else {
		zlog.Warn("FIREBASE_CREDENTIALS_PATH not set, identity provider disabled")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zlog.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		zlog.Info("connected to Redis")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg, zlog)

	err = router.SetupRoutes(e, router.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Firebase: firebaseApp,
		Logger:   zlog,
	})
	if err != nil {
		zlog.Fatal("failed to set up routes", zap.Error(err))
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
