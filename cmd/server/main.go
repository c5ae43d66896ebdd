package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/application/services"
	"github.com/eloquentlog/montafon/internal/infrastructure/db"
	"github.com/eloquentlog/montafon/internal/infrastructure/httpserver"
	"github.com/eloquentlog/montafon/internal/infrastructure/queue"
	"github.com/eloquentlog/montafon/internal/infrastructure/redis"
	"github.com/eloquentlog/montafon/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting montafon API server...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Wire repositories, queue and services
	userEmailRepo := repositories.NewUserEmailRepository(database, logger)
	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Name, logger)
	tokenGenerator := services.NewIdentificationTokenGenerator(cfg.Identification.TokenValidityWindow)

	identificationSvc := services.NewIdentificationService(userEmailRepo, tokenGenerator, jobQueue, logger)
	tokenSvc := services.NewTokenService(&cfg.JWT)

	server := httpserver.NewServer(&cfg.Server, identificationSvc, tokenSvc, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Info("HTTP server stopped:", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server gracefully:", err)
	}
}

func newLogger(cfg *config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}
