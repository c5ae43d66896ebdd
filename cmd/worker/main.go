package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/application/worker"
	"github.com/eloquentlog/montafon/internal/infrastructure/db"
	"github.com/eloquentlog/montafon/internal/infrastructure/email"
	"github.com/eloquentlog/montafon/internal/infrastructure/metrics"
	"github.com/eloquentlog/montafon/internal/infrastructure/queue"
	"github.com/eloquentlog/montafon/internal/infrastructure/redis"
	"github.com/eloquentlog/montafon/internal/infrastructure/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting montafon dispatch worker...")

	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	userEmailRepo := repositories.NewUserEmailRepository(database, logger)
	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Name, logger)
	dispatcher := email.NewSendGridDispatcher(&cfg.Email, logger)

	renderer, err := worker.NewRenderer(&cfg.Email)
	if err != nil {
		logger.Fatal("Failed to build email renderer:", err)
	}

	// Expose the dispatch counters from this process. The counters live in
	// the worker's registry, so serving them anywhere else would only ever
	// show zeros.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: cfg.Queue.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped:", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Queue.WorkerCount; i++ {
		w := worker.NewDispatchWorker(jobQueue, dispatcher, userEmailRepo, renderer, cfg.Queue.MaxAttempts, cfg.Queue.DequeueTimeout, logger)
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.WithField("worker", id).Info("worker started")
			w.Run(ctx)
			logger.WithField("worker", id).Info("worker stopped")
		}(i)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down workers...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down metrics server gracefully:", err)
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
