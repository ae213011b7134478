package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/bank-ledger/internal/audit"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/handler"
	"github.com/Dan9191/bank-ledger/internal/lock"
	"github.com/Dan9191/bank-ledger/internal/metrics"
	"github.com/Dan9191/bank-ledger/internal/middleware"
	"github.com/Dan9191/bank-ledger/internal/repository"
	"github.com/Dan9191/bank-ledger/internal/repository/memory"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/Dan9191/bank-ledger/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	var (
		store repository.Store
		db    *sql.DB
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetConnMaxLifetime(time.Hour)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		store = repository.NewPostgres(db, cfg.LockTimeout)
	case "memory":
		logger.Warn("Using in-memory store, data is lost on exit")
		store = memory.New()
	}

	// Initialize write lock
	var locker lock.Locker
	switch cfg.LockBackend {
	case "postgres":
		locker = lock.NewPostgres(db, cfg.LockKey, logger)
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Failed to parse Redis URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		locker = lock.NewRedis(rdb, cfg.LockKey, cfg.LockTTL, logger)
	case "local":
		locker = lock.NewLocal()
	}
	logger.Infof("Write lock backend: %s", cfg.LockBackend)

	// Initialize layers
	opts := []service.Option{service.WithMetrics(m)}
	if cfg.NotificationsEnabled() {
		opts = append(opts, service.WithNotifier(email.NewSender(cfg, logger)))
	}
	svc := service.NewService(store, locker, logger, cfg, opts...)
	h := handler.NewHandler(svc, logger)

	if cfg.AuditSchedule != "" {
		scheduler, err := audit.NewAuditor(svc, logger, m).Start(cfg.AuditSchedule)
		if err != nil {
			logger.Fatalf("Failed to schedule audit: %v", err)
		}
		defer scheduler.Stop()
	}
	if db != nil {
		go recordPoolStats(ctx, db, m)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(logger), middleware.Metrics(m))
	h.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func recordPoolStats(ctx context.Context, db *sql.DB, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordDBPoolStats(db.Stats())
		}
	}
}
