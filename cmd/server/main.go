package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/steerclearwm/steerclear/internal/config"
	"github.com/steerclearwm/steerclear/internal/dispatch"
	"github.com/steerclearwm/steerclear/internal/eta"
	"github.com/steerclearwm/steerclear/internal/geofence"
	httpapi "github.com/steerclearwm/steerclear/internal/http"
	"github.com/steerclearwm/steerclear/internal/ingest"
	"github.com/steerclearwm/steerclear/internal/logging"
	"github.com/steerclearwm/steerclear/internal/models"
	"github.com/steerclearwm/steerclear/internal/scheduler"
	"github.com/steerclearwm/steerclear/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.GoogleAPIKey == "" {
		logger.Error("GOOGLE_API_KEY is required")
		os.Exit(1)
	}

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger)
	}

	var store storage.RideStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres store", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory ride store")
		store = storage.NewMemoryStore()
	}

	google, err := eta.NewGoogleSource(cfg.GoogleAPIKey)
	if err != nil {
		logger.Error("travel time source", "error", err)
		os.Exit(1)
	}
	var source eta.Source = google
	if cfg.RedisAddr != "" {
		cache := eta.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.ETACacheTTL)
		defer cache.Close()
		source = &eta.CachedSource{Source: google, Cache: cache}
	} else {
		source = &eta.CachedSource{Source: google, Cache: eta.NewMemoryCache(cfg.ETACacheTTL)}
	}

	campus, err := geofence.Campus()
	if err != nil {
		logger.Error("campus boundary", "error", err)
		os.Exit(1)
	}

	var kafka *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kafka = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
	}

	timelock := scheduler.NewTimelock(cfg.TimelockOn)
	sched := &scheduler.Service{
		Store:        store,
		Source:       source,
		OnCampus:     func(c models.Coord) bool { return campus.ContainsCoord(c) },
		Timelock:     timelock,
		PickupOffset: cfg.PickupOffset,
	}
	if err := sched.SyncQueueLength(context.Background()); err != nil {
		logger.Warn("queue gauge not seeded", "error", err)
	}

	portal := dispatch.NewPortalRegistry(logger)
	api := httpapi.NewServer(httpapi.Deps{
		Logger:    logger,
		Store:     store,
		Scheduler: sched,
		Timelock:  timelock,
		Kafka:     kafka,
		Portal:    portal,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("steerclear listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_rides.sql"))
	if err != nil {
		logger.Error("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec error", "error", err)
		return
	}
	logger.Info("migration applied", "file", "001_create_rides.sql")
}
