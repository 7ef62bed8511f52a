package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ChakshuVerma/halfride/docs"
	"github.com/ChakshuVerma/halfride/internal/config"
	"github.com/ChakshuVerma/halfride/internal/connection"
	"github.com/ChakshuVerma/halfride/internal/database"
	"github.com/ChakshuVerma/halfride/internal/directory"
	"github.com/ChakshuVerma/halfride/internal/distance"
	"github.com/ChakshuVerma/halfride/internal/events"
	"github.com/ChakshuVerma/halfride/internal/flightdata"
	"github.com/ChakshuVerma/halfride/internal/group"
	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/internal/logging"
	"github.com/ChakshuVerma/halfride/internal/notification"
	"github.com/ChakshuVerma/halfride/internal/store"
	mw "github.com/ChakshuVerma/halfride/pkg/middleware"
)

// @title           Halfride API
// @version         1.0
// @description     Airport shared-ride traveler matching and group lifecycle service
// @BasePath        /api/v1
func main() {
	// Load .env file; absent in production where real env vars are set
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)

	// Notification and user directory storage
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if os.Getenv("MIGRATE") == "true" {
		if err := runMigrations(db); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Record store for listings and groups
	var recordStore store.Store
	if cfg.RedisAddr != "" {
		redisStore := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisStore.Ping(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		recordStore = redisStore
		logger.Info("connected to redis record store", "addr", cfg.RedisAddr)
	} else {
		recordStore = store.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, using in-memory record store; state will not survive restarts")
	}

	// Match event stream
	var publisher notification.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		logger.Info("kafka event stream enabled", "topic", cfg.KafkaTopic)
	}

	// External collaborators
	var flights flightdata.Lookup
	if cfg.FlightAPIBaseURL != "" {
		flights = flightdata.NewClient(cfg.FlightAPIBaseURL)
	}
	var scorer distance.Scorer
	if cfg.DistanceAPIBaseURL != "" {
		scorer = distance.NewClient(cfg.DistanceAPIBaseURL)
	}

	// User directory (read-only)
	directoryRepo := directory.NewRepository(db)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)
	fanout := notification.NewFanout(notificationService, directoryRepo, publisher, logger)

	// Listing feature
	listingRepo := listing.NewRepository(recordStore)
	listingService := listing.NewService(listingRepo, flights, scorer, fanout, logger)
	listingHandler := listing.NewHandler(listingService)

	// Group feature
	groupRepo := group.NewRepository(recordStore)
	groupService := group.NewService(recordStore, groupRepo, listingRepo, fanout, directoryRepo, logger, cfg.GroupMaxUsers, cfg.TxMaxAttempts)
	groupHandler := group.NewHandler(groupService)

	// Connection feature
	connectionService := connection.NewService(recordStore, listingRepo, groupRepo, fanout, logger, cfg.TxMaxAttempts)
	connectionHandler := connection.NewHandler(connectionService)

	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(mw.Metrics)
	r.Use(mw.TestUserMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		listingHandler.Register(r)
		connectionHandler.Register(r)
		groupHandler.Register(r)
		r.Mount("/notifications", notificationHandler.Routes())
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runMigrations applies every .sql file in ./migrations in name order.
func runMigrations(db *sql.DB) error {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		data, err := os.ReadFile(filepath.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}
