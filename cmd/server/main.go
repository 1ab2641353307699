// ==============================================================================
// ORDER WIZARD SERVICE - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"govdoc/internal/billing"
	"govdoc/internal/extraction"
	"govdoc/internal/handler"
	"govdoc/internal/intake"
	"govdoc/internal/middleware"
	"govdoc/internal/payment"
	"govdoc/internal/reconcile"
	"govdoc/internal/registry"
	"govdoc/internal/repository/postgres"
	"govdoc/internal/verification"
	"govdoc/internal/wizard"
	"govdoc/pkg/cache"
	"govdoc/pkg/config"
	"govdoc/pkg/logger"
	"govdoc/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("wizard-service")

	log.Info("Starting Order Wizard Service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	draftRepo := postgres.NewDraftRepository(db)
	addressRepo := postgres.NewAddressRepository(db)
	profileRepo := postgres.NewBillingProfileRepository(db)

	// External collaborators
	extractor := extraction.NewClient(cfg.Extraction, log)
	companyRegistry := registry.NewClient(cfg.Registry, log)
	paymentClient := payment.NewClient(cfg.Payment, log)

	// Domain services
	configCache := cache.NewRedisCache(redisClient)
	services := verification.NewResolver(configCache, log)
	pipeline := intake.NewPipeline(extractor, cfg.Intake, log)
	reconciler := reconcile.NewService(addressRepo, profileRepo, log)
	billingResolver := billing.NewResolver(companyRegistry, log)

	manager := wizard.NewManager(draftRepo, services, pipeline, reconciler, billingResolver, log, cfg.Autosave.Debounce)

	// Handlers
	val := validator.New()
	wizardHandler := handler.NewWizardHandler(manager, services, paymentClient, val, log, cfg.Intake)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.BodyLimit(cfg.Intake.MaxImageBytes + (2 << 20)))
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, 150, time.Minute).Limit)

	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ready", readyCheck(db)).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate)
	wizardHandler.RegisterRoutes(api)

	// Submission must never run twice for the same key.
	idem := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)
	api.Handle("/wizard/sessions/{id}/submit", idem.Require(http.HandlerFunc(wizardHandler.Submit))).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Server stopped", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
