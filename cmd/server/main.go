package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bankcore/backend/internal/audit"
	"github.com/bankcore/backend/internal/config"
	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/handlers"
	"github.com/bankcore/backend/internal/logging"
	mW "github.com/bankcore/backend/internal/middleware"
	"github.com/bankcore/backend/internal/services"
)

// @title Bank Core API
// @version 1.0
// @description Accounts, transfers and the transaction ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.Open(startupCtx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := database.OpenRedis(startupCtx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	runner := database.NewTxRunner(db, cfg.Ledger.LockTimeout, cfg.Ledger.UnitTimeout)
	auditLog := audit.NewLogger(logger)

	engine := services.NewTransferEngine(runner, auditLog,
		services.NewRedisEventPublisher(redisClient, cfg.Ledger.EventsKey), logger)
	accountService := services.NewAccountService(runner, auditLog)
	referenceService := services.NewReferenceService(db)

	var idempotency handlers.IdempotencyStore
	if store := services.NewIdempotencyStore(redisClient, cfg.Ledger.IdempotencyTTL); store != nil {
		idempotency = store
	}

	api := handlers.API{
		Transfers: handlers.NewTransferHandler(engine, idempotency, logger),
		Accounts:  handlers.NewAccountHandler(accountService, logger),
		Reference: handlers.NewReferenceHandler(referenceService, logger),
	}
	auth := mW.NewAuth(cfg.JWT.SecretKey, redisClient, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Retry-After", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		api.Register(r, auth.AuthMiddleware)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
