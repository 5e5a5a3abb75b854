package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/cache"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/database"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/events"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/locks"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/memory"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/reports"
	"github.com/zatekoja/functional-assessment/backend/internal/api/handlers"
	"github.com/zatekoja/functional-assessment/backend/internal/api/middleware"
	"github.com/zatekoja/functional-assessment/backend/internal/api/routes"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/bootstrap"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	"github.com/zatekoja/functional-assessment/backend/pkg/config"
	"github.com/zatekoja/functional-assessment/backend/pkg/secrets"
)

func main() {
	// Pull credentials from Vault before reading the environment
	vaultResult, vaultErr := secrets.Apply(context.Background(), secrets.LoadConfigFromEnv())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logging
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)
	logger := log.Logger

	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Environment).
		Str("store", cfg.Assessment.StoreBackend).
		Msg("Starting assessment API server")

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Msg("Failed to load secrets from Vault")
	} else if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Strs("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("Secrets loaded from Vault")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize Redis client
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis client; continuing without cache")
		} else {
			defer redisClient.Close()
			log.Info().Msg("Redis client initialized successfully")
		}
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize stores
	var (
		stores        services.AssessmentStores
		questionStore repositories.QuestionRepository
		pgClient      *postgres.Client
	)
	switch cfg.Assessment.StoreBackend {
	case config.StoreBackendPostgres:
		pgClient, err = postgres.NewClient(&cfg.Database, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if cfg.Database.RunMigrations {
			if err := pgClient.MigrateUp(); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply database migrations")
			}
			log.Info().Msg("Database migrations applied")
		}

		var sessions repositories.SessionRepository = database.NewSessionAdapter(pgClient)
		questionStore = database.NewQuestionAdapter(pgClient)
		if cacheProvider != nil {
			cachedSessions := database.NewCachedSessionAdapter(sessions, cacheProvider, cfg.Assessment.SessionTTL, logger)
			cachedQuestions := database.NewCachedQuestionAdapter(questionStore, cacheProvider, time.Hour, logger)
			if metrics != nil {
				cachedSessions.SetMetrics(metrics)
				cachedQuestions.SetMetrics(metrics)
			}
			sessions = cachedSessions
			questionStore = cachedQuestions
			log.Info().Msg("Session and question stores wrapped with caching layer")
		}

		stores = services.AssessmentStores{
			Sessions: sessions,
			Messages: database.NewMessageAdapter(pgClient),
			Scores:   database.NewScoreAdapter(pgClient),
		}
	default:
		store := memory.NewSessionStore()
		stores = services.AssessmentStores{Sessions: store, Messages: store, Scores: store}
		log.Warn().Msg("Using in-memory session store; sessions are lost on restart")
	}

	// Initialize event bus and session locks
	var (
		eventBus providers.EventBus
		locker   providers.SessionLocker
	)
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient, logger)
		locker = locks.NewRedisLocker(redisClient, cfg.Assessment.LockTTL, logger)
	} else {
		eventBus = events.NewMemoryEventBus(logger)
		locker = locks.NewLocalLocker()
	}

	// Initialize services
	questions, err := bootstrap.LoadCatalog(ctx, cfg, questionStore, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question catalog")
	}
	orchestrator := bootstrap.Orchestrator(cfg, questions, metrics, logger)

	assessmentService := services.NewAssessmentService(orchestrator, stores, locker, eventBus)
	assessmentService.SetLogger(logger)

	reportRenderer, err := reports.NewPDFReportRenderer(cfg.Report.FontPath)
	if err != nil {
		log.Warn().Err(err).Str("font", cfg.Report.FontPath).Msg("PDF reports disabled")
	} else {
		assessmentService.SetReportRenderer(reportRenderer)
	}

	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus, logger)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
		} else {
			log.Info().Msg("Cache invalidation service started successfully")
		}
	}

	// Initialize handlers
	allowedOrigins := middleware.AllowedOriginsFromEnv()
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	sseHandler := handlers.NewSSEHandler(eventBus, assessmentService)
	websocketHandler := handlers.NewWebSocketHandler(assessmentService, middleware.OriginChecker(allowedOrigins))

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
	}

	// Set up router
	router := routes.NewRouter(assessmentHandler, sseHandler, websocketHandler, cacheMiddleware, metrics, allowedOrigins)
	if pgClient != nil {
		router.AddHealthCheck("postgres", pgClient.Ping)
	}
	if redisClient != nil {
		router.AddHealthCheck("redis", redisClient.Ping)
	}

	// Create HTTP server. No write timeout: SSE and WebSocket streams are long-lived.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
