package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/db"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/scheduler"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// apiPrefixes are the first path segments of the v1 surface. Only these get
// the root-level redirect; browser probes like /favicon.ico must not receive
// a cacheable 301 into the API.
var apiPrefixes = []string{"/admin", "/applications", "/contacts", "/jobs", "/messages", "/users", "/webhooks"}

func rootFallback(w http.ResponseWriter, r *http.Request) {
	for _, p := range apiPrefixes {
		if r.URL.Path == p || strings.HasPrefix(r.URL.Path, p+"/") {
			http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
			return
		}
	}
	http.NotFound(w, r)
}

// New wires the full dependency graph and returns the root HTTP handler plus
// the shared resources the caller owns and must close. The scheduler is nil
// when CACHE_CLEANUP_SPEC is unset.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, *scheduler.Scheduler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 1. Shared connections
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to PostgreSQL")
		return nil, nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis")
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info().Msg("Redis connection successful")

	// 2. Validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. External clients
	llm := service.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	searcher := service.NewSnovClient(cfg.SnovAPIBaseURL, cfg.SnovClientID, cfg.SnovClientSecret)
	workflow := service.NewWorkflowClient(cfg.WorkflowTriggerURL, cfg.WebhookSecret)

	// 4. Repositories
	userRepo := repository.NewUserRepo(pool)
	creditRepo := repository.NewCreditRepo(pool)
	contactRepo := repository.NewContactRepo(pool)
	appRepo := repository.NewApplicationRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	cacheRepo := repository.NewCacheRepo(pool)

	// 5. Services
	statsRecorder := service.NewCacheStatsRecorder(rdb)
	creditSvc := service.NewCreditService(creditRepo, logger)
	cacheSvc := service.NewCacheService(cacheRepo, statsRecorder, logger)
	reasoningSvc := service.NewReasoningService(llm, cfg.MaxRankedContacts, cfg.MinRelevanceScore, logger)
	contactSvc := service.NewContactService(
		contactRepo, appRepo, jobRepo, userRepo,
		creditSvc, cacheSvc, statsRecorder, reasoningSvc, searcher, workflow,
		service.ContactServiceConfig{
			SearchCost: cfg.ContactSearchCost,
			FinderCost: cfg.ContactFinderCost,
			CompanyTTL: time.Duration(cfg.CompanyCacheTTLDays) * 24 * time.Hour,
			ContactTTL: time.Duration(cfg.ContactCacheTTLDays) * 24 * time.Hour,
		},
		logger,
	)
	appSvc := service.NewApplicationService(appRepo, jobRepo, logger)
	messageSvc := service.NewMessageService(contactRepo, appRepo, llm, logger)
	userSvc := service.NewUserService(userRepo, creditSvc, cfg.StarterCredits, logger)
	jobSvc := service.NewJobService(jobRepo)

	// 6. Handlers
	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	contactHandler := handler.NewContactHandler(contactSvc, validate, logger, cfg.ContactFinderCost)
	appHandler := handler.NewApplicationHandler(appSvc, validate, logger)
	messageHandler := handler.NewMessageHandler(messageSvc, validate, logger)
	jobHandler := handler.NewJobHandler(jobSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(cacheSvc, creditSvc, userSvc, validate, logger)

	// 7. Middleware. Webhooks and the cron trigger carry their own shared
	// secrets, distinct from user sessions.
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	serviceMiddleware := middleware.ServiceAuthMiddleware(cfg.WebhookSecret, logger)
	cronMiddleware := middleware.ServiceAuthMiddleware(cfg.CronSecret, logger)

	// 8. Routes
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware, serviceMiddleware)
	contactHandler.RegisterRoutes(apiV1Mux, authMiddleware, serviceMiddleware)
	appHandler.RegisterRoutes(apiV1Mux, authMiddleware, serviceMiddleware)
	messageHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	jobHandler.RegisterRoutes(apiV1Mux, authMiddleware, serviceMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware, cronMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Redirect legacy root-level API requests to /v1/{path}; anything else
	// gets a plain 404.
	mux.HandleFunc("/", rootFallback)

	// 9. Optional in-process cleanup scheduler
	var sched *scheduler.Scheduler
	if cfg.CacheCleanupSpec != "" {
		sched, err = scheduler.New(cfg.CacheCleanupSpec, cacheSvc, logger)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}

	// 10. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), pool, sched, nil
}
