package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/receiving/internal/app"
	"github.com/odyssey-erp/receiving/internal/arrivals"
	"github.com/odyssey-erp/receiving/internal/audit"
	"github.com/odyssey-erp/receiving/internal/auth"
	"github.com/odyssey-erp/receiving/internal/masterdata"
	"github.com/odyssey-erp/receiving/internal/observability"
	"github.com/odyssey-erp/receiving/internal/platform/cache"
	"github.com/odyssey-erp/receiving/internal/platform/db"
	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
	"github.com/odyssey-erp/receiving/internal/statistics"
	"github.com/odyssey-erp/receiving/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis only backs the statistics cache and the job queue; the API keeps
	// serving without it.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Warn("redis unavailable, statistics cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	responder := httpx.Responder{Logger: logger, Debug: !cfg.IsProduction()}
	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authenticator := auth.NewAuthenticator(tokens, responder)
	rbacMiddleware := rbac.Middleware{Logger: logger, Responder: responder}
	authHandler := auth.NewHandler(logger, authService, responder, rbacMiddleware)

	var statsCache *statistics.Cache
	if redisClient != nil {
		statsCache = statistics.NewCache(redisClient, cfg.StatsCacheTTL)
	}
	statsService := statistics.NewService(statistics.NewRepository(dbpool), statsCache)
	statsHandler := statistics.NewHandler(logger, statsService, responder)

	arrivalsService := arrivals.NewService(arrivals.NewRepository(dbpool), logger)
	arrivalsService.SetAuditor(shared.NewAuditLogger(dbpool))
	arrivalsService.SetIdempotency(shared.NewIdempotencyStore(dbpool))
	arrivalsService.SetMetrics(metrics)
	arrivalsService.SetInvalidator(statsService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	var jobHandler *jobs.Handler
	if redisClient != nil {
		jobClient := jobs.NewClient(redisOpts, logger)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		arrivalsService.SetWarmer(jobClient)

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	arrivalsHandler := arrivals.NewHandler(logger, arrivalsService, responder, rbacMiddleware)
	masterdataService := masterdata.NewService(masterdata.NewRepository(dbpool), logger)
	masterdataService.SetInvalidator(statsService)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, responder, rbacMiddleware)
	auditHandler := audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), responder, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     authenticator,
		AuthHandler:       authHandler,
		ArrivalsHandler:   arrivalsHandler,
		StatisticsHandler: statsHandler,
		AuditHandler:      auditHandler,
		MasterdataHandler: masterdataHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
