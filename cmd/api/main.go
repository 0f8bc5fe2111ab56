package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "daoob/cmd/api/router/v1"
	"daoob/internal/auth"
	"daoob/internal/config"
	cacheAdapter "daoob/internal/infrastructure/cache/adapter"
	cachePort "daoob/internal/infrastructure/cache/port"
	"daoob/internal/infrastructure/database"
	"daoob/internal/infrastructure/logging"
	queueAdapter "daoob/internal/infrastructure/queue/adapter"
	queuePort "daoob/internal/infrastructure/queue/port"
	"daoob/internal/infrastructure/ratelimit"
	"daoob/internal/infrastructure/realtime"
	"daoob/internal/pkg/messaging/application/task"
	"daoob/internal/pkg/messaging/application/usecase"
	messageAdapter "daoob/internal/pkg/messaging/persistence/repository/adapter"
	messagePort "daoob/internal/pkg/messaging/persistence/repository/port"
	"daoob/internal/pkg/messaging/presentation/controller"
	httpHandler "daoob/internal/pkg/messaging/presentation/http"
	userAdapter "daoob/internal/repository/adapter"
	userPort "daoob/internal/repository/port"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type stores struct {
	messages messagePort.MessageRepository
	users    userPort.UserRepository
	ping     func(context.Context) error
	close    func()
}

func main() {
	// Load .env file; plain environment variables work as well
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg(".env file not loaded")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer st.close()

	var (
		cache       cachePort.Cache
		queueClient queuePort.Client
		limiter     usecase.RateLimiter
		worker      *queueAdapter.AsynqServer
	)
	if cfg.RedisURL != "" {
		rc, err := cacheAdapter.NewRedisAdapter(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		cache = rc
		limiter = ratelimit.New(rc, cfg.RateLimitMessages, cfg.RateLimitWindow)

		qc, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create queue client")
		}
		defer qc.Close()
		queueClient = qc

		worker, err = queueAdapter.NewAsynqServer(queueAdapter.ServerOptions{
			RedisURL:    cfg.RedisURL,
			Concurrency: cfg.AsynqConcurrency,
			Queues:      cfg.AsynqQueues,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create queue worker")
		}
	} else {
		logger.Warn().Msg("REDIS_URL not set: no rate limiting, local presence only, REST sends run inline")
	}

	registry := realtime.NewRegistry()
	deps := httpHandler.Dependencies{
		Messages:        st.messages,
		Users:           st.users,
		Verifier:        newVerifier(cfg, logger),
		Registry:        registry,
		Presence:        realtime.NewPresence(registry, cache, 0, logger),
		Limiter:         limiter,
		Queue:           queueClient,
		MaxContentBytes: cfg.MessageMaxBytes,
		Socket: controller.SocketOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			AuthTimeout:    cfg.WSAuthTimeout,
			MaxFrameBytes:  cfg.WSMaxFrameBytes,
		},
		Logger: logger,
	}

	if worker != nil {
		task.RegisterSendMessageTask(worker, httpHandler.NewSendMessageUseCase(deps), logger)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("queue worker stopped")
			}
		}()
	}

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"database": "ok"}
		status := http.StatusOK
		if err := st.ping(pingCtx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if cache != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(pingCtx); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		checks["connections"] = registry.Len()
		c.JSON(status, checks)
	})

	v1.RegisterRoutes(r, deps)

	handler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	})(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("auth_mode", cfg.AuthMode).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown
	registry.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}
}

// openStores connects to Postgres when DB_URL is set and falls back to the
// embedded SQLite file otherwise.
func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cfg.DBURL != "" {
		pool, err := database.Connect(connectCtx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(connectCtx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Msg("using postgres store")
		return &stores{
			messages: messageAdapter.NewPgMessageRepository(pool),
			users:    userAdapter.NewPgUserRepository(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil
	}

	db, err := database.OpenSQLite(connectCtx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Warn().Str("path", cfg.SQLitePath).Msg("DB_URL not set, using embedded sqlite store")
	return &stores{
		messages: messageAdapter.NewSQLiteMessageRepository(db),
		users:    userAdapter.NewSQLiteUserRepository(db),
		ping:     db.PingContext,
		close:    func() { _ = db.Close() },
	}, nil
}

func newVerifier(cfg config.Config, logger zerolog.Logger) auth.Verifier {
	if cfg.AuthMode == config.AuthModeTrust {
		logger.Warn().Msg("AUTH_MODE=trust: identities are not verified, development only")
		return auth.TrustVerifier{}
	}
	return auth.NewJWTVerifier(cfg.JWTSecret)
}
