package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/infra/config"
	"github.com/vyhuholl/test-backend/internal/infra/database"
	kafkainfra "github.com/vyhuholl/test-backend/internal/infra/kafka"
	"github.com/vyhuholl/test-backend/internal/infra/logger"
	redisinfra "github.com/vyhuholl/test-backend/internal/infra/redis"
	"github.com/vyhuholl/test-backend/internal/infra/security"
	postgresrepo "github.com/vyhuholl/test-backend/internal/repository/postgres"
	redisrepo "github.com/vyhuholl/test-backend/internal/repository/redis"
	"github.com/vyhuholl/test-backend/internal/transport/http/routes"
	"github.com/vyhuholl/test-backend/internal/usecase"
)

// Application owns the wired object graph and the process lifecycle.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	sweeper *usecase.RevocationSweeper
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewTokenCodec(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.TokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	hasher := security.NewPasswordHasher(cfg.Bcrypt.Cost)
	passwordValidator := security.DefaultPasswordValidator()

	store := postgresrepo.NewStore(pool)
	userRepo := postgresrepo.NewUserRepository(pool)
	roleRepo := postgresrepo.NewRoleRepository(pool)
	elementRepo := postgresrepo.NewElementRepository(pool)
	ruleRepo := postgresrepo.NewRuleRepository(pool)
	revocationRepo := postgresrepo.NewRevocationRepository(pool)
	accountCloser := postgresrepo.NewAccountCloser(store, userRepo, revocationRepo)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	limiter := usecase.NewLoginLimiter(rateLimitStore, rateLimitWindow, cfg.RateLimit.LoginMaxAttempts)
	authService := usecase.NewAuthService(userRepo, revocationRepo, limiter, codec, hasher, eventPublisher)
	registrationService := usecase.NewRegistrationService(userRepo, hasher, passwordValidator)
	userService := usecase.NewUserService(userRepo, accountCloser, codec, hasher, passwordValidator, eventPublisher)
	adminService := usecase.NewRoleAdminService(roleRepo, elementRepo, ruleRepo, userRepo, eventPublisher)
	permissionEngine := usecase.NewPermissionEngine(roleRepo, ruleRepo)
	sweeper := usecase.NewRevocationSweeper(revocationRepo, cfg.Blacklist.SweepInterval, log)

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Users:        userService,
			Admin:        adminService,
			Permissions:  permissionEngine,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		sweeper: sweeper,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully. The revocation sweep runs alongside the server.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting access control API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
