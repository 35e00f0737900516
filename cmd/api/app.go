package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tutorhub-identity/internal/auth"
	"github.com/redmonkez12/tutorhub-identity/internal/config"
	"github.com/redmonkez12/tutorhub-identity/internal/database"
	"github.com/redmonkez12/tutorhub-identity/internal/email"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// app holds the wired services shared by the CLI commands
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	db        *bun.DB
	redis     *redis.Client
	transport *email.Transport

	users    *user.Repository
	outbox   *email.Outbox
	tokens   *auth.TokenManager
	service  *auth.Service
	workflow *auth.ApprovalWorkflow
	tokenSvc auth.TokenService
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.NewLogger(cfg.Server.IsDevelopment()), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	var err error

	a.db, err = database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(ctx, a.db.DB); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	var store auth.OneTimeTokenStore
	switch cfg.Auth.OneTimeTokenStore {
	case config.OneTimeStoreRedis:
		a.redis, err = initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		store = auth.NewRedisRepository(a.redis)
	default:
		store = auth.NewRepository(a.db)
	}

	a.tokenSvc, err = newTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	a.transport, err = email.NewTransport(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email transport: %w", err)
	}

	a.users = user.NewRepository(a.db)
	a.outbox = email.NewOutbox(a.transport.Publisher, cfg.Email.Topic)
	a.tokens = auth.NewTokenManager(
		store,
		a.users,
		a.outbox,
		logger,
		cfg.Auth.VerificationTokenDuration,
		cfg.Auth.PasswordResetTokenDuration,
	)
	a.service = auth.NewService(
		a.users,
		a.tokenSvc,
		a.tokens,
		auth.NewPasswordHasher(),
		logger,
		cfg.Auth.RequireEmailVerification,
	)
	a.workflow = auth.NewApprovalWorkflow(a.users, a.outbox, logger)

	logger.Info("services initialized",
		"token_strategy", cfg.Auth.TokenStrategy,
		"one_time_token_store", cfg.Auth.OneTimeTokenStore,
		"email_transport", cfg.Email.Transport,
	)

	return nil
}

func (a *app) Close() {
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.logger.Error("failed to close email transport", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyPaseto:
		svc, err := auth.NewPasetoService(cfg.PasetoKey, cfg.AccessTokenDuration)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		return svc, nil
	default:
		svc, err := auth.NewJWTService(cfg.TokenSecret, cfg.AccessTokenDuration)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		return svc, nil
	}
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
