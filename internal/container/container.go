package container

import (
	"context"
	"fmt"

	"livepoll/internal/config"
	"livepoll/internal/repository"
	"livepoll/internal/service"
	"livepoll/internal/service/auth"
	"livepoll/pkg/database"
	"livepoll/pkg/logger"
	"livepoll/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Store       repository.StateStore
	Services    *service.Services
}

// New opens the configured state store, restores the engine from it and wires the services
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger, opts ...service.EngineOption) (*Container, error) {
	store, redisClient, err := openStateStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := service.NewSessionEngine(repository.NewSnapshotRepository(store, logger), logger, opts...)
	if err := engine.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	authService, err := auth.NewService(repository.NewAdminRepository(store), auth.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.AdminTokenTTL,
		OTPCode:   cfg.OTPCode,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	services := &service.Services{
		Engine: engine,
		Expiry: service.NewExpiryMonitor(engine, logger),
		Live:   service.NewLiveFeed(engine, cfg.LiveRefreshInterval, logger),
		Auth:   authService,
	}

	logger.WithFields(map[string]interface{}{
		"store":    cfg.StoreBackend,
		"polls":    len(engine.Polls()),
		"sessions": len(engine.Sessions()),
	}).Info("State restored")

	return &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Store:       store,
		Services:    services,
	}, nil
}

func openStateStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (repository.StateStore, *redis.Client, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Named("redis").Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		logger.WithField("key_prefix", client.KeyBuilder.GetPrefix()).Info("Redis state store initialized")
		return repository.NewRedisStateStore(client), client, nil

	case config.StoreSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("SQLite state store initialized")
		return repository.NewSQLiteStateStore(db), nil, nil

	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to apply Postgres schema: %w", err)
		}
		logger.Info("Postgres state store initialized")
		return repository.NewPostgresStateStore(db), nil, nil

	default:
		logger.Warn("Using in-memory state store, state is lost on restart")
		return repository.NewMemoryStateStore(), nil, nil
	}
}

// Close releases the state store
func (c *Container) Close() error {
	return c.Store.Close()
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetEngine returns the session lifecycle engine
func (c *Container) GetEngine() *service.SessionEngine {
	return c.Services.Engine
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if the Redis backend is in use
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
