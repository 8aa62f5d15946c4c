//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"novelforge-api/internal/application/generation"
	"novelforge-api/internal/application/quota"
	"novelforge-api/internal/config"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/infrastructure/ai"
	"novelforge-api/internal/infrastructure/persistence/postgres"
	"novelforge-api/internal/infrastructure/persistence/redis"
	"novelforge-api/internal/interfaces/http/handler"
	"novelforge-api/internal/interfaces/http/middleware"
	"novelforge-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		AppSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewNovelRepository,
	postgres.NewChapterRepository,
	postgres.NewUsageLogRepository,
	postgres.NewApiConfigRepository,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.NovelRepository), new(*postgres.NovelRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.UsageLogRepository), new(*postgres.UsageLogRepository)),
	wire.Bind(new(repository.ApiConfigRepository), new(*postgres.ApiConfigRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// AppSet 应用服务提供者集合
var AppSet = wire.NewSet(
	ProvideAPIKeyCipher,
	ProvideAIConfig,
	ai.NewStreamClient,
	wire.Bind(new(generation.Streamer), new(*ai.StreamClient)),
	quota.NewTracker,
	generation.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewAuthHandler,
	handler.NewNovelHandler,
	handler.NewChapterHandler,
	handler.NewGenerateHandler,
	handler.NewUserHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
