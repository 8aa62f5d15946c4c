// Package wire 提供依赖注入配置
package wire

import (
	"novelforge-api/internal/config"
	"novelforge-api/internal/infrastructure/persistence/postgres"
	"novelforge-api/internal/infrastructure/persistence/redis"
	"novelforge-api/pkg/utils"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideAPIKeyCipher 提供用户 API Key 加密器
func ProvideAPIKeyCipher(cfg *config.Config) (*utils.APIKeyCipher, error) {
	return utils.NewAPIKeyCipher(cfg.Security.APIKey.CipherSecret)
}

// ProvideAIConfig 提供 AI 默认配置
func ProvideAIConfig(cfg *config.Config) *config.AIConfig {
	return &cfg.AI
}
