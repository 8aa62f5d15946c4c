// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"novelforge-api/internal/domain/entity"
)

// ApiConfigRepository 用户 AI 配置仓储接口
type ApiConfigRepository interface {
	// Upsert 创建或覆盖用户的 AI 配置
	Upsert(ctx context.Context, config *entity.UserApiConfig) error

	// GetByUser 获取用户的 AI 配置
	GetByUser(ctx context.Context, userID string) (*entity.UserApiConfig, error)

	// DeleteByUser 删除用户的 AI 配置
	DeleteByUser(ctx context.Context, userID string) error
}
