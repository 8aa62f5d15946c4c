// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"novelforge-api/internal/domain/entity"
)

// ApiConfigRepository 用户 AI 配置仓储实现
type ApiConfigRepository struct {
	client *Client
}

// NewApiConfigRepository 创建 AI 配置仓储
func NewApiConfigRepository(client *Client) *ApiConfigRepository {
	return &ApiConfigRepository{client: client}
}

// Upsert 创建或覆盖用户的 AI 配置
func (r *ApiConfigRepository) Upsert(ctx context.Context, config *entity.UserApiConfig) error {
	ctx, span := tracer.Start(ctx, "postgres.ApiConfigRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider", "api_key_encrypted", "base_url", "model", "is_active", "updated_at",
		}),
	}).Create(config).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert api config: %w", err)
	}
	return nil
}

// GetByUser 获取用户的 AI 配置
func (r *ApiConfigRepository) GetByUser(ctx context.Context, userID string) (*entity.UserApiConfig, error) {
	ctx, span := tracer.Start(ctx, "postgres.ApiConfigRepository.GetByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var config entity.UserApiConfig
	if err := db.First(&config, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get api config: %w", err)
	}
	return &config, nil
}

// DeleteByUser 删除用户的 AI 配置
func (r *ApiConfigRepository) DeleteByUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ApiConfigRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.UserApiConfig{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete api config: %w", err)
	}
	return nil
}
