// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
)

// UsageLogRepository Token 用量流水仓储实现
type UsageLogRepository struct {
	client *Client
}

// NewUsageLogRepository 创建用量流水仓储
func NewUsageLogRepository(client *Client) *UsageLogRepository {
	return &UsageLogRepository{client: client}
}

// Create 追加用量记录
func (r *UsageLogRepository) Create(ctx context.Context, log *entity.UsageLog) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageLogRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage log: %w", err)
	}
	return nil
}

// SumTokensSince 统计用户自指定时间起的 Token 总用量
func (r *UsageLogRepository) SumTokensSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageLogRepository.SumTokensSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var total *int64

	err := db.Model(&entity.UsageLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("SUM(total_tokens)").
		Scan(&total).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum token usage: %w", err)
	}

	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ListByUser 获取用户用量记录
func (r *UsageLogRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageLog], error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageLogRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.UsageLog{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count usage logs: %w", err)
	}

	var logs []*entity.UsageLog
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&logs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}

	return repository.NewPagedResult(logs, total, pagination), nil
}
