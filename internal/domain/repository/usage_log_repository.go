// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"novelforge-api/internal/domain/entity"
)

// UsageLogRepository Token 用量流水仓储接口
type UsageLogRepository interface {
	// Create 追加用量记录
	Create(ctx context.Context, log *entity.UsageLog) error

	// SumTokensSince 统计用户自指定时间起的 Token 总用量
	SumTokensSince(ctx context.Context, userID string, since time.Time) (int64, error)

	// ListByUser 获取用户用量记录
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.UsageLog], error)
}
