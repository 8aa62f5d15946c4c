// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"novelforge-api/internal/domain/entity"
)

// NovelFilter 小说过滤条件
type NovelFilter struct {
	Status entity.NovelStatus
	Genre  string
}

// NovelRepository 小说仓储接口
type NovelRepository interface {
	// Create 创建小说
	Create(ctx context.Context, novel *entity.Novel) error

	// GetByID 根据 ID 获取小说
	GetByID(ctx context.Context, id string) (*entity.Novel, error)

	// GetByIDForUpdate 根据 ID 获取小说并加行锁，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Novel, error)

	// Update 更新小说
	Update(ctx context.Context, novel *entity.Novel) error

	// Delete 删除小说及其章节
	Delete(ctx context.Context, id string) error

	// ListByUser 获取用户小说列表
	ListByUser(ctx context.Context, userID string, filter *NovelFilter, pagination Pagination) (*PagedResult[*entity.Novel], error)
}
