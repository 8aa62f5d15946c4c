// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"novelforge-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// Update 更新章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// Delete 删除章节
	Delete(ctx context.Context, id string) error

	// ListByNovel 获取小说章节列表（按章节号升序）
	ListByNovel(ctx context.Context, novelID string, pagination Pagination) (*PagedResult[*entity.Chapter], error)

	// GetRecent 获取最近的章节（按章节号降序）
	GetRecent(ctx context.Context, novelID string, limit int) ([]*entity.Chapter, error)

	// CountByNovels 批量统计各小说的章节数
	CountByNovels(ctx context.Context, novelIDs []string) (map[string]int64, error)

	// NextChapterNumber 计算下一个章节号，须在持有小说行锁的事务内调用
	NextChapterNumber(ctx context.Context, novelID string) (int, error)
}
