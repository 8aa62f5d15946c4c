// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// Delete 删除章节
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Chapter{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}

// ListByNovel 获取小说章节列表
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Chapter{}).Where("novel_id = ?", novelID)

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}

	// 获取列表
	var chapters []*entity.Chapter
	if err := query.Order("chapter_number ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	return repository.NewPagedResult(chapters, total, pagination), nil
}

// GetRecent 获取最近章节
func (r *ChapterRepository) GetRecent(ctx context.Context, novelID string, limit int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetRecent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter

	if err := db.Where("novel_id = ?", novelID).
		Order("chapter_number DESC").
		Limit(limit).
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get recent chapters: %w", err)
	}

	return chapters, nil
}

// CountByNovels 批量统计各小说的章节数
func (r *ChapterRepository) CountByNovels(ctx context.Context, novelIDs []string) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountByNovels")
	defer span.End()

	counts := make(map[string]int64, len(novelIDs))
	if len(novelIDs) == 0 {
		return counts, nil
	}

	db := getDB(ctx, r.client.db)
	var rows []struct {
		NovelID string
		Count   int64
	}
	if err := db.Model(&entity.Chapter{}).
		Select("novel_id, COUNT(*) AS count").
		Where("novel_id IN ?", novelIDs).
		Group("novel_id").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}

	for _, row := range rows {
		counts[row.NovelID] = row.Count
	}
	return counts, nil
}

// NextChapterNumber 计算下一个章节号
func (r *ChapterRepository) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.NextChapterNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxNumber *int

	err := db.Model(&entity.Chapter{}).
		Where("novel_id = ?", novelID).
		Select("MAX(chapter_number)").
		Scan(&maxNumber).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get max chapter number: %w", err)
	}

	if maxNumber == nil {
		return 1, nil
	}
	return *maxNumber + 1, nil
}
