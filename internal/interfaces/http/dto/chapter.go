// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"novelforge-api/internal/domain/entity"
)

// CreateChapterRequest 手动创建章节请求，章节号由服务端分配
type CreateChapterRequest struct {
	Title   string `json:"title" binding:"omitempty,max=255"`
	Content string `json:"content" binding:"required,min=1"`
}

// UpdateChapterRequest 更新章节请求
type UpdateChapterRequest struct {
	Title   *string `json:"title" binding:"omitempty,max=255"`
	Content *string `json:"content"`
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID            string    `json:"id"`
	NovelID       string    `json:"novel_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	Content       string    `json:"content,omitempty"`
	WordCount     int       `json:"word_count"`
	TokensUsed    int64     `json:"tokens_used"`
	Provider      string    `json:"provider,omitempty"`
	Model         string    `json:"model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChapterSummary 章节摘要（列表用，不含正文）
type ChapterSummary struct {
	ID            string    `json:"id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	WordCount     int       `json:"word_count"`
	TokensUsed    int64     `json:"tokens_used"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToChapterResponse 实体转响应 DTO
func ToChapterResponse(chapter *entity.Chapter) *ChapterResponse {
	return &ChapterResponse{
		ID:            chapter.ID,
		NovelID:       chapter.NovelID,
		ChapterNumber: chapter.ChapterNumber,
		Title:         chapter.Title,
		Content:       chapter.Content,
		WordCount:     chapter.WordCount,
		TokensUsed:    chapter.TokensUsed,
		Provider:      chapter.Provider,
		Model:         chapter.Model,
		CreatedAt:     chapter.CreatedAt,
		UpdatedAt:     chapter.UpdatedAt,
	}
}

// ToChapterSummaries 实体列表转摘要列表
func ToChapterSummaries(chapters []*entity.Chapter) []*ChapterSummary {
	out := make([]*ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, &ChapterSummary{
			ID:            ch.ID,
			ChapterNumber: ch.ChapterNumber,
			Title:         ch.Title,
			WordCount:     ch.WordCount,
			TokensUsed:    ch.TokensUsed,
			CreatedAt:     ch.CreatedAt,
		})
	}
	return out
}
