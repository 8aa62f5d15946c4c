// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"novelforge-api/internal/domain/entity"
)

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title       string                `json:"title" binding:"required,min=1,max=255"`
	Genre       string                `json:"genre" binding:"max=100"`
	Style       string                `json:"style" binding:"max=100"`
	Description string                `json:"description" binding:"max=5000"`
	Settings    *entity.NovelSettings `json:"settings"`
}

// UpdateNovelRequest 更新小说请求
type UpdateNovelRequest struct {
	Title       *string               `json:"title" binding:"omitempty,min=1,max=255"`
	Genre       *string               `json:"genre" binding:"omitempty,max=100"`
	Style       *string               `json:"style" binding:"omitempty,max=100"`
	Description *string               `json:"description" binding:"omitempty,max=5000"`
	Status      *string               `json:"status" binding:"omitempty,oneof=draft published archived"`
	Settings    *entity.NovelSettings `json:"settings"`
}

// NovelResponse 小说响应
type NovelResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Genre        string                `json:"genre,omitempty"`
	Style        string                `json:"style,omitempty"`
	Description  string                `json:"description,omitempty"`
	Status       string                `json:"status"`
	Settings     *entity.NovelSettings `json:"settings,omitempty"`
	ChapterCount int64                 `json:"chapter_count"`
	Chapters     []*ChapterSummary     `json:"chapters,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ToNovelResponse 实体转响应 DTO
func ToNovelResponse(novel *entity.Novel) *NovelResponse {
	return &NovelResponse{
		ID:          novel.ID,
		Title:       novel.Title,
		Genre:       novel.Genre,
		Style:       novel.Style,
		Description: novel.Description,
		Status:      string(novel.Status),
		Settings:    novel.Settings,
		CreatedAt:   novel.CreatedAt,
		UpdatedAt:   novel.UpdatedAt,
	}
}

// ToNovelResponses 实体列表转响应 DTO 列表
func ToNovelResponses(novels []*entity.Novel) []*NovelResponse {
	out := make([]*NovelResponse, 0, len(novels))
	for _, n := range novels {
		out = append(out, ToNovelResponse(n))
	}
	return out
}
