// Package entity 定义领域实体
package entity

import (
	"time"
)

// NovelStatus 小说状态
type NovelStatus string

const (
	NovelStatusDraft     NovelStatus = "draft"
	NovelStatusPublished NovelStatus = "published"
	NovelStatusArchived  NovelStatus = "archived"
)

// NovelSettings 小说生成偏好设置
type NovelSettings struct {
	TargetChapterLength int     `json:"target_chapter_length,omitempty"`
	Temperature         float64 `json:"temperature,omitempty"`
	ExtraInstructions   string  `json:"extra_instructions,omitempty"`
}

// Novel 小说实体
type Novel struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      string         `json:"user_id" gorm:"type:uuid;index;not null"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Genre       string         `json:"genre,omitempty" gorm:"type:varchar(100)"`
	Style       string         `json:"style,omitempty" gorm:"type:varchar(100)"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Status      NovelStatus    `json:"status" gorm:"type:varchar(50);default:'draft'"`
	Settings    *NovelSettings `json:"settings,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// NewNovel 创建新小说
func NewNovel(id, userID, title string) *Novel {
	now := time.Now()
	return &Novel{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Status:    NovelStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy 检查小说是否属于指定用户
func (n *Novel) OwnedBy(userID string) bool {
	return n.UserID == userID
}
