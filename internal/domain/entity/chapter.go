// Package entity 定义领域实体
package entity

import (
	"time"
)

// Chapter 章节实体。
// (novel_id, chapter_number) 唯一，编号由生成流程在事务内串行分配。
type Chapter struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	NovelID       string    `json:"novel_id" gorm:"type:uuid;uniqueIndex:idx_novel_chapter_number;not null"`
	ChapterNumber int       `json:"chapter_number" gorm:"uniqueIndex:idx_novel_chapter_number;not null"`
	Title         string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content       string    `json:"content" gorm:"type:text"`
	WordCount     int       `json:"word_count" gorm:"default:0"`
	PromptUsed    string    `json:"prompt_used,omitempty" gorm:"type:text"`
	TokensUsed    int64     `json:"tokens_used" gorm:"default:0"`
	Provider      string    `json:"provider,omitempty" gorm:"type:varchar(50)"`
	Model         string    `json:"model,omitempty" gorm:"type:varchar(100)"`
	Temperature   float64   `json:"temperature,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// SetContent 设置章节内容并更新字数
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = len([]rune(content))
	c.UpdatedAt = time.Now()
}
