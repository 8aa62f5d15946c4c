// Package entity 定义领域实体
package entity

import (
	"time"
)

// UsageLog Token 用量流水，仅追加不更新。
// 每日配额统计按 created_at 对当天的记录求和。
type UsageLog struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           string    `json:"user_id" gorm:"type:uuid;index:idx_usage_user_created;not null"`
	NovelID          string    `json:"novel_id,omitempty" gorm:"type:uuid;index"`
	ChapterID        string    `json:"chapter_id,omitempty" gorm:"type:uuid"`
	Provider         string    `json:"provider" gorm:"type:varchar(50)"`
	Model            string    `json:"model" gorm:"type:varchar(100)"`
	PromptTokens     int64     `json:"prompt_tokens" gorm:"default:0"`
	CompletionTokens int64     `json:"completion_tokens" gorm:"default:0"`
	TotalTokens      int64     `json:"total_tokens" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_usage_user_created"`
}

// TableName 指定表名
func (UsageLog) TableName() string {
	return "usage_logs"
}
