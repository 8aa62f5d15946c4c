// Package entity 定义领域实体
package entity

import (
	"time"
)

// UserApiConfig 用户自带的 AI 访问配置。
// APIKeyEncrypted 为 AES-GCM 加密后的密文，每个用户至多一条生效配置。
type UserApiConfig struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string    `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Provider        string    `json:"provider" gorm:"type:varchar(50);not null"`
	APIKeyEncrypted string    `json:"-" gorm:"column:api_key_encrypted;type:text;not null"`
	BaseURL         string    `json:"base_url,omitempty" gorm:"type:varchar(512)"`
	Model           string    `json:"model,omitempty" gorm:"type:varchar(100)"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserApiConfig) TableName() string {
	return "user_api_configs"
}
