// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"novelforge-api/internal/domain/entity"
)

// UserResponse 用户信息响应
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	IsPremium   bool       `json:"is_premium"`
	DailyQuota  int64      `json:"daily_quota"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserResponse 实体转响应 DTO
func ToUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		IsPremium:   user.IsPremium,
		DailyQuota:  user.DailyQuota,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// QuotaResponse 配额快照响应
type QuotaResponse struct {
	DailyQuota int64     `json:"daily_quota"`
	UsedToday  int64     `json:"used_today"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// UpsertApiConfigRequest 保存用户 AI 配置请求
type UpsertApiConfigRequest struct {
	Provider string `json:"provider" binding:"required,oneof=openai kimi anthropic custom"`
	APIKey   string `json:"api_key" binding:"required,min=1"`
	BaseURL  string `json:"base_url" binding:"omitempty,url"`
	Model    string `json:"model" binding:"max=100"`
	IsActive *bool  `json:"is_active"`
}

// ApiConfigResponse 用户 AI 配置响应，Key 仅返回掩码
type ApiConfigResponse struct {
	Provider     string    `json:"provider"`
	APIKeyMasked string    `json:"api_key_masked"`
	BaseURL      string    `json:"base_url,omitempty"`
	Model        string    `json:"model,omitempty"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}
