// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"novelforge-api/internal/domain/entity"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=2,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthUser 认证响应中的用户信息
type AuthUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	User        *AuthUser `json:"user"`
}

// ToAuthUser 实体转认证用户 DTO
func ToAuthUser(user *entity.User) *AuthUser {
	return &AuthUser{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		IsPremium: user.IsPremium,
		CreatedAt: user.CreatedAt,
	}
}
