// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 小说管理
	novels := v1.Group("/novels")
	{
		novels.GET("", h.Novel.ListNovels)
		novels.POST("", h.Novel.CreateNovel)
		novels.GET("/:nid", h.Novel.GetNovel)
		novels.PUT("/:nid", h.Novel.UpdateNovel)
		novels.DELETE("/:nid", h.Novel.DeleteNovel)

		// 小说下的章节
		novels.GET("/:nid/chapters", h.Chapter.ListChapters)
		novels.POST("/:nid/chapters", h.Chapter.CreateChapter)

		// 章节生成（流式）
		novels.POST("/:nid/generate", h.Generate.GenerateChapter)
	}

	// 章节管理
	chapters := v1.Group("/chapters")
	{
		chapters.GET("/:cid", h.Chapter.GetChapter)
		chapters.PUT("/:cid", h.Chapter.UpdateChapter)
		chapters.DELETE("/:cid", h.Chapter.DeleteChapter)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
		users.GET("/me/quota", h.User.GetQuota)
		users.GET("/me/api-config", h.User.GetApiConfig)
		users.PUT("/me/api-config", h.User.UpsertApiConfig)
		users.DELETE("/me/api-config", h.User.DeleteApiConfig)
	}
}
