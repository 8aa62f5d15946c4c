// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"novelforge-api/internal/application/quota"
	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/infrastructure/ai"
	"novelforge-api/internal/interfaces/http/dto"
	"novelforge-api/pkg/logger"
	"novelforge-api/pkg/utils"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo   repository.UserRepository
	configRepo repository.ApiConfigRepository
	tracker    *quota.Tracker
	cipher     *utils.APIKeyCipher
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository, configRepo repository.ApiConfigRepository, tracker *quota.Tracker, cipher *utils.APIKeyCipher) *UserHandler {
	return &UserHandler{
		userRepo:   userRepo,
		configRepo: configRepo,
		tracker:    tracker,
		cipher:     cipher,
	}
}

// loadCurrentUser 加载当前登录用户
func (h *UserHandler) loadCurrentUser(c *gin.Context) *entity.User {
	ctx := c.Request.Context()

	user, err := h.userRepo.GetByID(ctx, c.GetString("user_id"))
	if err != nil {
		logger.Error(ctx, "failed to load user", err)
		dto.InternalError(c, "failed to load user")
		return nil
	}
	if user == nil {
		dto.Unauthorized(c, "user not found")
		return nil
	}
	return user
}

// GetMe 获取当前用户信息
// @Summary 当前用户
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Router /v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user := h.loadCurrentUser(c)
	if user == nil {
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}

// GetQuota 获取当前用户配额快照
// @Summary 配额快照
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.QuotaResponse]
// @Router /v1/users/me/quota [get]
func (h *UserHandler) GetQuota(c *gin.Context) {
	ctx := c.Request.Context()

	user := h.loadCurrentUser(c)
	if user == nil {
		return
	}

	snapshot, err := h.tracker.GetSnapshot(ctx, user)
	if err != nil {
		logger.Error(ctx, "failed to load quota snapshot", err, "user_id", user.ID)
		dto.InternalError(c, "failed to load quota")
		return
	}

	dto.Success(c, &dto.QuotaResponse{
		DailyQuota: snapshot.DailyQuota,
		UsedToday:  snapshot.UsedToday,
		Remaining:  snapshot.Remaining,
		ResetAt:    snapshot.ResetAt,
	})
}

// GetApiConfig 获取当前用户 AI 配置，Key 仅返回掩码
// @Summary 查看 AI 配置
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.ApiConfigResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/me/api-config [get]
func (h *UserHandler) GetApiConfig(c *gin.Context) {
	ctx := c.Request.Context()

	cfg, err := h.configRepo.GetByUser(ctx, c.GetString("user_id"))
	if err != nil {
		logger.Error(ctx, "failed to load api config", err)
		dto.InternalError(c, "failed to load api config")
		return
	}
	if cfg == nil {
		dto.NotFound(c, "api config not found")
		return
	}

	dto.Success(c, &dto.ApiConfigResponse{
		Provider:     cfg.Provider,
		APIKeyMasked: h.maskKey(cfg.APIKeyEncrypted),
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		IsActive:     cfg.IsActive,
		UpdatedAt:    cfg.UpdatedAt,
	})
}

// UpsertApiConfig 保存当前用户 AI 配置。
// 明文 Key 仅在入库前短暂存在，落库前完成加密。
// @Summary 保存 AI 配置
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpsertApiConfigRequest true "AI 配置"
// @Success 200 {object} dto.Response[dto.ApiConfigResponse]
// @Router /v1/users/me/api-config [put]
func (h *UserHandler) UpsertApiConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpsertApiConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if !ai.IsValidProvider(ai.Provider(req.Provider)) {
		dto.BadRequest(c, "unsupported provider: "+req.Provider)
		return
	}
	if req.Provider == string(ai.ProviderCustom) && req.BaseURL == "" {
		dto.BadRequest(c, "base_url is required for custom provider")
		return
	}

	encrypted, err := h.cipher.Encrypt(req.APIKey)
	if err != nil {
		logger.Error(ctx, "failed to encrypt api key", err)
		dto.InternalError(c, "failed to save api config")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now()
	cfg := &entity.UserApiConfig{
		ID:              uuid.NewString(),
		UserID:          c.GetString("user_id"),
		Provider:        req.Provider,
		APIKeyEncrypted: encrypted,
		BaseURL:         req.BaseURL,
		Model:           req.Model,
		IsActive:        isActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.configRepo.Upsert(ctx, cfg); err != nil {
		logger.Error(ctx, "failed to upsert api config", err)
		dto.InternalError(c, "failed to save api config")
		return
	}

	dto.Success(c, &dto.ApiConfigResponse{
		Provider:     cfg.Provider,
		APIKeyMasked: h.maskKey(cfg.APIKeyEncrypted),
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		IsActive:     cfg.IsActive,
		UpdatedAt:    cfg.UpdatedAt,
	})
}

// DeleteApiConfig 删除当前用户 AI 配置
// @Summary 删除 AI 配置
// @Tags Users
// @Success 204
// @Router /v1/users/me/api-config [delete]
func (h *UserHandler) DeleteApiConfig(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.configRepo.DeleteByUser(ctx, c.GetString("user_id")); err != nil {
		logger.Error(ctx, "failed to delete api config", err)
		dto.InternalError(c, "failed to delete api config")
		return
	}
	dto.NoContent(c)
}

// maskKey 解密后生成掩码，仅露出尾部四位
func (h *UserHandler) maskKey(encrypted string) string {
	plain, err := h.cipher.Decrypt(encrypted)
	if err != nil || plain == "" {
		return "****"
	}
	runes := []rune(plain)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
