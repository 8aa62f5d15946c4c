// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"novelforge-api/internal/application/generation"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/interfaces/http/dto"
	apperrors "novelforge-api/pkg/errors"
	"novelforge-api/pkg/logger"
)

// GenerateHandler 章节生成处理器
type GenerateHandler struct {
	service  *generation.Service
	userRepo repository.UserRepository
}

// NewGenerateHandler 创建章节生成处理器
func NewGenerateHandler(service *generation.Service, userRepo repository.UserRepository) *GenerateHandler {
	return &GenerateHandler{
		service:  service,
		userRepo: userRepo,
	}
}

// GenerateChapter 流式生成章节。
// 响应为逐行 JSON 事件流：start -> chunk* -> done|error。
// 流开始前的失败按普通错误响应返回，流开始后的失败以 error 事件下发。
// @Summary 生成章节
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.GenerateChapterRequest true "生成参数"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/generate [post]
func (h *GenerateHandler) GenerateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByID(ctx, c.GetString("user_id"))
	if err != nil {
		logger.Error(ctx, "failed to load user", err)
		dto.InternalError(c, "generation failed")
		return
	}
	if user == nil {
		dto.Unauthorized(c, "user not found")
		return
	}

	novelID := c.Param("nid")
	ctx = logger.WithContext(ctx, logger.NovelIDKey, novelID)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		dto.InternalError(c, "streaming not supported")
		return
	}

	// 事件流在第一个事件写出后才提交响应头，
	// 此前的失败仍可返回普通错误响应
	streaming := false
	encoder := json.NewEncoder(c.Writer)

	emit := func(event generation.Event) error {
		if !streaming {
			streaming = true
			c.Writer.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
			c.Writer.WriteHeader(http.StatusOK)
		}
		if err := encoder.Encode(event); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	genReq := &generation.Request{
		NovelID:         novelID,
		Prompt:          req.Prompt,
		Genre:           req.Genre,
		Style:           req.Style,
		Temperature:     req.ResolveTemperature(),
		PreviousContext: req.PreviousContext,
	}

	if err := h.service.Generate(ctx, user, genReq, emit); err != nil {
		if streaming {
			// 流已开始，错误已由服务层以事件形式下发或连接已断开
			logger.Warn(ctx, "generation stream ended with error", "error", err)
			return
		}
		appErr := apperrors.AsAppError(err)
		dto.Error(c, appErr.HTTPStatus, appErr.Message)
	}
}
