// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/interfaces/http/dto"
	"novelforge-api/pkg/logger"
)

// NovelHandler 小说处理器
type NovelHandler struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
}

// NewNovelHandler 创建小说处理器
func NewNovelHandler(novelRepo repository.NovelRepository, chapterRepo repository.ChapterRepository) *NovelHandler {
	return &NovelHandler{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
	}
}

// loadOwnedNovel 加载归属当前用户的小说。
// 不存在与归属他人统一返回 nil，调用方响应 404。
func (h *NovelHandler) loadOwnedNovel(c *gin.Context, novelID string) *entity.Novel {
	ctx := c.Request.Context()

	novel, err := h.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		logger.Error(ctx, "failed to load novel", err, "novel_id", novelID)
		dto.InternalError(c, "failed to load novel")
		return nil
	}
	if novel == nil || !novel.OwnedBy(c.GetString("user_id")) {
		dto.NotFound(c, "novel not found")
		return nil
	}
	return novel
}

// CreateNovel 创建小说
// @Summary 创建小说
// @Tags Novels
// @Accept json
// @Produce json
// @Param body body dto.CreateNovelRequest true "小说信息"
// @Success 201 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels [post]
func (h *NovelHandler) CreateNovel(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	novel := entity.NewNovel(uuid.NewString(), c.GetString("user_id"), req.Title)
	novel.Genre = req.Genre
	novel.Style = req.Style
	novel.Description = req.Description
	novel.Settings = req.Settings

	if err := h.novelRepo.Create(ctx, novel); err != nil {
		logger.Error(ctx, "failed to create novel", err)
		dto.InternalError(c, "failed to create novel")
		return
	}

	dto.Created(c, dto.ToNovelResponse(novel))
}

// ListNovels 获取当前用户小说列表
// @Summary 小说列表
// @Tags Novels
// @Produce json
// @Success 200 {object} dto.Response[[]dto.NovelResponse]
// @Router /v1/novels [get]
func (h *NovelHandler) ListNovels(c *gin.Context) {
	ctx := c.Request.Context()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	filter := &repository.NovelFilter{
		Status: entity.NovelStatus(c.Query("status")),
		Genre:  c.Query("genre"),
	}

	result, err := h.novelRepo.ListByUser(ctx, c.GetString("user_id"), filter, pagination)
	if err != nil {
		logger.Error(ctx, "failed to list novels", err)
		dto.InternalError(c, "failed to list novels")
		return
	}

	// 批量补充章节数
	novelIDs := make([]string, 0, len(result.Items))
	for _, novel := range result.Items {
		novelIDs = append(novelIDs, novel.ID)
	}
	counts, err := h.chapterRepo.CountByNovels(ctx, novelIDs)
	if err != nil {
		logger.Error(ctx, "failed to count chapters", err)
		dto.InternalError(c, "failed to list novels")
		return
	}

	responses := dto.ToNovelResponses(result.Items)
	for _, resp := range responses {
		resp.ChapterCount = counts[resp.ID]
	}

	dto.SuccessWithPage(c, responses,
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetNovel 获取小说详情
// @Summary 小说详情
// @Tags Novels
// @Produce json
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [get]
func (h *NovelHandler) GetNovel(c *gin.Context) {
	ctx := c.Request.Context()

	novel := h.loadOwnedNovel(c, c.Param("nid"))
	if novel == nil {
		return
	}

	// 详情附带章节摘要列表
	chapters, err := h.chapterRepo.ListByNovel(ctx, novel.ID, repository.NewPagination(1, 100))
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err, "novel_id", novel.ID)
		dto.InternalError(c, "failed to load novel")
		return
	}

	resp := dto.ToNovelResponse(novel)
	resp.ChapterCount = chapters.Total
	resp.Chapters = dto.ToChapterSummaries(chapters.Items)

	dto.Success(c, resp)
}

// UpdateNovel 更新小说
// @Summary 更新小说
// @Tags Novels
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [put]
func (h *NovelHandler) UpdateNovel(c *gin.Context) {
	ctx := c.Request.Context()

	novel := h.loadOwnedNovel(c, c.Param("nid"))
	if novel == nil {
		return
	}

	var req dto.UpdateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Title != nil {
		novel.Title = *req.Title
	}
	if req.Genre != nil {
		novel.Genre = *req.Genre
	}
	if req.Style != nil {
		novel.Style = *req.Style
	}
	if req.Description != nil {
		novel.Description = *req.Description
	}
	if req.Status != nil {
		novel.Status = entity.NovelStatus(*req.Status)
	}
	if req.Settings != nil {
		novel.Settings = req.Settings
	}

	if err := h.novelRepo.Update(ctx, novel); err != nil {
		logger.Error(ctx, "failed to update novel", err, "novel_id", novel.ID)
		dto.InternalError(c, "failed to update novel")
		return
	}

	dto.Success(c, dto.ToNovelResponse(novel))
}

// DeleteNovel 删除小说及其章节
// @Summary 删除小说
// @Tags Novels
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [delete]
func (h *NovelHandler) DeleteNovel(c *gin.Context) {
	ctx := c.Request.Context()

	novel := h.loadOwnedNovel(c, c.Param("nid"))
	if novel == nil {
		return
	}

	if err := h.novelRepo.Delete(ctx, novel.ID); err != nil {
		logger.Error(ctx, "failed to delete novel", err, "novel_id", novel.ID)
		dto.InternalError(c, "failed to delete novel")
		return
	}

	dto.NoContent(c)
}
