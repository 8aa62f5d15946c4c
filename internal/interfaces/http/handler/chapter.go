// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/interfaces/http/dto"
	apperrors "novelforge-api/pkg/errors"
	"novelforge-api/pkg/logger"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	chapterRepo repository.ChapterRepository
	novelRepo   repository.NovelRepository
	txManager   repository.Transactor
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(chapterRepo repository.ChapterRepository, novelRepo repository.NovelRepository, txManager repository.Transactor) *ChapterHandler {
	return &ChapterHandler{
		chapterRepo: chapterRepo,
		novelRepo:   novelRepo,
		txManager:   txManager,
	}
}

// loadOwnedChapter 加载归属当前用户的章节。
// 章节归属经由小说归属校验，越权与不存在统一返回 404。
func (h *ChapterHandler) loadOwnedChapter(c *gin.Context, chapterID string) *entity.Chapter {
	ctx := c.Request.Context()

	chapter, err := h.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		logger.Error(ctx, "failed to load chapter", err, "chapter_id", chapterID)
		dto.InternalError(c, "failed to load chapter")
		return nil
	}
	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return nil
	}

	novel, err := h.novelRepo.GetByID(ctx, chapter.NovelID)
	if err != nil {
		logger.Error(ctx, "failed to load novel for chapter", err, "chapter_id", chapterID)
		dto.InternalError(c, "failed to load chapter")
		return nil
	}
	if novel == nil || !novel.OwnedBy(c.GetString("user_id")) {
		dto.NotFound(c, "chapter not found")
		return nil
	}
	return chapter
}

// CreateChapter 手动创建章节。
// 章节号与生成流程走同一把小说行锁，保证编号连续且不冲突。
// @Summary 创建章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.CreateChapterRequest true "章节内容"
// @Success 201 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters [post]
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	novelID := c.Param("nid")
	novel, err := h.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		logger.Error(ctx, "failed to load novel", err, "novel_id", novelID)
		dto.InternalError(c, "failed to create chapter")
		return
	}
	if novel == nil || !novel.OwnedBy(c.GetString("user_id")) {
		dto.NotFound(c, "novel not found")
		return
	}

	var req dto.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chapter := &entity.Chapter{
		ID:      uuid.NewString(),
		NovelID: novel.ID,
		Title:   req.Title,
	}
	chapter.SetContent(req.Content)

	err = h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := h.novelRepo.GetByIDForUpdate(txCtx, novel.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperrors.ErrNovelNotFound
		}

		number, err := h.chapterRepo.NextChapterNumber(txCtx, novel.ID)
		if err != nil {
			return err
		}
		chapter.ChapterNumber = number

		return h.chapterRepo.Create(txCtx, chapter)
	})
	if err != nil {
		logger.Error(ctx, "failed to create chapter", err, "novel_id", novel.ID)
		dto.InternalError(c, "failed to create chapter")
		return
	}

	dto.Created(c, dto.ToChapterResponse(chapter))
}

// ListChapters 获取小说章节列表
// @Summary 章节列表
// @Tags Chapters
// @Produce json
// @Success 200 {object} dto.Response[[]dto.ChapterSummary]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	ctx := c.Request.Context()

	novelID := c.Param("nid")
	novel, err := h.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		logger.Error(ctx, "failed to load novel", err, "novel_id", novelID)
		dto.InternalError(c, "failed to list chapters")
		return
	}
	if novel == nil || !novel.OwnedBy(c.GetString("user_id")) {
		dto.NotFound(c, "novel not found")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	result, err := h.chapterRepo.ListByNovel(ctx, novelID, pagination)
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err, "novel_id", novelID)
		dto.InternalError(c, "failed to list chapters")
		return
	}

	dto.SuccessWithPage(c, dto.ToChapterSummaries(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetChapter 获取章节详情
// @Summary 章节详情
// @Tags Chapters
// @Produce json
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	chapter := h.loadOwnedChapter(c, c.Param("cid"))
	if chapter == nil {
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}

// UpdateChapter 更新章节
// @Summary 更新章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [put]
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter := h.loadOwnedChapter(c, c.Param("cid"))
	if chapter == nil {
		return
	}

	var req dto.UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Content != nil {
		chapter.SetContent(*req.Content)
	}

	if err := h.chapterRepo.Update(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to update chapter", err, "chapter_id", chapter.ID)
		dto.InternalError(c, "failed to update chapter")
		return
	}

	dto.Success(c, dto.ToChapterResponse(chapter))
}

// DeleteChapter 删除章节
// @Summary 删除章节
// @Tags Chapters
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [delete]
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter := h.loadOwnedChapter(c, c.Param("cid"))
	if chapter == nil {
		return
	}

	if err := h.chapterRepo.Delete(ctx, chapter.ID); err != nil {
		logger.Error(ctx, "failed to delete chapter", err, "chapter_id", chapter.ID)
		dto.InternalError(c, "failed to delete chapter")
		return
	}

	dto.NoContent(c)
}
