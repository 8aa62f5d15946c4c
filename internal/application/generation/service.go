// Package generation 提供章节生成编排能力
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"novelforge-api/internal/application/quota"
	"novelforge-api/internal/config"
	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/infrastructure/ai"
	apperrors "novelforge-api/pkg/errors"
	"novelforge-api/pkg/logger"
	"novelforge-api/pkg/metrics"
	"novelforge-api/pkg/utils"
)

var tracer = otel.Tracer("generation")

// EventType 流事件类型
type EventType string

const (
	EventStart EventType = "start"
	EventChunk EventType = "chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event 生成流事件，逐行 JSON 下发给客户端
type Event struct {
	Type          EventType `json:"type"`
	Content       string    `json:"content,omitempty"`
	TokensUsed    int64     `json:"tokensUsed,omitempty"`
	ChapterNumber int       `json:"chapterNumber,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// Request 章节生成请求
type Request struct {
	NovelID         string
	Prompt          string
	Genre           string
	Style           string
	Temperature     float64
	PreviousContext string
}

// Streamer 流式生成端口
type Streamer interface {
	StreamGenerate(ctx context.Context, opts ai.Options, msgs []ai.Message, onFragment func(fragment string) error) error
}

// recentChapterCount 作为前文上下文的章节数
const recentChapterCount = 3

// Service 章节生成服务。
// 编排配额门禁、提示词组装、上游流式调用与落库。
type Service struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
	usageRepo   repository.UsageLogRepository
	configRepo  repository.ApiConfigRepository
	txManager   repository.Transactor
	tracker     *quota.Tracker
	streamer    Streamer
	cipher      *utils.APIKeyCipher
	aiCfg       *config.AIConfig
}

// NewService 创建章节生成服务
func NewService(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	usageRepo repository.UsageLogRepository,
	configRepo repository.ApiConfigRepository,
	txManager repository.Transactor,
	tracker *quota.Tracker,
	streamer Streamer,
	cipher *utils.APIKeyCipher,
	aiCfg *config.AIConfig,
) *Service {
	return &Service{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		usageRepo:   usageRepo,
		configRepo:  configRepo,
		txManager:   txManager,
		tracker:     tracker,
		streamer:    streamer,
		cipher:      cipher,
		aiCfg:       aiCfg,
	}
}

// Generate 执行一次章节生成。
// 流开始前的失败（配额、归属、Provider 未配置）以 error 返回，
// 由调用方映射 HTTP 状态；流开始后的失败改以 error 事件下发。
func (s *Service) Generate(ctx context.Context, user *entity.User, req *Request, emit func(Event) error) error {
	ctx, span := tracer.Start(ctx, "generation.Generate")
	span.SetAttributes(
		attribute.String("novel.id", req.NovelID),
		attribute.String("user.id", user.ID),
	)
	defer span.End()

	// 配额门禁：提交前检查，拒绝时不产生任何流事件
	if _, err := s.tracker.CheckDaily(ctx, user); err != nil {
		var exceeded quota.DailyQuotaExceededError
		if errors.As(err, &exceeded) {
			metrics.QuotaExceededTotal.Inc()
			return apperrors.ErrQuotaExceeded
		}
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check quota")
	}

	// 归属校验：他人小说与不存在的小说同样返回 not found
	novel, err := s.novelRepo.GetByID(ctx, req.NovelID)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load novel")
	}
	if novel == nil || !novel.OwnedBy(user.ID) {
		return apperrors.ErrNovelNotFound
	}

	recent, err := s.chapterRepo.GetRecent(ctx, novel.ID, recentChapterCount)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load recent chapters")
	}

	opts, err := s.resolveOptions(ctx, user.ID, req.Temperature)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("ai.provider", string(opts.Provider)),
		attribute.String("ai.model", opts.Model),
	)

	msgs := BuildMessages(PromptInput{
		Prompt:          req.Prompt,
		Genre:           req.Genre,
		Style:           req.Style,
		Synopsis:        novel.Description,
		PreviousContext: req.PreviousContext,
		RecentChapters:  recent,
	})

	return s.stream(ctx, user, novel, req, opts, msgs, emit)
}

// stream 执行流式调用并落库
func (s *Service) stream(ctx context.Context, user *entity.User, novel *entity.Novel, req *Request, opts ai.Options, msgs []ai.Message, emit func(Event) error) error {
	metrics.ActiveWriters.Inc()
	defer metrics.ActiveWriters.Dec()

	startedAt := time.Now()
	provider := string(opts.Provider)

	if err := emit(Event{Type: EventStart}); err != nil {
		return err
	}

	var fullContent string
	var outputTokens int64

	streamErr := s.streamer.StreamGenerate(ctx, opts, msgs, func(fragment string) error {
		fullContent += fragment
		outputTokens += EstimateTokens(fragment)
		return emit(Event{Type: EventChunk, Content: fragment})
	})

	metrics.GenerationDuration.WithLabelValues(provider).Observe(time.Since(startedAt).Seconds())

	if streamErr != nil {
		metrics.GenerationTotal.WithLabelValues(provider, "error").Inc()
		metrics.LLMCallTotal.WithLabelValues(provider, opts.Model, "error").Inc()
		logger.Error(ctx, "chapter generation stream failed", streamErr,
			"novel_id", novel.ID, "provider", provider)
		return emit(Event{Type: EventError, Message: streamErr.Error()})
	}

	inputTokens := EstimateMessageTokens(msgs)
	totalTokens := inputTokens + outputTokens

	metrics.GenerationTotal.WithLabelValues(provider, "success").Inc()
	metrics.GenerationChapterLength.WithLabelValues(provider).Observe(float64(len([]rune(fullContent))))
	metrics.LLMCallTotal.WithLabelValues(provider, opts.Model, "success").Inc()
	metrics.LLMTokensUsed.WithLabelValues(provider, opts.Model, "prompt").Add(float64(inputTokens))
	metrics.LLMTokensUsed.WithLabelValues(provider, opts.Model, "completion").Add(float64(outputTokens))

	chapterNumber, err := s.finalize(ctx, user, novel, req, opts, fullContent, inputTokens, outputTokens)
	if err != nil {
		logger.Error(ctx, "failed to persist generated chapter", err, "novel_id", novel.ID)
		return emit(Event{Type: EventError, Message: "failed to save generated chapter"})
	}

	logger.Info(ctx, "chapter generated",
		"novel_id", novel.ID,
		"chapter_number", chapterNumber,
		"tokens_used", totalTokens,
		"provider", provider,
	)

	return emit(Event{Type: EventDone, TokensUsed: totalTokens, ChapterNumber: chapterNumber})
}

// finalize 在事务内分配章节号并落库。
// 小说行锁串行化并发生成，保证章节号连续且不冲突。
func (s *Service) finalize(ctx context.Context, user *entity.User, novel *entity.Novel, req *Request, opts ai.Options, content string, inputTokens, outputTokens int64) (int, error) {
	var chapterNumber int

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.novelRepo.GetByIDForUpdate(txCtx, novel.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperrors.ErrNovelNotFound
		}

		chapterNumber, err = s.chapterRepo.NextChapterNumber(txCtx, novel.ID)
		if err != nil {
			return err
		}

		chapter := &entity.Chapter{
			ID:            uuid.NewString(),
			NovelID:       novel.ID,
			ChapterNumber: chapterNumber,
			PromptUsed:    req.Prompt,
			TokensUsed:    inputTokens + outputTokens,
			Provider:      string(opts.Provider),
			Model:         opts.Model,
			Temperature:   opts.Temperature,
		}
		chapter.SetContent(content)

		if err := s.chapterRepo.Create(txCtx, chapter); err != nil {
			return err
		}

		return s.usageRepo.Create(txCtx, &entity.UsageLog{
			ID:               uuid.NewString(),
			UserID:           user.ID,
			NovelID:          novel.ID,
			ChapterID:        chapter.ID,
			Provider:         string(opts.Provider),
			Model:            opts.Model,
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		})
	})
	if err != nil {
		return 0, err
	}
	return chapterNumber, nil
}

// resolveOptions 解析本次调用的 Provider 配置。
// 用户启用的自带配置优先，解密失败视为配置损坏；
// 否则回退服务端默认配置，两者皆缺时拒绝请求。
func (s *Service) resolveOptions(ctx context.Context, userID string, temperature float64) (ai.Options, error) {
	userCfg, err := s.configRepo.GetByUser(ctx, userID)
	if err != nil {
		return ai.Options{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load api config")
	}

	if userCfg != nil && userCfg.IsActive && userCfg.APIKeyEncrypted != "" {
		apiKey, err := s.cipher.Decrypt(userCfg.APIKeyEncrypted)
		if err != nil {
			return ai.Options{}, apperrors.Wrap(err, apperrors.CodeInternalError, "stored api key is corrupted")
		}
		return ai.Options{
			Provider:    ai.Provider(userCfg.Provider),
			APIKey:      apiKey,
			BaseURL:     userCfg.BaseURL,
			Model:       userCfg.Model,
			Temperature: temperature,
			MaxTokens:   s.aiCfg.MaxTokens,
		}, nil
	}

	if s.aiCfg.DefaultAPIKey == "" {
		return ai.Options{}, apperrors.ErrProviderNotSet
	}

	return ai.Options{
		Provider:    ai.Provider(s.aiCfg.DefaultProvider),
		APIKey:      s.aiCfg.DefaultAPIKey,
		BaseURL:     s.aiCfg.DefaultBaseURL,
		Model:       s.aiCfg.DefaultModel,
		Temperature: temperature,
		MaxTokens:   s.aiCfg.MaxTokens,
	}, nil
}
