package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"novelforge-api/internal/application/generation"
	"novelforge-api/internal/application/quota"
	"novelforge-api/internal/config"
	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/infrastructure/ai"
	"novelforge-api/pkg/utils"
)

type stubUserRepo struct {
	user *entity.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, nil
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return nil, nil
}

func (s *stubUserRepo) Update(ctx context.Context, user *entity.User) error  { return nil }
func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

type stubNovelRepo struct {
	novel *entity.Novel
}

func (s *stubNovelRepo) Create(ctx context.Context, novel *entity.Novel) error { return nil }

func (s *stubNovelRepo) GetByID(ctx context.Context, id string) (*entity.Novel, error) {
	if s.novel != nil && s.novel.ID == id {
		return s.novel, nil
	}
	return nil, nil
}

func (s *stubNovelRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Novel, error) {
	return s.GetByID(ctx, id)
}

func (s *stubNovelRepo) Update(ctx context.Context, novel *entity.Novel) error { return nil }
func (s *stubNovelRepo) Delete(ctx context.Context, id string) error           { return nil }

func (s *stubNovelRepo) ListByUser(ctx context.Context, userID string, filter *repository.NovelFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	return nil, nil
}

type stubChapterRepo struct {
	next int
}

func (s *stubChapterRepo) Create(ctx context.Context, chapter *entity.Chapter) error { return nil }

func (s *stubChapterRepo) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	return nil, nil
}

func (s *stubChapterRepo) Update(ctx context.Context, chapter *entity.Chapter) error { return nil }
func (s *stubChapterRepo) Delete(ctx context.Context, id string) error               { return nil }

func (s *stubChapterRepo) ListByNovel(ctx context.Context, novelID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	return nil, nil
}

func (s *stubChapterRepo) GetRecent(ctx context.Context, novelID string, limit int) ([]*entity.Chapter, error) {
	return nil, nil
}

func (s *stubChapterRepo) CountByNovels(ctx context.Context, novelIDs []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (s *stubChapterRepo) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	s.next++
	return s.next, nil
}

type stubUsageRepo struct {
	used int64
}

func (s *stubUsageRepo) Create(ctx context.Context, log *entity.UsageLog) error { return nil }

func (s *stubUsageRepo) SumTokensSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return s.used, nil
}

func (s *stubUsageRepo) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageLog], error) {
	return nil, nil
}

type stubConfigRepo struct{}

func (stubConfigRepo) Upsert(ctx context.Context, config *entity.UserApiConfig) error { return nil }

func (stubConfigRepo) GetByUser(ctx context.Context, userID string) (*entity.UserApiConfig, error) {
	return nil, nil
}

func (stubConfigRepo) DeleteByUser(ctx context.Context, userID string) error { return nil }

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type replayStreamer struct {
	fragments []string
}

func (s *replayStreamer) StreamGenerate(ctx context.Context, opts ai.Options, msgs []ai.Message, onFragment func(string) error) error {
	for _, fragment := range s.fragments {
		if err := onFragment(fragment); err != nil {
			return err
		}
	}
	return nil
}

type generateEnv struct {
	userRepo  *stubUserRepo
	usageRepo *stubUsageRepo
	router    *gin.Engine
}

func newGenerateEnv(t *testing.T) *generateEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cipher, err := utils.NewAPIKeyCipher("test-secret")
	if err != nil {
		t.Fatalf("NewAPIKeyCipher: %v", err)
	}

	env := &generateEnv{
		userRepo:  &stubUserRepo{user: &entity.User{ID: "user-1", DailyQuota: 50000}},
		usageRepo: &stubUsageRepo{},
	}

	service := generation.NewService(
		&stubNovelRepo{novel: &entity.Novel{ID: "novel-1", UserID: "user-1", Title: "测试"}},
		&stubChapterRepo{},
		env.usageRepo,
		stubConfigRepo{},
		passthroughTx{},
		quota.NewTracker(env.usageRepo, env.userRepo),
		&replayStreamer{fragments: []string{"内容A", "内容B"}},
		cipher,
		&config.AIConfig{DefaultProvider: "kimi", DefaultAPIKey: "sk-server", DefaultModel: "moonshot-v1-128k"},
	)

	h := NewGenerateHandler(service, env.userRepo)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
	})
	r.POST("/v1/novels/:nid/generate", h.GenerateChapter)
	env.router = r
	return env
}

func postGenerate(r *gin.Engine, novelID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/novels/"+novelID+"/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateChapterStreamsNDJSON(t *testing.T) {
	env := newGenerateEnv(t)

	w := postGenerate(env.router, "novel-1", `{"prompt":"主角突破"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-ndjson") {
		t.Fatalf("Content-Type = %q", ct)
	}

	var events []generation.Event
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var event generation.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("invalid event line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}

	if len(events) != 4 {
		t.Fatalf("events = %+v, want start/chunk/chunk/done", events)
	}
	if events[0].Type != generation.EventStart {
		t.Fatalf("first event = %s", events[0].Type)
	}
	if events[1].Content != "内容A" || events[2].Content != "内容B" {
		t.Fatalf("chunks = %+v", events[1:3])
	}

	done := events[3]
	if done.Type != generation.EventDone || done.ChapterNumber != 1 || done.TokensUsed <= 0 {
		t.Fatalf("done event = %+v", done)
	}
}

func TestGenerateChapterQuotaExceeded(t *testing.T) {
	env := newGenerateEnv(t)
	env.usageRepo.used = 50000

	w := postGenerate(env.router, "novel-1", `{"prompt":"x"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429, body = %s", w.Code, w.Body.String())
	}
	// 配额拒绝返回普通 JSON 错误而非事件流
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestGenerateChapterNovelNotFound(t *testing.T) {
	env := newGenerateEnv(t)

	w := postGenerate(env.router, "absent", `{"prompt":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGenerateChapterValidation(t *testing.T) {
	env := newGenerateEnv(t)

	for name, body := range map[string]string{
		"missing prompt":       `{}`,
		"empty prompt":         `{"prompt":""}`,
		"temperature too high": `{"prompt":"x","temperature":3.0}`,
		"not json":             `prompt`,
	} {
		w := postGenerate(env.router, "novel-1", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestGenerateChapterUnknownUser(t *testing.T) {
	env := newGenerateEnv(t)
	env.userRepo.user = nil

	w := postGenerate(env.router, "novel-1", `{"prompt":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
