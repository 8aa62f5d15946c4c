package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"novelforge-api/internal/application/quota"
	"novelforge-api/internal/config"
	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/domain/repository"
	"novelforge-api/internal/infrastructure/ai"
	apperrors "novelforge-api/pkg/errors"
	"novelforge-api/pkg/utils"
)

type fakeNovelRepo struct {
	novels map[string]*entity.Novel
}

func (f *fakeNovelRepo) Create(ctx context.Context, novel *entity.Novel) error { return nil }

func (f *fakeNovelRepo) GetByID(ctx context.Context, id string) (*entity.Novel, error) {
	return f.novels[id], nil
}

func (f *fakeNovelRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Novel, error) {
	return f.novels[id], nil
}

func (f *fakeNovelRepo) Update(ctx context.Context, novel *entity.Novel) error { return nil }
func (f *fakeNovelRepo) Delete(ctx context.Context, id string) error           { return nil }

func (f *fakeNovelRepo) ListByUser(ctx context.Context, userID string, filter *repository.NovelFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	return nil, nil
}

type fakeChapterRepo struct {
	recent  []*entity.Chapter
	created []*entity.Chapter
	next    int
}

func (f *fakeChapterRepo) Create(ctx context.Context, chapter *entity.Chapter) error {
	f.created = append(f.created, chapter)
	return nil
}

func (f *fakeChapterRepo) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	return nil, nil
}

func (f *fakeChapterRepo) Update(ctx context.Context, chapter *entity.Chapter) error { return nil }
func (f *fakeChapterRepo) Delete(ctx context.Context, id string) error               { return nil }

func (f *fakeChapterRepo) ListByNovel(ctx context.Context, novelID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	return nil, nil
}

func (f *fakeChapterRepo) GetRecent(ctx context.Context, novelID string, limit int) ([]*entity.Chapter, error) {
	return f.recent, nil
}

func (f *fakeChapterRepo) CountByNovels(ctx context.Context, novelIDs []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (f *fakeChapterRepo) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	f.next++
	return f.next, nil
}

type fakeUsageRepo struct {
	used    int64
	created []*entity.UsageLog
}

func (f *fakeUsageRepo) Create(ctx context.Context, log *entity.UsageLog) error {
	f.created = append(f.created, log)
	return nil
}

func (f *fakeUsageRepo) SumTokensSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return f.used, nil
}

func (f *fakeUsageRepo) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageLog], error) {
	return nil, nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return nil, nil
}

func (fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, nil
}

func (fakeUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return nil, nil
}

func (fakeUserRepo) Update(ctx context.Context, user *entity.User) error  { return nil }
func (fakeUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

type fakeConfigRepo struct {
	config *entity.UserApiConfig
}

func (f *fakeConfigRepo) Upsert(ctx context.Context, config *entity.UserApiConfig) error { return nil }

func (f *fakeConfigRepo) GetByUser(ctx context.Context, userID string) (*entity.UserApiConfig, error) {
	return f.config, nil
}

func (f *fakeConfigRepo) DeleteByUser(ctx context.Context, userID string) error { return nil }

// fakeTxManager 直接执行回调，不开真实事务
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeStreamer 回放预设片段
type fakeStreamer struct {
	fragments []string
	err       error
	lastOpts  ai.Options
	lastMsgs  []ai.Message
}

func (f *fakeStreamer) StreamGenerate(ctx context.Context, opts ai.Options, msgs []ai.Message, onFragment func(string) error) error {
	f.lastOpts = opts
	f.lastMsgs = msgs
	for _, fragment := range f.fragments {
		if err := onFragment(fragment); err != nil {
			return err
		}
	}
	return f.err
}

type fixture struct {
	novelRepo   *fakeNovelRepo
	chapterRepo *fakeChapterRepo
	usageRepo   *fakeUsageRepo
	configRepo  *fakeConfigRepo
	streamer    *fakeStreamer
	cipher      *utils.APIKeyCipher
	service     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := utils.NewAPIKeyCipher("test-cipher-secret")
	if err != nil {
		t.Fatalf("NewAPIKeyCipher: %v", err)
	}

	f := &fixture{
		novelRepo:   &fakeNovelRepo{novels: map[string]*entity.Novel{}},
		chapterRepo: &fakeChapterRepo{},
		usageRepo:   &fakeUsageRepo{},
		configRepo:  &fakeConfigRepo{},
		streamer:    &fakeStreamer{fragments: []string{"第一段", "第二段"}},
		cipher:      cipher,
	}

	aiCfg := &config.AIConfig{
		DefaultProvider: "kimi",
		DefaultAPIKey:   "sk-server",
		DefaultModel:    "moonshot-v1-128k",
		MaxTokens:       4096,
	}

	f.service = NewService(
		f.novelRepo,
		f.chapterRepo,
		f.usageRepo,
		f.configRepo,
		fakeTxManager{},
		quota.NewTracker(f.usageRepo, fakeUserRepo{}),
		f.streamer,
		cipher,
		aiCfg,
	)
	return f
}

func (f *fixture) addNovel(id, userID string) *entity.Novel {
	novel := &entity.Novel{ID: id, UserID: userID, Title: "测试小说", Genre: "玄幻", Description: "简介"}
	f.novelRepo.novels[id] = novel
	return novel
}

func collectEvents(events *[]Event) func(Event) error {
	return func(e Event) error {
		*events = append(*events, e)
		return nil
	}
}

func testGenUser() *entity.User {
	return &entity.User{ID: "user-1", DailyQuota: 50000}
}

func TestGenerateHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")
	f.chapterRepo.next = 4 // 已有 4 章

	var events []Event
	err := f.service.Generate(context.Background(), testGenUser(), &Request{
		NovelID:     "novel-1",
		Prompt:      "主角突破",
		Temperature: 0.7,
	}, collectEvents(&events))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("events = %+v, want start/chunk/chunk/done", events)
	}
	if events[0].Type != EventStart {
		t.Fatalf("first event = %s, want start", events[0].Type)
	}
	if events[1].Content != "第一段" || events[2].Content != "第二段" {
		t.Fatalf("chunk events = %+v", events[1:3])
	}

	done := events[3]
	if done.Type != EventDone {
		t.Fatalf("last event = %s, want done", done.Type)
	}
	if done.ChapterNumber != 5 {
		t.Fatalf("ChapterNumber = %d, want 5", done.ChapterNumber)
	}
	if done.TokensUsed <= 0 {
		t.Fatalf("TokensUsed = %d, want > 0", done.TokensUsed)
	}

	// 章节与用量记录在同一事务落库
	if len(f.chapterRepo.created) != 1 {
		t.Fatalf("chapters created = %d, want 1", len(f.chapterRepo.created))
	}
	chapter := f.chapterRepo.created[0]
	if chapter.Content != "第一段第二段" {
		t.Fatalf("chapter content = %q", chapter.Content)
	}
	if chapter.ChapterNumber != 5 {
		t.Fatalf("chapter number = %d, want 5", chapter.ChapterNumber)
	}
	if chapter.WordCount != len([]rune(chapter.Content)) {
		t.Fatalf("word count = %d", chapter.WordCount)
	}

	if len(f.usageRepo.created) != 1 {
		t.Fatalf("usage logs = %d, want 1", len(f.usageRepo.created))
	}
	usage := f.usageRepo.created[0]
	if usage.TotalTokens != done.TokensUsed {
		t.Fatalf("usage total = %d, done event = %d", usage.TotalTokens, done.TokensUsed)
	}
	if usage.ChapterID != chapter.ID {
		t.Fatal("usage log not linked to chapter")
	}
}

func TestGenerateQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")
	f.usageRepo.used = 50000

	var events []Event
	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&events))

	if err != apperrors.ErrQuotaExceeded {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}
	// 配额拒绝发生在流开始前，不产生任何事件
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestGenerateForeignNovelNotFound(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "other-user")

	var events []Event
	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&events))

	// 他人小说与不存在的小说同样返回 not found
	if err != apperrors.ErrNovelNotFound {
		t.Fatalf("error = %v, want ErrNovelNotFound", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestGenerateMissingNovel(t *testing.T) {
	f := newFixture(t)

	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "absent", Prompt: "x"}, collectEvents(&[]Event{}))
	if err != apperrors.ErrNovelNotFound {
		t.Fatalf("error = %v, want ErrNovelNotFound", err)
	}
}

func TestGenerateProviderNotSet(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")
	f.service.aiCfg.DefaultAPIKey = ""

	var events []Event
	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&events))

	if err != apperrors.ErrProviderNotSet {
		t.Fatalf("error = %v, want ErrProviderNotSet", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestGenerateUsesActiveUserConfig(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")

	encrypted, err := f.cipher.Encrypt("sk-user-own")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	f.configRepo.config = &entity.UserApiConfig{
		UserID:          "user-1",
		Provider:        "anthropic",
		APIKeyEncrypted: encrypted,
		Model:           "claude-sonnet-4",
		IsActive:        true,
	}

	if err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x", Temperature: 0.9}, collectEvents(&[]Event{})); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	opts := f.streamer.lastOpts
	if opts.Provider != ai.ProviderAnthropic {
		t.Fatalf("provider = %s, want anthropic", opts.Provider)
	}
	if opts.APIKey != "sk-user-own" {
		t.Fatalf("api key = %q, want decrypted user key", opts.APIKey)
	}
	if opts.Model != "claude-sonnet-4" {
		t.Fatalf("model = %q", opts.Model)
	}
	if opts.Temperature != 0.9 {
		t.Fatalf("temperature = %v", opts.Temperature)
	}
}

func TestGenerateInactiveConfigFallsBack(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")

	encrypted, _ := f.cipher.Encrypt("sk-user-own")
	f.configRepo.config = &entity.UserApiConfig{
		UserID:          "user-1",
		Provider:        "openai",
		APIKeyEncrypted: encrypted,
		IsActive:        false,
	}

	if err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&[]Event{})); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if f.streamer.lastOpts.APIKey != "sk-server" {
		t.Fatalf("api key = %q, want server default", f.streamer.lastOpts.APIKey)
	}
}

func TestGenerateCorruptedUserKey(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")
	f.configRepo.config = &entity.UserApiConfig{
		UserID:          "user-1",
		Provider:        "openai",
		APIKeyEncrypted: "not-valid-ciphertext",
		IsActive:        true,
	}

	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&[]Event{}))
	if err == nil {
		t.Fatal("expected error for corrupted key")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInternalError {
		t.Fatalf("code = %s, want internal error", appErr.Code)
	}
}

func TestGenerateStreamErrorBecomesErrorEvent(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")
	f.streamer.fragments = []string{"部分内容"}
	f.streamer.err = errors.New("upstream returned status 500")

	var events []Event
	err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&events))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if !strings.Contains(last.Message, "upstream") {
		t.Fatalf("error message = %q", last.Message)
	}

	// 失败的生成不落库
	if len(f.chapterRepo.created) != 0 {
		t.Fatalf("chapters created = %d, want 0", len(f.chapterRepo.created))
	}
	if len(f.usageRepo.created) != 0 {
		t.Fatalf("usage logs = %d, want 0", len(f.usageRepo.created))
	}
}

func TestGenerateSequentialChapterNumbers(t *testing.T) {
	f := newFixture(t)
	f.addNovel("novel-1", "user-1")

	for want := 1; want <= 3; want++ {
		var events []Event
		if err := f.service.Generate(context.Background(), testGenUser(), &Request{NovelID: "novel-1", Prompt: "x"}, collectEvents(&events)); err != nil {
			t.Fatalf("Generate #%d error: %v", want, err)
		}
		done := events[len(events)-1]
		if done.Type != EventDone || done.ChapterNumber != want {
			t.Fatalf("generation #%d done event = %+v", want, done)
		}
	}
}
