package generation

import (
	"strings"
	"testing"

	"novelforge-api/internal/domain/entity"
)

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(PromptInput{
		Prompt:   "主角进入秘境",
		Genre:    "玄幻",
		Style:    "热血",
		Synopsis: "少年逆天改命的故事",
		RecentChapters: []*entity.Chapter{
			{ChapterNumber: 5, Content: "第五章内容"},
			{ChapterNumber: 4, Content: "第四章内容"},
			{ChapterNumber: 3, Content: "第三章内容"},
		},
		PreviousContext: "延续上章悬念",
	})

	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "专业网络小说作家") {
		t.Fatalf("system message = %+v", msgs[0])
	}

	user := msgs[1].Content
	for _, want := range []string{
		"小说类型：玄幻",
		"写作风格：热血",
		"小说简介：少年逆天改命的故事",
		"前文概要：",
		"续写要求：延续上章悬念",
		"请根据以下要求创作新章节：\n主角进入秘境",
	} {
		if !strings.Contains(user, want) {
			t.Fatalf("user message missing %q:\n%s", want, user)
		}
	}

	// 前文概要按章节号升序排列，使用真实章节号
	i3 := strings.Index(user, "第3章：第三章内容")
	i4 := strings.Index(user, "第4章：第四章内容")
	i5 := strings.Index(user, "第5章：第五章内容")
	if i3 < 0 || i4 < 0 || i5 < 0 {
		t.Fatalf("chapter labels missing:\n%s", user)
	}
	if !(i3 < i4 && i4 < i5) {
		t.Fatalf("chapters not in ascending order: %d %d %d", i3, i4, i5)
	}
}

func TestBuildMessagesDefaults(t *testing.T) {
	msgs := BuildMessages(PromptInput{Prompt: "开篇"})
	user := msgs[1].Content

	if !strings.Contains(user, "小说类型：未指定") {
		t.Fatalf("missing default genre:\n%s", user)
	}
	for _, absent := range []string{"写作风格：", "小说简介：", "前文概要：", "续写要求："} {
		if strings.Contains(user, absent) {
			t.Fatalf("unexpected section %q for empty input:\n%s", absent, user)
		}
	}
}

func TestBuildMessagesChapterPreviewTruncated(t *testing.T) {
	long := strings.Repeat("字", 800)
	msgs := BuildMessages(PromptInput{
		Prompt:         "继续",
		RecentChapters: []*entity.Chapter{{ChapterNumber: 1, Content: long}},
	})

	user := msgs[1].Content
	if strings.Contains(user, long) {
		t.Fatal("chapter content not truncated")
	}
	if !strings.Contains(user, strings.Repeat("字", 500)+"...") {
		t.Fatal("preview should keep first 500 runes")
	}
}

func TestBuildMessagesDoesNotMutateInput(t *testing.T) {
	chapters := []*entity.Chapter{
		{ChapterNumber: 2, Content: "b"},
		{ChapterNumber: 1, Content: "a"},
	}
	BuildMessages(PromptInput{Prompt: "x", RecentChapters: chapters})

	if chapters[0].ChapterNumber != 2 {
		t.Fatal("input slice reordered")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"字", 1},
		{"两字", 1},
		{"三个字", 2},
		{"abcd", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateMessageTokens(t *testing.T) {
	msgs := BuildMessages(PromptInput{Prompt: "测试"})
	var want int64
	for _, m := range msgs {
		want += EstimateTokens(m.Content)
	}
	if got := EstimateMessageTokens(msgs); got != want {
		t.Fatalf("EstimateMessageTokens = %d, want %d", got, want)
	}
}
