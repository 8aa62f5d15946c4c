// Package generation 提供章节生成编排能力
package generation

import (
	"fmt"
	"sort"
	"strings"

	"novelforge-api/internal/domain/entity"
	"novelforge-api/internal/infrastructure/ai"
)

// systemPrompt 章节生成的系统提示词
const systemPrompt = `你是一位专业网络小说作家，擅长创作吸引读者的长篇连载小说。
要求：
- 情节紧凑，每章都有冲突或转折
- 人物对话生动自然
- 环境描写细腻但不拖沓
- 根据指定风格调整文笔 (玄幻/科幻/言情/悬疑等)
- 每章字数控制在3000-5000字

请直接输出小说内容，不要包含任何解释性文字。`

// chapterPreviewRunes 前文概要中每章截取的长度
const chapterPreviewRunes = 500

// PromptInput 提示词组装输入
type PromptInput struct {
	Prompt          string
	Genre           string
	Style           string
	Synopsis        string
	PreviousContext string
	RecentChapters  []*entity.Chapter
}

// BuildMessages 组装生成调用的消息列表。
// 前文概要按章节号升序排列，每章只取开头片段。
func BuildMessages(input PromptInput) []ai.Message {
	var ctx strings.Builder

	genre := input.Genre
	if genre == "" {
		genre = "未指定"
	}
	fmt.Fprintf(&ctx, "小说类型：%s\n", genre)
	if input.Style != "" {
		fmt.Fprintf(&ctx, "写作风格：%s\n", input.Style)
	}
	if input.Synopsis != "" {
		fmt.Fprintf(&ctx, "小说简介：%s\n", input.Synopsis)
	}

	if len(input.RecentChapters) > 0 {
		chapters := make([]*entity.Chapter, len(input.RecentChapters))
		copy(chapters, input.RecentChapters)
		sort.Slice(chapters, func(i, j int) bool {
			return chapters[i].ChapterNumber < chapters[j].ChapterNumber
		})

		ctx.WriteString("\n前文概要：\n")
		for _, chapter := range chapters {
			fmt.Fprintf(&ctx, "第%d章：%s...\n", chapter.ChapterNumber, previewOf(chapter.Content))
		}
	}

	if input.PreviousContext != "" {
		fmt.Fprintf(&ctx, "\n续写要求：%s\n", input.PreviousContext)
	}

	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n请根据以下要求创作新章节：\n%s", ctx.String(), input.Prompt)},
	}
}

// previewOf 截取章节内容开头片段
func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= chapterPreviewRunes {
		return content
	}
	return string(runes[:chapterPreviewRunes])
}

// EstimateTokens 估算文本的 Token 数。
// 中文为主的文本约两个字符一个 Token，向上取整。
func EstimateTokens(text string) int64 {
	n := len([]rune(text))
	return int64((n + 1) / 2)
}

// EstimateMessageTokens 估算消息列表的 Token 总数
func EstimateMessageTokens(msgs []ai.Message) int64 {
	var total int64
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
