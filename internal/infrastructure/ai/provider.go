// Package ai 提供多 Provider 的流式文本生成客户端
package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Provider AI 服务提供方
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderKimi      Provider = "kimi"
	ProviderAnthropic Provider = "anthropic"
	ProviderCustom    Provider = "custom"
)

// ErrUnsupportedProvider 不支持的 Provider
type ErrUnsupportedProvider struct {
	Provider Provider
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported ai provider: %s", e.Provider)
}

// defaultBaseURLs 各 Provider 的默认接入点。custom 必须显式提供 BaseURL。
var defaultBaseURLs = map[Provider]string{
	ProviderOpenAI:    "https://api.openai.com/v1",
	ProviderKimi:      "https://api.moonshot.cn/v1",
	ProviderAnthropic: "https://api.anthropic.com/v1",
	ProviderCustom:    "",
}

// ResolveBaseURL 解析 Provider 的接入点，显式配置优先于默认值
func ResolveBaseURL(provider Provider, baseURL string) (string, error) {
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/"), nil
	}
	preset, ok := defaultBaseURLs[provider]
	if !ok {
		return "", &ErrUnsupportedProvider{Provider: provider}
	}
	if preset == "" {
		return "", fmt.Errorf("provider %s requires an explicit base_url", provider)
	}
	return preset, nil
}

// IsValidProvider 检查 Provider 是否受支持
func IsValidProvider(provider Provider) bool {
	_, ok := defaultBaseURLs[provider]
	return ok
}

// Message 对话消息
type Message struct {
	Role    string `json:"role"` // system / user / assistant
	Content string `json:"content"`
}

// Options 一次生成调用的参数
type Options struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// adapter 屏蔽各 Provider 的协议差异：
// 接入路径、鉴权头、请求体编码和流式增量的解析。
type adapter interface {
	// endpoint 拼接完整请求地址
	endpoint(baseURL string) string

	// apply 设置鉴权及协议相关请求头
	apply(req *http.Request, apiKey string)

	// buildBody 编码请求体
	buildBody(msgs []Message, opts Options) ([]byte, error)

	// parseChunk 解析一条 SSE data 载荷，返回文本增量；
	// done 为 true 表示流正常结束，格式错误的载荷返回空串跳过
	parseChunk(data []byte) (fragment string, done bool)
}

// adapterFor 选择 Provider 对应的协议适配器。
// kimi 与 custom 均为 OpenAI 兼容协议。
func adapterFor(provider Provider) (adapter, error) {
	switch provider {
	case ProviderOpenAI, ProviderKimi, ProviderCustom:
		return &openAIAdapter{}, nil
	case ProviderAnthropic:
		return &anthropicAdapter{}, nil
	default:
		return nil, &ErrUnsupportedProvider{Provider: provider}
	}
}

// openAIAdapter OpenAI Chat Completions 兼容协议
type openAIAdapter struct{}

func (a *openAIAdapter) endpoint(baseURL string) string {
	return baseURL + "/chat/completions"
}

func (a *openAIAdapter) apply(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

func (a *openAIAdapter) buildBody(msgs []Message, opts Options) ([]byte, error) {
	body := map[string]interface{}{
		"model":       opts.Model,
		"messages":    msgs,
		"temperature": opts.Temperature,
		"stream":      true,
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	return json.Marshal(body)
}

func (a *openAIAdapter) parseChunk(data []byte) (string, bool) {
	if strings.TrimSpace(string(data)) == "[DONE]" {
		return "", true
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chunk); err != nil {
		// 跳过无法解析的载荷
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, false
}

// anthropicAdapter Anthropic Messages 协议
type anthropicAdapter struct{}

func (a *anthropicAdapter) endpoint(baseURL string) string {
	return baseURL + "/messages"
}

func (a *anthropicAdapter) apply(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
}

func (a *anthropicAdapter) buildBody(msgs []Message, opts Options) ([]byte, error) {
	// Anthropic 的 system 提示不在 messages 数组中
	var system string
	chat := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		chat = append(chat, m)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := map[string]interface{}{
		"model":       opts.Model,
		"messages":    chat,
		"temperature": opts.Temperature,
		"max_tokens":  maxTokens,
		"stream":      true,
	}
	if system != "" {
		body["system"] = system
	}
	return json.Marshal(body)
}

func (a *anthropicAdapter) parseChunk(data []byte) (string, bool) {
	var event struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return "", false
	}

	switch event.Type {
	case "content_block_delta":
		return event.Delta.Text, false
	case "message_stop":
		return "", true
	default:
		return "", false
	}
}
