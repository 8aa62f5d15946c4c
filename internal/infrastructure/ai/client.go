// Package ai 提供多 Provider 的流式文本生成客户端
package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("ai")

// ssePrefix SSE 数据行前缀
const ssePrefix = "data: "

// maxErrorBodySize 上游错误响应体的最大读取量
const maxErrorBodySize = 4 << 10

// UpstreamError 上游返回非 2xx 状态
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// StreamClient 流式生成客户端。
// 章节生成耗时不可预估，HTTP 客户端不设总超时，取消依赖请求上下文。
type StreamClient struct {
	httpClient *http.Client
}

// NewStreamClient 创建流式生成客户端
func NewStreamClient() *StreamClient {
	return &StreamClient{
		httpClient: &http.Client{},
	}
}

// StreamGenerate 发起流式生成，每个文本增量回调一次 onFragment。
// onFragment 返回错误时中止流并透传该错误。
func (c *StreamClient) StreamGenerate(ctx context.Context, opts Options, msgs []Message, onFragment func(fragment string) error) error {
	ctx, span := tracer.Start(ctx, "ai.StreamGenerate")
	span.SetAttributes(
		attribute.String("ai.provider", string(opts.Provider)),
		attribute.String("ai.model", opts.Model),
	)
	defer span.End()

	adapter, err := adapterFor(opts.Provider)
	if err != nil {
		span.RecordError(err)
		return err
	}

	baseURL, err := ResolveBaseURL(opts.Provider, opts.BaseURL)
	if err != nil {
		span.RecordError(err)
		return err
	}

	body, err := adapter.buildBody(msgs, opts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, adapter.endpoint(baseURL), bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build request: %w", err)
	}
	adapter.apply(req, opts.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		upErr := &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(errBody)),
		}
		span.RecordError(upErr)
		return upErr
	}

	return c.consumeStream(ctx, resp.Body, adapter, onFragment)
}

// consumeStream 逐行消费 SSE 流。
// 读缓冲可能在行中间截断，残余字节保留到下一轮拼接。
func (c *StreamClient) consumeStream(ctx context.Context, body io.Reader, adapter adapter, onFragment func(string) error) error {
	buf := make([]byte, 4096)
	var carry string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			carry += string(buf[:n])

			for {
				idx := strings.IndexByte(carry, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(carry[:idx], "\r")
				carry = carry[idx+1:]

				done, err := c.handleLine(line, adapter, onFragment)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				// 流在未收到结束标记时关闭，残余行照常处理
				if line := strings.TrimRight(carry, "\r"); line != "" {
					if _, err := c.handleLine(line, adapter, onFragment); err != nil {
						return err
					}
				}
				return nil
			}
			return fmt.Errorf("failed to read stream: %w", readErr)
		}
	}
}

// handleLine 处理一行 SSE 数据，返回流是否已结束
func (c *StreamClient) handleLine(line string, adapter adapter, onFragment func(string) error) (bool, error) {
	if !strings.HasPrefix(line, ssePrefix) {
		// 空行、event: 行等直接忽略
		return false, nil
	}

	data := line[len(ssePrefix):]
	fragment, done := adapter.parseChunk([]byte(data))
	if done {
		return true, nil
	}
	if fragment == "" {
		return false, nil
	}

	if err := onFragment(fragment); err != nil {
		return false, err
	}
	return false, nil
}
