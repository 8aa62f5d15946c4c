package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chunkLine(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":"%s"}}]}`, content)
}

func TestStreamGenerate(t *testing.T) {
	srv := sseServer(t, []string{
		chunkLine("第一"),
		"",
		chunkLine("章"),
		"event: done",
		"data: [DONE]",
	})

	client := NewStreamClient()
	opts := Options{Provider: ProviderCustom, APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"}

	var got []string
	err := client.StreamGenerate(context.Background(), opts, []Message{{Role: "user", Content: "hi"}}, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamGenerate error: %v", err)
	}
	if strings.Join(got, "") != "第一章" {
		t.Fatalf("fragments = %v, want 第一章", got)
	}
}

func TestStreamGenerateSkipsMalformedLines(t *testing.T) {
	srv := sseServer(t, []string{
		"data: {broken json",
		chunkLine("ok"),
		"data: [DONE]",
	})

	client := NewStreamClient()
	opts := Options{Provider: ProviderCustom, BaseURL: srv.URL}

	var got []string
	err := client.StreamGenerate(context.Background(), opts, nil, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamGenerate error: %v", err)
	}
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("fragments = %v, want [ok]", got)
	}
}

func TestStreamGenerateEOFWithoutDone(t *testing.T) {
	// 上游未发送结束标记直接关闭连接，视为正常结束
	srv := sseServer(t, []string{
		chunkLine("片段"),
	})

	client := NewStreamClient()
	opts := Options{Provider: ProviderCustom, BaseURL: srv.URL}

	var got []string
	err := client.StreamGenerate(context.Background(), opts, nil, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamGenerate error: %v", err)
	}
	if len(got) != 1 || got[0] != "片段" {
		t.Fatalf("fragments = %v, want [片段]", got)
	}
}

func TestStreamGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	client := NewStreamClient()
	opts := Options{Provider: ProviderCustom, BaseURL: srv.URL}

	err := client.StreamGenerate(context.Background(), opts, nil, func(string) error { return nil })

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("StatusCode = %d, want 401", upErr.StatusCode)
	}
	if !strings.Contains(upErr.Body, "invalid api key") {
		t.Fatalf("Body = %q, want upstream message", upErr.Body)
	}
}

func TestStreamGenerateCallbackErrorAborts(t *testing.T) {
	srv := sseServer(t, []string{
		chunkLine("a"),
		chunkLine("b"),
		"data: [DONE]",
	})

	client := NewStreamClient()
	opts := Options{Provider: ProviderCustom, BaseURL: srv.URL}

	sentinel := errors.New("client gone")
	var calls int
	err := client.StreamGenerate(context.Background(), opts, nil, func(string) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
}

func TestStreamGenerateUnsupportedProvider(t *testing.T) {
	client := NewStreamClient()
	err := client.StreamGenerate(context.Background(), Options{Provider: "gemini"}, nil, func(string) error { return nil })

	var unsupported *ErrUnsupportedProvider
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want *ErrUnsupportedProvider", err)
	}
}

func TestConsumeStreamSplitAcrossReads(t *testing.T) {
	// SSE 行可能在读缓冲边界被截断，残余字节须跨轮拼接
	client := NewStreamClient()
	line := chunkLine("跨块内容") + "\ndata: [DONE]\n"
	reader := &dribbleReader{data: []byte(line), step: 7}

	var got []string
	err := client.consumeStream(context.Background(), reader, &openAIAdapter{}, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("consumeStream error: %v", err)
	}
	if strings.Join(got, "") != "跨块内容" {
		t.Fatalf("fragments = %v, want 跨块内容", got)
	}
}

// dribbleReader 每次只返回少量字节，模拟网络分片
type dribbleReader struct {
	data []byte
	pos  int
	step int
}

func (r *dribbleReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.step
	if n > len(r.data)-r.pos {
		n = len(r.data) - r.pos
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}
