package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/Corphon/SceneForge/internal/utils"
)

// scriptedOutcome 某个密钥调用时的预设结果
type scriptedOutcome struct {
	text string
	err  error
}

// fakeBackend 记录每次调用使用的密钥
type fakeBackend struct {
	outcomes map[string]scriptedOutcome
	calls    []string
	models   []string
}

type fakeProvider struct {
	backend *fakeBackend
	key     string
}

func (p *fakeProvider) Initialize(config map[string]string) error {
	p.key = config["api_key"]
	return nil
}

func (p *fakeProvider) GetName() string { return "fake" }

func (p *fakeProvider) GetSupportedModels() []string { return []string{"fake-model"} }

func (p *fakeProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.backend.calls = append(p.backend.calls, p.key)
	p.backend.models = append(p.backend.models, req.Model)
	out := p.backend.outcomes[p.key]
	if out.err != nil {
		return nil, out.err
	}
	return &CompletionResponse{Text: out.text}, nil
}

func newTestEngine(keys []string, outcomes map[string]scriptedOutcome) (*Engine, *fakeBackend) {
	utils.GetLogger().SetOutput(io.Discard)

	backend := &fakeBackend{outcomes: outcomes}
	registry := NewRegistry()
	registry.Register("fake", func() Provider { return &fakeProvider{backend: backend} })

	engine := NewEngine(registry, "fake", ProviderSettings{
		Name:         "fake",
		DefaultModel: "fake-model",
		Pool:         NewCredentialPool("fake", keys),
	})
	return engine, backend
}

func status(code int) error {
	return &APIError{Provider: "fake", StatusCode: code, Message: "scripted"}
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("调用顺序错误: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("调用顺序错误: got %v, want %v", got, want)
		}
	}
}

func TestInvokeFallsBackInOrder(t *testing.T) {
	engine, backend := newTestEngine([]string{"A", "B", "C"}, map[string]scriptedOutcome{
		"A": {err: status(401)},
		"B": {err: status(429)},
		"C": {text: "  result from C  "},
	})

	text, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("不应返回错误: %v", err)
	}
	if text != "result from C" {
		t.Errorf("文本错误: %q", text)
	}
	assertCalls(t, backend.calls, "A", "B", "C")
}

func TestInvokeFatalAbortsImmediately(t *testing.T) {
	for _, code := range []int{400, 403, 404} {
		engine, backend := newTestEngine([]string{"A", "B"}, map[string]scriptedOutcome{
			"A": {err: status(code)},
			"B": {text: "never"},
		})

		_, err := engine.Invoke(context.Background(), "fake", CompletionRequest{Prompt: "hi"})
		if !errors.Is(err, ErrFatal) {
			t.Fatalf("状态码 %d 应返回 ErrFatal, got %v", code, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != code {
			t.Errorf("应保留原始 APIError, got %v", err)
		}
		assertCalls(t, backend.calls, "A")
	}
}

func TestInvokeSingleUnauthorizedIsAuthExhausted(t *testing.T) {
	engine, backend := newTestEngine([]string{"A"}, map[string]scriptedOutcome{
		"A": {err: status(401)},
	})

	_, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAuthExhausted) {
		t.Fatalf("应返回 ErrAuthExhausted, got %v", err)
	}
	if errors.Is(err, ErrAllCredentialsFailed) {
		t.Error("不应同时匹配 ErrAllCredentialsFailed")
	}
	assertCalls(t, backend.calls, "A")
}

func TestInvokeTransientExhaustion(t *testing.T) {
	last := status(503)
	engine, backend := newTestEngine([]string{"A", "B", "C"}, map[string]scriptedOutcome{
		"A": {err: status(401)},
		"B": {text: "   "},
		"C": {err: last},
	})

	_, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAllCredentialsFailed) {
		t.Fatalf("应返回 ErrAllCredentialsFailed, got %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("应携带最后一次瞬时错误, got %v", err)
	}
	var invErr *InvocationError
	if !errors.As(err, &invErr) || invErr.Attempts != 3 {
		t.Errorf("尝试次数错误: %+v", invErr)
	}
	assertCalls(t, backend.calls, "A", "B", "C")
}

func TestInvokeNetworkErrorIsTransient(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	engine, backend := newTestEngine([]string{"A", "B"}, map[string]scriptedOutcome{
		"A": {err: netErr},
		"B": {text: "ok"},
	})

	text, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if err != nil || text != "ok" {
		t.Fatalf("网络错误应切换到下一个密钥: %q %v", text, err)
	}
	assertCalls(t, backend.calls, "A", "B")
}

func TestInvokeUnclassifiedPropagatesUnmodified(t *testing.T) {
	boom := errors.New("boom")
	engine, backend := newTestEngine([]string{"A", "B"}, map[string]scriptedOutcome{
		"A": {err: boom},
		"B": {text: "never"},
	})

	_, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if err != boom {
		t.Fatalf("未分类错误应原样返回, got %v", err)
	}
	assertCalls(t, backend.calls, "A")

	engine, _ = newTestEngine([]string{"A", "B"}, map[string]scriptedOutcome{
		"A": {err: status(409)},
	})
	_, err = engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || errors.Is(err, ErrFatal) {
		t.Fatalf("409 应原样返回, got %v", err)
	}
}

func TestInvokeNoCredentials(t *testing.T) {
	engine, _ := newTestEngine(nil, nil)
	_, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("应返回 ErrNoCredentials, got %v", err)
	}
}

func TestInvokeUnknownProvider(t *testing.T) {
	engine, _ := newTestEngine([]string{"A"}, nil)
	_, err := engine.Invoke(context.Background(), "nope", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("应返回 ErrUnknownProvider, got %v", err)
	}
}

func TestInvokeCancelledContext(t *testing.T) {
	engine, backend := newTestEngine([]string{"A"}, map[string]scriptedOutcome{"A": {text: "ok"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Invoke(ctx, "", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回 context.Canceled, got %v", err)
	}
	if len(backend.calls) != 0 {
		t.Errorf("取消后不应发起调用: %v", backend.calls)
	}
}

func TestInvokeDefaultsModel(t *testing.T) {
	engine, backend := newTestEngine([]string{"A"}, map[string]scriptedOutcome{"A": {text: "ok"}})

	if _, err := engine.Generate(context.Background(), "hi", ""); err != nil {
		t.Fatalf("Generate 失败: %v", err)
	}
	if _, err := engine.Generate(context.Background(), "hi", "custom"); err != nil {
		t.Fatalf("Generate 失败: %v", err)
	}
	if backend.models[0] != "fake-model" || backend.models[1] != "custom" {
		t.Errorf("模型默认值错误: %v", backend.models)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]FailureClass{
		400: Fatal,
		401: AuthInvalid,
		403: Fatal,
		404: Fatal,
		409: Unclassified,
		429: Transient,
		500: Transient,
		503: Transient,
		599: Transient,
	}
	for code, want := range cases {
		if got := ClassifyStatus(code); got != want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestParseCredentials(t *testing.T) {
	keys := ParseCredentials(" sk-one, ,bad-key,sk-proj-two ,", "sk-")
	if len(keys) != 2 || keys[0] != "sk-one" || keys[1] != "sk-proj-two" {
		t.Fatalf("前缀过滤错误: %v", keys)
	}

	keys = ParseCredentials("a,b , c")
	if len(keys) != 3 || keys[2] != "c" {
		t.Fatalf("解析错误: %v", keys)
	}
}

func TestCredentialPoolIsImmutable(t *testing.T) {
	source := []string{"A", "B"}
	pool := NewCredentialPool("fake", source)
	source[0] = "X"

	keys := pool.Keys()
	keys[1] = "Y"

	again := pool.Keys()
	if again[0] != "A" || again[1] != "B" {
		t.Fatalf("密钥池被外部修改: %v", again)
	}
}

func TestInvokeLogsKeyIndexOnly(t *testing.T) {
	engine, _ := newTestEngine([]string{"sk-first-secret", "sk-second-secret"}, map[string]scriptedOutcome{
		"sk-first-secret":  {err: status(401)},
		"sk-second-secret": {err: status(503)},
	})

	var buf bytes.Buffer
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.INFO)
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(io.Discard) })

	_, err := engine.Invoke(context.Background(), "", CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAllCredentialsFailed) {
		t.Fatalf("应返回 ErrAllCredentialsFailed, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "key=1/2") || !strings.Contains(out, "key=2/2") {
		t.Errorf("日志缺少密钥序号: %s", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("日志泄露了密钥: %s", out)
	}
}
