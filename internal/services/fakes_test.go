package services

import (
	"context"
	"sync"

	"github.com/Corphon/SceneForge/internal/llm"
	"github.com/Corphon/SceneForge/internal/models"
)

// fakeInvoker 按顺序返回预设结果
type fakeInvoker struct {
	mu        sync.Mutex
	responses []string
	err       error
	respond   func(req llm.CompletionRequest) string
	requests  []llm.CompletionRequest
	settings  llm.ProviderSettings
}

func newFakeInvoker(responses ...string) *fakeInvoker {
	return &fakeInvoker{
		responses: responses,
		settings: llm.ProviderSettings{
			Name:         "openai",
			DefaultModel: "gpt-4o-mini",
			Pool:         llm.NewCredentialPool("openai", []string{"sk-a", "sk-b"}),
		},
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, provider string, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if f.respond != nil {
		return f.respond(req), nil
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	text := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return text, nil
}

func (f *fakeInvoker) DefaultProvider() string { return f.settings.Name }

func (f *fakeInvoker) Settings(name string) (llm.ProviderSettings, bool) {
	if name == "" || name == f.settings.Name {
		return f.settings, true
	}
	return llm.ProviderSettings{}, false
}

func (f *fakeInvoker) lastRequest() llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return llm.CompletionRequest{}
	}
	return f.requests[len(f.requests)-1]
}

// recordingNotifier 记录收到的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyProjectUpdate(event string, project *models.Project) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
