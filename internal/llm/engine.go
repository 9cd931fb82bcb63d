// internal/llm/engine.go
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/SceneForge/internal/utils"
)

// ProviderSettings 单个提供者的调用配置
type ProviderSettings struct {
	Name         string
	DefaultModel string
	BaseURL      string
	Pool         *CredentialPool
}

// Engine 按密钥顺序逐个尝试的调用引擎。
// 配置在创建后只读，可被多个请求并发使用。
type Engine struct {
	registry        *Registry
	settings        map[string]ProviderSettings
	defaultProvider string
	logger          *utils.Logger
	metrics         *utils.MetricsCollector
}

// NewEngine 创建调用引擎，registry 为空时使用全局注册表
func NewEngine(registry *Registry, defaultProvider string, settings ...ProviderSettings) *Engine {
	if registry == nil {
		registry = DefaultRegistry
	}

	byName := make(map[string]ProviderSettings, len(settings))
	for _, s := range settings {
		byName[strings.ToLower(s.Name)] = s
	}

	return &Engine{
		registry:        registry,
		settings:        byName,
		defaultProvider: strings.ToLower(defaultProvider),
		logger:          utils.GetLogger(),
		metrics:         utils.GetMetricsCollector(),
	}
}

// DefaultProvider 配置的默认提供者
func (e *Engine) DefaultProvider() string {
	return e.defaultProvider
}

// Settings 返回提供者配置，name 为空时取默认提供者
func (e *Engine) Settings(name string) (ProviderSettings, bool) {
	if name == "" {
		name = e.defaultProvider
	}
	s, ok := e.settings[strings.ToLower(name)]
	return s, ok
}

// Generate 使用默认提供者生成文本
func (e *Engine) Generate(ctx context.Context, prompt, model string) (string, error) {
	return e.Invoke(ctx, "", CompletionRequest{Prompt: prompt, Model: model})
}

// Invoke 依次使用提供者的每个密钥调用，直到拿到非空文本。
//
// 400/403/404 立即终止；401 换下一个密钥，最后一个也被拒绝时返回 ErrAuthExhausted；
// 429/5xx/网络错误/空文本换下一个密钥，全部失败时返回 ErrAllCredentialsFailed；
// 其他错误原样返回。
func (e *Engine) Invoke(ctx context.Context, providerName string, req CompletionRequest) (string, error) {
	settings, ok := e.Settings(providerName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}
	name := strings.ToLower(settings.Name)

	if req.Model == "" {
		req.Model = settings.DefaultModel
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}

	keys := settings.Pool.Keys()
	if len(keys) == 0 {
		return "", &InvocationError{Kind: ErrNoCredentials, Provider: name}
	}

	var lastErr error
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		provider, err := e.registry.GetProvider(name, map[string]string{
			"api_key":       key,
			"default_model": settings.DefaultModel,
			"base_url":      settings.BaseURL,
		})
		if err != nil {
			return "", err
		}

		start := time.Now()
		text, err := complete(ctx, provider, req)
		if err == nil {
			e.metrics.RecordLLMAttempt(name, "", time.Since(start))
			return text, nil
		}

		// 调用方取消或超时，直接放弃剩余密钥
		if ctx.Err() != nil {
			return "", err
		}

		class := Classify(err)
		e.metrics.RecordLLMAttempt(name, class.String(), time.Since(start))

		switch class {
		case Fatal:
			return "", &InvocationError{Kind: ErrFatal, Provider: name, Attempts: i + 1, Err: err}

		case AuthInvalid:
			e.logger.Warn("API密钥被拒绝", map[string]interface{}{
				"provider": name,
				"key":      fmt.Sprintf("%d/%d", i+1, len(keys)),
			})
			if i == len(keys)-1 {
				return "", &InvocationError{Kind: ErrAuthExhausted, Provider: name, Attempts: i + 1, Err: err}
			}
			lastErr = err

		case Transient:
			e.logger.Warn("API调用失败，尝试下一个密钥", map[string]interface{}{
				"provider": name,
				"key":      fmt.Sprintf("%d/%d", i+1, len(keys)),
				"error":    err.Error(),
			})
			lastErr = err

		default:
			return "", err
		}
	}

	return "", &InvocationError{Kind: ErrAllCredentialsFailed, Provider: name, Attempts: len(keys), Err: lastErr}
}

func complete(ctx context.Context, provider Provider, req CompletionRequest) (string, error) {
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
