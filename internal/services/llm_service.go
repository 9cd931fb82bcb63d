// internal/services/llm_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/llm"
	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/utils"
)

const (
	scriptWriterPrompt = "You are a professional YouTube Shorts script writer. runId=%s. Do NOT output the runId."

	structuredTemperature float32 = 0.3
)

// TextInvoker 文本生成调用接口，由 llm.Engine 实现
type TextInvoker interface {
	Invoke(ctx context.Context, provider string, req llm.CompletionRequest) (string, error)
	DefaultProvider() string
	Settings(name string) (llm.ProviderSettings, bool)
}

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	engine TextInvoker
}

// ProviderStatus 当前提供者状态，不包含密钥内容
type ProviderStatus struct {
	Provider     string   `json:"provider"`
	DefaultModel string   `json:"default_model"`
	Credentials  int      `json:"credentials"`
	Ready        bool     `json:"ready"`
	Available    []string `json:"available_providers"`
}

// NewLLMService 创建LLM服务
func NewLLMService(engine TextInvoker) *LLMService {
	return &LLMService{engine: engine}
}

// Generate 使用默认提供者生成文本
func (s *LLMService) Generate(ctx context.Context, prompt, model string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperrors.NewValidationError("提示词不能为空", nil)
	}
	text, err := s.engine.Invoke(ctx, "", llm.CompletionRequest{Prompt: prompt, Model: model})
	return text, upstreamError(err)
}

// upstreamError 将引擎未分类的提供者错误包装为 Upstream 错误。
// 调用引擎自己的错误类型和 context 错误原样返回。
func upstreamError(err error) error {
	if err == nil {
		return nil
	}
	var invErr *llm.InvocationError
	switch {
	case errors.As(err, &invErr),
		errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperrors.NewUpstreamError("文本生成服务返回错误", err)
}

// GenerateScript 根据创作参数生成短视频剧本。request 非空时作为用户请求原文。
func (s *LLMService) GenerateScript(ctx context.Context, blueprint models.ScriptBlueprint, request string) (string, error) {
	if strings.TrimSpace(request) == "" {
		request = buildScriptRequest(blueprint)
	}

	runID := uuid.NewString()
	utils.GetLogger().Info("开始生成剧本", map[string]interface{}{
		"run_id": runID,
		"topic":  blueprint.TopicOrDefault(),
	})

	text, err := s.engine.Invoke(ctx, "", llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(scriptWriterPrompt, runID),
		Prompt:       "User request: " + request,
	})
	if err != nil {
		utils.GetLogger().Error("剧本生成失败", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		return "", upstreamError(err)
	}

	// 模型偶尔仍会回显 runId
	text = strings.TrimSpace(strings.ReplaceAll(text, runID, ""))
	utils.GetLogger().Info("剧本生成完成", map[string]interface{}{
		"run_id": runID,
		"length": len([]rune(text)),
	})
	return text, nil
}

// buildScriptRequest 由创作参数拼出用户请求
func buildScriptRequest(b models.ScriptBlueprint) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %d-second YouTube Shorts narration script about %q.", b.TargetDuration(), b.TopicOrDefault())
	if b.Title != "" {
		fmt.Fprintf(&sb, " Title: %s.", b.Title)
	}
	if b.Tone != "" {
		fmt.Fprintf(&sb, " Tone: %s.", b.Tone)
	}
	if b.Audience != "" {
		fmt.Fprintf(&sb, " Target audience: %s.", b.Audience)
	}
	if b.Style != "" {
		fmt.Fprintf(&sb, " Style: %s.", b.Style)
	}
	if b.Format != "" {
		fmt.Fprintf(&sb, " Format: %s.", b.Format)
	}
	sb.WriteString(" Write in the same language as the topic. Output only the narration text.")
	return sb.String()
}

// CreateStructuredCompletion 请求 JSON 输出并解析到 out
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, out interface{}) error {
	structuredSystemPrompt := systemPrompt
	if systemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response in valid JSON format, following the provided output schema, without adding explanations or preambles."

	text, err := s.engine.Invoke(ctx, "", llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  structuredTemperature,
	})
	if err != nil {
		return upstreamError(err)
	}

	cleaned := cleanJSONString(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return apperrors.NewUpstreamError("解析模型返回的JSON失败", err)
	}
	return nil
}

// GetProviderStatus 返回默认提供者的配置状态
func (s *LLMService) GetProviderStatus() ProviderStatus {
	name := s.engine.DefaultProvider()
	status := ProviderStatus{
		Provider:  name,
		Available: llm.ListProviders(),
	}
	if settings, ok := s.engine.Settings(name); ok {
		status.DefaultModel = settings.DefaultModel
		status.Credentials = settings.Pool.Len()
		status.Ready = status.Credentials > 0
	}
	return status
}
