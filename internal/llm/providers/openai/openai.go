// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Corphon/SceneForge/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			models: []string{
				"gpt-4o-mini",
				"gpt-4o",
				"gpt-4.1-mini",
			},
		}
	})
}

type Provider struct {
	client       sdk.Client
	defaultModel string
	models       []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := config["api_key"]
	if apiKey == "" {
		return errors.New("openai_api密钥未提供")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// 重试由调用引擎按密钥处理
		option.WithMaxRetries(0),
	}
	if baseURL := config["base_url"]; baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	p.client = sdk.NewClient(opts...)

	p.defaultModel = config["default_model"]
	if p.defaultModel == "" {
		p.defaultModel = "gpt-4o-mini"
	}
	return nil
}

func (p *Provider) GetName() string {
	return "openai"
}

func (p *Provider) GetSupportedModels() []string {
	return p.models
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(req.Prompt)}
	if req.SystemPrompt != "" {
		messages = append([]sdk.ChatCompletionMessageParamUnion{sdk.SystemMessage(req.SystemPrompt)}, messages...)
	}

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(model),
		Messages:    messages,
		Temperature: sdk.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, &llm.APIError{Provider: "openai", StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.CompletionResponse{
		Text:         completion.Choices[0].Message.Content,
		FinishReason: string(completion.Choices[0].FinishReason),
		TokensUsed:   int(completion.Usage.TotalTokens),
		ModelName:    completion.Model,
		ProviderName: p.GetName(),
	}, nil
}
