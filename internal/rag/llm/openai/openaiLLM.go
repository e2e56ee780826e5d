package openai

import (
	"context"
	"errors"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/customHttpClient"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ llm.Provider = (*Client)(nil)

type Client struct {
	client sdk.Client
	model  string
	logger *logger_i.Logger
}

func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: missing api key")
	}
	if model == "" {
		model = config.OpenAIModelName
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.NewClient(config.LLMTimeout)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: sdk.NewClient(opts...),
		model:  model,
		logger: logger_i.NewLogger("llm_openai"),
	}, nil
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	system := req.System
	if system == "" {
		system = config.ModelContext
	}
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, sdk.SystemMessage(system))
	for _, m := range req.History {
		if m.Role == commonModels.RoleAI {
			messages = append(messages, sdk.AssistantMessage(m.Statement))
		} else {
			messages = append(messages, sdk.UserMessage(m.Statement))
		}
	}
	messages = append(messages, sdk.UserMessage(llm.UserPrompt(req)))

	completion, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.model),
		Messages:    messages,
		Temperature: sdk.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("OpenAI completion failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
