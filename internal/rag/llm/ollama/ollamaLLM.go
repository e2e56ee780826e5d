package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/customHttpClient"
	"github.com/akolanti/PDFChat/internal/rag/llm"
)

var _ llm.Provider = (*Client)(nil)

type Client struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

// temperature is sent even when zero
type options struct {
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = config.OllamaBaseURL
	}
	if model == "" {
		model = config.OllamaLLMModel
	}
	return &Client{
		client:      customHttpClient.NewClient(config.LLMTimeout),
		baseURL:     baseURL,
		model:       model,
		temperature: float64(config.ModelTemperature),
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	system := req.System
	if system == "" {
		system = config.ModelContext
	}
	messages := make([]chatMessage, 0, len(req.History)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: llm.RoleName(m.Role), Content: m.Statement})
	}
	messages = append(messages, chatMessage{Role: "user", Content: llm.UserPrompt(req)})

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  options{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Message.Content, nil
}
