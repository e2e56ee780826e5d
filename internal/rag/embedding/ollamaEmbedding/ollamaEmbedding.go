package ollamaEmbedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/customHttpClient"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var _ embedding.Embedder = (*Embedder)(nil)

type Embedder struct {
	client  *http.Client
	baseURL string
	model   string
	logger  *logger_i.Logger
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewEmbedder(baseURL, model string) *Embedder {
	if baseURL == "" {
		baseURL = config.OllamaBaseURL
	}
	if model == "" {
		model = config.OllamaEmbeddingModel
	}
	return &Embedder{
		client:  customHttpClient.NewClient(config.EmbeddingTimeout),
		baseURL: baseURL,
		model:   model,
		logger:  logger_i.NewLogger("ollama_embedding"),
	}
}

func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// BatchEmbedding calls the endpoint once per text; the ollama embeddings API takes a single prompt.
func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, t := range texts {
		v, err := e.GetEmbedding(ctx, t)
		if err != nil {
			e.logger.WithTrace(ctx).Error("Batch embedding failed", "index", i, "error", err)
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
