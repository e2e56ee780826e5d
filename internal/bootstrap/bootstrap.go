package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/PDFChat/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/PDFChat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/llm/gemini"
	"github.com/akolanti/PDFChat/internal/rag/llm/ollama"
	"github.com/akolanti/PDFChat/internal/rag/llm/openai"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/PDFChat/internal/session"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var logger = logger_i.NewLogger("Bootstrap")

// Core is everything the HTTP and MCP entrypoints share.
type Core struct {
	Settings  *config.Settings
	JobStore  jobModel.JobStore
	Messages  jobModel.MessageStore
	Sessions  *session.Manager
	Refresher *session.Refresher
	Archive   *chatArchive.Archive
	Executor  *session.Executor
}

// Build connects the external services. Clients are closed when ctx ends.
func Build(ctx context.Context, settings *config.Settings) (*Core, error) {
	jobs, messages, err := newStores(ctx, settings.Redis)
	if err != nil {
		return nil, err
	}

	vectors, err := NewVectorStore(ctx, settings.Qdrant)
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(ctx, settings.Providers)
	if err != nil {
		return nil, fmt.Errorf("embedding provider %s: %w", settings.Providers.Embedding, err)
	}
	provider, err := NewLLM(ctx, settings.Providers)
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", settings.Providers.LLM, err)
	}

	var (
		refresher *session.Refresher
		spec      string
	)
	if !settings.Refresh.Disabled && settings.Refresh.Spec != "" {
		refresher = session.NewRefresher()
		spec = settings.Refresh.Spec
	}

	svc := rag.NewService(vectors, provider, embedder, messages)
	sessions := session.NewManager(svc, refresher, spec)

	logger.Info("Services ready",
		"embedding", settings.Providers.Embedding,
		"llm", settings.Providers.LLM,
		"refresh", spec)

	return &Core{
		Settings:  settings,
		JobStore:  jobs,
		Messages:  messages,
		Sessions:  sessions,
		Refresher: refresher,
		Archive:   chatArchive.New(settings.Chats.Dir, settings.Chats.ArchiveDir),
		Executor:  session.NewExecutor(sessions),
	}, nil
}

// Shutdown stops scheduled refreshes and closes every session.
func (c *Core) Shutdown(ctx context.Context) {
	if c.Refresher != nil {
		c.Refresher.Stop(ctx)
	}
	c.Sessions.CloseAll(ctx)
}

func newStores(ctx context.Context, settings config.RedisSettings) (jobModel.JobStore, jobModel.MessageStore, error) {
	if !settings.Disabled {
		jobs := store.GetRedisJobStore(ctx, settings)
		messages := store.GetRedisMessageStore(ctx, settings)
		if jobs != nil && messages != nil {
			return jobs, messages, nil
		}
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, nil, errors.New("redis stores are offline")
		}
		logger.Error("Redis stores are offline, using the in-memory stores")
	}
	return store.InitInMemoryJobStore(), store.InitMessageStore(), nil
}

func NewVectorStore(ctx context.Context, settings config.QdrantSettings) (vectorDB.Store, error) {
	if settings.Disabled {
		logger.Info("Qdrant disabled, using the in-memory vector store")
		return memoryDB.New(), nil
	}
	db, err := qdrantDB.NewQdrantStore(ctx, settings)
	if err == nil {
		return db, nil
	}
	if !config.FALLBACK_QDRANT_TO_MEMORY {
		return nil, err
	}
	logger.Error("Qdrant is offline, using the in-memory vector store", "error", err)
	return memoryDB.New(), nil
}

func NewEmbedder(ctx context.Context, p config.ProviderSettings) (embedding.Embedder, error) {
	switch p.Embedding {
	case "ollama":
		return ollamaEmbedding.NewEmbedder(p.Ollama.BaseURL, p.Ollama.EmbeddingModel), nil
	case "gemini":
		if p.Gemini.APIKey == "" {
			return nil, errors.New("GOOGLE_API_KEY is not set")
		}
		return googleEmbedding.NewGoogleEmbedder(ctx, p.Gemini.EmbeddingModel, p.Gemini.APIKey)
	case "openai":
		em, err := openaiEmbedding.NewEmbedder(p.OpenAI.APIKey, p.OpenAI.BaseURL, p.OpenAI.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return em, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.Embedding)
}

func NewLLM(ctx context.Context, p config.ProviderSettings) (llm.Provider, error) {
	switch p.LLM {
	case "ollama":
		return ollama.NewClient(p.Ollama.BaseURL, p.Ollama.LLMModel), nil
	case "gemini":
		if p.Gemini.APIKey == "" {
			return nil, errors.New("GOOGLE_API_KEY is not set")
		}
		return gemini.NewGeminiClient(ctx, p.Gemini.Model, p.Gemini.APIKey)
	case "openai":
		client, err := openai.NewClient(p.OpenAI.APIKey, p.OpenAI.BaseURL, p.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.LLM)
}
