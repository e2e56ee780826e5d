package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

// Service is what sessions see of the retrieval stack. The private struct
// holds the clients so sessions never touch the vector store or providers directly.
type Service interface {
	BuildIndex(ctx context.Context, collection string, docs []commonModels.Document, params commonModels.IndexParams) (*Index, error)
	DropIndex(ctx context.Context, idx *Index) error
	ExportIndex(ctx context.Context, idx *Index, w io.Writer) error
	NewRetriever(idx *Index, topK int) *Retriever
	NewChatEngine(ctx context.Context, retriever *Retriever, chatID string) (*ContextChatEngine, error)
}

type service struct {
	vectorDB    vectorDB.Store
	llmProvider llm.Provider
	embedder    embedding.Embedder
	memory      jobModel.MessageStore
	logger      *logger_i.Logger
}

func NewService(vector vectorDB.Store, llm llm.Provider, em embedding.Embedder, memory jobModel.MessageStore) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		memory:      memory,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

// Index is one built collection. It is never mutated after BuildIndex returns.
type Index struct {
	Collection    string                   `json:"collection"`
	Params        commonModels.IndexParams `json:"params"`
	DocumentCount int                      `json:"document_count"`
	ChunkCount    int                      `json:"chunk_count"`
	CreatedAt     time.Time                `json:"created_at"`
}

type indexExport struct {
	*Index
	Chunks []commonModels.DocChunk `json:"chunks"`
}

// BuildIndex chunks docs and ingests them into a new collection. On failure the
// partially written collection is dropped.
func (s *service) BuildIndex(ctx context.Context, collection string, docs []commonModels.Document, params commonModels.IndexParams) (*Index, error) {
	log := s.logger.WithTrace(ctx).With("collection", collection)

	chunks := ingest.PrepareChunks(docs, params)
	if len(chunks) == 0 {
		return nil, ingest.ErrNoDocuments
	}
	log.Debug("Building index", "documents", len(docs), "chunks", len(chunks))

	err := timedStep("index_build", func() error {
		return ingest.BatchIngest(ctx, collection, chunks, s.vectorDB, s.embedder)
	})
	if err != nil {
		dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.EmbeddingTimeout)
		defer cancel()
		if dropErr := s.vectorDB.DropCollection(dropCtx, collection); dropErr != nil {
			log.Warn("Could not drop partial collection", "error", dropErr)
		}
		return nil, err
	}

	return &Index{
		Collection:    collection,
		Params:        params,
		DocumentCount: len(docs),
		ChunkCount:    len(chunks),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *service) DropIndex(ctx context.Context, idx *Index) error {
	if idx == nil {
		return nil
	}
	return s.vectorDB.DropCollection(ctx, idx.Collection)
}

// ExportIndex writes the index description and its stored chunks as indented JSON.
func (s *service) ExportIndex(ctx context.Context, idx *Index, w io.Writer) error {
	if idx == nil {
		return errors.New("nil index")
	}
	chunks, err := s.vectorDB.ExportCollection(ctx, idx.Collection, idx.ChunkCount)
	if err != nil {
		return fmt.Errorf("export %s: %w", idx.Collection, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(indexExport{Index: idx, Chunks: chunks})
}

func (s *service) NewRetriever(idx *Index, topK int) *Retriever {
	if topK <= 0 {
		topK = config.RetrieverTopK
	}
	return &Retriever{
		Index:    idx,
		TopK:     topK,
		store:    s.vectorDB,
		embedder: s.embedder,
	}
}

// NewChatEngine starts an engine with empty memory under chatID.
func (s *service) NewChatEngine(ctx context.Context, retriever *Retriever, chatID string) (*ContextChatEngine, error) {
	if err := s.memory.InitNewChat(ctx, chatID); err != nil {
		return nil, fmt.Errorf("init chat memory: %w", err)
	}
	return &ContextChatEngine{
		retriever: retriever,
		llm:       s.llmProvider,
		memory:    s.memory,
		chatID:    chatID,
		window:    config.ChatMemoryWindow,
		system:    config.ModelContext,
		logger:    s.logger.With("chatId", chatID),
	}, nil
}
