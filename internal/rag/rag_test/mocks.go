package rag_test

import (
	"context"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/llm"
)

// MockVectorDB implements vectorDB.Store
type MockVectorDB struct {
	OnCreateCollection func(ctx context.Context, name string, dim uint64) error
	OnDropCollection   func(ctx context.Context, name string) error
	OnUpsertBatch      func(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error
	OnSearch           func(ctx context.Context, name string, vector []float32, limit int) ([]commonModels.SearchHit, error)
	OnExport           func(ctx context.Context, name string, limit int) ([]commonModels.DocChunk, error)
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string, dim uint64) error {
	if m.OnCreateCollection != nil {
		return m.OnCreateCollection(ctx, name, dim)
	}
	return nil
}

func (m *MockVectorDB) DropCollection(ctx context.Context, name string) error {
	if m.OnDropCollection != nil {
		return m.OnDropCollection(ctx, name)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, name, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) Search(ctx context.Context, name string, vector []float32, limit int) ([]commonModels.SearchHit, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, name, vector, limit)
	}
	return nil, nil
}

func (m *MockVectorDB) ExportCollection(ctx context.Context, name string, limit int) ([]commonModels.DocChunk, error) {
	if m.OnExport != nil {
		return m.OnExport(ctx, name, limit)
	}
	return nil, nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = vectorFor(c)
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return vectorFor(query), nil
}

// vectorFor gives texts sharing a first letter the same direction.
func vectorFor(text string) []float32 {
	if text == "" {
		return []float32{0, 1}
	}
	return []float32{float32(text[0]), 1}
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, req)
	}
	return "mocked llm response", nil
}
