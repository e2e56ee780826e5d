package rag

import (
	"context"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
)

// Retriever returns the TopK chunks of its index most similar to a query.
type Retriever struct {
	Index    *Index
	TopK     int
	store    vectorDB.Store
	embedder embedding.Embedder
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]commonModels.SearchHit, error) {
	vector, err := timedValue("embedding", func() ([]float32, error) {
		return r.embedder.GetEmbedding(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return timedValue("vector_search", func() ([]commonModels.SearchHit, error) {
		return r.store.Search(ctx, r.Index.Collection, vector, r.TopK)
	})
}
