package vectorDB

import (
	"context"
	"errors"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

var ErrCollectionNotFound = errors.New("collection not found")

// Store keeps one collection per index build.
type Store interface {
	CreateCollection(ctx context.Context, collectionName string, dimension uint64) error
	DropCollection(ctx context.Context, collectionName string) error
	UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error
	// Search returns at most limit hits, best score first.
	Search(ctx context.Context, collectionName string, vector []float32, limit int) ([]commonModels.SearchHit, error)
	// ExportCollection returns the stored chunks ordered by chunk order.
	ExportCollection(ctx context.Context, collectionName string, limit int) ([]commonModels.DocChunk, error)
}
