package ingest

import (
	"context"
	"fmt"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion")

// BatchIngest embeds chunks in batches and upserts them into collectionName. The collection
// is created on the first batch, sized from the returned vectors.
func BatchIngest(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, store vectorDB.Store, embedder embedding.Embedder) error {
	log := logger.WithTrace(ctx).With("collection", collectionName)
	batchSize := config.EmbeddingBatchSize
	created := false

	for i := 0; i < len(chunks); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+batchSize, len(chunks))
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Text
		}

		log.Debug("Starting embedding call", "batchStart", i, "batchLength", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return fmt.Errorf("embedding batch returned %d vectors for %d chunks", len(vectors), len(currentBatch))
		}

		if !created {
			if len(vectors[0]) == 0 {
				return fmt.Errorf("embedding batch returned an empty vector")
			}
			if err := store.CreateCollection(ctx, collectionName, uint64(len(vectors[0]))); err != nil {
				return fmt.Errorf("creating collection failed: %w", err)
			}
			created = true
		}

		if err := store.UpsertBatch(ctx, collectionName, currentBatch, vectors); err != nil {
			return fmt.Errorf("upserting to vector store failed: %w", err)
		}
	}
	return nil
}
