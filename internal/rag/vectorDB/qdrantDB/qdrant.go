package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var _ vectorDB.Store = (*ClientHolder)(nil)

const (
	payloadContent  = "content"
	payloadChunkId  = "chunk_id"
	payloadOrder    = "chunk_order"
	payloadMetadata = "metadata"
)

type ClientHolder struct {
	QObj   *qdrant.Client
	logger *logger_i.Logger
}

// NewQdrantStore connects and health checks the server. The client is closed when ctx ends.
func NewQdrantStore(ctx context.Context, settings config.QdrantSettings) (*ClientHolder, error) {
	logger := logger_i.NewLogger("Qdrant")

	host, port := settings.Host, settings.Port
	if host == "" || port == 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		APIKey:   settings.APIKey,
		UseTLS:   settings.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	logger.Info("Qdrant connected", "host", host, "port", port)
	holder := &ClientHolder{QObj: client, logger: logger}
	go closeQdrant(ctx, holder)
	return holder, nil
}

func closeQdrant(ctx context.Context, db *ClientHolder) {
	<-ctx.Done()
	db.logger.Info("Shutting down Qdrant")
	if err := db.QObj.Close(); err != nil {
		db.logger.Error("could not close Qdrant", "error", err)
	}
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string, dimension uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (db *ClientHolder) DropCollection(ctx context.Context, collectionName string) error {
	if err := db.QObj.DeleteCollection(ctx, collectionName); err != nil {
		return fmt.Errorf("qdrant drop %s: %w", collectionName, err)
	}
	return nil
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload, err := qdrant.TryValueMap(toPayload(chunk))
		if err != nil {
			return fmt.Errorf("chunk %s payload: %w", chunk.ChunkId, err)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collectionName string, vector []float32, limit int) ([]commonModels.SearchHit, error) {
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		db.logger.WithTrace(ctx).Error("Error querying Qdrant", "collection", collectionName, "error", err)
		return nil, err
	}

	hits := make([]commonModels.SearchHit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, commonModels.SearchHit{Chunk: fromPayload(hit.Payload), Score: hit.Score})
	}
	return hits, nil
}

func (db *ClientHolder) ExportCollection(ctx context.Context, collectionName string, limit int) ([]commonModels.DocChunk, error) {
	points, err := db.QObj.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collectionName,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll %s: %w", collectionName, err)
	}

	chunks := make([]commonModels.DocChunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, fromPayload(p.Payload))
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Order < chunks[j].Order })
	return chunks, nil
}
