package memoryDB

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
)

var _ vectorDB.Store = (*Store)(nil)

type point struct {
	chunk  commonModels.DocChunk
	vector []float32
	norm   float64
}

type collection struct {
	dimension uint64
	points    map[string]point
}

// Store is an in-process vector store using cosine similarity.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CreateCollection(ctx context.Context, name string, dimension uint64) error {
	if name == "" {
		return fmt.Errorf("empty collection name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &collection{dimension: dimension, points: make(map[string]point)}
	return nil
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vectorDB.ErrCollectionNotFound, name)
	}
	for i, chunk := range chunks {
		if c.dimension != 0 && uint64(len(vectors[i])) != c.dimension {
			return fmt.Errorf("vector %d has dimension %d, collection wants %d", i, len(vectors[i]), c.dimension)
		}
		vec := append([]float32(nil), vectors[i]...)
		c.points[chunk.ChunkId] = point{chunk: chunk, vector: vec, norm: norm(vec)}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]commonModels.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorDB.ErrCollectionNotFound, name)
	}

	qNorm := norm(vector)
	hits := make([]commonModels.SearchHit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, commonModels.SearchHit{Chunk: p.chunk, Score: cosine(vector, qNorm, p.vector, p.norm)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Chunk.Order < hits[j].Chunk.Order
		}
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) ExportCollection(ctx context.Context, name string, limit int) ([]commonModels.DocChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorDB.ErrCollectionNotFound, name)
	}
	chunks := make([]commonModels.DocChunk, 0, len(c.points))
	for _, p := range c.points {
		chunks = append(chunks, p.chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Order < chunks[j].Order })
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Collections lists the live collection names.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float32 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
