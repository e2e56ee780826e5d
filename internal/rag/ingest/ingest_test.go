package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

// --- Mocks for BatchIngest ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return m.batchFunc(ctx, chunks)
}

type mockVectorDB struct {
	createFunc func(ctx context.Context, name string, dim uint64) error
	upsertFunc func(ctx context.Context, coll string, chunks []commonModels.DocChunk, vectors [][]float32) error
}

func (m *mockVectorDB) CreateCollection(ctx context.Context, name string, dim uint64) error {
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, name, dim)
}
func (m *mockVectorDB) DropCollection(ctx context.Context, name string) error { return nil }
func (m *mockVectorDB) UpsertBatch(ctx context.Context, coll string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	return m.upsertFunc(ctx, coll, chunks, vectors)
}
func (m *mockVectorDB) Search(ctx context.Context, coll string, v []float32, limit int) ([]commonModels.SearchHit, error) {
	return nil, nil
}
func (m *mockVectorDB) ExportCollection(ctx context.Context, coll string, limit int) ([]commonModels.DocChunk, error) {
	return nil, nil
}

func page(text string) commonModels.RawPage {
	return commonModels.RawPage{PageContent: text, Metadata: map[string]any{commonModels.MetaSource: "a.pdf"}}
}

// --- Unit Tests ---

func TestPreprocessDocuments_WordCount(t *testing.T) {
	tests := []struct {
		in       string
		wantText string
	}{
		{"hello world", "hello world"},
		{"  leading\tand\n\ntrailing   ", "leading and trailing"},
		{"one", "one"},
		{"a b  c", "a b c"},
	}

	docs := make([]commonModels.RawPage, 0, len(tests))
	for _, tt := range tests {
		docs = append(docs, page(tt.in))
	}
	out := PreprocessDocuments(docs)

	for i, tt := range tests {
		if out[i].Text != tt.wantText {
			t.Errorf("text %d got %q, want %q", i, out[i].Text, tt.wantText)
		}
		if got, want := out[i].Metadata[commonModels.MetaWordCount], len(strings.Fields(out[i].Text)); got != want {
			t.Errorf("wordCount %d got %v, want %d", i, got, want)
		}
		if out[i].Metadata[commonModels.MetaSource] != "a.pdf" {
			t.Errorf("source metadata lost on %d", i)
		}
	}
}

func TestPreprocessDocuments_DoesNotMutateInput(t *testing.T) {
	raw := []commonModels.RawPage{page("x y")}
	PreprocessDocuments(raw)
	if _, ok := raw[0].Metadata[commonModels.MetaWordCount]; ok {
		t.Error("raw metadata was modified")
	}
}

func TestValidateDocuments(t *testing.T) {
	valid := commonModels.Document{Text: "ok", Metadata: map[string]any{}}
	empty := commonModels.Document{Text: "", Metadata: map[string]any{}}
	noMeta := commonModels.Document{Text: "ok"}

	tests := []struct {
		name    string
		docs    []commonModels.Document
		wantErr error
	}{
		{"all valid", []commonModels.Document{valid, valid}, nil},
		{"empty batch", nil, ErrNoDocuments},
		{"single empty", []commonModels.Document{empty}, ErrDocumentValidation},
		{"empty last of many", []commonModels.Document{valid, valid, valid, empty}, ErrDocumentValidation},
		{"empty first of many", []commonModels.Document{empty, valid, valid}, ErrDocumentValidation},
		{"nil metadata", []commonModels.Document{valid, noMeta}, ErrDocumentValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocuments(tt.docs)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptimizeIndexParameters(t *testing.T) {
	doc := func(n int) commonModels.Document {
		return commonModels.Document{Text: strings.Repeat("a", n), Metadata: map[string]any{}}
	}
	tests := []struct {
		name string
		docs []commonModels.Document
		want commonModels.IndexParams
	}{
		{"short", []commonModels.Document{doc(10)}, commonModels.IndexParams{ChunkSize: 300, ChunkOverlap: 20}},
		{"exactly threshold", []commonModels.Document{doc(1000)}, commonModels.IndexParams{ChunkSize: 300, ChunkOverlap: 20}},
		{"just above", []commonModels.Document{doc(1001)}, commonModels.IndexParams{ChunkSize: 500, ChunkOverlap: 50}},
		{"mean above", []commonModels.Document{doc(200), doc(1900)}, commonModels.IndexParams{ChunkSize: 500, ChunkOverlap: 50}},
		{"mean below", []commonModels.Document{doc(100), doc(1800)}, commonModels.IndexParams{ChunkSize: 300, ChunkOverlap: 20}},
		{"multibyte counts characters", []commonModels.Document{{Text: strings.Repeat("é", 600)}}, commonModels.IndexParams{ChunkSize: 300, ChunkOverlap: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OptimizeIndexParameters(tt.docs); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummarizeDocuments(t *testing.T) {
	pages := []commonModels.RawPage{
		{PageContent: "One. Two. Three. Four. Five."},
		{PageContent: "Only sentence"},
		{PageContent: "Line one\n  continues. Two.   Spaced"},
	}
	got := SummarizeDocuments(pages)
	if got[0] != "One. Two. Three..." {
		t.Errorf("summary 0 got %q", got[0])
	}
	if got[1] != "Only sentence..." {
		t.Errorf("summary 1 got %q", got[1])
	}
	if got[2] != "Line one\n  continues. Two.   Spaced..." {
		t.Errorf("raw page text should be summarized as is, got %q", got[2])
	}
}

func TestSplitTextIntoChunks(t *testing.T) {
	text := "This is a long sentence. This is another sentence that will be split. And a third one follows here."
	limit := 30
	overlap := 5

	chunks := splitTextIntoChunks(text, limit, overlap)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > limit {
			t.Errorf("chunk %d has %d characters, limit %d: %q", i, n, limit, c)
		}
	}
	for _, w := range strings.Fields(text) {
		w = strings.TrimSuffix(w, ".")
		found := false
		for _, c := range chunks {
			if strings.Contains(c, w) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("word %q lost by splitter", w)
		}
	}
}

func TestSplitTextIntoChunks_Edges(t *testing.T) {
	if got := splitTextIntoChunks("short", 300, 20); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text got %v", got)
	}
	if got := splitTextIntoChunks("   ", 300, 20); len(got) != 0 {
		t.Errorf("blank text got %v", got)
	}

	noSeparators := strings.Repeat("ж", 25)
	got := splitTextIntoChunks(noSeparators, 10, 2)
	if len(got) != 3 {
		t.Fatalf("hard cut got %d chunks: %v", len(got), got)
	}
	for _, c := range got {
		if !utf8.ValidString(c) || utf8.RuneCountInString(c) > 10 {
			t.Errorf("bad hard cut chunk %q", c)
		}
	}
}

func TestPrepareChunks(t *testing.T) {
	docs := []commonModels.Document{
		{Text: "Page one content.", Metadata: map[string]any{commonModels.MetaPageNumber: 1}},
		{Text: "Page two content.", Metadata: map[string]any{commonModels.MetaPageNumber: 2}},
	}

	chunks := PrepareChunks(docs, commonModels.IndexParams{ChunkSize: 300, ChunkOverlap: 20})

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks (one per page), got %d", len(chunks))
	}
	if chunks[1].Metadata[commonModels.MetaPageNumber] != 2 || chunks[1].Order != 1 {
		t.Errorf("Metadata mismatch in chunk 1: %+v", chunks[1])
	}
	if chunks[0].ChunkId == "" || chunks[0].ChunkId == chunks[1].ChunkId {
		t.Error("chunk ids must be unique")
	}
	if _, ok := docs[0].Metadata[commonModels.MetaChunkOrder]; ok {
		t.Error("document metadata was modified")
	}
}

func TestBatchIngest(t *testing.T) {
	ctx := context.Background()
	chunks := make([]commonModels.DocChunk, 150) // two batches, 100 + 50
	for i := range chunks {
		chunks[i] = commonModels.DocChunk{Text: "test content"}
	}

	createCount, callCount := 0, 0
	var gotDim uint64
	vDB := &mockVectorDB{
		createFunc: func(ctx context.Context, name string, dim uint64) error {
			createCount++
			gotDim = dim
			return nil
		},
		upsertFunc: func(ctx context.Context, coll string, c []commonModels.DocChunk, v [][]float32) error {
			if coll != "coll-1" {
				t.Errorf("upsert into %s", coll)
			}
			callCount++
			return nil
		},
	}

	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
			out := make([][]float32, len(ch))
			for i := range out {
				out[i] = []float32{1, 2, 3}
			}
			return out, nil
		},
	}

	if err := BatchIngest(ctx, "coll-1", chunks, vDB, emb); err != nil {
		t.Fatalf("BatchIngest failed: %v", err)
	}
	if callCount != 2 {
		t.Errorf("Expected 2 batches to be upserted, got %d", callCount)
	}
	if createCount != 1 || gotDim != 3 {
		t.Errorf("collection created %d times with dim %d", createCount, gotDim)
	}
}

func TestBatchIngest_Error(t *testing.T) {
	okEmbedder := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
			out := make([][]float32, len(ch))
			for i := range out {
				out[i] = []float32{1}
			}
			return out, nil
		},
	}

	tests := []struct {
		name string
		db   *mockVectorDB
		emb  *mockEmbedder
	}{
		{
			name: "upsert fails",
			db: &mockVectorDB{upsertFunc: func(ctx context.Context, coll string, c []commonModels.DocChunk, v [][]float32) error {
				return errors.New("upsert failed")
			}},
			emb: okEmbedder,
		},
		{
			name: "embedding fails",
			db:   &mockVectorDB{upsertFunc: func(context.Context, string, []commonModels.DocChunk, [][]float32) error { return nil }},
			emb: &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
				return nil, errors.New("quota")
			}},
		},
		{
			name: "short vector list",
			db:   &mockVectorDB{upsertFunc: func(context.Context, string, []commonModels.DocChunk, [][]float32) error { return nil }},
			emb: &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
				return [][]float32{}, nil
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BatchIngest(context.Background(), "c", []commonModels.DocChunk{{Text: "hi"}}, tt.db, tt.emb)
			if err == nil {
				t.Error("Expected error from BatchIngest, got nil")
			}
		})
	}
}

func TestExtractPDF_InvalidData(t *testing.T) {
	if _, err := ExtractPDF("broken.pdf", []byte("not a pdf")); err == nil {
		t.Error("expected error for non-pdf bytes")
	}
}
