package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB/memoryDB"
)

type fakeEmbedder struct {
	fail atomic.Bool
}

func (f *fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return vectorFor(text), nil
}

func (f *fakeEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if f.fail.Load() {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = vectorFor(c)
	}
	return out, nil
}

func vectorFor(text string) []float32 {
	if text == "" {
		return []float32{0, 1}
	}
	return []float32{float32(text[0]), 1}
}

type fakeLLM struct {
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	if f.OnGenerate != nil {
		return f.OnGenerate(ctx, req)
	}
	return "an answer", nil
}

type fixture struct {
	vectors  *memoryDB.Store
	embedder *fakeEmbedder
	llm      *fakeLLM
	memory   *store.InMemoryMessageStore
	svc      rag.Service
}

func newFixture() *fixture {
	f := &fixture{
		vectors:  memoryDB.New(),
		embedder: &fakeEmbedder{},
		llm:      &fakeLLM{},
		memory:   store.InitMessageStore(),
	}
	f.svc = rag.NewService(f.vectors, f.llm, f.embedder, f.memory)
	return f
}

func pages(texts ...string) []commonModels.RawPage {
	out := make([]commonModels.RawPage, len(texts))
	for i, t := range texts {
		out[i] = commonModels.RawPage{
			PageContent: t,
			Metadata: map[string]any{
				commonModels.MetaSource:     "doc.pdf",
				commonModels.MetaPageNumber: i + 1,
			},
		}
	}
	return out
}

func TestSession_ChatBeforeBuild(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")

	if _, err := s.Chat(context.Background(), "hello?"); !errors.Is(err, ErrEngineNotInitialized) {
		t.Errorf("expected ErrEngineNotInitialized, got %v", err)
	}
	if got := s.EngineStatus(); got != config.StatusEngineNotReady {
		t.Errorf("EngineStatus got %q", got)
	}
	if err := s.ResetChatEngine(context.Background()); err != nil {
		t.Errorf("reset without engine should only warn, got %v", err)
	}
	if err := s.ExportIndex(context.Background(), &bytes.Buffer{}); !errors.Is(err, ErrIndexNotInitialized) {
		t.Errorf("expected ErrIndexNotInitialized, got %v", err)
	}
}

func TestSession_ProcessDocumentsAndChat(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	report, err := s.ProcessDocuments(ctx, pages("apples grow on trees", "bananas are yellow"), TriggerUpload)
	if err != nil {
		t.Fatalf("ProcessDocuments failed: %v", err)
	}
	if report.Documents != 2 {
		t.Errorf("Documents got %d, want 2", report.Documents)
	}
	if report.Params.ChunkSize != config.ShortDocChunkSize {
		t.Errorf("ChunkSize got %d, want %d", report.Params.ChunkSize, config.ShortDocChunkSize)
	}
	if len(report.Summaries) != 2 {
		t.Errorf("Summaries got %d, want 2", len(report.Summaries))
	}
	if !strings.HasPrefix(report.Index.Collection, config.CollectionPrefix+"_s1_") {
		t.Errorf("unexpected collection %s", report.Index.Collection)
	}
	if s.EngineStatus() != config.StatusEngineRunning {
		t.Errorf("engine should be running")
	}

	res, err := s.Chat(ctx, "bananas?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Response != "an answer" {
		t.Errorf("Response got %q", res.Response)
	}
	if len(res.Metadata) == 0 {
		t.Error("expected source metadata")
	}

	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Role != commonModels.RoleHuman || history[1].Role != commonModels.RoleAI {
		t.Errorf("unexpected history %+v", history)
	}

	if err := s.ResetChatEngine(ctx); err != nil {
		t.Fatal(err)
	}
	history, _ = s.History(ctx)
	if len(history) != 0 {
		t.Errorf("history after reset got %d", len(history))
	}
}

func TestSession_FailedBuildKeepsPreviousIndex(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	first, err := s.ProcessDocuments(ctx, pages("apples grow on trees"), TriggerUpload)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		pages   []commonModels.RawPage
		failEmb bool
		wantErr error
	}{
		{"Empty_Page", pages("   "), false, ingest.ErrDocumentValidation},
		{"No_Pages", nil, false, ingest.ErrNoDocuments},
		{"Embedding_Down", pages("cherries are red"), true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.embedder.fail.Store(tt.failEmb)
			defer f.embedder.fail.Store(false)

			_, err := s.ProcessDocuments(ctx, tt.pages, TriggerUpload)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if s.Index() != first.Index {
				t.Error("previous index was replaced")
			}
			if s.EngineStatus() != config.StatusEngineRunning {
				t.Error("previous engine was lost")
			}
		})
	}

	if got := f.vectors.Collections(); len(got) != 1 || got[0] != first.Index.Collection {
		t.Errorf("collections got %v, want only %s", got, first.Index.Collection)
	}
}

func TestSession_ReloadSwapsCollection(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	if _, err := s.Reload(ctx, TriggerReload); !errors.Is(err, ErrNothingToReload) {
		t.Fatalf("expected ErrNothingToReload, got %v", err)
	}

	first, err := s.ProcessDocuments(ctx, pages("apples grow on trees"), TriggerUpload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Reload(ctx, TriggerReload)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if second.Index.Collection == first.Index.Collection {
		t.Error("reload should build a new collection")
	}
	if got := f.vectors.Collections(); len(got) != 1 || got[0] != second.Index.Collection {
		t.Errorf("old collection not dropped: %v", got)
	}
}

func TestSession_ExportIndex(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	if _, err := s.ProcessDocuments(ctx, pages("apples grow on trees"), TriggerUpload); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.ExportIndex(ctx, &buf); err != nil {
		t.Fatalf("ExportIndex failed: %v", err)
	}
	if !strings.Contains(buf.String(), "apples grow on trees") {
		t.Errorf("export is missing chunk text: %s", buf.String())
	}
}

func TestSession_Files(t *testing.T) {
	s := newSession("s1", newFixture().svc, nil, "")
	s.AddFiles(
		commonModels.UploadedFile{Name: "a.pdf", Size: 3, Data: []byte("one")},
		commonModels.UploadedFile{Name: "b.pdf", Size: 3, Data: []byte("two")},
	)
	s.AddFiles(commonModels.UploadedFile{Name: "a.pdf", Size: 5, Data: []byte("three")})

	files := s.Files()
	if len(files) != 2 {
		t.Fatalf("files got %d, want 2", len(files))
	}
	for _, f := range files {
		if f.Data != nil {
			t.Errorf("%s listed with bytes", f.Name)
		}
	}
	f, ok := s.File("a.pdf")
	if !ok || string(f.Data) != "three" {
		t.Errorf("File(a.pdf) got %q, %v", f.Data, ok)
	}
	if _, ok := s.File("c.pdf"); ok {
		t.Error("unexpected file c.pdf")
	}
}

func TestSession_Close(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	if _, err := s.ProcessDocuments(ctx, pages("apples grow on trees"), TriggerUpload); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Chat(ctx, "apples?"); err != nil {
		t.Fatal(err)
	}
	s.Close(ctx)

	if len(f.vectors.Collections()) != 0 {
		t.Error("collection not dropped on close")
	}
	if f.memory.ValidateChatId(ctx, "s1") {
		t.Error("chat memory survived close")
	}
	if s.EngineStatus() != config.StatusEngineNotReady {
		t.Error("engine still running after close")
	}
	if _, err := s.ProcessDocuments(ctx, pages("bananas"), TriggerUpload); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_ConcurrentBuildsAndChats(t *testing.T) {
	f := newFixture()
	s := newSession("s1", f.svc, nil, "")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := s.ProcessDocuments(ctx, pages(fmt.Sprintf("apples batch %d", i), "bananas are yellow"), TriggerUpload); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := s.Chat(ctx, "apples?"); err != nil && !errors.Is(err, ErrEngineNotInitialized) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent call failed: %v", err)
	}

	if got := f.vectors.Collections(); len(got) != 1 {
		t.Fatalf("live collections got %v, want exactly one", got)
	}
	idx := s.Index()
	if idx == nil || idx.Collection != f.vectors.Collections()[0] {
		t.Errorf("live index %+v does not match collection %v", idx, f.vectors.Collections())
	}
	if s.EngineStatus() != config.StatusEngineRunning {
		t.Error("engine not running after concurrent builds")
	}
	if _, err := s.Chat(ctx, "apples?"); err != nil {
		t.Errorf("chat after builds: %v", err)
	}

	s.Close(ctx)
	if got := f.vectors.Collections(); len(got) != 0 {
		t.Errorf("collections after close: %v", got)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(newFixture().svc, nil, "")
	ctx := context.Background()

	s := m.Create()
	if got, ok := m.Get(s.ID); !ok || got != s {
		t.Fatal("created session not found")
	}
	if m.GetOrCreate(s.ID) != s {
		t.Error("GetOrCreate returned a new session for a known id")
	}
	other := m.GetOrCreate("named")
	if other.ID != "named" || m.Count() != 2 {
		t.Errorf("unexpected state: id %s, count %d", other.ID, m.Count())
	}

	if err := m.Close(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	m.CloseAll(ctx)
	if m.Count() != 0 {
		t.Errorf("count after CloseAll got %d", m.Count())
	}
}

func TestRefresher(t *testing.T) {
	r := NewRefresher()
	defer r.Stop(context.Background())

	if _, ok := r.Next("s1"); ok {
		t.Fatal("nothing scheduled yet")
	}
	if err := r.Schedule("s1", "not a spec", func() {}); err == nil {
		t.Error("expected error for invalid spec")
	}
	if err := r.Schedule("s1", config.RefreshCronSpec, func() {}); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := r.Schedule("s1", "@hourly", func() {}); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if len(r.cron.Entries()) != 1 {
		t.Errorf("entries got %d, want 1", len(r.cron.Entries()))
	}
	if _, ok := r.Next("s1"); !ok {
		t.Error("expected a next run")
	}

	r.Cancel("s1")
	if _, ok := r.Next("s1"); ok {
		t.Error("entry survived cancel")
	}
}

func TestSession_BuildSchedulesRefresh(t *testing.T) {
	r := NewRefresher()
	defer r.Stop(context.Background())
	s := newSession("s1", newFixture().svc, r, "@daily")

	if _, err := s.ProcessDocuments(context.Background(), pages("apples"), TriggerUpload); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Next("s1"); !ok {
		t.Error("build did not schedule a refresh")
	}
	s.Close(context.Background())
	if _, ok := r.Next("s1"); ok {
		t.Error("close did not cancel the refresh")
	}
}
