package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var (
	ErrEngineNotInitialized = errors.New("chat engine is not initialized")
	ErrIndexNotInitialized  = errors.New("index is not initialized")
	ErrNothingToReload      = errors.New("no documents loaded in this session")
	ErrSessionClosed        = errors.New("session is closed")
)

// Trigger says what started an index build.
type Trigger string

const (
	TriggerUpload  Trigger = "upload"
	TriggerReload  Trigger = "reload"
	TriggerRefresh Trigger = "refresh"
)

// BuildReport describes a successful index build.
type BuildReport struct {
	Index     *rag.Index               `json:"index"`
	Params    commonModels.IndexParams `json:"params"`
	Documents int                      `json:"documents"`
	Summaries []string                 `json:"summaries"`
	Duration  time.Duration            `json:"duration"`
}

// Session owns one index/retriever/engine triple and the pages it was built from.
// Either all three are set and derived from the same build, or none is.
type Session struct {
	ID string

	svc         rag.Service
	refresher   *Refresher
	refreshSpec string
	logger      *logger_i.Logger

	// buildMu serializes builds; mu guards the fields below.
	buildMu sync.Mutex
	mu      sync.RWMutex
	// chats hold inFlight for reading while they use an engine, so a replaced
	// index is only dropped once no chat can still search it.
	inFlight sync.RWMutex

	index      *rag.Index
	retriever  *rag.Retriever
	engine     *rag.ContextChatEngine
	pages      []commonModels.RawPage
	files      []commonModels.UploadedFile
	generation int
	closed     bool
}

func newSession(id string, svc rag.Service, refresher *Refresher, refreshSpec string) *Session {
	return &Session{
		ID:          id,
		svc:         svc,
		refresher:   refresher,
		refreshSpec: refreshSpec,
		logger:      logger_i.NewLogger("Session").With("session", id),
	}
}

// ProcessDocuments runs the whole pipeline over pages and swaps in the new triple.
// On any failure the previous triple stays live.
func (s *Session) ProcessDocuments(ctx context.Context, pages []commonModels.RawPage, trigger Trigger) (*BuildReport, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	report, err := s.build(ctx, pages, trigger)
	metrics.CaptureIndexBuild(string(trigger), err)
	return report, err
}

func (s *Session) build(ctx context.Context, pages []commonModels.RawPage, trigger Trigger) (*BuildReport, error) {
	log := s.logger.WithTrace(ctx).With("trigger", trigger)
	start := time.Now()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrSessionClosed
	}

	docs := ingest.PreprocessDocuments(pages)
	if err := ingest.ValidateDocuments(docs); err != nil {
		log.Error("Invalid documents", "error", err)
		return nil, err
	}
	for _, d := range docs {
		log.Debug("Document", "source", d.Metadata[commonModels.MetaSource],
			"page", d.Metadata[commonModels.MetaPageNumber], "wordCount", d.Metadata[commonModels.MetaWordCount])
	}

	params := ingest.OptimizeIndexParameters(docs)
	log.Info("Optimized index parameters", "chunkSize", params.ChunkSize, "chunkOverlap", params.ChunkOverlap)

	s.mu.Lock()
	s.generation++
	collection := fmt.Sprintf("%s_%s_%d", config.CollectionPrefix, s.ID, s.generation)
	s.mu.Unlock()

	idx, err := s.svc.BuildIndex(ctx, collection, docs, params)
	if err != nil {
		log.Error("Index build failed", "error", err)
		return nil, err
	}
	retriever := s.svc.NewRetriever(idx, config.RetrieverTopK)
	engine, err := s.svc.NewChatEngine(ctx, retriever, s.ID)
	if err != nil {
		s.dropIndex(ctx, idx)
		log.Error("Chat engine init failed", "error", err)
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.dropIndex(ctx, idx)
		return nil, ErrSessionClosed
	}
	previous := s.index
	s.index, s.retriever, s.engine = idx, retriever, engine
	s.pages = slices.Clone(pages)
	s.mu.Unlock()

	if previous != nil {
		s.dropRetiredIndex(ctx, previous)
	}

	summaries := ingest.SummarizeDocuments(pages)
	for i, summary := range summaries {
		log.Info("Document summary", "document", i+1, "summary", summary)
	}

	if trigger != TriggerRefresh {
		s.scheduleRefresh()
	}

	elapsed := time.Since(start)
	metrics.CaptureProcessingTime(elapsed)
	log.Info("Documents processed", "collection", collection, "chunks", idx.ChunkCount, "duration", elapsed)

	return &BuildReport{
		Index:     idx,
		Params:    params,
		Documents: len(docs),
		Summaries: summaries,
		Duration:  elapsed,
	}, nil
}

// Reload rebuilds the index from the pages of the last successful build.
func (s *Session) Reload(ctx context.Context, trigger Trigger) (*BuildReport, error) {
	s.mu.RLock()
	pages := s.pages
	s.mu.RUnlock()
	if len(pages) == 0 {
		return nil, ErrNothingToReload
	}
	return s.ProcessDocuments(ctx, pages, trigger)
}

func (s *Session) scheduleRefresh() {
	if s.refresher == nil || s.refreshSpec == "" {
		return
	}
	err := s.refresher.Schedule(s.ID, s.refreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.RefreshTimeout)
		defer cancel()
		if _, err := s.Reload(ctx, TriggerRefresh); err != nil {
			s.logger.Error("Scheduled index refresh failed", "error", err)
		}
	})
	if err != nil {
		s.logger.Error("Could not schedule index refresh", "error", err)
	}
}

func (s *Session) dropIndex(ctx context.Context, idx *rag.Index) {
	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.EmbeddingTimeout)
	defer cancel()
	if err := s.svc.DropIndex(dropCtx, idx); err != nil {
		s.logger.Warn("Could not drop index", "collection", idx.Collection, "error", err)
	}
}

// dropRetiredIndex waits for chats still using a swapped out index before dropping it.
func (s *Session) dropRetiredIndex(ctx context.Context, idx *rag.Index) {
	s.inFlight.Lock()
	defer s.inFlight.Unlock()
	s.dropIndex(ctx, idx)
}

func (s *Session) Chat(ctx context.Context, query string) (commonModels.ChatResult, error) {
	s.inFlight.RLock()
	defer s.inFlight.RUnlock()

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	if engine == nil {
		metrics.CaptureChatRequest(ErrEngineNotInitialized)
		return commonModels.ChatResult{}, ErrEngineNotInitialized
	}
	res, err := engine.Chat(ctx, query)
	metrics.CaptureChatRequest(err)
	return res, err
}

// ResetChatEngine clears the chat memory. Without an engine it only warns.
func (s *Session) ResetChatEngine(ctx context.Context) error {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	if engine == nil {
		s.logger.Warn("Chat engine is not initialized.")
		return nil
	}
	if err := engine.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("Chat engine reset.")
	return nil
}

func (s *Session) EngineStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine != nil {
		return config.StatusEngineRunning
	}
	return config.StatusEngineNotReady
}

// History returns the chat memory, empty when there is no engine.
func (s *Session) History(ctx context.Context) ([]commonModels.ChatMessage, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return []commonModels.ChatMessage{}, nil
	}
	return engine.History(ctx)
}

// Index returns the live index, nil before the first build.
func (s *Session) Index() *rag.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Session) ExportIndex(ctx context.Context, w io.Writer) error {
	idx := s.Index()
	if idx == nil {
		return ErrIndexNotInitialized
	}
	return s.svc.ExportIndex(ctx, idx, w)
}

// AddFiles keeps upload previews, replacing earlier files of the same name.
func (s *Session) AddFiles(files ...commonModels.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.files = slices.DeleteFunc(s.files, func(old commonModels.UploadedFile) bool { return old.Name == f.Name })
		s.files = append(s.files, f)
	}
}

// Files lists uploads without their bytes.
func (s *Session) Files() []commonModels.UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commonModels.UploadedFile, len(s.files))
	for i, f := range s.files {
		f.Data = nil
		out[i] = f
	}
	return out
}

func (s *Session) File(name string) (commonModels.UploadedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Name == name {
			return f, true
		}
	}
	return commonModels.UploadedFile{}, false
}

// Close cancels the refresh, deletes the chat memory and drops the index. A build in
// flight finishes first and is then discarded.
func (s *Session) Close(ctx context.Context) {
	if s.refresher != nil {
		s.refresher.Cancel(s.ID)
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.mu.Lock()
	idx, engine := s.index, s.engine
	s.index, s.retriever, s.engine = nil, nil, nil
	s.pages, s.files = nil, nil
	s.mu.Unlock()

	s.inFlight.Lock()
	defer s.inFlight.Unlock()
	if engine != nil {
		if err := engine.Close(ctx); err != nil {
			s.logger.Warn("Could not delete chat memory", "error", err)
		}
	}
	if idx != nil {
		s.dropIndex(ctx, idx)
	}
	s.logger.Info("Session closed")
}
