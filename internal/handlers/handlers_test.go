package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PDFChat/internal/session"
	"github.com/go-chi/chi/v5"
)

type stubEmbedder struct{}

func (stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	return "stub answer", nil
}

type testEnv struct {
	router   *chi.Mux
	jobs     *job.Service
	sessions *session.Manager
	archive  *chatArchive.Archive
	upload   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := rag.NewService(memoryDB.New(), stubLLM{}, stubEmbedder{}, store.InitMessageStore())
	dir := t.TempDir()
	env := &testEnv{
		jobs: job.InitJobService(job.ServiceConfig{
			JobChannel:        make(chan jobModel.Job, 10),
			DispatcherChannel: make(chan bool, 10),
			JobStore:          store.InitInMemoryJobStore(),
		}),
		sessions: session.NewManager(svc, nil, ""),
		archive:  chatArchive.New(filepath.Join(dir, "chats"), filepath.Join(dir, "archive")),
		upload:   filepath.Join(dir, "uploads"),
	}
	InitJobHandler(Dependencies{Jobs: env.jobs, Sessions: env.sessions, Archive: env.archive, UploadDir: env.upload})

	r := chi.NewRouter()
	r.Post("/chat", ChatHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Post("/sessions", CreateSessionHandler)
	r.Delete("/sessions/{id}", DeleteSessionHandler)
	r.Post("/sessions/{id}/documents", PostDocumentsHandler)
	r.Post("/sessions/{id}/reload", ReloadHandler)
	r.Post("/sessions/{id}/reset", ResetSessionHandler)
	r.Get("/sessions/{id}/engine", EngineStatusHandler)
	r.Get("/sessions/{id}/messages", MessagesHandler)
	r.Get("/sessions/{id}/files", FilesHandler)
	r.Get("/sessions/{id}/files/{name}", FileHandler)
	r.Get("/sessions/{id}/index", IndexHandler)
	r.Get("/chats", ListChatsHandler)
	r.Post("/chats/save", SaveChatHandler)
	r.Post("/chats/export", ExportChatHandler)
	r.Post("/chats/archive", ArchiveChatsHandler)
	r.Get("/chats/{name}", GetChatHandler)
	env.router = r
	return env
}

func (e *testEnv) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req = req.WithContext(context.WithValue(req.Context(), config.TRACE_ID_KEY, "test-trace"))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) loaded(t *testing.T) *session.Session {
	t.Helper()
	s := e.sessions.Create()
	pages := []commonModels.RawPage{{
		PageContent: "the report covers revenue",
		Metadata:    map[string]any{commonModels.MetaSource: "report.pdf", commonModels.MetaPageNumber: 1},
	}}
	if _, err := s.ProcessDocuments(context.Background(), pages, session.TriggerUpload); err != nil {
		t.Fatal(err)
	}
	return s
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	return v
}

func TestChatHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.loaded(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"Valid", `{"message":"revenue?","chatID":"` + s.ID + `"}`, http.StatusAccepted},
		{"Malformed_JSON", `{"message":`, http.StatusBadRequest},
		{"Missing_Message", `{"chatID":"` + s.ID + `"}`, http.StatusBadRequest},
		{"Missing_ChatID", `{"message":"revenue?"}`, http.StatusBadRequest},
		{"Unknown_Session", `{"message":"revenue?","chatID":"nope"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/chat", []byte(tt.body), "application/json")
			if rr.Code != tt.wantCode {
				t.Errorf("Status got %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
		})
	}

	queued := <-env.jobs.JobChannel
	if queued.JobType != jobModel.JobTypeChat || queued.ChatId != s.ID || queued.JobPayload.Question != "revenue?" {
		t.Errorf("unexpected queued job %+v", queued)
	}
	if queued.TraceId != "test-trace" {
		t.Errorf("TraceId got %q", queued.TraceId)
	}
}

func TestGetStatusHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.loaded(t)

	rr := env.do(http.MethodPost, "/chat", []byte(`{"message":"revenue?","chatID":"`+s.ID+`"}`), "application/json")
	init := decode[api.InitJobResponse](t, rr)
	if init.StatusURL != "status/"+init.Id {
		t.Errorf("StatusURL got %s", init.StatusURL)
	}

	rr = env.do(http.MethodGet, "/"+init.StatusURL, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status got %d", rr.Code)
	}
	res := decode[api.JobResponse](t, rr)
	if res.Result.Status != string(jobModel.JobStatusQueued) || res.Result.StatusMessage != config.StatusThinking {
		t.Errorf("unexpected result %+v", res.Result)
	}

	rr = env.do(http.MethodGet, "/status/missing", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing job: got %d, want 404", rr.Code)
	}
}

func multipartBody(t *testing.T, files map[string][]byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(config.UploadFormField, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestPostDocumentsHandler(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n%test document\n")

	t.Run("Accepts_PDF", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartBody(t, map[string][]byte{"report.pdf": pdfBytes})

		rr := env.do(http.MethodPost, "/sessions/s-upload/documents", body, ct)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("Status got %d (%s)", rr.Code, rr.Body.String())
		}
		res := decode[api.UploadResponse](t, rr)
		if res.ChatId != "s-upload" || len(res.Files) != 1 || res.Files[0].Name != "report.pdf" {
			t.Errorf("unexpected response %+v", res)
		}

		queued := <-env.jobs.JobChannel
		if queued.JobType != jobModel.JobTypeIngest || len(queued.JobPayload.IngestFiles) != 1 {
			t.Fatalf("unexpected job %+v", queued)
		}
		stored, err := os.ReadFile(queued.JobPayload.IngestFiles[0].Path)
		if err != nil || !bytes.Equal(stored, pdfBytes) {
			t.Errorf("upload not parked: %v", err)
		}
		if filepath.Dir(queued.JobPayload.IngestFiles[0].Path) != env.upload {
			t.Errorf("upload stored outside %s", env.upload)
		}

		rr = env.do(http.MethodGet, "/sessions/s-upload/files/report.pdf", nil, "")
		if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), pdfBytes) {
			t.Errorf("preview got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type got %s", ct)
		}
	})

	tests := []struct {
		name     string
		files    map[string][]byte
		wantCode int
	}{
		{"No_Files", map[string][]byte{}, http.StatusBadRequest},
		{"Wrong_Extension", map[string][]byte{"notes.txt": []byte("hello")}, http.StatusUnsupportedMediaType},
		{"Renamed_Text", map[string][]byte{"fake.pdf": []byte("hello there")}, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body, ct := multipartBody(t, tt.files)
			rr := env.do(http.MethodPost, "/sessions/s1/documents", body, ct)
			if rr.Code != tt.wantCode {
				t.Errorf("Status got %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if len(env.jobs.JobChannel) != 0 {
				t.Error("rejected upload queued a job")
			}
			entries, _ := os.ReadDir(env.upload)
			if len(entries) != 0 {
				t.Errorf("rejected upload left %d files", len(entries))
			}
		})
	}
}

func TestSessionHandlers(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/sessions", nil, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create got %d", rr.Code)
	}
	created := decode[api.SessionResponse](t, rr)

	rr = env.do(http.MethodGet, "/sessions/"+created.ChatId+"/engine", nil, "")
	if status := decode[api.EngineStatusResponse](t, rr); status.Status != config.StatusEngineNotReady {
		t.Errorf("engine status got %q", status.Status)
	}
	rr = env.do(http.MethodGet, "/sessions/"+created.ChatId+"/index", nil, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("index before build got %d, want 409", rr.Code)
	}

	s := env.loaded(t)
	if _, err := s.Chat(context.Background(), "revenue?"); err != nil {
		t.Fatal(err)
	}

	rr = env.do(http.MethodGet, "/sessions/"+s.ID+"/messages", nil, "")
	msgs := decode[api.MessagesResponse](t, rr)
	if len(msgs.Messages) != 2 || msgs.Messages[0].Role != "human" || msgs.Messages[1].Statement != "stub answer" {
		t.Errorf("unexpected messages %+v", msgs.Messages)
	}

	rr = env.do(http.MethodGet, "/sessions/"+s.ID+"/index", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "the report covers revenue") {
		t.Errorf("index export got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/sessions/"+s.ID+"/reset", nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("reset got %d", rr.Code)
	}
	if history, _ := s.History(context.Background()); len(history) != 0 {
		t.Errorf("history after reset: %v", history)
	}

	rr = env.do(http.MethodPost, "/sessions/"+s.ID+"/reload", nil, "")
	if rr.Code != http.StatusAccepted {
		t.Errorf("reload got %d", rr.Code)
	}
	if queued := <-env.jobs.JobChannel; queued.JobType != jobModel.JobTypeReload {
		t.Errorf("queued %s, want reload", queued.JobType)
	}

	rr = env.do(http.MethodDelete, "/sessions/"+s.ID, nil, "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete got %d", rr.Code)
	}

	for _, path := range []string{
		"/sessions/" + s.ID + "/engine",
		"/sessions/" + s.ID + "/messages",
		"/sessions/" + s.ID + "/files",
		"/sessions/" + s.ID + "/files/report.pdf",
		"/sessions/" + s.ID + "/index",
	} {
		if rr := env.do(http.MethodGet, path, nil, ""); rr.Code != http.StatusNotFound {
			t.Errorf("GET %s after delete got %d, want 404", path, rr.Code)
		}
	}
	if rr := env.do(http.MethodDelete, "/sessions/"+s.ID, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete got %d, want 404", rr.Code)
	}
}

func TestChatsHandlers(t *testing.T) {
	env := newTestEnv(t)
	s := env.loaded(t)
	if _, err := s.Chat(context.Background(), "revenue?"); err != nil {
		t.Fatal(err)
	}

	rr := env.do(http.MethodPost, "/chats/save", []byte(`{"chat_id":"`+s.ID+`"}`), "application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("save got %d (%s)", rr.Code, rr.Body.String())
	}
	saved := decode[api.SavedChatResponse](t, rr)

	rr = env.do(http.MethodPost, "/chats/export",
		[]byte(`{"messages":[{"role":"human","statement":"hi"},{"role":"ai","statement":"hello"}]}`), "application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("export got %d (%s)", rr.Code, rr.Body.String())
	}
	exported := decode[api.SavedChatResponse](t, rr)

	rr = env.do(http.MethodGet, "/chats/"+saved.Name, nil, "")
	loaded := decode[api.MessagesResponse](t, rr)
	if len(loaded.Messages) != 2 || loaded.Messages[0].Statement != "revenue?" {
		t.Errorf("loaded %+v", loaded.Messages)
	}

	rr = env.do(http.MethodGet, "/chats/"+exported.Name, nil, "")
	if got := rr.Body.String(); got != "Human: hi\nAI: hello" {
		t.Errorf("transcript got %q", got)
	}

	bad := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"Empty_Body", `{}`, http.StatusBadRequest},
		{"Unknown_Role", `{"messages":[{"role":"robot","statement":"x"}]}`, http.StatusBadRequest},
		{"Unknown_Session", `{"chat_id":"nope"}`, http.StatusNotFound},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(http.MethodPost, "/chats/save", []byte(tt.body), "application/json"); rr.Code != tt.wantCode {
				t.Errorf("got %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}

	if rr := env.do(http.MethodGet, "/chats/missing.json", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing chat got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/chats", nil, "")
	if list := decode[api.ChatListResponse](t, rr); len(list.Chats) != 2 {
		t.Errorf("list got %d chats, want 2", len(list.Chats))
	}

	rr = env.do(http.MethodPost, "/chats/archive", nil, "")
	if archived := decode[api.ArchiveResponse](t, rr); len(archived.Archived) != 2 {
		t.Errorf("archived %v", archived.Archived)
	}
	rr = env.do(http.MethodGet, "/chats", nil, "")
	if list := decode[api.ChatListResponse](t, rr); len(list.Chats) != 0 {
		t.Errorf("chats left after archive: %d", len(list.Chats))
	}
}
