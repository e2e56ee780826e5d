package mcpServer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/internal/session"
	"github.com/gabriel-vasile/mimetype"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type IngestInput struct {
	SessionID string   `json:"session_id,omitempty" jsonschema:"session to load the PDFs into, a new one is created when empty"`
	Paths     []string `json:"paths" jsonschema:"paths of the PDF files to index"`
}

type IngestOutput struct {
	SessionID    string   `json:"session_id"`
	Documents    int      `json:"documents"`
	Chunks       int      `json:"chunks"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Summaries    []string `json:"summaries"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session id returned by ingest_pdfs"`
}

type ChatInput struct {
	SessionID string `json:"session_id" jsonschema:"the session id returned by ingest_pdfs"`
	Message   string `json:"message" jsonschema:"the question to ask about the PDFs"`
}

type ChatOutput struct {
	Response string           `json:"response"`
	Sources  []map[string]any `json:"sources"`
}

type StatusOutput struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type FileOutput struct {
	Path string `json:"path"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_pdfs",
		Description: "Index PDF files so questions can be asked about them",
	}, s.handleIngest)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask a question about the PDFs loaded in a session",
	}, s.handleChat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_chat",
		Description: "Clear the chat memory of a session",
	}, s.handleReset)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "engine_status",
		Description: "Tell whether a session's chat engine is ready",
	}, s.handleEngineStatus)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_chat",
		Description: "Save a session's chat as JSON in the chats directory",
	}, s.handleSave)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_chat",
		Description: "Export a session's chat as a text transcript in the chats directory",
	}, s.handleExport)
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Paths) == 0 {
		return nil, IngestOutput{}, errors.New("at least one path is required")
	}

	var pages []commonModels.RawPage
	for _, path := range input.Paths {
		if !isPDF(path) {
			return nil, IngestOutput{}, errors.New(path + ": only PDF files are accepted")
		}
		filePages, err := ingest.ExtractPDFFile(path)
		if err != nil {
			return nil, IngestOutput{}, err
		}
		pages = append(pages, filePages...)
	}

	var sess *session.Session
	if input.SessionID == "" {
		sess = s.sessions.Create()
	} else {
		sess = s.sessions.GetOrCreate(input.SessionID)
	}

	report, err := sess.ProcessDocuments(ctx, pages, session.TriggerUpload)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{
		SessionID:    sess.ID,
		Documents:    report.Documents,
		Chunks:       report.Index.ChunkCount,
		ChunkSize:    report.Params.ChunkSize,
		ChunkOverlap: report.Params.ChunkOverlap,
		Summaries:    report.Summaries,
	}, nil
}

func (s *Server) handleChat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, ChatOutput, error) {
	if input.Message == "" {
		return nil, ChatOutput{}, errors.New("message is required")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	res, err := sess.Chat(ctx, input.Message)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	sources := make([]map[string]any, len(res.Metadata))
	for i, m := range res.Metadata {
		sources[i] = m
	}
	return nil, ChatOutput{Response: res.Response, Sources: sources}, nil
}

func (s *Server) handleReset(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, StatusOutput, error) {
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if err := sess.ResetChatEngine(ctx); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{SessionID: sess.ID, Status: sess.EngineStatus()}, nil
}

func (s *Server) handleEngineStatus(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, StatusOutput, error) {
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{SessionID: sess.ID, Status: sess.EngineStatus()}, nil
}

func (s *Server) handleSave(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, FileOutput, error) {
	return s.persist(ctx, input, s.archive.SaveChat)
}

func (s *Server) handleExport(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, FileOutput, error) {
	return s.persist(ctx, input, s.archive.ExportChat)
}

func (s *Server) persist(ctx context.Context, input SessionInput, write func([]commonModels.ChatMessage) (string, error)) (*mcp.CallToolResult, FileOutput, error) {
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, FileOutput{}, err
	}
	history, err := sess.History(ctx)
	if err != nil {
		return nil, FileOutput{}, err
	}
	path, err := write(history)
	if err != nil {
		return nil, FileOutput{}, err
	}
	return nil, FileOutput{Path: path}, nil
}

func isPDF(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return false
	}
	mtype, err := mimetype.DetectFile(path)
	return err == nil && mtype.Is("application/pdf")
}
