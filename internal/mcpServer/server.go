package mcpServer

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/PDFChat/internal/data/chatArchive"
	"github.com/akolanti/PDFChat/internal/session"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

var ErrMissingDependency = errors.New("mcp: sessions and archive are required")

// Server exposes the session operations as MCP tools.
type Server struct {
	sessions *session.Manager
	archive  *chatArchive.Archive
	server   *mcp.Server
	logger   *logger_i.Logger
}

func NewServer(sessions *session.Manager, archive *chatArchive.Archive) (*Server, error) {
	if sessions == nil || archive == nil {
		return nil, ErrMissingDependency
	}
	s := &Server{
		sessions: sessions,
		archive:  archive,
		server:   mcp.NewServer(&mcp.Implementation{Name: "pdfchat", Version: Version}, nil),
		logger:   logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) session(id string) (*session.Session, error) {
	if id == "" {
		return nil, errors.New("session_id is required")
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	return sess, nil
}
