package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager is the registry of live sessions.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	svc         rag.Service
	refresher   *Refresher
	refreshSpec string
	logger      *logger_i.Logger
}

// NewManager wires sessions to svc. A nil refresher or empty spec disables scheduled refreshes.
func NewManager(svc rag.Service, refresher *Refresher, refreshSpec string) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		svc:         svc,
		refresher:   refresher,
		refreshSpec: refreshSpec,
		logger:      logger_i.NewLogger("Session Manager"),
	}
}

func (m *Manager) Create() *Session {
	return m.GetOrCreate(utils.GetNewUUID())
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) GetOrCreate(id string) *Session {
	if s, ok := m.Get(id); ok {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := newSession(id, m.svc, m.refresher, m.refreshSpec)
	m.sessions[id] = s
	metrics.IncrementActiveSessions()
	m.logger.Info("Session created", "session", id)
	return s
}

func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	metrics.DecrementActiveSessions()
	s.Close(ctx)
	return nil
}

func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(ctx, id)
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// NextRefresh reports when the session's index is next rebuilt by the scheduler.
func (m *Manager) NextRefresh(id string) (time.Time, bool) {
	if m.refresher == nil {
		return time.Time{}, false
	}
	return m.refresher.Next(id)
}
