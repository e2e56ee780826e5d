package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/robfig/cron/v3"
)

// Refresher keeps at most one cron entry per session.
type Refresher struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	logger  *logger_i.Logger
}

type cronLogger struct {
	logger *logger_i.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

func NewRefresher() *Refresher {
	logger := logger_i.NewLogger("Refresher")
	cl := cronLogger{logger: logger}
	r := &Refresher{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
	r.cron.Start()
	return r
}

// Schedule registers fn under spec for sessionID, replacing any earlier entry.
func (r *Refresher) Schedule(sessionID, spec string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	if old, ok := r.entries[sessionID]; ok {
		r.cron.Remove(old)
	}
	r.entries[sessionID] = id
	r.logger.Info("Index refresh scheduled", "session", sessionID, "spec", spec, "next", r.cron.Entry(id).Next)
	return nil
}

func (r *Refresher) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[sessionID]; ok {
		r.cron.Remove(id)
		delete(r.entries, sessionID)
		r.logger.Info("Index refresh cancelled", "session", sessionID)
	}
}

// Next reports the next run of the session's refresh, if one is scheduled.
func (r *Refresher) Next(sessionID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.entries[sessionID]
	if !ok {
		return time.Time{}, false
	}
	return r.cron.Entry(id).Next, true
}

// Stop halts the scheduler and waits for running refreshes or ctx, whichever ends first.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.logger.Warn("Refresher stop timed out")
	}
}
