package chatArchive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var (
	ErrInvalidName = errors.New("invalid chat file name")
	ErrNotFound    = errors.New("chat file not found")
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Archive persists chat histories as files under dir and moves them to archiveDir on demand.
type Archive struct {
	dir        string
	archiveDir string
	now        func() time.Time
	logger     *logger_i.Logger
}

type ChatFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func New(dir, archiveDir string) *Archive {
	return &Archive{
		dir:        dir,
		archiveDir: archiveDir,
		now:        time.Now,
		logger:     logger_i.NewLogger("Chat Archive"),
	}
}

// WithClock swaps the time source used for file names.
func (a *Archive) WithClock(now func() time.Time) *Archive {
	a.now = now
	return a
}

func (a *Archive) Dir() string { return a.dir }

// stamp renders the current time as an ISO timestamp safe for file names.
func (a *Archive) stamp() string {
	ts := a.now().UTC().Format(timestampLayout)
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

// SaveChat writes history as indented JSON to chat-<timestamp>.json and returns the path.
func (a *Archive) SaveChat(history []commonModels.ChatMessage) (string, error) {
	if history == nil {
		history = []commonModels.ChatMessage{}
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", err
	}
	return a.write("chat-"+a.stamp()+".json", data)
}

// ExportChat writes history as plain text, one "AI: " or "Human: " line per message.
func (a *Archive) ExportChat(history []commonModels.ChatMessage) (string, error) {
	return a.write("chat-"+a.stamp()+".txt", []byte(FormatTranscript(history)))
}

func FormatTranscript(history []commonModels.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		prefix := "Human: "
		if m.Role == commonModels.RoleAI {
			prefix = "AI: "
		}
		lines = append(lines, prefix+m.Statement)
	}
	return strings.Join(lines, "\n")
}

func (a *Archive) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chats dir: %w", err)
	}
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	a.logger.Info("Chat written", "path", path)
	return path, nil
}

// LoadChatHistory reads a saved JSON chat. A missing file yields an empty history.
func (a *Archive) LoadChatHistory(name string) ([]commonModels.ChatMessage, error) {
	path, err := a.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []commonModels.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	var history []commonModels.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if history == nil {
		history = []commonModels.ChatMessage{}
	}
	return history, nil
}

// ReadFile returns the raw contents of a saved chat.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	path, err := a.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (a *Archive) ListChats() ([]ChatFile, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []ChatFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]ChatFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, ChatFile{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ArchiveChats moves every file in the chats dir into the archive dir and returns the moved names.
// A missing chats dir is logged and treated as nothing to archive.
func (a *Archive) ArchiveChats() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("Chats directory does not exist, nothing to archive", "dir", a.dir)
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	moved := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(a.dir, e.Name())
		dst := filepath.Join(a.archiveDir, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("archive %s: %w", e.Name(), err)
		}
		moved = append(moved, e.Name())
	}
	a.logger.Info("Chats archived", "count", len(moved), "archiveDir", a.archiveDir)
	return moved, nil
}

func (a *Archive) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(a.dir, name), nil
}
