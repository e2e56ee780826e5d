package chatArchive

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 10, 20, 30, 456_000_000, time.UTC)
}

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "chats"), filepath.Join(root, "archive")).WithClock(fixedClock)
}

func TestSaveChat_RoundTrip(t *testing.T) {
	a := newTestArchive(t)
	history := []commonModels.ChatMessage{{Role: commonModels.RoleHuman, Statement: "hi"}}

	path, err := a.SaveChat(history)
	if err != nil {
		t.Fatalf("SaveChat: %v", err)
	}
	if got, want := filepath.Base(path), "chat-2024-03-05T10-20-30-456Z.json"; got != want {
		t.Errorf("file name got %s, want %s", got, want)
	}

	raw, _ := os.ReadFile(path)
	var decoded []map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("saved file is not json: %v", err)
	}
	if decoded[0]["role"] != "human" || decoded[0]["statement"] != "hi" {
		t.Errorf("unexpected content %s", raw)
	}

	loaded, err := a.LoadChatHistory(filepath.Base(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0] != history[0] {
		t.Errorf("round trip got %+v", loaded)
	}
}

func TestExportChat_Transcript(t *testing.T) {
	a := newTestArchive(t)
	history := []commonModels.ChatMessage{
		{Role: commonModels.RoleHuman, Statement: "what is X?"},
		{Role: commonModels.RoleAI, Statement: "X is Y."},
	}

	path, err := a.ExportChat(history)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".txt" {
		t.Errorf("export extension got %s", filepath.Ext(path))
	}
	raw, _ := os.ReadFile(path)
	if want := "Human: what is X?\nAI: X is Y."; string(raw) != want {
		t.Errorf("transcript got %q, want %q", raw, want)
	}
}

func TestLoadChatHistory_Missing(t *testing.T) {
	a := newTestArchive(t)
	history, err := a.LoadChatHistory("nope.json")
	if err != nil {
		t.Fatal(err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("missing file should give empty history, got %#v", history)
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	a := newTestArchive(t)
	for _, name := range []string{"", "../secret", "a/b.json", ".hidden"} {
		if _, err := a.ReadFile(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ReadFile(%q) err = %v", name, err)
		}
	}
}

func TestArchiveChats(t *testing.T) {
	a := newTestArchive(t)

	moved, err := a.ArchiveChats()
	if err != nil || len(moved) != 0 {
		t.Fatalf("archive of missing dir = %v, %v", moved, err)
	}

	if _, err := a.SaveChat(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ExportChat(nil); err != nil {
		t.Fatal(err)
	}
	listed, _ := a.ListChats()
	if len(listed) != 2 {
		t.Fatalf("ListChats got %d files", len(listed))
	}

	moved, err = a.ArchiveChats()
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 2 {
		t.Errorf("moved %d files, want 2", len(moved))
	}
	if left, _ := a.ListChats(); len(left) != 0 {
		t.Errorf("chats dir not emptied: %+v", left)
	}
	if _, err := os.Stat(filepath.Join(a.archiveDir, moved[0])); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}
