package librarian

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/calendar"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

type fakeLLM struct {
	answer string
	err    error
}

func (f *fakeLLM) Name() string    { return "fake" }
func (f *fakeLLM) Available() bool { return true }
func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f.answer, f.err
}

func newTestLibrarian(t *testing.T) (*Librarian, *bus.Bus, *store.Store, string) {
	t.Helper()
	projectDir := t.TempDir()

	b, err := bus.Open(filepath.Join(t.TempDir(), "message_bus.json"))
	if err != nil {
		t.Fatalf("bus.Open: %v", err)
	}
	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	st := store.New(db)

	jw, err := journal.NewWriter(filepath.Join(t.TempDir(), "journal"), filepath.Join(t.TempDir(), "journal", "index.json"))
	if err != nil {
		t.Fatalf("journal.NewWriter: %v", err)
	}

	roots := &config.RootsConfig{
		Roots:           []string{projectDir},
		MaxDepth:        4,
		Extensions:      []string{"py", "go"},
		SkipDirs:        []string{"vendor"},
		PerExtensionCap: 500,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib := New(b, st, jw, &fakeLLM{answer: "the answer"}, roots, config.AgentPersona{}, logger)
	return lib, b, st, projectDir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestOnboardIndexesFilesAndSkipsVendor(t *testing.T) {
	lib, _, st, projectDir := newTestLibrarian(t)
	writeFile(t, projectDir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, projectDir, "app.py", "def handler():\n    pass\n")
	writeFile(t, projectDir, "vendor/skip.go", "package vendor\n")

	if err := lib.Onboard(context.Background()); err != nil {
		t.Fatalf("Onboard: %v", err)
	}

	files, err := st.SearchFileIndex("", "", "", 0)
	if err != nil {
		t.Fatalf("SearchFileIndex: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 indexed files (vendor skipped), got %d: %+v", len(files), files)
	}

	status, err := st.GetAgentStatus(Name)
	if err != nil || status.Status != store.AgentRunning {
		t.Fatalf("expected running status after onboard, got %+v err=%v", status, err)
	}
	if !lib.explorationComplete {
		t.Fatal("expected explorationComplete=true after Onboard")
	}
}

func TestHandleSearchRequestFiles(t *testing.T) {
	lib, b, st, projectDir := newTestLibrarian(t)
	writeFile(t, projectDir, "app.py", "def handler():\n    pass\n")
	if err := st.AddFileToIndex(&store.FileIndexEntry{Path: filepath.Join(projectDir, "app.py"), Extension: "py"}); err != nil {
		t.Fatalf("AddFileToIndex: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"query": "app", "search_type": "files"})
	msgID, err := b.Send("director", Name, bus.TypeSearchRequest, "s", string(body), bus.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, _ := b.GetThread(msgID)

	if err := lib.handleSearchRequest(context.Background(), msg[0]); err != nil {
		t.Fatalf("handleSearchRequest: %v", err)
	}

	reply, err := b.WaitForResponse("director", msgID, 0, 0)
	if err != nil {
		t.Fatalf("WaitForResponse: %v", err)
	}
	if reply == nil {
		t.Fatal("expected a reply")
	}
	if reply.Type != bus.TypeSearchResult {
		t.Fatalf("unexpected reply type: %s", reply.Type)
	}
}

func TestHandleIndexRequestIndexesSingleFile(t *testing.T) {
	lib, b, st, projectDir := newTestLibrarian(t)
	writeFile(t, projectDir, "single.go", "package main\n")
	path := filepath.Join(projectDir, "single.go")

	body, _ := json.Marshal(map[string]any{"path": path})
	msgID, err := b.Send("director", Name, bus.TypeIndexRequest, "s", string(body), bus.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, _ := b.GetThread(msgID)

	if err := lib.handleIndexRequest(context.Background(), msg[0]); err != nil {
		t.Fatalf("handleIndexRequest: %v", err)
	}

	entries, err := st.SearchFileIndex("", "", path, 0)
	if err != nil {
		t.Fatalf("SearchFileIndex: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected file indexed, got %d entries", len(entries))
	}
}

func TestHandleKnowledgeRequestRepliesWithAnswer(t *testing.T) {
	lib, b, _, _ := newTestLibrarian(t)

	body, _ := json.Marshal(map[string]any{"question": "what is the plan?"})
	msgID, err := b.Send("director", Name, bus.TypeKnowledgeRequest, "s", string(body), bus.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, _ := b.GetThread(msgID)

	if err := lib.handleKnowledgeRequest(context.Background(), msg[0]); err != nil {
		t.Fatalf("handleKnowledgeRequest: %v", err)
	}

	reply, err := b.WaitForResponse("director", msgID, 0, 0)
	if err != nil {
		t.Fatalf("WaitForResponse: %v", err)
	}
	if reply == nil || reply.Type != bus.TypeKnowledgeResult {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(reply.Body), &payload); err != nil {
		t.Fatalf("unmarshal reply body: %v", err)
	}
	if payload["answer"] != "the answer" {
		t.Fatalf("unexpected answer: %+v", payload)
	}
}

func TestPrepareMeetingRecordsBrief(t *testing.T) {
	lib, _, st, _ := newTestLibrarian(t)

	event := calendar.Event{
		ID:      "evt-1",
		Subject: "Roadmap review",
		Start:   time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
		Location: "Room 4",
		Attendees: []calendar.Attendee{{Name: "Ada"}, {Email: "bob@example.com"}},
	}

	brief, err := lib.PrepareMeeting(context.Background(), event)
	if err != nil {
		t.Fatalf("PrepareMeeting: %v", err)
	}
	if brief != "the answer" {
		t.Fatalf("unexpected brief: %q", brief)
	}

	prep, err := st.GetLatestMeetingPrep("evt-1")
	if err != nil {
		t.Fatalf("GetLatestMeetingPrep: %v", err)
	}
	if prep.Brief != "the answer" || prep.CreatedBy != Name {
		t.Fatalf("unexpected meeting prep: %+v", prep)
	}
}

func TestCreateKnowledgeDigestWritesJournalEntry(t *testing.T) {
	lib, _, _, _ := newTestLibrarian(t)

	if _, err := lib.journal.WriteEntry("librarian", []string{"architecture"}, "service boundaries", "body", journal.DecaySlow); err != nil {
		t.Fatalf("seed journal entry: %v", err)
	}

	digest, err := lib.CreateKnowledgeDigest(context.Background())
	if err != nil {
		t.Fatalf("CreateKnowledgeDigest: %v", err)
	}
	if digest != "the answer" {
		t.Fatalf("unexpected digest: %q", digest)
	}

	recent := lib.journal.Index().GetRecent(5)
	found := false
	for _, e := range recent {
		if e.Summary == "Knowledge Digest" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'Knowledge Digest' entry to be logged to the journal")
	}
}

func TestMaintenanceIsCleanWhenIndexIsConsistent(t *testing.T) {
	lib, _, st, _ := newTestLibrarian(t)

	if _, err := lib.journal.WriteEntry("librarian", []string{"ops"}, "healthy entry", "body", journal.DecayMedium); err != nil {
		t.Fatalf("seed journal entry: %v", err)
	}

	if err := lib.maintenance(context.Background()); err != nil {
		t.Fatalf("maintenance: %v", err)
	}

	alerts, err := st.GetAlerts("", nil)
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts when nothing is stale, got %+v", alerts)
	}
}
