package audit

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/aegis/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLLMCallRecordsSizesAndDuration(t *testing.T) {
	st := newTestStore(t)

	answer, err := LLMCall(st, discardLogger(), "librarian", 42, func() (string, error) {
		return "the answer", nil
	})
	if err != nil {
		t.Fatalf("LLMCall: %v", err)
	}
	if answer != "the answer" {
		t.Fatalf("unexpected answer: %q", answer)
	}

	entries, err := st.GetRecentAuditEntries("librarian", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.EventType != store.AuditLLMCall {
		t.Fatalf("expected llm_call event type, got %s", e.EventType)
	}
	if e.PromptSize != 42 || e.ResponseSize != len("the answer") {
		t.Fatalf("unexpected sizes: %+v", e)
	}
	if e.Error != "" {
		t.Fatalf("expected no error recorded, got %q", e.Error)
	}
}

func TestLLMCallRecordsErrorWithoutSuppressingIt(t *testing.T) {
	st := newTestStore(t)
	wantErr := errors.New("provider unavailable")

	_, err := LLMCall(st, discardLogger(), "director", 10, func() (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error propagated, got %v", err)
	}

	entries, err := st.GetRecentAuditEntries("director", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Error != wantErr.Error() {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestToolCallRecordsAsToolEventType(t *testing.T) {
	st := newTestStore(t)

	output, err := ToolCall(st, discardLogger(), "executor", 5, func() (string, error) {
		return "ran fine", nil
	})
	if err != nil {
		t.Fatalf("ToolCall: %v", err)
	}
	if output != "ran fine" {
		t.Fatalf("unexpected output: %q", output)
	}

	entries, err := st.GetRecentAuditEntries("executor", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].EventType != store.AuditToolCall {
		t.Fatalf("expected tool_call event type, got %+v", entries)
	}
}
