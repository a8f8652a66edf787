package director

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/store"
)

func newTestDirector(t *testing.T) (*Director, *bus.Bus, *store.Store) {
	t.Helper()
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(b, st, jw, nil, nil, config.AgentPersona{}, logger)
	d.peerTimeout = 60 * time.Millisecond
	return d, b, st
}

func TestClassifyHeuristics(t *testing.T) {
	cases := map[string]intent{
		"Can you find the auth module?":            intentFileSearch,
		"please run rm -rf /tmp/build":             intentExecute,
		"what's the latest news on Go 1.24?":       intentExternalCode,
		"hello there":                              intentGreeting,
		"What do you think about our task backlog?": intentDirect,
	}
	for question, want := range cases {
		if got := classify(question); got != want {
			t.Errorf("classify(%q) = %v, want %v", question, got, want)
		}
	}
}

func TestHandlePeerResultSatisfiesAwaitReply(t *testing.T) {
	d, b, _ := newTestDirector(t)

	reqID, err := b.RequestSearch(Name, "python files", "/tmp", "smart", bus.PriorityMedium)
	if err != nil {
		t.Fatalf("RequestSearch: %v", err)
	}

	resultCh := make(chan struct {
		msg *bus.Message
		err error
	}, 1)
	go func() {
		msg, err := d.awaitReply(context.Background(), reqID)
		resultCh <- struct {
			msg *bus.Message
			err error
		}{msg, err}
	}()

	time.Sleep(10 * time.Millisecond)
	if _, err := b.SendResult("librarian", Name, bus.TypeSearchResult,
		map[string]any{"success": true, "summary": "found 1 file"}, bus.PriorityMedium, reqID); err != nil {
		t.Fatalf("SendResult: %v", err)
	}

	pending, err := b.GetPending(Name)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	for _, msg := range pending {
		if err := d.handlePeerResult(context.Background(), msg); err != nil {
			t.Fatalf("handlePeerResult: %v", err)
		}
	}

	res := <-resultCh
	if res.err != nil {
		t.Fatalf("awaitReply: %v", res.err)
	}
	if res.msg == nil {
		t.Fatal("expected a reply, got nil (timeout)")
	}
}

func TestAwaitReplyTimesOutWithoutReply(t *testing.T) {
	d, _, _ := newTestDirector(t)
	msg, err := d.awaitReply(context.Background(), "nonexistent-request-id")
	if err != nil {
		t.Fatalf("awaitReply: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil reply on timeout, got %+v", msg)
	}
}

func TestHandleBlockerCreatesAlert(t *testing.T) {
	d, b, st := newTestDirector(t)

	id, err := b.ReportBlocker("executor", "missing dependency", bus.PriorityHigh)
	if err != nil {
		t.Fatalf("ReportBlocker: %v", err)
	}
	msgs, err := b.GetThread(id)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}

	if err := d.handleBlocker(context.Background(), msgs[0]); err != nil {
		t.Fatalf("handleBlocker: %v", err)
	}

	alerts, err := st.GetAlerts("", nil)
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
}

func TestHandleDiscoveryPersists(t *testing.T) {
	d, b, st := newTestDirector(t)

	id, err := b.ShareDiscovery("librarian", "director", "exploration_complete", map[string]any{"files_indexed": 3}, bus.PriorityLow)
	if err != nil {
		t.Fatalf("ShareDiscovery: %v", err)
	}
	msgs, err := b.GetThread(id)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}

	if err := d.handleDiscovery(context.Background(), msgs[0]); err != nil {
		t.Fatalf("handleDiscovery: %v", err)
	}

	discoveries, err := st.GetRecentDiscoveries("librarian", 10)
	if err != nil {
		t.Fatalf("GetRecentDiscoveries: %v", err)
	}
	if len(discoveries) != 1 {
		t.Fatalf("expected 1 discovery, got %d", len(discoveries))
	}
}

func TestReviewApprovalHeuristic(t *testing.T) {
	if !approved("Looks good, this can be marked as complete.") {
		t.Fatal("expected approved() to recognize an approving review")
	}
	if approved("Needs more work before this is done.") {
		t.Fatal("expected approved() to reject a non-approving review")
	}
}
