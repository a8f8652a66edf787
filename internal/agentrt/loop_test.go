package agentrt

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/store"
)

func newTestLoop(t *testing.T, name string) (*Loop, *bus.Bus, *store.Store) {
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

	l := &Loop{
		Name:   name,
		Bus:    b,
		Store:  st,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tick:   20 * time.Millisecond,
	}
	return l, b, st
}

func TestLoopSetsRunningThenStoppedStatus(t *testing.T) {
	l, _, st := newTestLoop(t, "librarian")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		status, err := st.GetAgentStatus("librarian")
		if err == nil && status.Status == store.AgentRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	status, err := st.GetAgentStatus("librarian")
	if err != nil || status.Status != store.AgentRunning {
		t.Fatalf("expected running status before cancel, got %+v err=%v", status, err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	status, err = st.GetAgentStatus("librarian")
	if err != nil || status.Status != store.AgentStopped {
		t.Fatalf("expected stopped status after cancel, got %+v err=%v", status, err)
	}
}

func TestLoopDispatchesAndMarksRead(t *testing.T) {
	l, b, _ := newTestLoop(t, "executor")

	var handled int32
	l.Dispatch = map[bus.Type]Handler{
		bus.TypeExecuteRequest: func(ctx context.Context, msg bus.Message) error {
			atomic.AddInt32(&handled, 1)
			return nil
		},
	}

	msgID, err := b.Send("director", "executor", bus.TypeExecuteRequest, "run it", "{}", bus.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	if atomic.LoadInt32(&handled) != 1 {
		t.Fatalf("expected handler to fire once, got %d", handled)
	}

	thread, err := b.GetThread(msgID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if len(thread) != 1 || !thread[0].Read {
		t.Fatalf("expected dispatched message marked read, got %+v", thread)
	}
}

func TestLoopUnknownTypeIsAcknowledgedNotDropped(t *testing.T) {
	l, b, _ := newTestLoop(t, "director")
	l.Dispatch = map[bus.Type]Handler{}

	msgID, err := b.Send("librarian", "director", bus.Type("mystery"), "s", "{}", bus.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	thread, err := b.GetThread(msgID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if len(thread) != 1 || !thread[0].Read {
		t.Fatalf("expected unknown-type message marked read, got %+v", thread)
	}
}

func TestLoopRunsMaintenanceAtLowerCadence(t *testing.T) {
	l, _, _ := newTestLoop(t, "librarian")
	l.MaintenanceEvery = 3

	var runs int32
	l.Maintenance = func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 160*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	if atomic.LoadInt32(&runs) == 0 {
		t.Fatal("expected at least one maintenance cycle to fire")
	}
}
