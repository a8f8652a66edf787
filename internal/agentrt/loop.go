// Package agentrt implements the event-loop contract shared by the three
// peer agents (Director, Librarian, Executor) described in spec.md §4.6:
// heartbeat on entry, drain-and-dispatch pending bus messages every tick,
// perform domain maintenance at a lower cadence, and report stopped on
// exit.
package agentrt

import (
	"context"
	"log/slog"
	"time"

	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/store"
)

// Handler processes one dispatched message. Any error it returns is logged
// by the loop and the message is marked read; the loop sends no failed
// result on the handler's behalf, so a handler that owes a reply sends it
// itself.
type Handler func(ctx context.Context, msg bus.Message) error

// Loop drives one agent's event loop: heartbeat, drain pending messages by
// type, and run a maintenance callback every maintenanceEvery ticks.
type Loop struct {
	Name            string
	Bus             *bus.Bus
	Store           *store.Store
	Logger          *slog.Logger
	Tick            time.Duration
	MaintenanceEvery int
	Dispatch        map[bus.Type]Handler
	Maintenance     func(ctx context.Context) error
}

// defaultTick matches spec.md §4.6's "loop every ≤1s while running".
const defaultTick = 1 * time.Second

// Run blocks until ctx is cancelled, driving the event-loop discipline
// common to all three agents. It always sets status=running on entry and
// status=stopped on exit, even if ctx is already cancelled.
func (l *Loop) Run(ctx context.Context) {
	tick := l.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	maintenanceEvery := l.MaintenanceEvery
	if maintenanceEvery <= 0 {
		maintenanceEvery = 10
	}

	if err := l.Store.UpdateAgentStatus(l.Name, store.AgentRunning, ""); err != nil {
		l.Logger.Error("set running status failed", "agent", l.Name, "error", err)
	}
	defer func() {
		if err := l.Store.UpdateAgentStatus(l.Name, store.AgentStopped, ""); err != nil {
			l.Logger.Error("set stopped status failed", "agent", l.Name, "error", err)
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var ticks int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			l.runOnce(ctx, ticks, maintenanceEvery)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, ticks, maintenanceEvery int) {
	if err := l.Store.AgentHeartbeat(l.Name); err != nil {
		l.Logger.Error("heartbeat failed", "agent", l.Name, "error", err)
	}

	pending, err := l.Bus.GetPending(l.Name)
	if err != nil {
		l.Logger.Error("get pending failed", "agent", l.Name, "error", err)
	}
	for _, msg := range pending {
		l.dispatchOne(ctx, msg)
	}

	if ticks%maintenanceEvery == 0 && l.Maintenance != nil {
		if err := l.Maintenance(ctx); err != nil {
			l.Logger.Error("maintenance cycle failed", "agent", l.Name, "error", err)
		}
	}
}

func (l *Loop) dispatchOne(ctx context.Context, msg bus.Message) {
	handler, ok := l.Dispatch[msg.Type]
	if !ok {
		l.Logger.Warn("unhandled message type", "agent", l.Name, "type", msg.Type, "from", msg.From)
		if err := l.Bus.MarkRead(msg.ID); err != nil {
			l.Logger.Error("mark read failed", "agent", l.Name, "msg_id", msg.ID, "error", err)
		}
		return
	}

	if err := handler(ctx, msg); err != nil {
		l.Logger.Error("message handler failed", "agent", l.Name, "type", msg.Type, "from", msg.From, "error", err)
	}
	if err := l.Bus.MarkRead(msg.ID); err != nil {
		l.Logger.Error("mark read failed", "agent", l.Name, "msg_id", msg.ID, "error", err)
	}
}
