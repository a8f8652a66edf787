// Package executor implements the Executor peer agent (spec.md §4.6):
// command execution with a dangerous-pattern denylist, file operations,
// external coding-assistant delegation, and opportunistic task pickup
// when idle.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/madhatter5501/aegis/internal/agentrt"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/codingassistant"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

// Name is the agent_name used in the bus and state store.
const Name = "executor"

// historyLimit bounds the in-memory command history ring, per spec.md
// §4.6's "last 100".
const historyLimit = 100

// CommandResult is one entry of the execute_request history ring.
type CommandResult struct {
	Command    string    `json:"command"`
	Cwd        string    `json:"cwd"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	ReturnCode int       `json:"return_code"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
}

// Executor is the action-taking peer agent.
type Executor struct {
	bus       *bus.Bus
	store     *store.Store
	assistant *codingassistant.Assistant
	llm       *llm.Factory
	logger    *slog.Logger
	persona   config.AgentPersona

	mu      sync.Mutex
	history []CommandResult
}

// New wires an Executor from its collaborators.
func New(b *bus.Bus, st *store.Store, assistant *codingassistant.Assistant, factory *llm.Factory, persona config.AgentPersona, logger *slog.Logger) *Executor {
	return &Executor{
		bus:       b,
		store:     st,
		assistant: assistant,
		llm:       factory,
		persona:   persona,
		logger:    logger,
	}
}

// Loop builds the shared agentrt.Loop for this agent. Maintenance is the
// opportunistic idle-task pickup, run every tick so the Executor grabs
// pending work promptly.
func (e *Executor) Loop() *agentrt.Loop {
	return &agentrt.Loop{
		Name:             Name,
		Bus:              e.bus,
		Store:            e.store,
		Logger:           e.logger,
		MaintenanceEvery: 1,
		Dispatch: map[bus.Type]agentrt.Handler{
			bus.TypeExecuteRequest:    e.handleExecuteRequest,
			bus.TypeFileRequest:       e.handleFileRequest,
			bus.TypeClaudeCodeRequest: e.handleClaudeCodeRequest,
			bus.TypeStatusRequest:     e.handleStatusRequest,
		},
		Maintenance: e.pickUpIdleTask,
	}
}

func (e *Executor) recordHistory(r CommandResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, r)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

func (e *Executor) recentHistory(n int) []CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > len(e.history) {
		n = len(e.history)
	}
	return append([]CommandResult(nil), e.history[len(e.history)-n:]...)
}

func (e *Executor) replyErr(msg bus.Message, typ bus.Type, stage string, err error) error {
	payload := map[string]any{"success": false, "error": err.Error()}
	if _, sendErr := e.bus.SendResult(Name, msg.From, typ, payload, bus.PriorityMedium, msg.ID); sendErr != nil {
		e.logger.Error("send result failed", "stage", stage, "error", sendErr)
	}
	return err
}

func (e *Executor) handleStatusRequest(ctx context.Context, msg bus.Message) error {
	var current *store.Task
	tasks, err := e.store.GetTasks(store.TaskInProgress)
	if err == nil {
		for i := range tasks {
			if tasks[i].Owner == Name {
				current = &tasks[i]
				break
			}
		}
	}
	payload := map[string]any{
		"success":         true,
		"current_task":    current,
		"recent_commands": e.recentHistory(5),
	}
	_, sendErr := e.bus.SendResult(Name, msg.From, bus.TypeStatusResponse, payload, bus.PriorityMedium, msg.ID)
	return sendErr
}
