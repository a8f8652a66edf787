// Package audit records the LLM calls and tool invocations that peer agents
// route through LLMCall and ToolCall, generalizing the teacher's per-ticket agent_audit_log
// (agents/audit.go) to per-message-bus exchange.
package audit

import (
	"log/slog"
	"time"

	"github.com/madhatter5501/aegis/internal/store"
)

// LLMCall times fn, then records a prompt/response-size audit entry for
// agent. Errors from the store write are logged, not returned, so a
// degraded audit log never blocks the underlying agent behavior.
func LLMCall(st *store.Store, logger *slog.Logger, agent string, promptSize int, fn func() (string, error)) (string, error) {
	start := time.Now()
	answer, err := fn()
	entry := &store.AuditEntry{
		Agent:        agent,
		EventType:    store.AuditLLMCall,
		PromptSize:   promptSize,
		ResponseSize: len(answer),
		DurationMS:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if recordErr := st.AddAuditEntry(entry); recordErr != nil {
		logger.Error("audit log write failed", "agent", agent, "error", recordErr)
	}
	return answer, err
}

// ToolCall times fn, then records a tool-invocation audit entry for agent.
func ToolCall(st *store.Store, logger *slog.Logger, agent string, promptSize int, fn func() (string, error)) (string, error) {
	start := time.Now()
	output, err := fn()
	entry := &store.AuditEntry{
		Agent:        agent,
		EventType:    store.AuditToolCall,
		PromptSize:   promptSize,
		ResponseSize: len(output),
		DurationMS:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if recordErr := st.AddAuditEntry(entry); recordErr != nil {
		logger.Error("audit log write failed", "agent", agent, "error", recordErr)
	}
	return output, err
}
