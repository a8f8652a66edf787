package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
	"github.com/madhatter5501/aegis/internal/audit"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/codingassistant"
)

type claudeCodeRequestBody struct {
	Prompt     string `json:"prompt"`
	Cwd        string `json:"cwd"`
	AllowEdits bool   `json:"allow_edits"`
	Timeout    int    `json:"timeout"`
	Model      string `json:"model"`
}

// handleClaudeCodeRequest delegates to the external coding-assistant CLI
// collaborator (spec.md §6). ToolUnavailable (the binary is missing) is
// a recoverable condition: it is reported as a failed result, not an
// agent loop abort.
func (e *Executor) handleClaudeCodeRequest(ctx context.Context, msg bus.Message) error {
	var req claudeCodeRequestBody
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return e.replyErr(msg, bus.TypeClaudeCodeResult, "decode claude_code_request", err)
	}

	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	var result codingassistant.Result
	_, err := audit.ToolCall(e.store, e.logger, Name, len(req.Prompt), func() (string, error) {
		var runErr error
		result, runErr = e.assistant.Run(ctx, req.Prompt, req.Cwd, req.Model, req.AllowEdits, timeout)
		return result.Output, runErr
	})
	if err != nil {
		if apperr.Is(err, apperr.KindToolUnavailable) {
			_, sendErr := e.bus.SendResult(Name, msg.From, bus.TypeClaudeCodeResult,
				map[string]any{"success": false, "error": err.Error()}, bus.PriorityMedium, msg.ID)
			return sendErr
		}
		return e.replyErr(msg, bus.TypeClaudeCodeResult, "run coding assistant", err)
	}

	payload := map[string]any{"success": result.Success, "output": result.Output}
	if result.Error != "" {
		payload["error"] = result.Error
	}
	_, sendErr := e.bus.SendResult(Name, msg.From, bus.TypeClaudeCodeResult, payload, bus.PriorityMedium, msg.ID)
	return sendErr
}
