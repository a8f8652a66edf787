package director

import (
	"context"
	"fmt"
	"strings"

	"github.com/madhatter5501/aegis/internal/apperr"
	"github.com/madhatter5501/aegis/internal/audit"
	"github.com/madhatter5501/aegis/internal/llm"
)

// ReviewTask reviews a task's progress and recommends next steps, per
// spec.md §4.6's legacy review_request handling.
func (d *Director) ReviewTask(ctx context.Context, taskID string) (string, error) {
	task, err := d.store.GetTask(taskID)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Review this task and provide feedback:

Task ID: %s
Title: %s
Description: %s
Status: %s
Owner: %s
Priority: %s

Provide an assessment of progress, any concerns, and recommendations for
next steps. State clearly whether this task can be marked complete.`,
		task.ID, task.Title, task.Description, task.Status, task.Owner, task.Priority)

	systemPrompt := d.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are the Director, a user-facing coordination agent."
	}

	review, err := audit.LLMCall(d.store, d.logger, Name, len(systemPrompt)+len(prompt), func() (string, error) {
		return d.llm.Complete(ctx, d.persona.Provider, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens:    1024,
		})
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "review task %s", taskID)
	}
	if approved(review) {
		if err := d.store.UpdateTaskStatus(task.ID, "completed"); err != nil {
			d.logger.Error("update task status after review approval failed", "error", err)
		}
	}
	return review, nil
}

// approved mirrors the upstream heuristic for detecting an approving
// review without requiring a structured LLM response.
func approved(review string) bool {
	lower := strings.ToLower(review)
	for _, phrase := range []string{"approved", "can be marked as complete", "looks good"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
