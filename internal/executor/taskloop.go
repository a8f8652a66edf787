package executor

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

// blockedPhrases mirrors the upstream executor's response-scan heuristic for
// detecting a blocker in free-form LLM output, rather than a structured
// status field.
var blockedPhrases = []string{
	"blocker", "blocked by", "cannot proceed", "waiting for", "dependency",
}

// priorityRank gives true severity order. store.GetTasks returns tasks
// newest first with no priority ordering, so callers that care about
// priority re-sort in Go by this rank.
func priorityRank(p store.Priority) int {
	switch p {
	case store.PriorityHigh:
		return 0
	case store.PriorityMedium:
		return 1
	case store.PriorityLow:
		return 2
	default:
		return 3
	}
}

// pickUpIdleTask implements spec.md §4.6's opportunistic task pickup: pick
// the highest-priority, oldest pending task, claim it, run it through the
// LLM, and transition it to completed+review_request or blocked+blocker.
func (e *Executor) pickUpIdleTask(ctx context.Context) error {
	if e.llm == nil {
		return nil
	}

	pending, err := e.store.GetTasks(store.TaskPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		ri, rj := priorityRank(pending[i].Priority), priorityRank(pending[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	task := pending[0]

	task.Owner = Name
	task.Status = store.TaskInProgress
	if err := e.store.UpdateTask(&task); err != nil {
		return err
	}

	response, err := e.runTask(ctx, &task)
	if err != nil {
		e.logger.Error("run task failed", "task_id", task.ID, "error", err)
		return err
	}

	if reason, blocked := detectBlocker(response); blocked {
		task.Status = store.TaskBlocked
		if err := e.store.UpdateTask(&task); err != nil {
			return err
		}
		_, sendErr := e.bus.ReportBlocker(Name, reason, bus.PriorityHigh)
		return sendErr
	}

	task.Status = store.TaskCompleted
	if err := e.store.UpdateTask(&task); err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{"task_id": task.ID})
	_, sendErr := e.bus.Send(Name, "director", bus.TypeReviewRequest, "review_request", string(body), bus.PriorityMedium, nil)
	return sendErr
}

func (e *Executor) runTask(ctx context.Context, task *store.Task) (string, error) {
	prompt := "Execute this task and provide results:\n\n" +
		"Task ID: " + task.ID + "\n" +
		"Title: " + task.Title + "\n" +
		"Description: " + task.Description + "\n" +
		"Priority: " + string(task.Priority) + "\n\n" +
		"Please:\n" +
		"1. Analyze what needs to be done\n" +
		"2. Break down into specific steps if complex\n" +
		"3. Execute each step (or describe what would be done)\n" +
		"4. Document any decisions or assumptions made\n" +
		"5. Identify any blockers or dependencies\n" +
		"6. Provide the final output or deliverable description\n\n" +
		"If you encounter any blockers that prevent completion, clearly state them."

	return e.llm.Complete(ctx, e.persona.Provider, llm.Request{
		Model:        e.persona.Model,
		SystemPrompt: e.persona.SystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
	})
}

// detectBlocker applies the same phrase-scan heuristic as the upstream
// executor: free-form task output that mentions a blocking phrase is
// treated as blocked rather than completed.
func detectBlocker(response string) (string, bool) {
	lower := strings.ToLower(response)
	for _, phrase := range blockedPhrases {
		if strings.Contains(lower, phrase) {
			return extractBlockerReason(response), true
		}
	}
	return "", false
}

// extractBlockerReason returns the first line mentioning a blocker phrase,
// falling back to the full response when no single line stands out.
func extractBlockerReason(response string) string {
	for _, line := range strings.Split(response, "\n") {
		lower := strings.ToLower(line)
		for _, phrase := range blockedPhrases {
			if strings.Contains(lower, phrase) {
				return strings.TrimSpace(line)
			}
		}
	}
	return strings.TrimSpace(response)
}
