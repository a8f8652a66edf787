package director

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/madhatter5501/aegis/internal/audit"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

var titleCaser = cases.Title(language.English)

// Ask answers a user question per spec.md §4.6's ask() algorithm:
// classify intent, optionally delegate to a peer and await its reply,
// assemble an LLM context from project state and journal history, then
// synthesise a response with the Director persona.
func (d *Director) Ask(ctx context.Context, question string) (string, error) {
	peerNote, peerResult := d.delegate(ctx, question)

	taskCtx, err := d.projectContext()
	if err != nil {
		return "", err
	}
	relevant := d.retriever.Retrieve(nil, question, 3)

	var b strings.Builder
	b.WriteString("## Current Context\n\n")
	b.WriteString(taskCtx)
	if peerNote != "" {
		fmt.Fprintf(&b, "### Peer Delegation\n- %s\n", peerNote)
	}
	if peerResult != "" {
		fmt.Fprintf(&b, "### Peer Result\n%s\n", peerResult)
	}
	if len(relevant) > 0 {
		b.WriteString("### Relevant Notes\n")
		for _, e := range relevant {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Summary, e.Author)
		}
	}

	systemPrompt := d.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are the Director, a user-facing coordination agent."
	}

	userContent := b.String() + "\n\n" + question
	answer, err := audit.LLMCall(d.store, d.logger, Name, len(systemPrompt)+len(userContent), func() (string, error) {
		return d.llm.Complete(ctx, d.persona.Provider, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     []llm.Message{{Role: "user", Content: userContent}},
			MaxTokens:    1024,
		})
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// delegate applies the lexical classification and, for peer-delegated
// intents, issues the request and awaits the bounded reply. Returns a
// human-readable note about what delegation (if any) was attempted, and
// the peer's raw result body (empty if none or timed out).
func (d *Director) delegate(ctx context.Context, question string) (note string, result string) {
	switch classify(question) {
	case intentFileSearch:
		id, err := d.bus.RequestSearch(Name, question, "", "smart", bus.PriorityMedium)
		if err != nil {
			return "file search request failed: " + err.Error(), ""
		}
		note = "delegated a file/knowledge search to the Librarian"
		if reply, err := d.awaitReply(ctx, id); err == nil && reply != nil {
			result = reply.Body
		} else if err == nil {
			note += " (no reply within the wait budget)"
		}
		return note, result

	case intentExecute:
		return "this looks like a command execution request; I will not run it without your explicit confirmation", ""

	case intentExternalCode:
		id, err := d.bus.RequestClaudeCode(Name, question, "", false, 60, bus.PriorityMedium)
		if err != nil {
			return "external code delegation failed: " + err.Error(), ""
		}
		note = "delegated to the external coding assistant"
		if reply, err := d.awaitReply(ctx, id); err == nil && reply != nil {
			result = reply.Body
		} else if err == nil {
			note += " (no reply within the wait budget)"
		}
		return note, result

	case intentGreeting, intentDirect:
		return "", ""
	default:
		return "", ""
	}
}

// projectContext mirrors spec.md §4.6's context assembly: tasks grouped
// by status, unacknowledged alerts, and the 5 most recent pending tasks.
func (d *Director) projectContext() (string, error) {
	tasks, err := d.store.GetTasks("")
	if err != nil {
		return "", err
	}
	alerts, err := d.store.GetAlerts("", boolPtr(false))
	if err != nil {
		return "", err
	}

	byStatus := map[store.TaskStatus]int{}
	var pending []store.Task
	for _, t := range tasks {
		byStatus[t.Status]++
		if t.Status == store.TaskPending {
			pending = append(pending, t)
		}
	}
	if len(pending) > 5 {
		pending = pending[:5]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", titleCaser.String("tasks summary"))
	for status, count := range byStatus {
		fmt.Fprintf(&b, "- %s: %d\n", status, count)
	}
	fmt.Fprintf(&b, "### %s\n", titleCaser.String("pending tasks"))
	for _, t := range pending {
		fmt.Fprintf(&b, "- %s (priority: %s)\n", t.Title, t.Priority)
	}
	fmt.Fprintf(&b, "### %s\n", titleCaser.String("unacknowledged alerts"))
	for _, a := range alerts {
		fmt.Fprintf(&b, "- [%s] %s\n", a.Level, a.Message)
	}
	return b.String(), nil
}

func boolPtr(b bool) *bool { return &b }
