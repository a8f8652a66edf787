package librarian

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/madhatter5501/aegis/internal/audit"
	"github.com/madhatter5501/aegis/internal/calendar"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

// PrepareMeeting builds a meeting brief for an upcoming calendar event:
// relevant journal history plus attendee and agenda context, run through
// the LLM, then recorded as a MeetingPrep keyed by event ID.
func (l *Librarian) PrepareMeeting(ctx context.Context, event calendar.Event) (string, error) {
	relevant := l.retriever.Retrieve(nil, event.Subject, 5)

	var history strings.Builder
	for _, e := range relevant {
		fmt.Fprintf(&history, "- %s (%s)\n", e.Summary, e.Author)
	}

	var attendees []string
	for _, a := range event.Attendees {
		name := a.Name
		if name == "" {
			name = a.Email
		}
		attendees = append(attendees, name)
	}

	prompt := fmt.Sprintf(`Prepare a meeting brief for:

Meeting: %s
Time: %s
Location: %s
Attendees: %s

Relevant history:
%s

Generate a brief covering meeting purpose, background, key discussion
points, current status, open questions, and action items to discuss.`,
		event.Subject, event.Start.Format(time.RFC1123), event.Location,
		strings.Join(attendees, ", "), history.String())

	systemPrompt := l.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are the Librarian, a knowledge-discovery peer agent."
	}

	brief, err := audit.LLMCall(l.store, l.logger, Name, len(systemPrompt)+len(prompt), func() (string, error) {
		return l.llm.Complete(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens:    1024,
		})
	})
	if err != nil {
		return "", err
	}

	if err := l.store.AddMeetingPrep(&store.MeetingPrep{
		EventID:   event.ID,
		Brief:     brief,
		CreatedBy: Name,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return brief, err
	}
	return brief, nil
}

// knowledgeDigestTags are the journal tags treated as enduring project
// knowledge when assembling a digest.
var knowledgeDigestTags = []string{"decision", "strategic", "architecture", "onboarding"}

// CreateKnowledgeDigest summarizes slow-decay and key-tagged journal
// entries plus recorded decisions into a single digest, and logs the
// digest itself back to the journal as a slow-decay entry.
func (l *Librarian) CreateKnowledgeDigest(ctx context.Context) (string, error) {
	all := l.journal.Index().All()

	var slowDecay []journal.IndexEntry
	for _, e := range all {
		if e.Decay == journal.DecaySlow {
			slowDecay = append(slowDecay, e)
		}
	}

	var byTag strings.Builder
	for _, tag := range knowledgeDigestTags {
		count := 0
		for _, e := range all {
			if containsString(e.Tags, tag) {
				fmt.Fprintf(&byTag, "- [%s] %s\n", tag, e.Summary)
				count++
				if count >= 5 {
					break
				}
			}
		}
	}

	decisions, err := l.store.GetRecentDecisions(10)
	if err != nil {
		return "", err
	}
	var decisionLines strings.Builder
	for _, d := range decisions {
		fmt.Fprintf(&decisionLines, "- %s: %s\n", d.Title, d.Rationale)
	}

	var slowLines strings.Builder
	for _, e := range slowDecay {
		fmt.Fprintf(&slowLines, "- %s\n", e.Summary)
	}

	prompt := fmt.Sprintf(`Create a knowledge digest capturing the most important, enduring
project information for a new team member or stakeholder.

Long-lived entries:
%s

Entries by theme:
%s

Recorded decisions:
%s

Cover project overview, key decisions and their rationale, architecture
and design choices, and lessons learned.`, slowLines.String(), byTag.String(), decisionLines.String())

	systemPrompt := l.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are the Librarian, a knowledge-discovery peer agent."
	}

	digest, err := audit.LLMCall(l.store, l.logger, Name, len(systemPrompt)+len(prompt), func() (string, error) {
		return l.llm.Complete(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens:    2048,
		})
	})
	if err != nil {
		return "", err
	}

	if _, err := l.journal.WriteEntry(Name, []string{"digest"}, "Knowledge Digest",
		"## Project Knowledge Digest\n\n"+digest, journal.DecaySlow); err != nil {
		l.logger.Error("log knowledge digest failed", "error", err)
	}
	return digest, nil
}

func containsString(xs []string, needle string) bool {
	for _, x := range xs {
		if x == needle {
			return true
		}
	}
	return false
}
