// Package bus implements the durable peer message bus described in
// spec.md §4.1: file-backed request/response and broadcast messaging with
// file-level mutual exclusion, threaded conversations, priority-ordered
// delivery, and bounded-wait correlated reply.
package bus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// Type is the closed-ish set of message types peers exchange. Types outside
// the taxonomy are accepted by send but ignored by peer dispatch.
type Type string

const (
	// Requests.
	TypeSearchRequest      Type = "search_request"
	TypeIndexRequest       Type = "index_request"
	TypeExecuteRequest     Type = "execute_request"
	TypeFileRequest        Type = "file_request"
	TypeKnowledgeRequest   Type = "knowledge_request"
	TypeStatusRequest      Type = "status_request"
	TypeClaudeCodeRequest  Type = "claude_code_request"
	TypeMeetingPrepRequest Type = "meeting_prep_request"

	// Results.
	TypeSearchResult     Type = "search_result"
	TypeIndexComplete    Type = "index_complete"
	TypeExecuteResult    Type = "execute_result"
	TypeFileComplete     Type = "file_complete"
	TypeKnowledgeResult  Type = "knowledge_result"
	TypeStatusResponse   Type = "status_response"
	TypeClaudeCodeResult Type = "claude_code_result"
	TypeMeetingPrepResult Type = "meeting_prep_result"

	// Collaboration.
	TypeDiscovery Type = "discovery"
	TypeSuggestion Type = "suggestion"
	TypeQuestion  Type = "question"
	TypeBlocker   Type = "blocker"
	TypeAlert     Type = "alert"

	// Legacy, kept for compatibility with older peer payloads.
	TypeReviewRequest Type = "review_request"
)

// Priority is the delivery priority of a message.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Message is a single bus entry. See spec.md §3.
type Message struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Type     Type      `json:"type"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Priority Priority  `json:"priority"`
	Timestamp string   `json:"timestamp"`
	Read     bool      `json:"read"`
	ReadAt   *string   `json:"read_at,omitempty"`
	ThreadID string    `json:"thread_id"`
	ReplyTo  *string   `json:"reply_to,omitempty"`
}

// busFile is the on-disk shape of message_bus.json.
type busFile struct {
	Messages  []Message `json:"messages"`
	CreatedAt string    `json:"created_at"`
}

// Bus is a file-backed peer message bus.
type Bus struct {
	path string
}

// Open opens (creating if necessary) the message bus at path.
func Open(path string) (*Bus, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create bus directory")
	}
	b := &Bus{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		init := busFile{Messages: []Message{}, CreatedAt: nowStamp()}
		if err := b.writeAtomic(init); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// readLocked reads the bus file while holding lock. Corruption is a hard
// error surfaced to the caller; it is never silently dropped.
func (b *Bus) readLocked() (busFile, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return busFile{Messages: []Message{}, CreatedAt: nowStamp()}, nil
		}
		return busFile{}, apperr.Wrap(apperr.KindStoreUnavailable, err, "read bus file")
	}
	if len(data) == 0 {
		return busFile{Messages: []Message{}, CreatedAt: nowStamp()}, nil
	}
	var bf busFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return busFile{}, apperr.Wrap(apperr.KindCorruptState, err, "parse bus file %s", b.path)
	}
	return bf, nil
}

// writeAtomic writes the bus file via write-temp-then-rename so a crash
// mid-write leaves the file at the pre-write state or fully written, never
// partial.
func (b *Bus) writeAtomic(bf busFile) error {
	tmp := b.path + ".tmp"
	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "marshal bus file")
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "write temp bus file")
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "rename temp bus file")
	}
	return nil
}

// withLock acquires the bus file lock for the duration of fn, releasing it
// on every exit path including panic/failure.
func (b *Bus) withLock(fn func() error) error {
	lock, err := acquireLock(b.path + ".lock")
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "acquire bus lock")
	}
	defer lock.release()
	return fn()
}

// Send appends a new message and returns its id.
func (b *Bus) Send(from, to string, typ Type, subject, body string, priority Priority, replyTo *string) (string, error) {
	id := uuid.NewString()
	msg := Message{
		ID:        id,
		From:      from,
		To:        to,
		Type:      typ,
		Subject:   subject,
		Body:      body,
		Priority:  priority,
		Timestamp: nowStamp(),
		Read:      false,
		ThreadID:  id,
		ReplyTo:   replyTo,
	}

	err := b.withLock(func() error {
		bf, err := b.readLocked()
		if err != nil {
			return err
		}
		if replyTo != nil {
			for _, m := range bf.Messages {
				if m.ID == *replyTo {
					msg.ThreadID = m.ThreadID
					break
				}
			}
		}
		bf.Messages = append(bf.Messages, msg)
		return b.writeAtomic(bf)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetPending returns unread messages addressed to agent, sorted by
// (priority rank asc, timestamp asc).
func (b *Bus) GetPending(agent string) ([]Message, error) {
	var result []Message
	err := b.withLock(func() error {
		bf, err := b.readLocked()
		if err != nil {
			return err
		}
		for _, m := range bf.Messages {
			if m.To == agent && !m.Read {
				result = append(result, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		pi, pj := priorityRank(result[i].Priority), priorityRank(result[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

// MarkRead marks a message read. Idempotent.
func (b *Bus) MarkRead(id string) error {
	return b.withLock(func() error {
		bf, err := b.readLocked()
		if err != nil {
			return err
		}
		for i := range bf.Messages {
			if bf.Messages[i].ID == id {
				if bf.Messages[i].Read {
					return nil
				}
				bf.Messages[i].Read = true
				ts := nowStamp()
				bf.Messages[i].ReadAt = &ts
				return b.writeAtomic(bf)
			}
		}
		return nil
	})
}

// GetThread returns every message sharing msgID's thread, in timestamp order.
func (b *Bus) GetThread(msgID string) ([]Message, error) {
	var threadID string
	var result []Message
	err := b.withLock(func() error {
		bf, err := b.readLocked()
		if err != nil {
			return err
		}
		for _, m := range bf.Messages {
			if m.ID == msgID {
				threadID = m.ThreadID
				break
			}
		}
		if threadID == "" {
			return nil
		}
		for _, m := range bf.Messages {
			if m.ThreadID == threadID {
				result = append(result, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

// WaitForResponse polls GetPending(agent) until a message with
// ReplyTo == requestID appears, or timeout elapses, returning nil on
// timeout. It never holds the bus lock across the wait.
func (b *Bus) WaitForResponse(agent, requestID string, timeout, pollInterval time.Duration) (*Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		pending, err := b.GetPending(agent)
		if err != nil {
			return nil, err
		}
		for i := range pending {
			if pending[i].ReplyTo != nil && *pending[i].ReplyTo == requestID {
				return &pending[i], nil
			}
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		sleep := pollInterval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

// CleanupOldMessages removes messages older than the given number of days,
// returning the count removed.
func (b *Bus) CleanupOldMessages(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format("2006-01-02T15:04:05Z")
	removed := 0
	err := b.withLock(func() error {
		bf, err := b.readLocked()
		if err != nil {
			return err
		}
		kept := bf.Messages[:0]
		for _, m := range bf.Messages {
			if m.Timestamp < cutoff {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		bf.Messages = kept
		return b.writeAtomic(bf)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// --- Typed request/result helpers (spec.md §4.1) ---

type jsonBody = map[string]any

func encodeBody(v jsonBody) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// RequestSearch asks the Librarian to search files/journal/routes.
func (b *Bus) RequestSearch(from, query, path, searchType string, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"query": query, "path": path, "search_type": searchType})
	return b.Send(from, "librarian", TypeSearchRequest, fmt.Sprintf("search: %s", query), body, priority, nil)
}

// RequestExecute asks the Executor to run a shell command.
func (b *Bus) RequestExecute(from, command, cwd string, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"command": command, "cwd": cwd})
	return b.Send(from, "executor", TypeExecuteRequest, fmt.Sprintf("execute: %s", command), body, priority, nil)
}

// RequestFileOperation asks the Executor to perform a filesystem operation.
func (b *Bus) RequestFileOperation(from, operation, path, content, destination string, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"operation": operation, "path": path, "content": content, "destination": destination})
	return b.Send(from, "executor", TypeFileRequest, fmt.Sprintf("file %s: %s", operation, path), body, priority, nil)
}

// RequestKnowledge asks the Librarian a knowledge question.
func (b *Bus) RequestKnowledge(from, question, context string, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"question": question, "context": context})
	return b.Send(from, "librarian", TypeKnowledgeRequest, fmt.Sprintf("knowledge: %s", question), body, priority, nil)
}

// RequestClaudeCode asks the Executor to delegate to the coding-assistant CLI.
func (b *Bus) RequestClaudeCode(from, prompt, cwd string, allowEdits bool, timeoutSeconds int, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"prompt": prompt, "cwd": cwd, "allow_edits": allowEdits, "timeout": timeoutSeconds})
	return b.Send(from, "executor", TypeClaudeCodeRequest, "claude code request", body, priority, nil)
}

// RequestMeetingPrep asks the Librarian to prepare a brief for a
// calendar event. eventJSON is the event encoded as JSON (mirroring the
// calendar collaborator's Event shape).
func (b *Bus) RequestMeetingPrep(from, eventID, eventJSON string, priority Priority) (string, error) {
	return b.Send(from, "librarian", TypeMeetingPrepRequest, fmt.Sprintf("meeting prep: %s", eventID), eventJSON, priority, nil)
}

// ShareDiscovery broadcasts a discovery message.
func (b *Bus) ShareDiscovery(from, to, description string, details jsonBody, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"description": description, "details": details})
	return b.Send(from, to, TypeDiscovery, "discovery", body, priority, nil)
}

// ReportBlocker reports a blocker to the Director.
func (b *Bus) ReportBlocker(from, reason string, priority Priority) (string, error) {
	body := encodeBody(jsonBody{"reason": reason})
	return b.Send(from, "director", TypeBlocker, "blocked", body, priority, nil)
}

// SendResult replies to requestID with a typed *_result payload.
func (b *Bus) SendResult(from, to string, typ Type, payload jsonBody, priority Priority, requestID string) (string, error) {
	body := encodeBody(payload)
	return b.Send(from, to, typ, string(typ), body, priority, &requestID)
}
