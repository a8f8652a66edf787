package librarian

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/madhatter5501/aegis/internal/audit"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/calendar"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

type searchRequestBody struct {
	Query      string `json:"query"`
	Path       string `json:"path"`
	SearchType string `json:"search_type"`
}

// extensionHints maps lexical query terms to the extension they imply,
// used by the "smart" search_type's classification step.
var extensionHints = map[string]string{
	"python":     "py",
	"javascript": "js",
	"typescript": "ts",
	"go":         "go",
	"golang":     "go",
	"markdown":   "md",
}

func (l *Librarian) handleSearchRequest(ctx context.Context, msg bus.Message) error {
	var req searchRequestBody
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return l.replyErr(msg, bus.TypeSearchResult, "decode search_request", err)
	}
	if req.SearchType == "" {
		req.SearchType = "smart"
	}

	var payload map[string]any
	switch req.SearchType {
	case "routes":
		routes, err := l.router.SearchRoutes(req.Query, "", 0)
		if err != nil {
			return l.replyErr(msg, bus.TypeSearchResult, "search routes", err)
		}
		payload = map[string]any{
			"success": true,
			"summary": fmt.Sprintf("found %d matching code routes", len(routes)),
			"routes":  routes,
		}
	case "files":
		files, err := l.store.SearchFileIndex("", "", req.Query, 0)
		if err != nil {
			return l.replyErr(msg, bus.TypeSearchResult, "search files", err)
		}
		payload = map[string]any{
			"success": true,
			"summary": fmt.Sprintf("found %d matching files", len(files)),
			"files":   files,
		}
	case "journal":
		entries := l.retriever.Retrieve(nil, req.Query, 10)
		payload = map[string]any{
			"success": true,
			"summary": fmt.Sprintf("found %d matching journal entries", len(entries)),
			"journal": entries,
		}
		if len(entries) > 0 {
			related, err := journal.RelatedEntriesHTML(l.journal, l.retriever, entries[0].Filename, 3)
			if err != nil {
				l.logger.Error("related entries html preview failed", "error", err)
			} else {
				payload["related_html"] = related
			}
		}
	default:
		payload = l.smartSearch(req)
	}

	_, err := l.bus.SendResult(Name, msg.From, bus.TypeSearchResult, payload, bus.PriorityMedium, msg.ID)
	return err
}

// smartSearch classifies the query lexically into an extension search, a
// recursive content-pattern search, and journal retrieval, aggregating
// all three into one human-readable summary plus structured arrays.
func (l *Librarian) smartSearch(req searchRequestBody) map[string]any {
	lower := strings.ToLower(req.Query)

	var fileMatches []store.FileIndexEntry
	for term, ext := range extensionHints {
		if strings.Contains(lower, term) {
			if found, err := l.store.SearchFileIndex(ext, "", req.Path, 0); err == nil {
				fileMatches = append(fileMatches, found...)
			}
		}
	}

	contentMatches := grepTree(req.Path, req.Query)
	journalMatches := l.retriever.Retrieve(nil, req.Query, 5)

	summary := fmt.Sprintf(
		"%d file matches, %d content matches, %d journal matches",
		len(fileMatches), len(contentMatches), len(journalMatches),
	)
	return map[string]any{
		"success": true,
		"summary": summary,
		"files":   fileMatches,
		"content": contentMatches,
		"journal": journalMatches,
	}
}

// contentMatch is one line of a recursive grep hit.
type contentMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// grepTree performs a bounded recursive substring search under root (or
// "." if root is empty), skipping the same directories Onboard skips.
func grepTree(root, pattern string) []contentMatch {
	if root == "" {
		root = "."
	}
	if pattern == "" {
		return nil
	}
	var matches []contentMatch
	const maxMatches = 50
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || len(matches) >= maxMatches {
			return nil
		}
		if info.IsDir() {
			switch info.Name() {
			case "vendor", "node_modules", ".git", "dist", "build", "__pycache__", ".cache", ".venv":
				return filepath.SkipDir
			}
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if strings.Contains(scanner.Text(), pattern) {
				matches = append(matches, contentMatch{Path: path, Line: lineNo, Text: strings.TrimSpace(scanner.Text())})
				if len(matches) >= maxMatches {
					break
				}
			}
		}
		return nil
	})
	return matches
}

type indexRequestBody struct {
	Path string `json:"path"`
}

func (l *Librarian) handleIndexRequest(ctx context.Context, msg bus.Message) error {
	var req indexRequestBody
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return l.replyErr(msg, bus.TypeIndexComplete, "decode index_request", err)
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return l.replyErr(msg, bus.TypeIndexComplete, "stat file", err)
	}
	if err := l.store.AddFileToIndex(&store.FileIndexEntry{
		Path:       req.Path,
		Extension:  extOf(req.Path),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}); err != nil {
		return l.replyErr(msg, bus.TypeIndexComplete, "index file", err)
	}

	_, err = l.bus.SendResult(Name, msg.From, bus.TypeIndexComplete,
		map[string]any{"success": true, "path": req.Path}, bus.PriorityMedium, msg.ID)
	return err
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

type knowledgeRequestBody struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

func (l *Librarian) handleKnowledgeRequest(ctx context.Context, msg bus.Message) error {
	var req knowledgeRequestBody
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return l.replyErr(msg, bus.TypeKnowledgeResult, "decode knowledge_request", err)
	}

	if strings.EqualFold(strings.TrimSpace(req.Question), "digest") {
		digest, err := l.CreateKnowledgeDigest(ctx)
		if err != nil {
			return l.replyErr(msg, bus.TypeKnowledgeResult, "create knowledge digest", err)
		}
		_, err = l.bus.SendResult(Name, msg.From, bus.TypeKnowledgeResult,
			map[string]any{"success": true, "answer": digest}, bus.PriorityMedium, msg.ID)
		return err
	}

	entries := l.retriever.Retrieve(nil, req.Question, 5)
	files, _ := l.store.SearchFileIndex("", "", req.Question, 10)

	var sources []string
	var contextParts []string
	for _, e := range entries {
		sources = append(sources, e.Filename)
		contextParts = append(contextParts, "- "+e.Summary)
	}
	for _, f := range files {
		sources = append(sources, f.Path)
	}

	systemPrompt := l.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are the Librarian, a knowledge-discovery peer agent."
	}

	userContent := fmt.Sprintf("Question: %s\n\nRelevant journal entries:\n%s\n\nAdditional context: %s",
		req.Question, strings.Join(contextParts, "\n"), req.Context)

	answer, err := audit.LLMCall(l.store, l.logger, Name, len(systemPrompt)+len(userContent), func() (string, error) {
		return l.llm.Complete(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     []llm.Message{{Role: "user", Content: userContent}},
			MaxTokens:    1024,
		})
	})
	if err != nil {
		return l.replyErr(msg, bus.TypeKnowledgeResult, "llm complete", err)
	}

	_, err = l.bus.SendResult(Name, msg.From, bus.TypeKnowledgeResult,
		map[string]any{"success": true, "answer": answer, "sources": sources}, bus.PriorityMedium, msg.ID)
	return err
}

func (l *Librarian) handleMeetingPrepRequest(ctx context.Context, msg bus.Message) error {
	var event calendar.Event
	if err := json.Unmarshal([]byte(msg.Body), &event); err != nil {
		return l.replyErr(msg, bus.TypeMeetingPrepResult, "decode meeting_prep_request", err)
	}

	brief, err := l.PrepareMeeting(ctx, event)
	if err != nil {
		return l.replyErr(msg, bus.TypeMeetingPrepResult, "prepare meeting", err)
	}

	_, err = l.bus.SendResult(Name, msg.From, bus.TypeMeetingPrepResult,
		map[string]any{"success": true, "event_id": event.ID, "brief": brief}, bus.PriorityMedium, msg.ID)
	return err
}

func (l *Librarian) handleStatusRequest(ctx context.Context, msg bus.Message) error {
	pyFiles, _ := l.store.SearchFileIndex("", "", "", 0)
	discoveries, err := l.store.GetRecentDiscoveries(Name, 10)
	if err != nil {
		return l.replyErr(msg, bus.TypeStatusResponse, "get discoveries", err)
	}

	payload := map[string]any{
		"success":              true,
		"exploration_complete": l.explorationComplete,
		"file_index_count":     len(pyFiles),
		"recent_discoveries":   discoveries,
		"roots":                l.roots.Roots,
	}
	_, err = l.bus.SendResult(Name, msg.From, bus.TypeStatusResponse, payload, bus.PriorityMedium, msg.ID)
	return err
}
