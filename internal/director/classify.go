package director

import (
	"regexp"
	"strings"
)

// intent is the lexical classification of a user question, per spec.md
// §4.6's ask() algorithm step 1.
type intent int

const (
	intentDirect intent = iota
	intentFileSearch
	intentExecute
	intentExternalCode
	intentGreeting
)

var greetingPhrases = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "what time", "what's the time", "thanks", "thank you"}

var fileSearchKeywords = []string{"find", "search", "look for", "where is", "locate", "grep", "list files", "what files"}

var executeKeywords = []string{"run ", "execute ", "rm ", "delete ", "install ", "deploy ", "restart ", "kill "}

var externalCapabilityKeywords = []string{"browse", "look up", "web", "internet", "latest news", "real-time", "real time", "current price", "research", "write code", "implement", "fix the bug", "refactor"}

// classify applies closed lexical-heuristic keyword sets in the priority
// order spec.md §4.6 lists: file/search intent, explicit execution intent,
// external-capability delegation, trivial greeting, else direct answer.
func classify(question string) intent {
	lower := strings.ToLower(question)

	if containsAny(lower, fileSearchKeywords) {
		return intentFileSearch
	}
	if containsAny(lower, executeKeywords) {
		return intentExecute
	}
	if containsAny(lower, externalCapabilityKeywords) {
		return intentExternalCode
	}
	if containsAnyWord(lower, greetingPhrases) {
		return intentGreeting
	}
	return intentDirect
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// containsAnyWord is containsAny restricted to whole-word matches, so a
// short greeting such as "hi" does not match inside "think".
func containsAnyWord(haystack string, needles []string) bool {
	for _, n := range needles {
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\b`).MatchString(haystack) {
			return true
		}
	}
	return false
}
