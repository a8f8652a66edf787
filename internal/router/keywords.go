// Package router implements the static source scanner described in
// SPEC_FULL.md §4.5: it extracts discoverable code symbols (functions,
// classes, endpoints, handlers, structs, interfaces) from indexed files and
// persists them through the State Store as code routes.
package router

import (
	"strings"
	"unicode"
)

// splitWords breaks a symbol name into its lowercase camelCase/snake_case
// parts. The full lowercased name is always included by the caller;
// splitWords only needs to produce the sub-parts.
func splitWords(name string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// keywordsFor builds the keyword set every route carries: the lowercased
// full name plus its camel/snake-case parts, deduplicated.
func keywordsFor(name string, extra ...string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	add(name)
	for _, w := range splitWords(name) {
		add(w)
	}
	for _, e := range extra {
		add(e)
	}
	return out
}

var endpointDecorators = map[string]bool{
	"route": true, "get": true, "post": true, "put": true, "delete": true, "patch": true,
}

var handlerDecorators = map[string]bool{
	"command": true, "event": true, "handler": true,
}
